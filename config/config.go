// config.go

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("配置无效")

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Record   RecordConfig   `mapstructure:"record"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	PublicURL string `mapstructure:"public_url"`

	// 每个IP每分钟允许的握手次数
	HandshakesPerMinute int `mapstructure:"handshakes_per_minute"`
}

// GameConfig 对局与物理世界配置，尺寸单位均为像素
type GameConfig struct {
	Height    float64 `mapstructure:"height"`
	Width     float64 `mapstructure:"width"`
	Scale     float64 `mapstructure:"scale"`
	GravityX  float64 `mapstructure:"gravity_x"`
	GravityY  float64 `mapstructure:"gravity_y"`
	Framerate int     `mapstructure:"framerate"`
	WallCount int     `mapstructure:"wall_count"`

	// 随机种子，0 表示使用当前时间
	Seed int64 `mapstructure:"seed"`

	ReloadMs         int     `mapstructure:"reload_ms"`
	RocketSpeed      float64 `mapstructure:"rocket_speed"` // 物理单位/秒
	RocketLifetimeMs int     `mapstructure:"rocket_lifetime_ms"`
	CommandBuffer    int     `mapstructure:"command_buffer"`
}

// AuthConfig 握手令牌配置，Secret 为空时不校验
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RecordConfig 对局记录配置
type RecordConfig struct {
	Driver string `mapstructure:"driver"` // none, postgres, sqlite, redis
	DSN    string `mapstructure:"dsn"`
	Buffer int    `mapstructure:"buffer"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// SetDefaults 注册默认值，环境变量覆盖只对已注册的键生效
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_url", "http://localhost:8000")
	v.SetDefault("server.handshakes_per_minute", 30)

	v.SetDefault("game.height", 800.0)
	v.SetDefault("game.width", 1200.0)
	v.SetDefault("game.scale", 30.0)
	v.SetDefault("game.gravity_x", 0.0)
	v.SetDefault("game.gravity_y", 0.0)
	v.SetDefault("game.framerate", 60)
	v.SetDefault("game.wall_count", 10)
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.reload_ms", 500)
	v.SetDefault("game.rocket_speed", 12.0)
	v.SetDefault("game.rocket_lifetime_ms", 3000)
	v.SetDefault("game.command_buffer", 256)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("record.driver", "none")
	v.SetDefault("record.dsn", "")
	v.SetDefault("record.buffer", 64)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "puremadtanks")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load 读取配置文件与 PMT_ 前缀的环境变量，path 为空时只使用默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("PMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = *cfg
	return nil
}

// Default 返回只包含默认值的配置
func Default() Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// 默认值的类型是固定的，这里不会失败
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate 校验整份配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: 端口 %d 超出范围", ErrInvalidConfig, c.Server.Port)
	}
	if err := c.Game.Validate(); err != nil {
		return err
	}
	switch c.Record.Driver {
	case "", "none", "postgres", "sqlite", "redis":
	default:
		return fmt.Errorf("%w: 未知的记录驱动 %q", ErrInvalidConfig, c.Record.Driver)
	}
	return nil
}

// Validate 校验对局配置，失败时对局不会进入运行状态
func (g GameConfig) Validate() error {
	switch {
	case g.Width <= 0 || g.Height <= 0:
		return fmt.Errorf("%w: 场地尺寸必须为正数 (%vx%v)", ErrInvalidConfig, g.Width, g.Height)
	case g.Scale <= 0:
		return fmt.Errorf("%w: 缩放比例必须为正数", ErrInvalidConfig)
	case g.Framerate <= 0:
		return fmt.Errorf("%w: 帧率必须为正数", ErrInvalidConfig)
	case g.WallCount < 0:
		return fmt.Errorf("%w: 墙体数量不能为负数", ErrInvalidConfig)
	case g.ReloadMs < 0 || g.RocketLifetimeMs < 0:
		return fmt.Errorf("%w: 时间参数不能为负数", ErrInvalidConfig)
	case g.RocketSpeed <= 0:
		return fmt.Errorf("%w: 火箭速度必须为正数", ErrInvalidConfig)
	}
	return nil
}

// TickInterval 每帧的墙钟间隔
func (g GameConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(g.Framerate)
}

// TicksFor 把毫秒换算成帧数，至少为1
func (g GameConfig) TicksFor(ms int) uint64 {
	ticks := uint64(ms * g.Framerate / 1000)
	if ticks == 0 {
		return 1
	}
	return ticks
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
