// main.go

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/jacl-coder/PureMadTanks-Server/config"
	"github.com/jacl-coder/PureMadTanks-Server/internal/record"
	"github.com/jacl-coder/PureMadTanks-Server/pkg/db"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	action := flag.String("action", "help", "操作类型: init, reset, stats, help")
	top := flag.Int64("top", 10, "stats 显示的排行榜人数")
	flag.Parse()

	if *action == "help" {
		showHelp()
		return
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatal("加载配置失败", "err", err)
	}
	cfg := &config.GlobalConfig
	ctx := context.Background()

	var err error
	switch *action {
	case "init":
		err = withSQL(ctx, cfg, db.Migrate)
	case "reset":
		log.Warn("正在删除全部对局记录", "driver", cfg.Record.Driver)
		err = withSQL(ctx, cfg, db.Reset)
	case "stats":
		err = showStats(ctx, cfg, *top)
	default:
		log.Fatal("未知操作", "action", *action)
	}
	if err != nil {
		log.Fatal("操作失败", "action", *action, "err", err)
	}
	log.Info("操作完成", "action", *action)
}

// showHelp 显示帮助信息
func showHelp() {
	fmt.Println("PureMadTanks 对局记录管理工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  go run ./cmd/dbtool -action=<操作> [-config=<配置文件>]")
	fmt.Println()
	fmt.Println("操作:")
	fmt.Println("  init   - 创建 match_records 表")
	fmt.Println("  reset  - 删除 match_records 表")
	fmt.Println("  stats  - 显示对局数量或 Redis 胜场排行")
	fmt.Println("  help   - 显示此帮助信息")
}

// openSQL 按记录驱动打开数据库
func openSQL(ctx context.Context, cfg *config.Config) (*sql.DB, record.Dialect, error) {
	switch cfg.Record.Driver {
	case "postgres":
		dsn := cfg.Record.DSN
		if dsn == "" {
			dsn = cfg.Database.GetDSN()
		}
		conn, err := db.OpenPostgres(ctx, dsn)
		return conn, record.DialectPostgres, err
	case "sqlite":
		conn, err := db.OpenSQLite(ctx, cfg.Record.DSN)
		return conn, record.DialectSQLite, err
	default:
		return nil, 0, fmt.Errorf("驱动 %q 没有表结构", cfg.Record.Driver)
	}
}

func withSQL(ctx context.Context, cfg *config.Config, fn func(context.Context, *sql.DB) error) error {
	conn, _, err := openSQL(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

func showStats(ctx context.Context, cfg *config.Config, top int64) error {
	if cfg.Record.Driver == "redis" {
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		rec := record.NewRedisRecorder(client)
		defer rec.Close()

		entries, err := rec.TopWinners(ctx, top)
		if err != nil {
			return err
		}
		for i, e := range entries {
			fmt.Fprintf(os.Stdout, "%2d. %s %.0f\n", i+1, e.PlayerID, e.Wins)
		}
		return nil
	}

	conn, dialect, err := openSQL(ctx, cfg)
	if err != nil {
		return err
	}
	rec, err := record.NewSQLRecorder(ctx, conn, dialect)
	if err != nil {
		conn.Close()
		return err
	}
	defer rec.Close()

	n, err := rec.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "对局记录: %d\n", n)
	return nil
}
