// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/jacl-coder/PureMadTanks-Server/config"
	"github.com/jacl-coder/PureMadTanks-Server/internal/game"
	"github.com/jacl-coder/PureMadTanks-Server/internal/gateway"
	"github.com/jacl-coder/PureMadTanks-Server/internal/record"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	issueToken := flag.String("issue-token", "", "为指定昵称签发握手令牌后退出")
	flag.Parse()

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatal("加载配置失败", "err", err)
	}
	cfg := &config.GlobalConfig

	setupLogger(cfg.Server)

	if *issueToken != "" {
		if err := printToken(cfg.Auth, *issueToken); err != nil {
			log.Fatal("签发令牌失败", "err", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 对局记录
	rec, err := record.Open(ctx, cfg)
	if err != nil {
		log.Fatal("初始化对局记录失败", "driver", cfg.Record.Driver, "err", err)
	}
	results := record.NewAsync(rec, cfg.Record.Buffer)

	server, err := game.NewGameServer(cfg, results)
	if err != nil {
		results.Close()
		log.Fatal("创建游戏服务器失败", "err", err)
	}
	if err := server.Start(ctx); err != nil {
		results.Close()
		log.Fatal("启动游戏服务器失败", "err", err)
	}

	// 等待中断信号
	<-ctx.Done()
	log.Info("接收到关闭信号，正在关闭服务器...")

	if err := server.Stop(); err != nil {
		log.Error("关闭游戏服务器失败", "err", err)
	}
	if err := results.Close(); err != nil {
		log.Error("关闭对局记录失败", "err", err)
	}

	log.Info("服务器已安全关闭")
}

// setupLogger 按配置设置日志级别
func setupLogger(cfg config.ServerConfig) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn("未知的日志级别，使用 info", "level", cfg.LogLevel)
		level = log.InfoLevel
	}
	if cfg.Debug {
		level = log.DebugLevel
		log.SetReportCaller(true)
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)
}

func printToken(cfg config.AuthConfig, nickname string) error {
	issuer, err := gateway.NewTokenIssuer(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := issuer.Issue(nickname)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}
