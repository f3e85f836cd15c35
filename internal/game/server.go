package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/jacl-coder/PureMadTanks-Server/config"
	"github.com/jacl-coder/PureMadTanks-Server/internal/gateway"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// GameServer 游戏服务器，一个进程一个房间
type GameServer struct {
	config  *config.Config
	room    *Room
	hub     *Hub
	issuer  *gateway.TokenIssuer
	limiter *gateway.RateLimiter
	logger  *log.Logger

	httpServer *http.Server
	cancel     context.CancelFunc
	roomDone   chan error
}

// NewGameServer 创建游戏服务器，sink 可以为空
func NewGameServer(cfg *config.Config, sink ResultSink) (*GameServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &GameServer{
		config:  cfg,
		hub:     NewHub(),
		limiter: gateway.NewRateLimiter(cfg.Server.HandshakesPerMinute),
		logger:  log.Default().WithPrefix("server"),
	}

	if cfg.Auth.Secret != "" {
		issuer, err := gateway.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, err
		}
		s.issuer = issuer
	}

	opts := []Option{WithLogger(log.Default().WithPrefix("game"))}
	if sink != nil {
		opts = append(opts, WithResultSink(sink))
	}
	room, err := NewRoom(cfg.Game, s.hub, opts...)
	if err != nil {
		return nil, err
	}
	s.room = room
	return s, nil
}

// Room 服务器的房间
func (s *GameServer) Room() *Room {
	return s.room
}

// Hub 会话注册表
func (s *GameServer) Hub() *Hub {
	return s.hub
}

// StartRoom 启动房间协程
func (s *GameServer) StartRoom(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.roomDone = make(chan error, 1)
	go func() {
		s.roomDone <- s.room.Run(ctx)
	}()
}

// Start 启动房间和HTTP服务，监听失败时返回错误
func (s *GameServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}

	s.StartRoom(ctx)

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("游戏服务器启动", "port", s.config.Server.Port)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务器错误", "err", err)
		}
	}()
	return nil
}

// Stop 停止HTTP服务和房间
func (s *GameServer) Stop() error {
	var shutdownErr error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("HTTP服务器关闭错误: %w", err)
		}
	}

	if s.cancel != nil {
		s.cancel()
		<-s.roomDone
	}
	s.limiter.Stop()

	s.logger.Info("游戏服务器已停止")
	return shutdownErr
}

// Handler HTTP路由
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket 连接端点，只对握手限流
	mux.Handle("/ws", s.limiter.Middleware(http.HandlerFunc(s.handleWSConnection)))

	// 健康检查端点
	mux.HandleFunc("/health", s.handleHealth)

	// 大厅二维码
	mux.HandleFunc("/qr", s.handleQR)

	return gateway.Chain(mux,
		gateway.NewLoggingMiddleware(log.Default().WithPrefix("gateway")).Middleware,
		gateway.SecurityHeaders,
	)
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"room":     s.room.ID,
		"sessions": s.hub.Count(),
	})
}

// handleQR 返回指向 server.public_url 的二维码图片
func (s *GameServer) handleQR(w http.ResponseWriter, r *http.Request) {
	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxQRSize {
			http.Error(w, "无效的尺寸", http.StatusBadRequest)
			return
		}
		size = n
	}

	png, err := qrcode.Encode(s.config.Server.PublicURL, qrcode.Medium, size)
	if err != nil {
		s.logger.Error("生成二维码失败", "err", err)
		http.Error(w, "生成二维码失败", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
