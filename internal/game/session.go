// session.go

package game

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jacl-coder/PureMadTanks-Server/internal/protocol"
)

// sendBuffer 每个会话的发送队列长度
const sendBuffer = 256

// Session 一个客户端连接，持有所在房间的句柄
type Session struct {
	ID       string
	Nickname string
	codec    protocol.Codec
	room     *Room

	send     chan []byte
	kick     chan struct{}
	kickOnce sync.Once
}

// NewSession 创建会话
func NewSession(id string, codec protocol.Codec, room *Room) *Session {
	return &Session{
		ID:    id,
		codec: codec,
		room:  room,
		send:  make(chan []byte, sendBuffer),
		kick:  make(chan struct{}),
	}
}

// Codec 会话使用的编解码器
func (s *Session) Codec() protocol.Codec {
	return s.codec
}

// Submit 向房间提交指令
func (s *Session) Submit(t protocol.MessageType, payload protocol.InboundPayload) error {
	return s.room.Submit(Command{SessionID: s.ID, Type: t, Payload: payload})
}

// Kick 让写协程断开连接
func (s *Session) Kick() {
	s.kickOnce.Do(func() { close(s.kick) })
}

// Hub 会话注册表，向房间提供广播
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *log.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub 创建注册表
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		logger:   log.Default().WithPrefix("hub"),
	}
}

// Register 注册会话
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

// Unregister 注销会话并关闭其发送队列，重复调用无副作用
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return
	}
	delete(h.sessions, id)
	close(s.send)
}

// Count 在线会话数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast 发送给全部会话，每种编码只编码一次
func (h *Hub) Broadcast(env protocol.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frames := make(map[string][]byte, 3)
	for _, s := range h.sessions {
		name := s.codec.Name()
		frame, ok := frames[name]
		if !ok {
			data, err := s.codec.Encode(env)
			if err != nil {
				h.logger.Error("编码消息失败", "type", env.Type, "codec", name, "err", err)
				frames[name] = nil
				continue
			}
			frames[name] = data
			frame = data
		}
		if frame != nil {
			h.deliver(s, frame)
		}
	}
}

// SendTo 发送给单个会话
func (h *Hub) SendTo(id string, env protocol.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.sessions[id]
	if !ok {
		return
	}
	data, err := s.codec.Encode(env)
	if err != nil {
		h.logger.Error("编码消息失败", "type", env.Type, "codec", s.codec.Name(), "err", err)
		return
	}
	h.deliver(s, data)
}

// deliver 非阻塞发送，队列已满时断开该连接
func (h *Hub) deliver(s *Session, frame []byte) {
	select {
	case s.send <- frame:
	default:
		h.logger.Warn("发送队列已满，断开连接", "session", s.ID)
		s.Kick()
	}
}
