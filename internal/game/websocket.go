// websocket.go

package game

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jacl-coder/PureMadTanks-Server/internal/protocol"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 读取超时时间
	pongWait = 60 * time.Second

	// 发送 ping 的间隔时间
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWSConnection 处理WebSocket连接
func (s *GameServer) handleWSConnection(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 配置了密钥时校验握手令牌
	nickname := ""
	if s.issuer != nil {
		claims, err := s.issuer.Parse(r.URL.Query().Get("token"))
		if err != nil {
			s.logger.Debug("握手令牌无效", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "未授权", http.StatusUnauthorized)
			return
		}
		nickname = claims.Nickname
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket升级失败", "err", err)
		return
	}

	session := NewSession(uuid.New().String(), codec, s.room)
	session.Nickname = nickname
	s.hub.Register(session)

	s.logger.Info("玩家已连接", "session", session.ID, "codec", codec.Name(), "remote", r.RemoteAddr)

	go s.writePump(conn, session)

	if err := joinRoom(session); err != nil {
		s.logger.Warn("加入房间失败", "session", session.ID, "err", err)
		s.hub.Unregister(session.ID)
		conn.Close()
		return
	}

	go s.readPump(conn, session)
}

// joinRoom 提交加入指令，令牌带有昵称时接着提交昵称
func joinRoom(session *Session) error {
	if err := session.Submit(protocol.MsgJoin, protocol.InboundPayload{}); err != nil {
		return err
	}
	if session.Nickname == "" {
		return nil
	}
	return session.Submit(protocol.MsgSetNickname, protocol.InboundPayload{Nickname: session.Nickname})
}

// readPump 从WebSocket读取数据
func (s *GameServer) readPump(conn *websocket.Conn, session *Session) {
	defer func() {
		s.closeSession(session)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket错误", "session", session.ID, "err", err)
			}
			return
		}

		in, err := session.codec.Decode(data)
		if err != nil {
			s.logger.Debug("解析消息失败", "session", session.ID, "err", err)
			s.hub.SendTo(session.ID, protocol.ErrorEnvelope("消息格式错误"))
			continue
		}
		if in.Type == protocol.MsgDisconnect {
			return
		}
		if err := session.Submit(in.Type, in.Payload); errors.Is(err, ErrRoomClosed) {
			return
		}
	}
}

// writePump 向WebSocket写入数据，每条消息一帧
func (s *GameServer) writePump(conn *websocket.Conn, session *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	frameType := websocket.TextMessage
	if session.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-session.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(frameType, message); err != nil {
				return
			}
		case <-session.kick:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "发送队列已满"))
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeSession 注销会话，并通知房间玩家离开
func (s *GameServer) closeSession(session *Session) {
	if err := session.Submit(protocol.MsgDisconnect, protocol.InboundPayload{}); err != nil && !errors.Is(err, ErrRoomClosed) {
		s.logger.Warn("提交断开指令失败", "session", session.ID, "err", err)
	}
	s.hub.Unregister(session.ID)
	s.logger.Info("玩家已断开连接", "session", session.ID)
}
