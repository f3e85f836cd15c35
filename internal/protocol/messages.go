// messages.go

package protocol

// MessageType 消息类型
type MessageType string

// 客户端发往服务器
const (
	MsgJoin        MessageType = "join"
	MsgSetNickname MessageType = "set_nickname"
	MsgSetReady    MessageType = "set_ready"
	MsgMove        MessageType = "move"
	MsgAim         MessageType = "aim"
	MsgAimAndFire  MessageType = "aim_and_fire"
	MsgDisconnect  MessageType = "disconnect"
)

// 服务器发往客户端
const (
	MsgLobbyWaiting      MessageType = "lobby_waiting"
	MsgNicknameConfirmed MessageType = "nickname_confirmed"
	MsgAllPlayersReady   MessageType = "all_players_ready"
	MsgWorldSnapshot     MessageType = "world_snapshot"
	MsgMatchEnded        MessageType = "match_ended"
	MsgSpectatorWaiting  MessageType = "spectator_waiting"
	MsgError             MessageType = "error"
)

// 移动方向键码 A/D/W/S
const (
	KeyLeft  = 65
	KeyRight = 68
	KeyUp    = 87
	KeyDown  = 83
)

// Envelope 出站消息
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Inbound 入站消息，所有指令共用一个载荷结构
type Inbound struct {
	Type    MessageType    `json:"type"`
	Payload InboundPayload `json:"payload"`
}

// InboundPayload 入站载荷
type InboundPayload struct {
	Nickname  string  `json:"nickname,omitempty"`
	Direction int     `json:"direction,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

// LobbyWaiting 等待玩家
type LobbyWaiting struct {
	Players  int `json:"players"`
	Required int `json:"required"`
}

// NicknameConfirmed 昵称确认
type NicknameConfirmed struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// MatchEnded 对局结束
type MatchEnded struct {
	WinnerID string `json:"winner_id,omitempty"`
	LoserID  string `json:"loser_id,omitempty"`
	Reason   string `json:"reason"`
}

// ErrorMessage 错误提示
type ErrorMessage struct {
	Message string `json:"message"`
}

// WorldSnapshot 世界快照
type WorldSnapshot struct {
	Tick     uint64           `json:"tick"`
	Entities []EntitySnapshot `json:"entities"`
}

// EntitySnapshot 单个实体的快照，坐标为像素，角度为度
type EntitySnapshot struct {
	UniqueName string    `json:"unique_name"`
	Kind       string    `json:"kind"`
	SpriteID   string    `json:"sprite_id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Rotation   int       `json:"rotation"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Health     *int      `json:"health,omitempty"`
	Velocity   *Velocity `json:"velocity,omitempty"`
	Destroyed  bool      `json:"destroyed"`
}

// Velocity 线速度（物理单位/秒）
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewEnvelope 构造出站消息
func NewEnvelope(t MessageType, payload interface{}) Envelope {
	return Envelope{Type: t, Payload: payload}
}

// ErrorEnvelope 构造错误消息
func ErrorEnvelope(message string) Envelope {
	return Envelope{Type: MsgError, Payload: ErrorMessage{Message: message}}
}
