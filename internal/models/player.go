// player.go

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
)

// ErrInvalidTransition 玩家状态不允许该操作
var ErrInvalidTransition = errors.New("非法的玩家状态转换")

// MaxNicknameLength 昵称最大字符数
const MaxNicknameLength = 20

// PlayerState 玩家状态
type PlayerState string

const (
	// StateConnected 已连接，未设置昵称
	StateConnected PlayerState = "connected"
	// StateNamed 已设置昵称
	StateNamed PlayerState = "named"
	// StateReady 已准备
	StateReady PlayerState = "ready"
	// StateDisconnected 已断开
	StateDisconnected PlayerState = "disconnected"
)

// Role 玩家角色
type Role string

const (
	// RolePlayer 参战玩家
	RolePlayer Role = "player"
	// RoleSpectator 观战者
	RoleSpectator Role = "spectator"
)

// Player 连接到房间的参与者
type Player struct {
	ID       string      `json:"id"`
	Nickname string      `json:"nickname"`
	State    PlayerState `json:"state"`
	Role     Role        `json:"role"`

	// 对局中的坦克，未开局时为空
	Tank *Entity `json:"-"`
	// 最近一次瞄准位置（像素）
	Pointer physics.Vec2 `json:"-"`
	// 装填完成的帧号
	ReloadUntil uint64 `json:"-"`

	JoinedAt time.Time `json:"joined_at"`
}

// NewPlayer 创建新连接的玩家
func NewPlayer(id string, role Role) *Player {
	return &Player{
		ID:       id,
		State:    StateConnected,
		Role:     role,
		JoinedAt: time.Now(),
	}
}

// SetNickname 设置昵称，仅允许在 connected 或 named 状态下调用
func (p *Player) SetNickname(nickname string) error {
	if p.State != StateConnected && p.State != StateNamed {
		return fmt.Errorf("%w: %s 状态下不能设置昵称", ErrInvalidTransition, p.State)
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("%w: 昵称不能为空", ErrInvalidTransition)
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		nickname = string([]rune(nickname)[:MaxNicknameLength])
	}
	p.Nickname = nickname
	p.State = StateNamed
	return nil
}

// SetReady 准备，必须先设置昵称。重复准备无副作用
func (p *Player) SetReady() error {
	switch p.State {
	case StateReady:
		return nil
	case StateNamed:
		p.State = StateReady
		return nil
	default:
		return fmt.Errorf("%w: %s 状态下不能准备", ErrInvalidTransition, p.State)
	}
}

// ResetToLobby 对局结束后回到大厅，需要重新准备
func (p *Player) ResetToLobby() {
	p.Tank = nil
	p.ReloadUntil = 0
	if p.State == StateReady {
		p.State = StateNamed
	}
}

// Disconnect 标记为已断开
func (p *Player) Disconnect() {
	p.State = StateDisconnected
	p.Tank = nil
}

// IsActive 是否为参战玩家
func (p *Player) IsActive() bool {
	return p.Role == RolePlayer
}
