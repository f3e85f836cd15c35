package models

import (
	"time"
)

// MatchStatus 对局状态
type MatchStatus string

const (
	// MatchPaused 暂停，不步进物理世界
	MatchPaused MatchStatus = "paused"
	// MatchRunning 对局进行中
	MatchRunning MatchStatus = "running"
)

// EndReason 对局结束原因
type EndReason string

const (
	// EndTankDestroyed 坦克被摧毁
	EndTankDestroyed EndReason = "tank_destroyed"
	// EndDisconnect 参战玩家断开
	EndDisconnect EndReason = "disconnect"
	// EndAborted 开局失败
	EndAborted EndReason = "aborted"
)

// MatchResult 对局结果
type MatchResult struct {
	WinnerID  string    `json:"winner_id,omitempty"`
	LoserID   string    `json:"loser_id,omitempty"`
	Reason    EndReason `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Ticks     uint64    `json:"ticks"`
}
