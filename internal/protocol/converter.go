package protocol

import (
	"math"

	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
)

// SnapshotOf 将实体转换为快照条目，必须在刚体销毁前调用
func SnapshotOf(e *models.Entity, destroyed bool) EntitySnapshot {
	pos := e.Body.Position()
	snap := EntitySnapshot{
		UniqueName: e.UniqueName,
		Kind:       string(e.Kind),
		SpriteID:   e.SpriteID,
		Width:      floor(e.Width),
		Height:     floor(e.Height),
		X:          floor(pos.X),
		Y:          floor(pos.Y),
		Rotation:   floor(e.Body.Angle() * 180 / math.Pi),
		OwnerID:    e.OwnerID(),
		Destroyed:  destroyed,
	}
	if hp, ok := e.Health(); ok {
		snap.Health = &hp
	}
	if !e.Body.IsStatic() {
		v := e.Body.LinearVelocity()
		snap.Velocity = &Velocity{X: v.X, Y: v.Y}
	}
	return snap
}

// ConvertMatchEnded 将对局结果转换为出站消息
func ConvertMatchEnded(res models.MatchResult) Envelope {
	return NewEnvelope(MsgMatchEnded, MatchEnded{
		WinnerID: res.WinnerID,
		LoserID:  res.LoserID,
		Reason:   string(res.Reason),
	})
}

func floor(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Floor(f))
}
