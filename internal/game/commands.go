// commands.go

package game

import (
	"errors"
	"math"

	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
	"github.com/jacl-coder/PureMadTanks-Server/internal/protocol"
)

// apply 在房间协程中执行一条指令
func (r *Room) apply(cmd Command) {
	switch cmd.Type {
	case protocol.MsgJoin:
		r.handleJoin(cmd.SessionID)
	case protocol.MsgSetNickname:
		r.handleSetNickname(cmd.SessionID, cmd.Payload.Nickname)
	case protocol.MsgSetReady:
		r.handleSetReady(cmd.SessionID)
	case protocol.MsgMove:
		r.handleMove(cmd.SessionID, cmd.Payload.Direction)
	case protocol.MsgAim:
		r.handleAim(cmd.SessionID, physics.Vec2{X: cmd.Payload.X, Y: cmd.Payload.Y}, false)
	case protocol.MsgAimAndFire:
		r.handleAim(cmd.SessionID, physics.Vec2{X: cmd.Payload.X, Y: cmd.Payload.Y}, true)
	case protocol.MsgDisconnect:
		r.handleDisconnect(cmd.SessionID)
	default:
		r.logger.Debug("未知指令", "type", cmd.Type, "session", cmd.SessionID)
		r.out.SendTo(cmd.SessionID, protocol.ErrorEnvelope("未知消息类型: "+string(cmd.Type)))
	}
}

func (r *Room) handleJoin(id string) {
	p := r.roster.Join(id)
	if p.Role == models.RoleSpectator {
		r.logger.Info("观战者加入", "session", id)
		r.out.SendTo(id, protocol.NewEnvelope(protocol.MsgSpectatorWaiting, nil))
		return
	}
	r.logger.Info("玩家加入", "session", id, "players", r.roster.ActiveCount())
	r.broadcastLobby()
}

func (r *Room) handleSetNickname(id, nickname string) {
	p := r.roster.Find(id)
	if p == nil {
		r.logger.Debug("未知会话", "session", id)
		return
	}
	if err := p.SetNickname(nickname); err != nil {
		r.rejectInput(id, err)
		return
	}
	r.out.SendTo(id, protocol.NewEnvelope(protocol.MsgNicknameConfirmed, protocol.NicknameConfirmed{
		ID:       p.ID,
		Nickname: p.Nickname,
	}))
}

func (r *Room) handleSetReady(id string) {
	p := r.roster.FindActive(id)
	if p == nil {
		if r.roster.Find(id) != nil {
			r.out.SendTo(id, protocol.ErrorEnvelope("观战者不能准备"))
		}
		return
	}
	if err := p.SetReady(); err != nil {
		r.rejectInput(id, err)
		return
	}

	if r.status == models.MatchPaused && r.roster.CheckAllReady() {
		r.out.Broadcast(protocol.NewEnvelope(protocol.MsgAllPlayersReady, nil))
		if err := r.StartMatch(); err != nil {
			r.logger.Warn("开局被取消", "err", err)
		}
		return
	}
	r.broadcastLobby()
}

func (r *Room) handleMove(id string, direction int) {
	p := r.playingPlayer(id)
	if p == nil {
		return
	}
	if !r.moveTank(p.Tank, direction) {
		r.logger.Debug("无效方向", "session", id, "direction", direction)
	}
}

func (r *Room) handleAim(id string, target physics.Vec2, fire bool) {
	p := r.roster.FindActive(id)
	if p == nil {
		return
	}
	if !isFiniteVec(target) {
		r.logger.Debug("无效瞄准点", "session", id)
		return
	}
	p.Pointer = target

	if r.playingPlayer(id) == nil {
		return
	}
	aimTank(p.Tank, target)
	if fire {
		r.fireRocket(p)
	}
}

func (r *Room) handleDisconnect(id string) {
	p, wasActive := r.roster.Remove(id)
	if p == nil {
		return
	}
	r.logger.Info("玩家离开", "session", id, "active", wasActive)
	if !wasActive {
		return
	}

	if r.status == models.MatchRunning {
		winner := ""
		if opp := r.roster.Opponent(id); opp != nil {
			winner = opp.ID
		}
		r.endMatch(models.MatchResult{WinnerID: winner, LoserID: id, Reason: models.EndDisconnect})
		return
	}
	r.broadcastLobby()
}

// playingPlayer 对局中拥有存活坦克的参战玩家
func (r *Room) playingPlayer(id string) *models.Player {
	if r.status != models.MatchRunning {
		return nil
	}
	p := r.roster.FindActive(id)
	if p == nil || p.Tank == nil || !p.Tank.Alive() {
		return nil
	}
	return p
}

func (r *Room) rejectInput(id string, err error) {
	if errors.Is(err, models.ErrInvalidTransition) {
		r.logger.Debug("忽略输入", "session", id, "err", err)
	} else {
		r.logger.Warn("处理输入失败", "session", id, "err", err)
	}
	r.out.SendTo(id, protocol.ErrorEnvelope(err.Error()))
}

func isFiniteVec(v physics.Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
