// roster.go

package game

import (
	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
)

// MaxActivePlayers 对局的参战人数
const MaxActivePlayers = 2

// Roster 房间内的参战玩家与观战者，只由房间协程访问
type Roster struct {
	active     []*models.Player
	spectators []*models.Player
}

// NewRoster 创建名单
func NewRoster() *Roster {
	return &Roster{}
}

// Join 加入房间。参战位已满时成为观战者，且身份在本次连接内不变
func (r *Roster) Join(id string) *models.Player {
	if p := r.Find(id); p != nil {
		return p
	}
	if len(r.active) < MaxActivePlayers {
		p := models.NewPlayer(id, models.RolePlayer)
		r.active = append(r.active, p)
		return p
	}
	p := models.NewPlayer(id, models.RoleSpectator)
	r.spectators = append(r.spectators, p)
	return p
}

// Remove 移除玩家，返回被移除的玩家以及其是否为参战玩家
func (r *Roster) Remove(id string) (*models.Player, bool) {
	for i, p := range r.active {
		if p.ID == id {
			r.active = append(r.active[:i], r.active[i+1:]...)
			p.Disconnect()
			return p, true
		}
	}
	for i, p := range r.spectators {
		if p.ID == id {
			r.spectators = append(r.spectators[:i], r.spectators[i+1:]...)
			p.Disconnect()
			return p, false
		}
	}
	return nil, false
}

// Find 查找玩家（含观战者）
func (r *Roster) Find(id string) *models.Player {
	if p := r.FindActive(id); p != nil {
		return p
	}
	for _, p := range r.spectators {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindActive 查找参战玩家
func (r *Roster) FindActive(id string) *models.Player {
	for _, p := range r.active {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Active 参战玩家列表的副本
func (r *Roster) Active() []*models.Player {
	out := make([]*models.Player, len(r.active))
	copy(out, r.active)
	return out
}

// Spectators 观战者列表的副本
func (r *Roster) Spectators() []*models.Player {
	out := make([]*models.Player, len(r.spectators))
	copy(out, r.spectators)
	return out
}

// ActiveCount 参战人数
func (r *Roster) ActiveCount() int {
	return len(r.active)
}

// CheckAllReady 恰好两名参战玩家且都已准备
func (r *Roster) CheckAllReady() bool {
	if len(r.active) != MaxActivePlayers {
		return false
	}
	for _, p := range r.active {
		if p.State != models.StateReady {
			return false
		}
	}
	return true
}

// ResetActive 参战玩家回到大厅
func (r *Roster) ResetActive() {
	for _, p := range r.active {
		p.ResetToLobby()
	}
}

// Opponent 对手，没有时返回 nil
func (r *Roster) Opponent(id string) *models.Player {
	for _, p := range r.active {
		if p.ID != id {
			return p
		}
	}
	return nil
}
