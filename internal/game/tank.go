package game

import (
	"math"

	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
	"github.com/jacl-coder/PureMadTanks-Server/internal/protocol"
)

const (
	// moveImpulse 每次按键施加的冲量（物理单位）
	moveImpulse = 5.0
	// maxTankSpeed 坦克速度上限（物理单位/秒）
	maxTankSpeed = 2.5
	// decelerationStep 每帧每轴的减速量
	decelerationStep = 0.025

	// 火箭弹离开场地超过该距离后销毁（像素）
	outOfArenaMargin = 50.0
)

// moveTank 按方向键推动坦克并限速
func (r *Room) moveTank(tank *models.Entity, direction int) bool {
	var impulse physics.Vec2
	switch direction {
	case protocol.KeyLeft:
		impulse.X = -moveImpulse
	case protocol.KeyRight:
		impulse.X = moveImpulse
	case protocol.KeyUp:
		impulse.Y = -moveImpulse
	case protocol.KeyDown:
		impulse.Y = moveImpulse
	default:
		return false
	}

	tank.Body.ApplyImpulse(impulse)

	v := tank.Body.LinearVelocity()
	if speed := v.Length(); speed > maxTankSpeed {
		tank.Body.SetLinearVelocity(physics.Vec2{
			X: v.X / speed * maxTankSpeed,
			Y: v.Y / speed * maxTankSpeed,
		})
	}
	return true
}

// aimTank 坦克朝向瞄准点
func aimTank(tank *models.Entity, target physics.Vec2) {
	pos := tank.Body.Position()
	dx, dy := target.X-pos.X, target.Y-pos.Y
	if dx == 0 && dy == 0 {
		return
	}
	tank.Body.SetAngle(math.Atan2(dy, dx))
}

// fireRocket 向瞄准点发射火箭弹，装填中或方向无效时返回 false
func (r *Room) fireRocket(p *models.Player) bool {
	tank := p.Tank
	if tank == nil || !tank.Alive() || r.tick < p.ReloadUntil {
		return false
	}

	pos := tank.Body.Position()
	dir := physics.Vec2{X: p.Pointer.X - pos.X, Y: p.Pointer.Y - pos.Y}
	dist := dir.Length()
	if dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return false
	}
	dir = physics.Vec2{X: dir.X / dist, Y: dir.Y / dist}

	// 出生点放在坦克外侧
	offset := math.Hypot(models.TankWidth, models.TankHeight)/2 + models.RocketRadius + 1
	spawn := physics.Vec2{X: pos.X + dir.X*offset, Y: pos.Y + dir.Y*offset}
	velocity := physics.Vec2{X: dir.X * r.cfg.RocketSpeed, Y: dir.Y * r.cfg.RocketSpeed}

	name := r.newName("rocket")
	rocket, err := models.NewRocket(r.world, name, p.ID, spawn, velocity)
	if err != nil {
		r.logger.Warn("发射火箭弹失败", "player", p.ID, "err", err)
		return false
	}
	rocket.ExpireTick = r.tick + r.cfg.TicksFor(r.cfg.RocketLifetimeMs)
	r.rockets[name] = rocket

	p.ReloadUntil = r.tick + r.cfg.TicksFor(r.cfg.ReloadMs)
	aimTank(tank, p.Pointer)
	return true
}

// decelerateTanks 每帧让坦克速度向零衰减
func (r *Room) decelerateTanks() {
	for _, tank := range r.tanks {
		if !tank.Alive() {
			continue
		}
		v := tank.Body.LinearVelocity()
		tank.Body.SetLinearVelocity(physics.Vec2{X: towardZero(v.X, decelerationStep), Y: towardZero(v.Y, decelerationStep)})
	}
}

func towardZero(v, step float64) float64 {
	switch {
	case v > step:
		return v - step
	case v < -step:
		return v + step
	default:
		return 0
	}
}

// cleanupRockets 销毁过期或飞出场地的火箭弹
func (r *Room) cleanupRockets() {
	for _, rocket := range r.rockets {
		if !rocket.Alive() {
			continue
		}
		if r.tick >= rocket.ExpireTick || r.outOfArena(rocket.Body.Position()) {
			r.world.QueueDestroy(rocket.Body)
		}
	}
}

func (r *Room) outOfArena(p physics.Vec2) bool {
	return p.X < -outOfArenaMargin || p.Y < -outOfArenaMargin ||
		p.X > r.cfg.Width+outOfArenaMargin || p.Y > r.cfg.Height+outOfArenaMargin
}
