package game

import (
	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
)

// 房间实现 physics.ContactListener，回调在 world.Step 内同步执行，
// 只修改生命值并登记销毁、切分和结束，不直接改动世界结构
var _ physics.ContactListener = (*Room)(nil)

// PreSolve 己方火箭弹与坦克之间的接触在求解前禁用
func (r *Room) PreSolve(c physics.Contact) {
	a, b := models.EntityOf(c.BodyA()), models.EntityOf(c.BodyB())
	if a == nil || b == nil {
		return
	}
	if isFriendlyFire(a, b) {
		c.SetEnabled(false)
	}
}

// BeginContact 处理火箭弹命中
func (r *Room) BeginContact(c physics.Contact) {
	a, b := models.EntityOf(c.BodyA()), models.EntityOf(c.BodyB())
	if a == nil || b == nil {
		return
	}

	if isFriendlyFire(a, b) {
		c.SetEnabled(false)
		return
	}

	// 两侧分别判定，火箭弹互撞时双方都销毁
	if a.Kind == models.KindRocket {
		r.resolveRocket(c, a, b)
	}
	if b.Kind == models.KindRocket {
		r.resolveRocket(c, b, a)
	}
}

// resolveRocket 已等待销毁的火箭弹不再生效；撞上等待销毁的刚体时只销毁火箭弹
func (r *Room) resolveRocket(c physics.Contact, rocket, other *models.Entity) {
	if rocket.Body.Gone() {
		return
	}
	if other.Body.Gone() {
		rocket.Body.SetLinearVelocity(physics.Vec2{})
		r.world.QueueDestroy(rocket.Body)
		return
	}
	r.rocketHit(c, rocket, other)
}

// rocketHit 火箭弹 rocket 撞上 other
func (r *Room) rocketHit(c physics.Contact, rocket, other *models.Entity) {
	switch other.Kind {
	case models.KindTank:
		r.damageTank(other, rocket)
		r.world.QueueDestroy(rocket.Body)
	case models.KindWall:
		rocket.Body.SetLinearVelocity(physics.Vec2{})
		r.world.QueueDestroy(rocket.Body)

		point, ok := c.WorldPoint()
		if !ok {
			point = rocket.Body.Position()
		}
		if _, exists := r.walls[other.UniqueName]; exists {
			r.queueSplit(other.UniqueName, point)
		}
	default:
		rocket.Body.SetLinearVelocity(physics.Vec2{})
		r.world.QueueDestroy(rocket.Body)
	}
}

// damageTank 扣减生命值，归零时登记对局结束
func (r *Room) damageTank(tank, rocket *models.Entity) {
	hp, _ := tank.Health()
	hp -= models.RocketDamage
	if hp < 0 {
		hp = 0
	}
	tank.SetHealth(hp)

	r.logger.Debug("坦克被击中", "tank", tank.UniqueName, "owner", tank.OwnerID(), "health", hp)

	if hp > 0 {
		return
	}

	r.world.QueueDestroy(tank.Body)

	loser := tank.OwnerID()
	winner := rocket.OwnerID()
	if winner == "" || winner == loser {
		if opp := r.roster.Opponent(loser); opp != nil {
			winner = opp.ID
		}
	}
	r.scheduleEnd(winner, loser, models.EndTankDestroyed)
}

// isFriendlyFire 同一玩家的坦克与火箭弹
func isFriendlyFire(a, b *models.Entity) bool {
	var tank, rocket *models.Entity
	switch {
	case a.Kind == models.KindTank && b.Kind == models.KindRocket:
		tank, rocket = a, b
	case a.Kind == models.KindRocket && b.Kind == models.KindTank:
		tank, rocket = b, a
	default:
		return false
	}
	return tank.OwnerID() != "" && tank.OwnerID() == rocket.OwnerID()
}
