package physics

import (
	"github.com/ByteArena/box2d"
)

// Contact 一对正在接触的刚体
type Contact interface {
	BodyA() *Body
	BodyB() *Body
	SetEnabled(enabled bool)
	IsEnabled() bool
	// WorldPoint 第一个接触点的世界坐标（像素）
	WorldPoint() (Vec2, bool)
}

// ContactListener 碰撞回调，在 Step 内同步执行。
// 回调中只能禁用接触或修改速度，不能创建或销毁刚体。
type ContactListener interface {
	BeginContact(c Contact)
	PreSolve(c Contact)
}

// contactAdapter 把 box2d 回调转发给 World 的 ContactListener
type contactAdapter struct {
	world *World
}

func (a *contactAdapter) BeginContact(contact box2d.B2ContactInterface) {
	if a.world.listener != nil {
		a.world.listener.BeginContact(&b2Contact{raw: contact, scale: a.world.scale})
	}
}

func (a *contactAdapter) EndContact(contact box2d.B2ContactInterface) {}

func (a *contactAdapter) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {
	if a.world.listener != nil {
		a.world.listener.PreSolve(&b2Contact{raw: contact, scale: a.world.scale})
	}
}

func (a *contactAdapter) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {}

type b2Contact struct {
	raw   box2d.B2ContactInterface
	scale float64
}

func (c *b2Contact) BodyA() *Body {
	return bodyOf(c.raw.GetFixtureA())
}

func (c *b2Contact) BodyB() *Body {
	return bodyOf(c.raw.GetFixtureB())
}

func (c *b2Contact) SetEnabled(enabled bool) {
	c.raw.SetEnabled(enabled)
}

func (c *b2Contact) IsEnabled() bool {
	return c.raw.IsEnabled()
}

func (c *b2Contact) WorldPoint() (Vec2, bool) {
	manifold := c.raw.GetManifold()
	if manifold == nil || manifold.PointCount == 0 {
		return Vec2{}, false
	}
	var wm box2d.B2WorldManifold
	c.raw.GetWorldManifold(&wm)
	p := wm.Points[0]
	return Vec2{X: p.X * c.scale, Y: p.Y * c.scale}, true
}

func bodyOf(f *box2d.B2Fixture) *Body {
	if f == nil {
		return nil
	}
	raw := f.GetBody()
	if raw == nil {
		return nil
	}
	b, _ := raw.GetUserData().(*Body)
	return b
}
