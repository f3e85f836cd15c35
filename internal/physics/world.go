// world.go

package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/charmbracelet/log"
)

var (
	// ErrDegenerateShape 形状尺寸为零、负数或非有限值
	ErrDegenerateShape = errors.New("physics: 形状尺寸无效")
	// ErrInvalidPosition 坐标或角度为非有限值
	ErrInvalidPosition = errors.New("physics: 坐标无效")
	// ErrWorldLocked 世界步进期间不允许创建或销毁刚体
	ErrWorldLocked = errors.New("physics: 世界正在步进")
)

// Vec2 二维向量
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Length 向量长度
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vec2) finite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

// World 物理世界，对外接口统一使用像素单位
type World struct {
	b2      *box2d.B2World
	scale   float64
	gravity Vec2

	listener ContactListener
	stepping bool
	logger   *log.Logger

	// 等待在两次步进之间销毁的刚体
	pending []*Body
}

// NewWorld 创建物理世界，gravity 使用物理单位
func NewWorld(gravity Vec2, scale float64) (*World, error) {
	if !(scale > 0) || !isFinite(scale) {
		return nil, fmt.Errorf("physics: 缩放比例无效: %v", scale)
	}
	if !gravity.finite() {
		return nil, fmt.Errorf("%w: 重力 (%v, %v)", ErrInvalidPosition, gravity.X, gravity.Y)
	}

	b2 := box2d.MakeB2World(box2d.MakeB2Vec2(gravity.X, gravity.Y))
	w := &World{
		b2:      &b2,
		scale:   scale,
		gravity: gravity,
		logger:  log.Default().WithPrefix("physics"),
	}
	w.b2.SetContactListener(&contactAdapter{world: w})
	return w, nil
}

// Scale 物理单位到像素单位的比例
func (w *World) Scale() float64 {
	return w.scale
}

// SetContactListener 设置碰撞回调，回调在 Step 内同步执行
func (w *World) SetContactListener(l ContactListener) {
	w.listener = l
}

// Locked 是否处于步进中
func (w *World) Locked() bool {
	return w.stepping || w.b2.IsLocked()
}

// CreateStaticBody 创建静态刚体
func (w *World) CreateStaticBody(def BodyDef) (*Body, error) {
	return w.createBody(def, box2d.B2BodyType.B2_staticBody)
}

// CreateDynamicBody 创建动态刚体
func (w *World) CreateDynamicBody(def BodyDef) (*Body, error) {
	return w.createBody(def, box2d.B2BodyType.B2_dynamicBody)
}

func (w *World) createBody(def BodyDef, bodyType uint8) (*Body, error) {
	if w.Locked() {
		w.logger.Warn("步进期间拒绝创建刚体")
		return nil, ErrWorldLocked
	}
	if err := def.Shape.validate(); err != nil {
		w.logger.Debug("拒绝创建刚体", "err", err)
		return nil, err
	}
	if !def.Position.finite() || !isFinite(def.Angle) {
		return nil, fmt.Errorf("%w: (%v, %v) 角度 %v", ErrInvalidPosition, def.Position.X, def.Position.Y, def.Angle)
	}

	bd := box2d.MakeB2BodyDef()
	bd.Type = bodyType
	bd.Position = box2d.MakeB2Vec2(def.Position.X/w.scale, def.Position.Y/w.scale)
	bd.Angle = def.Angle
	bd.Bullet = def.Bullet
	bd.FixedRotation = def.FixedRotation

	raw := w.b2.CreateBody(&bd)
	if raw == nil {
		return nil, ErrWorldLocked
	}

	fd := box2d.MakeB2FixtureDef()
	fd.Density = def.Density
	fd.Friction = def.Friction
	fd.Restitution = def.Restitution

	switch def.Shape.Kind {
	case ShapeCircle:
		circle := box2d.MakeB2CircleShape()
		circle.M_radius = def.Shape.Radius / w.scale
		fd.Shape = &circle
	default:
		box := box2d.MakeB2PolygonShape()
		box.SetAsBox(def.Shape.Width/2/w.scale, def.Shape.Height/2/w.scale)
		fd.Shape = &box
	}
	raw.CreateFixtureFromDef(&fd)

	body := &Body{
		raw:    raw,
		world:  w,
		shape:  def.Shape,
		static: bodyType == box2d.B2BodyType.B2_staticBody,
		bullet: def.Bullet,
		Data:   def.Data,
	}
	raw.SetUserData(body)
	return body, nil
}

// DestroyBody 立即销毁刚体，步进期间调用返回 ErrWorldLocked
func (w *World) DestroyBody(b *Body) error {
	if b == nil || b.destroyed {
		return nil
	}
	if w.Locked() {
		return ErrWorldLocked
	}
	w.destroy(b)
	return nil
}

// QueueDestroy 把刚体加入销毁队列，重复加入无副作用。返回是否为首次加入
func (w *World) QueueDestroy(b *Body) bool {
	if b == nil || b.destroyed || b.queued {
		return false
	}
	b.queued = true
	w.pending = append(w.pending, b)
	return true
}

// Pending 当前销毁队列的副本
func (w *World) Pending() []*Body {
	out := make([]*Body, len(w.pending))
	copy(out, w.pending)
	return out
}

// FlushDestroyed 销毁队列中的全部刚体并返回它们，步进期间不做任何事
func (w *World) FlushDestroyed() []*Body {
	if w.Locked() || len(w.pending) == 0 {
		return nil
	}
	flushed := w.pending
	w.pending = nil
	for _, b := range flushed {
		w.destroy(b)
	}
	w.logger.Debug("销毁刚体", "count", len(flushed), "remaining", w.b2.GetBodyCount())
	return flushed
}

func (w *World) destroy(b *Body) {
	w.b2.DestroyBody(b.raw)
	b.destroyed = true
	b.queued = false
}

// Step 推进一步，碰撞回调在此期间同步触发
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	w.stepping = true
	defer func() { w.stepping = false }()

	w.b2.Step(dt, velocityIterations, positionIterations)
	w.b2.ClearForces()
}

// ForEachBody 遍历世界中的全部刚体
func (w *World) ForEachBody(fn func(b *Body)) {
	for raw := w.b2.GetBodyList(); raw != nil; raw = raw.GetNext() {
		if b, ok := raw.GetUserData().(*Body); ok {
			fn(b)
		}
	}
}

// ForEachFixture 遍历刚体的全部夹具
func (w *World) ForEachFixture(b *Body, fn func(f Fixture)) {
	if b == nil || b.destroyed {
		return
	}
	for raw := b.raw.GetFixtureList(); raw != nil; raw = raw.GetNext() {
		fn(Fixture{Body: b, Shape: b.shape})
	}
}

// BodyCount 世界中的刚体数量
func (w *World) BodyCount() int {
	return w.b2.GetBodyCount()
}

// ToPixels 物理单位转换为像素
func (w *World) ToPixels(v float64) float64 {
	return v * w.scale
}

// ToWorld 像素转换为物理单位
func (w *World) ToWorld(v float64) float64 {
	return v / w.scale
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
