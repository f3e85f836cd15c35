package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"
)

// ShapeKind 形状类型
type ShapeKind int

const (
	// ShapeBox 轴对齐矩形（可带旋转）
	ShapeBox ShapeKind = iota
	// ShapeCircle 圆形
	ShapeCircle
)

// Shape 刚体形状，单位为像素
type Shape struct {
	Kind   ShapeKind
	Width  float64
	Height float64
	Radius float64
}

// Box 矩形，宽高为完整尺寸
func Box(width, height float64) Shape {
	return Shape{Kind: ShapeBox, Width: width, Height: height}
}

// Circle 圆形
func Circle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius}
}

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeBox:
		if !(s.Width > 0) || !(s.Height > 0) || !isFinite(s.Width) || !isFinite(s.Height) {
			return fmt.Errorf("%w: 矩形 %vx%v", ErrDegenerateShape, s.Width, s.Height)
		}
	case ShapeCircle:
		if !(s.Radius > 0) || !isFinite(s.Radius) {
			return fmt.Errorf("%w: 圆形半径 %v", ErrDegenerateShape, s.Radius)
		}
	default:
		return fmt.Errorf("%w: 未知形状 %d", ErrDegenerateShape, s.Kind)
	}
	return nil
}

// BodyDef 刚体定义
type BodyDef struct {
	Shape    Shape
	Position Vec2    // 像素
	Angle    float64 // 弧度

	Density     float64
	Friction    float64
	Restitution float64

	// Bullet 开启连续碰撞检测，防止高速穿墙
	Bullet        bool
	FixedRotation bool

	// Data 上层实体
	Data interface{}
}

// Fixture 夹具
type Fixture struct {
	Body  *Body
	Shape Shape
}

// Body 刚体句柄
type Body struct {
	raw   *box2d.B2Body
	world *World
	shape Shape

	static bool
	bullet bool

	queued    bool
	destroyed bool

	// Data 上层实体，由实体层写入
	Data interface{}
}

// Position 质心位置（像素）
func (b *Body) Position() Vec2 {
	p := b.raw.GetPosition()
	return Vec2{X: p.X * b.world.scale, Y: p.Y * b.world.scale}
}

// Angle 旋转角度（弧度）
func (b *Body) Angle() float64 {
	return b.raw.GetAngle()
}

// SetAngle 设置旋转角度，位置不变
func (b *Body) SetAngle(angle float64) {
	if !isFinite(angle) {
		return
	}
	b.raw.SetTransform(b.raw.GetPosition(), angle)
}

// LinearVelocity 线速度（物理单位/秒）
func (b *Body) LinearVelocity() Vec2 {
	v := b.raw.GetLinearVelocity()
	return Vec2{X: v.X, Y: v.Y}
}

// SetLinearVelocity 设置线速度（物理单位/秒）
func (b *Body) SetLinearVelocity(v Vec2) {
	if !v.finite() {
		return
	}
	b.raw.SetLinearVelocity(box2d.MakeB2Vec2(v.X, v.Y))
}

// ApplyImpulse 在质心施加冲量
func (b *Body) ApplyImpulse(impulse Vec2) {
	if !impulse.finite() {
		return
	}
	b.raw.ApplyLinearImpulse(box2d.MakeB2Vec2(impulse.X, impulse.Y), b.raw.GetWorldCenter(), true)
}

// Shape 创建时的形状
func (b *Body) Shape() Shape {
	return b.shape
}

// IsStatic 是否为静态刚体
func (b *Body) IsStatic() bool {
	return b.static
}

// IsBullet 是否开启连续碰撞检测
func (b *Body) IsBullet() bool {
	return b.bullet
}

// Queued 是否已在销毁队列中
func (b *Body) Queued() bool {
	return b.queued
}

// Destroyed 是否已从世界移除
func (b *Body) Destroyed() bool {
	return b.destroyed
}

// Gone 已销毁或等待销毁
func (b *Body) Gone() bool {
	return b.queued || b.destroyed
}
