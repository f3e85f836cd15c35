// entity.go

package models

import (
	"fmt"
	"math"

	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
)

// EntityKind 实体类型
type EntityKind string

const (
	// KindBorder 地图边界
	KindBorder EntityKind = "border"
	// KindWall 可破坏墙体
	KindWall EntityKind = "wall"
	// KindTank 坦克
	KindTank EntityKind = "tank"
	// KindRocket 火箭弹
	KindRocket EntityKind = "rocket"
)

// Orientation 墙体朝向
type Orientation int

const (
	// Horizontal 水平，沿X轴延伸
	Horizontal Orientation = iota
	// Vertical 垂直，沿Y轴延伸
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// 实体默认属性
const (
	TankWidth     = 40.0
	TankHeight    = 40.0
	TankHealth    = 100
	WallHealth    = 10
	RocketRadius  = 5.0
	RocketDamage  = 25
	WallThickness = 10.0
	BorderWidth   = 10.0
)

// 精灵ID
const (
	SpriteHBorder = "hBorder"
	SpriteVBorder = "vBorder"
	SpriteWall    = "wall"
	SpriteTank    = "tank"
	SpriteRocket  = "rocket"
)

// capability 每种实体的物理属性
type capability struct {
	static      bool
	bullet      bool
	circle      bool
	density     float64
	friction    float64
	restitution float64
	sprite      string
}

var capabilities = map[EntityKind]capability{
	KindBorder: {static: true, density: 1.0, friction: 0.5, restitution: 0.05, sprite: SpriteHBorder},
	KindWall:   {static: true, density: 1.0, friction: 0.5, restitution: 0.05, sprite: SpriteWall},
	KindTank:   {density: 1.0, friction: 0.5, restitution: 0.05, sprite: SpriteTank},
	KindRocket: {bullet: true, circle: true, density: 1.0, friction: 0.5, restitution: 0.05, sprite: SpriteRocket},
}

// Tag 实体标签，字段固定。
// 可选字段只能通过 SetOwner/SetHealth 单独修改，互不覆盖
type Tag struct {
	Kind       EntityKind `json:"kind"`
	UniqueName string     `json:"unique_name"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	SpriteID   string     `json:"sprite_id"`

	ownerID   string
	health    int
	hasHealth bool
}

// OwnerID 所属玩家ID，无所属时为空
func (t *Tag) OwnerID() string {
	return t.ownerID
}

// Health 生命值，第二个返回值表示该实体是否有生命值
func (t *Tag) Health() (int, bool) {
	return t.health, t.hasHealth
}

// SetOwner 设置所属玩家
func (t *Tag) SetOwner(id string) {
	t.ownerID = id
}

// SetHealth 设置生命值，限制在 [0, 上限]
func (t *Tag) SetHealth(hp int) {
	if hp < 0 {
		hp = 0
	}
	if t.Kind == KindTank && hp > TankHealth {
		hp = TankHealth
	}
	t.health = hp
	t.hasHealth = true
}

// Entity 游戏实体，包装一个物理刚体
type Entity struct {
	Tag
	Body        *physics.Body
	Orientation Orientation

	// ExpireTick 火箭弹到期的帧号
	ExpireTick uint64
}

func newEntity(world *physics.World, kind EntityKind, name string, center physics.Vec2, shape physics.Shape, angle float64, fixedRotation bool) (*Entity, error) {
	capab, ok := capabilities[kind]
	if !ok {
		return nil, fmt.Errorf("未知实体类型: %s", kind)
	}

	e := &Entity{
		Tag: Tag{
			Kind:       kind,
			UniqueName: name,
			SpriteID:   capab.sprite,
		},
	}
	if shape.Kind == physics.ShapeCircle {
		e.Width, e.Height = shape.Radius*2, shape.Radius*2
	} else {
		e.Width, e.Height = shape.Width, shape.Height
	}

	def := physics.BodyDef{
		Shape:         shape,
		Position:      center,
		Angle:         angle,
		Density:       capab.density,
		Friction:      capab.friction,
		Restitution:   capab.restitution,
		Bullet:        capab.bullet,
		FixedRotation: fixedRotation,
		Data:          e,
	}

	var (
		body *physics.Body
		err  error
	)
	if capab.static {
		body, err = world.CreateStaticBody(def)
	} else {
		body, err = world.CreateDynamicBody(def)
	}
	if err != nil {
		return nil, fmt.Errorf("创建%s %s失败: %w", kind, name, err)
	}
	e.Body = body
	return e, nil
}

// NewBorder 创建边界，sprite 为 hBorder 或 vBorder
func NewBorder(world *physics.World, name string, center physics.Vec2, width, height float64, sprite string) (*Entity, error) {
	e, err := newEntity(world, KindBorder, name, center, physics.Box(width, height), 0, false)
	if err != nil {
		return nil, err
	}
	if sprite != "" {
		e.SpriteID = sprite
	}
	return e, nil
}

// NewWall 创建墙体。length 为沿朝向的长度，垂直墙体旋转 90 度
func NewWall(world *physics.World, name string, center physics.Vec2, length, thickness float64, o Orientation) (*Entity, error) {
	angle := 0.0
	if o == Vertical {
		angle = math.Pi / 2
	}
	e, err := newEntity(world, KindWall, name, center, physics.Box(length, thickness), angle, false)
	if err != nil {
		return nil, err
	}
	e.Orientation = o
	e.SetHealth(WallHealth)
	return e, nil
}

// NewTank 创建坦克
func NewTank(world *physics.World, name, ownerID string, center physics.Vec2) (*Entity, error) {
	e, err := newEntity(world, KindTank, name, center, physics.Box(TankWidth, TankHeight), 0, true)
	if err != nil {
		return nil, err
	}
	e.SetOwner(ownerID)
	e.SetHealth(TankHealth)
	return e, nil
}

// NewRocket 创建火箭弹，velocity 为物理单位/秒
func NewRocket(world *physics.World, name, ownerID string, center, velocity physics.Vec2) (*Entity, error) {
	e, err := newEntity(world, KindRocket, name, center, physics.Circle(RocketRadius), 0, false)
	if err != nil {
		return nil, err
	}
	e.SetOwner(ownerID)
	e.Body.SetLinearVelocity(velocity)
	return e, nil
}

// Span 沿朝向轴的起止坐标（像素）
func (e *Entity) Span() (start, end float64) {
	pos := e.Body.Position()
	half := e.Width / 2
	if e.Orientation == Vertical {
		return pos.Y - half, pos.Y + half
	}
	return pos.X - half, pos.X + half
}

// Length 墙体长度
func (e *Entity) Length() float64 {
	return e.Width
}

// Alive 刚体仍在世界中且未等待销毁
func (e *Entity) Alive() bool {
	return e.Body != nil && !e.Body.Gone()
}

// EntityOf 从刚体取回实体
func EntityOf(b *physics.Body) *Entity {
	if b == nil {
		return nil
	}
	e, _ := b.Data.(*Entity)
	return e
}
