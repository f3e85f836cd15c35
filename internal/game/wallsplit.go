// wallsplit.go

package game

import (
	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
)

const (
	// splitGap 弹孔半宽
	splitGap = 25.0
	// splitMargin 距端点小于该值时只保留一段
	splitMargin = 50.0
)

// Interval 墙体沿朝向轴的一段
type Interval struct {
	Start float64
	End   float64
}

// Length 区间长度
func (iv Interval) Length() float64 {
	return iv.End - iv.Start
}

// Mid 区间中点
func (iv Interval) Mid() float64 {
	return (iv.Start + iv.End) / 2
}

// SplitSpan 计算墙体 [start, end] 在 contact 处被击中后剩下的区间，长度不为正的区间被丢弃
func SplitSpan(start, end, contact float64) []Interval {
	var parts []Interval
	switch {
	case contact-splitMargin < start:
		parts = []Interval{{Start: contact + splitGap, End: end}}
	case end-splitMargin < contact:
		parts = []Interval{{Start: start, End: contact - splitGap}}
	default:
		parts = []Interval{
			{Start: start, End: contact - splitGap},
			{Start: contact + splitGap, End: end},
		}
	}

	out := parts[:0]
	for _, iv := range parts {
		if iv.Length() > 0 {
			out = append(out, iv)
		}
	}
	return out
}

// splitRequest 等待处理的墙体切分
type splitRequest struct {
	wallName string
	point    physics.Vec2
}

// queueSplit 碰撞回调中登记切分，同一帧同一面墙只登记一次
func (r *Room) queueSplit(wallName string, point physics.Vec2) {
	for _, req := range r.splits {
		if req.wallName == wallName {
			return
		}
	}
	r.splits = append(r.splits, splitRequest{wallName: wallName, point: point})
}

// drainSplits 在两次步进之间执行全部切分
func (r *Room) drainSplits() {
	queue := r.splits
	r.splits = nil
	for _, req := range queue {
		r.applySplit(req)
	}
}

func (r *Room) applySplit(req splitRequest) {
	wall, ok := r.walls[req.wallName]
	if !ok || !wall.Alive() {
		r.logger.Debug("墙体已不存在，忽略切分", "wall", req.wallName)
		return
	}

	start, end := wall.Span()
	pos := wall.Body.Position()
	contact := req.point.X
	if wall.Orientation == models.Vertical {
		contact = req.point.Y
	}
	thickness := wall.Height
	orientation := wall.Orientation

	delete(r.walls, req.wallName)
	r.world.QueueDestroy(wall.Body)

	for _, iv := range SplitSpan(start, end, contact) {
		center := physics.Vec2{X: iv.Mid(), Y: pos.Y}
		if orientation == models.Vertical {
			center = physics.Vec2{X: pos.X, Y: iv.Mid()}
		}
		name := r.newName("wall")
		piece, err := models.NewWall(r.world, name, center, iv.Length(), thickness, orientation)
		if err != nil {
			r.logger.Warn("创建切分墙体失败", "wall", req.wallName, "err", err)
			continue
		}
		r.walls[name] = piece
	}

	r.logger.Debug("墙体已切分", "wall", req.wallName, "contact", contact, "walls", len(r.walls))
}
