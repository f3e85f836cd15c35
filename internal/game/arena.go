// arena.go

package game

import (
	"fmt"

	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
)

const (
	// 墙体长度范围 [wallMinLength, wallMinLength+wallLengthRange)
	wallMinLength   = 100.0
	wallLengthRange = 300.0

	// 墙体不能生成在中央 37.5%-62.5% 区域
	wallCenterLow  = 0.375
	wallCenterHigh = 0.625

	// 坦克不能生成在中央 25%-75% 区域
	tankCenterLow  = 0.25
	tankCenterHigh = 0.75

	maxSpawnAttempts = 100
)

// spawnAll 生成边界、墙体和每名参战玩家的坦克
func (r *Room) spawnAll() error {
	if err := r.spawnBorders(); err != nil {
		return err
	}
	for i := 0; i < r.cfg.WallCount; i++ {
		if err := r.spawnWall(); err != nil {
			return err
		}
	}
	for _, p := range r.roster.Active() {
		if err := r.spawnTank(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Room) spawnBorders() error {
	w, h := r.cfg.Width, r.cfg.Height
	specs := []struct {
		name          string
		center        physics.Vec2
		width, height float64
		sprite        string
	}{
		{"topBorder", physics.Vec2{X: w / 2, Y: 0}, w, models.BorderWidth, models.SpriteHBorder},
		{"bottomBorder", physics.Vec2{X: w / 2, Y: h}, w, models.BorderWidth, models.SpriteHBorder},
		{"rightBorder", physics.Vec2{X: w, Y: h / 2}, models.BorderWidth, h, models.SpriteVBorder},
		{"leftBorder", physics.Vec2{X: 0, Y: h / 2}, models.BorderWidth, h, models.SpriteVBorder},
	}
	for _, s := range specs {
		b, err := models.NewBorder(r.world, s.name, s.center, s.width, s.height, s.sprite)
		if err != nil {
			return err
		}
		r.borders[s.name] = b
	}
	return nil
}

func (r *Room) spawnWall() error {
	orientation := models.Horizontal
	if r.rng.Float64() > 0.5 {
		orientation = models.Vertical
	}

	var center physics.Vec2
	found := false
	for i := 0; i < maxSpawnAttempts; i++ {
		center = physics.Vec2{X: r.rng.Float64() * r.cfg.Width, Y: r.rng.Float64() * r.cfg.Height}
		if !r.insideCenter(center, wallCenterLow, wallCenterHigh) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("找不到墙体出生点")
	}

	length := wallMinLength + r.rng.Float64()*wallLengthRange
	name := r.newName("wall")
	wall, err := models.NewWall(r.world, name, center, length, models.WallThickness, orientation)
	if err != nil {
		return err
	}
	r.walls[name] = wall
	return nil
}

func (r *Room) spawnTank(p *models.Player) error {
	minX, maxX := models.TankWidth, r.cfg.Width-models.TankWidth
	minY, maxY := models.TankHeight, r.cfg.Height-models.TankHeight
	if minX >= maxX || minY >= maxY {
		return fmt.Errorf("场地 %vx%v 放不下坦克", r.cfg.Width, r.cfg.Height)
	}

	var (
		center   physics.Vec2
		fallback *physics.Vec2
	)
	found := false
	for i := 0; i < maxSpawnAttempts; i++ {
		center = physics.Vec2{
			X: minX + r.rng.Float64()*(maxX-minX),
			Y: minY + r.rng.Float64()*(maxY-minY),
		}
		if r.insideCenter(center, tankCenterLow, tankCenterHigh) {
			continue
		}
		if fallback == nil {
			c := center
			fallback = &c
		}
		if !r.footprintBlocked(center) {
			found = true
			break
		}
	}
	if !found {
		if fallback == nil {
			return fmt.Errorf("找不到坦克出生点: %s", p.ID)
		}
		// 找不到完全空闲的位置时允许与墙体重叠
		center = *fallback
	}

	tank, err := models.NewTank(r.world, "tank-"+p.ID, p.ID, center)
	if err != nil {
		return err
	}
	r.tanks[tank.UniqueName] = tank
	p.Tank = tank
	p.ReloadUntil = 0
	return nil
}

// insideCenter 点是否位于中央区域
func (r *Room) insideCenter(p physics.Vec2, low, high float64) bool {
	return p.X > r.cfg.Width*low && p.X < r.cfg.Width*high &&
		p.Y > r.cfg.Height*low && p.Y < r.cfg.Height*high
}

// footprintBlocked 坦克占位是否与墙体或其他坦克重叠
func (r *Room) footprintBlocked(center physics.Vec2) bool {
	tank := aabb{
		minX: center.X - models.TankWidth/2, maxX: center.X + models.TankWidth/2,
		minY: center.Y - models.TankHeight/2, maxY: center.Y + models.TankHeight/2,
	}
	for _, w := range r.walls {
		if tank.overlaps(boundsOf(w)) {
			return true
		}
	}
	for _, t := range r.tanks {
		if tank.overlaps(boundsOf(t)) {
			return true
		}
	}
	return false
}

type aabb struct {
	minX, maxX, minY, maxY float64
}

func (a aabb) overlaps(b aabb) bool {
	return a.minX < b.maxX && b.minX < a.maxX && a.minY < b.maxY && b.minY < a.maxY
}

func boundsOf(e *models.Entity) aabb {
	pos := e.Body.Position()
	hw, hh := e.Width/2, e.Height/2
	if e.Orientation == models.Vertical {
		hw, hh = hh, hw
	}
	return aabb{minX: pos.X - hw, maxX: pos.X + hw, minY: pos.Y - hh, maxY: pos.Y + hh}
}

// destroyAll 销毁全部实体，只能在两次步进之间调用
func (r *Room) destroyAll() {
	for _, registry := range []map[string]*models.Entity{r.borders, r.walls, r.tanks, r.rockets} {
		for name, e := range registry {
			r.world.QueueDestroy(e.Body)
			delete(registry, name)
		}
	}
	r.world.FlushDestroyed()

	r.splits = nil
	r.pendingEnd = nil
	for _, p := range r.roster.Active() {
		p.Tank = nil
	}
}
