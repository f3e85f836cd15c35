package game

import (
	"math"
	"testing"

	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
)

func TestSplitSpanInterior(t *testing.T) {
	for _, contact := range []float64{150, 200, 260, 349} {
		parts := SplitSpan(100, 400, contact)
		if len(parts) != 2 {
			t.Fatalf("contact %v: expected 2 walls, got %d", contact, len(parts))
		}
		total := parts[0].Length() + parts[1].Length()
		if math.Abs(total-(300-2*splitGap)) > 1e-9 {
			t.Errorf("contact %v: lengths should sum to L-50, got %v", contact, total)
		}
		if parts[0].Start != 100 || parts[1].End != 400 {
			t.Errorf("contact %v: outer ends must be preserved, got %+v", contact, parts)
		}
		if parts[1].Start-parts[0].End != 2*splitGap {
			t.Errorf("contact %v: gap should be 50, got %v", contact, parts[1].Start-parts[0].End)
		}
	}
}

func TestSplitSpanNearEdges(t *testing.T) {
	tests := []struct {
		name    string
		contact float64
		want    []Interval
	}{
		{"near start", 120, []Interval{{Start: 145, End: 400}}},
		{"near end", 380, []Interval{{Start: 100, End: 355}}},
		{"at start", 100, []Interval{{Start: 125, End: 400}}},
		{"at end", 400, []Interval{{Start: 100, End: 375}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSpan(100, 400, tt.contact)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
			// 长度 = L - d(contact, 近端) - 25
			near := math.Min(tt.contact-100, 400-tt.contact)
			if want := 300 - near - splitGap; math.Abs(got[0].Length()-want) > 1e-9 {
				t.Errorf("expected length %v, got %v", want, got[0].Length())
			}
		})
	}
}

func TestSplitSpanShortWall(t *testing.T) {
	// 40 像素的墙，任何位置被击中都不会留下正长度的两段
	for _, contact := range []float64{0, 10, 20, 30, 40} {
		for _, iv := range SplitSpan(0, 40, contact) {
			if iv.Length() <= 0 {
				t.Errorf("contact %v: non-positive remainder %v", contact, iv)
			}
		}
	}
	if got := SplitSpan(0, 20, 10); len(got) != 0 {
		t.Errorf("a 20px wall hit in the middle should vanish, got %v", got)
	}
}

func TestApplySplitReplacesWall(t *testing.T) {
	room, _ := newTestRoom(t, nil)
	wall, err := models.NewWall(room.world, "wall-test", physics.Vec2{X: 600, Y: 100}, 200, models.WallThickness, models.Horizontal)
	if err != nil {
		t.Fatal(err)
	}
	room.walls[wall.UniqueName] = wall

	room.queueSplit(wall.UniqueName, physics.Vec2{X: 600, Y: 100})
	room.queueSplit(wall.UniqueName, physics.Vec2{X: 640, Y: 100})
	if len(room.splits) != 1 {
		t.Fatalf("one split per wall per tick, got %d", len(room.splits))
	}

	room.drainSplits()
	if _, ok := room.walls[wall.UniqueName]; ok {
		t.Error("original wall should leave the registry")
	}
	if !wall.Body.Queued() {
		t.Error("original wall should be queued for destruction")
	}
	if len(room.walls) != 2 {
		t.Fatalf("expected 2 new walls, got %d", len(room.walls))
	}

	var total float64
	for name, w := range room.walls {
		if w.Orientation != models.Horizontal || w.Height != models.WallThickness {
			t.Errorf("%s: orientation and thickness should be kept", name)
		}
		if math.Abs(w.Body.Position().Y-100) > 1e-6 {
			t.Errorf("%s: horizontal pieces keep their Y", name)
		}
		total += w.Length()
	}
	if math.Abs(total-150) > 1e-9 {
		t.Errorf("lengths should sum to 150, got %v", total)
	}

	destroyed := room.flushDestroyed()
	if len(destroyed) != 1 || destroyed[0].UniqueName != "wall-test" || !destroyed[0].Destroyed {
		t.Errorf("snapshot should report the old wall as destroyed, got %+v", destroyed)
	}

	// 已被切分的墙再次登记不产生任何效果
	room.queueSplit("wall-test", physics.Vec2{X: 600, Y: 100})
	room.drainSplits()
	if len(room.walls) != 2 {
		t.Errorf("a stale split entry must be a no-op, got %d walls", len(room.walls))
	}
}

func TestApplySplitVertical(t *testing.T) {
	room, _ := newTestRoom(t, nil)
	wall, err := models.NewWall(room.world, "wall-v", physics.Vec2{X: 300, Y: 400}, 300, models.WallThickness, models.Vertical)
	if err != nil {
		t.Fatal(err)
	}
	room.walls[wall.UniqueName] = wall

	// 距上端 20 像素，只保留下段
	room.queueSplit(wall.UniqueName, physics.Vec2{X: 301, Y: 270})
	room.drainSplits()

	if len(room.walls) != 1 {
		t.Fatalf("expected one remaining wall, got %d", len(room.walls))
	}
	for _, w := range room.walls {
		start, end := w.Span()
		if math.Abs(start-295) > 1e-6 || math.Abs(end-550) > 1e-6 {
			t.Errorf("expected span [295, 550], got [%v, %v]", start, end)
		}
		if math.Abs(w.Body.Position().X-300) > 1e-6 {
			t.Errorf("vertical pieces keep their X, got %v", w.Body.Position().X)
		}
	}
}
