package game

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jacl-coder/PureMadTanks-Server/config"
	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
	"github.com/jacl-coder/PureMadTanks-Server/internal/protocol"
)

// mockBroadcaster 记录所有出站消息
type mockBroadcaster struct {
	mu     sync.Mutex
	all    []protocol.Envelope
	direct map[string][]protocol.Envelope
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{direct: make(map[string][]protocol.Envelope)}
}

func (m *mockBroadcaster) Broadcast(env protocol.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.all = append(m.all, env)
}

func (m *mockBroadcaster) SendTo(id string, env protocol.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct[id] = append(m.direct[id], env)
}

func (m *mockBroadcaster) broadcasts(t protocol.MessageType) []protocol.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range m.all {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) sentTo(id string, t protocol.MessageType) []protocol.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range m.direct[id] {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.all = nil
	m.direct = make(map[string][]protocol.Envelope)
}

// mockSink 记录对局结果
type mockSink struct {
	results []models.MatchResult
}

func (s *mockSink) Submit(res models.MatchResult) bool {
	s.results = append(s.results, res)
	return true
}

func testGameConfig() config.GameConfig {
	cfg := config.Default().Game
	cfg.Seed = 42
	return cfg
}

func newTestRoom(t *testing.T, mutate func(cfg *config.GameConfig), opts ...Option) (*Room, *mockBroadcaster) {
	t.Helper()
	cfg := testGameConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	bc := newMockBroadcaster()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(cfg.Seed)))}, opts...)
	room, err := NewRoom(cfg, bc, opts...)
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	return room, bc
}

func cmd(id string, t protocol.MessageType) Command {
	return Command{SessionID: id, Type: t}
}

// startTwoPlayerMatch 两名玩家加入、命名并准备
func startTwoPlayerMatch(t *testing.T, room *Room) {
	t.Helper()
	for _, id := range []string{"a", "b"} {
		room.apply(cmd(id, protocol.MsgJoin))
		room.apply(Command{SessionID: id, Type: protocol.MsgSetNickname, Payload: protocol.InboundPayload{Nickname: "player-" + id}})
	}
	room.apply(cmd("a", protocol.MsgSetReady))
	if room.Status() != models.MatchPaused {
		t.Fatal("one ready player must not start the match")
	}
	room.apply(cmd("b", protocol.MsgSetReady))
	if room.Status() != models.MatchRunning {
		t.Fatal("match should be running once both players are ready")
	}
}

func TestNewRoomRejectsInvalidConfig(t *testing.T) {
	cfg := testGameConfig()
	cfg.Width = 0
	if _, err := NewRoom(cfg, newMockBroadcaster()); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	cfg = testGameConfig()
	cfg.WallCount = -1
	if _, err := NewRoom(cfg, newMockBroadcaster()); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewRoom(testGameConfig(), nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing broadcaster, got %v", err)
	}
}

func TestLobbyFlow(t *testing.T) {
	room, bc := newTestRoom(t, nil)

	room.apply(cmd("a", protocol.MsgJoin))
	lobby := bc.broadcasts(protocol.MsgLobbyWaiting)
	if len(lobby) != 1 {
		t.Fatalf("expected lobby_waiting after join, got %d", len(lobby))
	}
	if p := lobby[0].Payload.(protocol.LobbyWaiting); p.Players != 1 || p.Required != 2 {
		t.Errorf("unexpected lobby payload %+v", p)
	}

	room.apply(cmd("a", protocol.MsgSetReady))
	if len(bc.sentTo("a", protocol.MsgError)) != 1 {
		t.Error("ready before nickname should be rejected with an error")
	}

	room.apply(Command{SessionID: "a", Type: protocol.MsgSetNickname, Payload: protocol.InboundPayload{Nickname: "alice"}})
	confirmed := bc.sentTo("a", protocol.MsgNicknameConfirmed)
	if len(confirmed) != 1 || confirmed[0].Payload.(protocol.NicknameConfirmed).Nickname != "alice" {
		t.Errorf("expected nickname_confirmed, got %+v", confirmed)
	}

	room.apply(cmd("b", protocol.MsgJoin))
	room.apply(cmd("c", protocol.MsgJoin))
	if len(bc.sentTo("c", protocol.MsgSpectatorWaiting)) != 1 {
		t.Error("third connection should receive spectator_waiting")
	}
	room.apply(Command{SessionID: "c", Type: protocol.MsgSetNickname, Payload: protocol.InboundPayload{Nickname: "carol"}})
	room.apply(cmd("c", protocol.MsgSetReady))
	if len(bc.sentTo("c", protocol.MsgError)) != 1 {
		t.Error("spectators cannot ready")
	}

	// 未知会话的输入被忽略
	room.apply(Command{SessionID: "ghost", Type: protocol.MsgSetNickname, Payload: protocol.InboundPayload{Nickname: "x"}})
	room.apply(cmd("ghost", protocol.MsgDisconnect))
	room.apply(Command{SessionID: "ghost", Type: protocol.MsgMove, Payload: protocol.InboundPayload{Direction: protocol.KeyUp}})

	room.apply(cmd("a", "dance"))
	if len(bc.sentTo("a", protocol.MsgError)) != 2 {
		t.Error("unknown command types should be answered with an error")
	}
}

func TestPausedRoomDoesNotStep(t *testing.T) {
	room, bc := newTestRoom(t, nil)
	for i := 0; i < 10; i++ {
		room.step()
	}
	if room.tick != 0 {
		t.Errorf("paused room should not advance, tick=%d", room.tick)
	}
	if len(bc.broadcasts(protocol.MsgWorldSnapshot)) != 0 {
		t.Error("paused room should not broadcast snapshots")
	}
}

func TestStartMatchSpawnsArena(t *testing.T) {
	room, bc := newTestRoom(t, func(cfg *config.GameConfig) { cfg.WallCount = 8 })
	startTwoPlayerMatch(t, room)

	if len(bc.broadcasts(protocol.MsgAllPlayersReady)) != 1 {
		t.Error("expected all_players_ready broadcast")
	}
	if len(room.borders) != 4 {
		t.Errorf("expected 4 borders, got %d", len(room.borders))
	}
	if len(room.walls) != 8 {
		t.Errorf("expected 8 walls, got %d", len(room.walls))
	}
	if len(room.tanks) != 2 {
		t.Fatalf("expected 2 tanks, got %d", len(room.tanks))
	}
	if got := room.world.BodyCount(); got != 14 {
		t.Errorf("expected 14 bodies, got %d", got)
	}

	for _, tank := range room.tanks {
		if room.insideCenter(tank.Body.Position(), tankCenterLow, tankCenterHigh) {
			t.Errorf("tank %s spawned inside the central square at %+v", tank.UniqueName, tank.Body.Position())
		}
		if hp, _ := tank.Health(); hp != models.TankHealth {
			t.Errorf("tank should start at %d, got %d", models.TankHealth, hp)
		}
	}
	for _, wall := range room.walls {
		if room.insideCenter(wall.Body.Position(), wallCenterLow, wallCenterHigh) {
			t.Errorf("wall %s spawned inside the central square", wall.UniqueName)
		}
		if l := wall.Length(); l < wallMinLength || l >= wallMinLength+wallLengthRange {
			t.Errorf("wall length %v out of range", l)
		}
	}
	for _, p := range room.roster.Active() {
		if p.Tank == nil || p.Tank.OwnerID() != p.ID {
			t.Errorf("player %s should own a tank", p.ID)
		}
	}

	room.step()
	snaps := bc.broadcasts(protocol.MsgWorldSnapshot)
	if len(snaps) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(snaps))
	}
	snap := snaps[0].Payload.(protocol.WorldSnapshot)
	if snap.Tick != 1 || len(snap.Entities) != 14 {
		t.Errorf("unexpected snapshot tick=%d entities=%d", snap.Tick, len(snap.Entities))
	}
	names := make(map[string]bool)
	for _, e := range snap.Entities {
		if names[e.UniqueName] {
			t.Errorf("duplicate unique name %s", e.UniqueName)
		}
		names[e.UniqueName] = true
	}
}

// hitTank 模拟一次敌方火箭弹命中
func hitTank(t *testing.T, room *Room, shooter string, tank *models.Entity) {
	t.Helper()
	name := room.newName("rocket")
	rocket, err := models.NewRocket(room.world, name, shooter, physics.Vec2{X: -500, Y: -500}, physics.Vec2{})
	if err != nil {
		t.Fatal(err)
	}
	room.rockets[name] = rocket
	room.BeginContact(&fakeContact{a: rocket.Body, b: tank.Body, enabled: true})
	if !rocket.Body.Queued() {
		t.Fatal("rocket should be queued after a hit")
	}
}

func TestTwoPlayerMatchToDestruction(t *testing.T) {
	sink := &mockSink{}
	room, bc := newTestRoom(t, nil, WithResultSink(sink))
	startTwoPlayerMatch(t, room)

	tankB := room.roster.FindActive("b").Tank
	want := []int{75, 50, 25}
	for i, hp := range want {
		hitTank(t, room, "a", tankB)
		got, _ := tankB.Health()
		if got != hp {
			t.Fatalf("hit %d: expected health %d, got %d", i+1, hp, got)
		}
		room.step()
		if room.Status() != models.MatchRunning {
			t.Fatalf("hit %d: match should still be running", i+1)
		}
	}
	if len(room.rockets) != 0 {
		t.Errorf("spent rockets should be flushed, got %d", len(room.rockets))
	}

	bc.reset()
	hitTank(t, room, "a", tankB)
	if hp, _ := tankB.Health(); hp != 0 {
		t.Fatalf("fourth hit should bring health to 0, got %d", hp)
	}
	if !tankB.Body.Queued() {
		t.Fatal("destroyed tank should be queued")
	}
	room.step()

	snaps := bc.broadcasts(protocol.MsgWorldSnapshot)
	if len(snaps) != 1 {
		t.Fatalf("expected the final snapshot, got %d", len(snaps))
	}
	found := false
	for _, e := range snaps[0].Payload.(protocol.WorldSnapshot).Entities {
		if e.UniqueName == tankB.UniqueName {
			found = true
			if !e.Destroyed || e.Health == nil || *e.Health != 0 {
				t.Errorf("final snapshot should show the destroyed tank, got %+v", e)
			}
		}
	}
	if !found {
		t.Error("destroyed tank missing from final snapshot")
	}

	ended := bc.broadcasts(protocol.MsgMatchEnded)
	if len(ended) != 1 {
		t.Fatalf("expected match_ended, got %d", len(ended))
	}
	res := ended[0].Payload.(protocol.MatchEnded)
	if res.WinnerID != "a" || res.LoserID != "b" || res.Reason != string(models.EndTankDestroyed) {
		t.Errorf("unexpected result %+v", res)
	}
	if room.Status() != models.MatchPaused {
		t.Error("room should pause after the match ends")
	}
	if room.world.BodyCount() != 0 {
		t.Errorf("all bodies should be destroyed, got %d", room.world.BodyCount())
	}
	for _, p := range room.roster.Active() {
		if p.State != models.StateNamed || p.Tank != nil {
			t.Errorf("player %s should be back in the lobby, got %+v", p.ID, p)
		}
	}
	if len(sink.results) != 1 || sink.results[0].WinnerID != "a" || sink.results[0].Ticks != 4 {
		t.Errorf("unexpected recorded results %+v", sink.results)
	}

	// 再次准备可以开始新的一局
	room.apply(cmd("a", protocol.MsgSetReady))
	room.apply(cmd("b", protocol.MsgSetReady))
	if room.Status() != models.MatchRunning {
		t.Error("rematch should start after both players ready again")
	}
}

func TestDisconnectEndsMatch(t *testing.T) {
	room, bc := newTestRoom(t, nil)
	startTwoPlayerMatch(t, room)
	room.apply(cmd("spectator", protocol.MsgJoin))

	bc.reset()
	room.apply(cmd("spectator", protocol.MsgDisconnect))
	if room.Status() != models.MatchRunning {
		t.Fatal("a spectator leaving has no effect on the match")
	}

	room.apply(cmd("b", protocol.MsgDisconnect))
	ended := bc.broadcasts(protocol.MsgMatchEnded)
	if len(ended) != 1 {
		t.Fatalf("expected match_ended, got %d", len(ended))
	}
	res := ended[0].Payload.(protocol.MatchEnded)
	if res.WinnerID != "a" || res.LoserID != "b" || res.Reason != string(models.EndDisconnect) {
		t.Errorf("unexpected result %+v", res)
	}
	if room.Status() != models.MatchPaused || room.world.BodyCount() != 0 {
		t.Error("match should be torn down")
	}
	if room.roster.ActiveCount() != 1 || room.roster.FindActive("a").State != models.StateNamed {
		t.Error("survivor keeps the slot and returns to named")
	}

	room.apply(cmd("c", protocol.MsgJoin))
	if room.roster.FindActive("c") == nil {
		t.Error("a new connection should take the freed slot")
	}
}

func TestSpawnFailureAbortsStart(t *testing.T) {
	room, bc := newTestRoom(t, func(cfg *config.GameConfig) {
		cfg.Width, cfg.Height = 60, 60
		cfg.WallCount = 0
	})
	for _, id := range []string{"a", "b"} {
		room.apply(cmd(id, protocol.MsgJoin))
		room.apply(Command{SessionID: id, Type: protocol.MsgSetNickname, Payload: protocol.InboundPayload{Nickname: id}})
		room.apply(cmd(id, protocol.MsgSetReady))
	}

	if room.Status() != models.MatchPaused {
		t.Fatal("a failed spawn must not enter running")
	}
	ended := bc.broadcasts(protocol.MsgMatchEnded)
	if len(ended) != 1 || ended[0].Payload.(protocol.MatchEnded).Reason != string(models.EndAborted) {
		t.Errorf("expected an aborted match_ended, got %+v", ended)
	}
	if room.world.BodyCount() != 0 {
		t.Errorf("partial spawn should be cleaned up, got %d bodies", room.world.BodyCount())
	}
	for _, p := range room.roster.Active() {
		if p.State != models.StateNamed {
			t.Errorf("player %s should be back to named", p.ID)
		}
	}
}

func TestFireRocketHitsOpponent(t *testing.T) {
	room, _ := newTestRoom(t, func(cfg *config.GameConfig) {
		cfg.WallCount = 0
		cfg.RocketLifetimeMs = 10000
	})
	startTwoPlayerMatch(t, room)

	shooter := room.roster.FindActive("a")
	target := room.roster.FindActive("b").Tank
	aim := target.Body.Position()

	room.apply(Command{SessionID: "a", Type: protocol.MsgAimAndFire, Payload: protocol.InboundPayload{X: aim.X, Y: aim.Y}})
	if len(room.rockets) != 1 {
		t.Fatalf("expected one rocket in flight, got %d", len(room.rockets))
	}
	if shooter.ReloadUntil <= room.tick {
		t.Error("firing should start the reload cooldown")
	}

	// 装填中不能再次开火
	room.apply(Command{SessionID: "a", Type: protocol.MsgAimAndFire, Payload: protocol.InboundPayload{X: aim.X, Y: aim.Y}})
	if len(room.rockets) != 1 {
		t.Errorf("reload should block a second rocket, got %d", len(room.rockets))
	}

	for i := 0; i < 600 && len(room.rockets) > 0; i++ {
		room.step()
	}
	if len(room.rockets) != 0 {
		t.Fatal("rocket should have hit something")
	}
	if hp, _ := target.Health(); hp != 75 {
		t.Errorf("target should take one hit, health=%d", hp)
	}
	if hp, _ := shooter.Tank.Health(); hp != models.TankHealth {
		t.Errorf("shooter must not be damaged, health=%d", hp)
	}
}

func TestMoveAppliesClampedImpulse(t *testing.T) {
	room, _ := newTestRoom(t, func(cfg *config.GameConfig) { cfg.WallCount = 0 })
	startTwoPlayerMatch(t, room)

	tank := room.roster.FindActive("a").Tank
	for i := 0; i < 5; i++ {
		room.apply(Command{SessionID: "a", Type: protocol.MsgMove, Payload: protocol.InboundPayload{Direction: protocol.KeyRight}})
	}
	v := tank.Body.LinearVelocity()
	if v.Length() > maxTankSpeed+1e-9 {
		t.Errorf("speed should clamp at %v, got %v", maxTankSpeed, v.Length())
	}
	if v.X <= 0 || v.Y != 0 {
		t.Errorf("expected motion along +X, got %+v", v)
	}

	room.apply(Command{SessionID: "a", Type: protocol.MsgMove, Payload: protocol.InboundPayload{Direction: 1}})
	if got := tank.Body.LinearVelocity(); got != v {
		t.Error("unknown direction codes must be ignored")
	}

	before := tank.Body.LinearVelocity().X
	room.decelerateTanks()
	if after := tank.Body.LinearVelocity().X; after >= before {
		t.Errorf("deceleration should slow the tank, %v -> %v", before, after)
	}
}

func TestTowardZero(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{1, 0.975},
		{-1, -0.975},
		{0.01, 0},
		{-0.02, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := towardZero(tt.in, decelerationStep); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("towardZero(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRocketExpires(t *testing.T) {
	room, _ := newTestRoom(t, func(cfg *config.GameConfig) {
		cfg.WallCount = 0
		cfg.RocketLifetimeMs = 100
	})
	startTwoPlayerMatch(t, room)

	shooter := room.roster.FindActive("a")
	pos := shooter.Tank.Body.Position()
	room.apply(Command{SessionID: "a", Type: protocol.MsgAimAndFire, Payload: protocol.InboundPayload{X: pos.X + 1, Y: pos.Y}})
	if len(room.rockets) != 1 {
		t.Fatalf("expected a rocket, got %d", len(room.rockets))
	}
	for i := 0; i < int(room.cfg.TicksFor(100))+1; i++ {
		room.step()
	}
	if len(room.rockets) != 0 {
		t.Errorf("rocket should expire after its lifetime, %d left", len(room.rockets))
	}
}

func TestNewNameIsUnique(t *testing.T) {
	room, _ := newTestRoom(t, nil)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := room.newName("wall")
		if seen[name] {
			t.Fatalf("duplicate name %s", name)
		}
		seen[name] = true
	}
}

func TestRunAndSubmit(t *testing.T) {
	room, bc := newTestRoom(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- room.Run(ctx) }()

	if err := room.Submit(cmd("a", protocol.MsgJoin)); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(bc.broadcasts(protocol.MsgLobbyWaiting)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("join was never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := room.Submit(cmd("a", protocol.MsgSetReady)); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("expected ErrRoomClosed after Run returns, got %v", err)
	}
}
