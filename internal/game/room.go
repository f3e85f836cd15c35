package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jacl-coder/PureMadTanks-Server/config"
	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/internal/physics"
	"github.com/jacl-coder/PureMadTanks-Server/internal/protocol"
)

// ErrRoomClosed 房间已关闭
var ErrRoomClosed = errors.New("房间已关闭")

// 步进迭代次数
const (
	velocityIterations = 10
	positionIterations = 10
)

// Broadcaster 出站消息的发送方
type Broadcaster interface {
	Broadcast(env protocol.Envelope)
	SendTo(sessionID string, env protocol.Envelope)
}

// ResultSink 对局结果的接收方，Submit 不得阻塞
type ResultSink interface {
	Submit(res models.MatchResult) bool
}

// Command 网络协程提交给房间的指令
type Command struct {
	SessionID string
	Type      protocol.MessageType
	Payload   protocol.InboundPayload
}

// Option 房间选项
type Option func(*Room)

// WithLogger 指定日志
func WithLogger(l *log.Logger) Option {
	return func(r *Room) { r.logger = l }
}

// WithResultSink 指定对局结果接收方
func WithResultSink(s ResultSink) Option {
	return func(r *Room) { r.sink = s }
}

// WithRand 指定随机数源
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) { r.rng = rng }
}

// Room 游戏房间。物理世界、名单和实体表只由 Run 所在协程修改
type Room struct {
	ID     string
	cfg    config.GameConfig
	out    Broadcaster
	sink   ResultSink
	logger *log.Logger
	rng    *rand.Rand

	world  *physics.World
	roster *Roster
	status models.MatchStatus

	// 实体表，键为 uniqueName
	borders map[string]*models.Entity
	walls   map[string]*models.Entity
	tanks   map[string]*models.Entity
	rockets map[string]*models.Entity

	splits     []splitRequest
	pendingEnd *models.MatchResult
	lastResult *models.MatchResult

	tick      uint64
	startTick uint64
	startedAt time.Time

	commands  chan Command
	done      chan struct{}
	closeOnce sync.Once
}

// NewRoom 创建房间，配置无效时返回错误
func NewRoom(cfg config.GameConfig, out Broadcaster, opts ...Option) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: 缺少广播器", config.ErrInvalidConfig)
	}

	world, err := physics.NewWorld(physics.Vec2{X: cfg.GravityX, Y: cfg.GravityY}, cfg.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	buffer := cfg.CommandBuffer
	if buffer <= 0 {
		buffer = 256
	}

	r := &Room{
		ID:       uuid.New().String(),
		cfg:      cfg,
		out:      out,
		world:    world,
		roster:   NewRoster(),
		status:   models.MatchPaused,
		borders:  make(map[string]*models.Entity),
		walls:    make(map[string]*models.Entity),
		tanks:    make(map[string]*models.Entity),
		rockets:  make(map[string]*models.Entity),
		commands: make(chan Command, buffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default().WithPrefix("game")
	}
	if r.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		r.rng = rand.New(rand.NewSource(seed))
	}

	world.SetContactListener(r)
	return r, nil
}

// Submit 提交指令，由网络协程调用
func (r *Room) Submit(cmd Command) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}

	select {
	case r.commands <- cmd:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Run 房间主循环，ctx 取消后返回
func (r *Room) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TickInterval())
	defer ticker.Stop()
	defer r.close()

	r.logger.Info("房间启动", "room", r.ID, "fps", r.cfg.Framerate, "arena", fmt.Sprintf("%vx%v", r.cfg.Width, r.cfg.Height))

	for {
		select {
		case <-ctx.Done():
			r.destroyAll()
			r.status = models.MatchPaused
			r.logger.Info("房间已停止", "room", r.ID)
			return ctx.Err()
		case cmd := <-r.commands:
			r.apply(cmd)
		case <-ticker.C:
			r.step()
		}
	}
}

func (r *Room) close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Done 房间关闭时关闭
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// step 推进一帧，暂停时什么也不做
func (r *Room) step() {
	if r.status != models.MatchRunning {
		return
	}
	r.tick++

	r.world.Step(1/float64(r.cfg.Framerate), velocityIterations, positionIterations)

	r.decelerateTanks()
	r.cleanupRockets()
	r.drainSplits()
	destroyed := r.flushDestroyed()
	r.broadcastSnapshot(destroyed)

	if r.pendingEnd != nil {
		res := *r.pendingEnd
		r.pendingEnd = nil
		r.endMatch(res)
	}
}

// flushDestroyed 记录本帧被销毁实体的最终快照，然后销毁刚体并移出实体表
func (r *Room) flushDestroyed() []protocol.EntitySnapshot {
	pending := r.world.Pending()
	if len(pending) == 0 {
		return nil
	}

	snaps := make([]protocol.EntitySnapshot, 0, len(pending))
	for _, b := range pending {
		if e := models.EntityOf(b); e != nil {
			snaps = append(snaps, protocol.SnapshotOf(e, true))
		}
	}

	for _, b := range r.world.FlushDestroyed() {
		if e := models.EntityOf(b); e != nil {
			r.forget(e)
		}
	}
	return snaps
}

// forget 从实体表移除
func (r *Room) forget(e *models.Entity) {
	var registry map[string]*models.Entity
	switch e.Kind {
	case models.KindBorder:
		registry = r.borders
	case models.KindWall:
		registry = r.walls
	case models.KindTank:
		registry = r.tanks
		if p := r.roster.FindActive(e.OwnerID()); p != nil && p.Tank == e {
			p.Tank = nil
		}
	case models.KindRocket:
		registry = r.rockets
	}
	if cur, ok := registry[e.UniqueName]; ok && cur == e {
		delete(registry, e.UniqueName)
	}
}

func (r *Room) broadcastSnapshot(destroyed []protocol.EntitySnapshot) {
	snap := r.Snapshot()
	snap.Entities = append(snap.Entities, destroyed...)
	r.out.Broadcast(protocol.NewEnvelope(protocol.MsgWorldSnapshot, snap))
}

// Snapshot 当前全部存活实体
func (r *Room) Snapshot() protocol.WorldSnapshot {
	snap := protocol.WorldSnapshot{Tick: r.tick, Entities: make([]protocol.EntitySnapshot, 0, r.world.BodyCount())}
	r.world.ForEachBody(func(b *physics.Body) {
		if b.Gone() {
			return
		}
		if e := models.EntityOf(b); e != nil {
			snap.Entities = append(snap.Entities, protocol.SnapshotOf(e, false))
		}
	})
	return snap
}

// scheduleEnd 登记对局结束，帧末执行。同一帧只记录第一次
func (r *Room) scheduleEnd(winner, loser string, reason models.EndReason) {
	if r.pendingEnd != nil {
		return
	}
	r.pendingEnd = &models.MatchResult{WinnerID: winner, LoserID: loser, Reason: reason}
}

// endMatch 销毁全部实体，回到大厅并广播结果
func (r *Room) endMatch(res models.MatchResult) {
	r.destroyAll()
	r.status = models.MatchPaused

	res.StartedAt = r.startedAt
	res.EndedAt = time.Now()
	res.Ticks = r.tick - r.startTick
	r.lastResult = &res

	r.roster.ResetActive()

	r.logger.Info("对局结束", "winner", res.WinnerID, "loser", res.LoserID, "reason", res.Reason, "ticks", res.Ticks)
	r.out.Broadcast(protocol.ConvertMatchEnded(res))
	r.broadcastLobby()

	if r.sink != nil && !r.sink.Submit(res) {
		r.logger.Warn("对局记录队列已满，丢弃记录", "winner", res.WinnerID, "loser", res.LoserID)
	}
}

// StartMatch 重置世界并开局，生成失败时回到大厅
func (r *Room) StartMatch() error {
	r.destroyAll()

	if err := r.spawnAll(); err != nil {
		r.destroyAll()
		r.status = models.MatchPaused
		r.roster.ResetActive()
		r.logger.Error("开局失败", "err", err)
		r.out.Broadcast(protocol.ConvertMatchEnded(models.MatchResult{Reason: models.EndAborted}))
		r.broadcastLobby()
		return err
	}

	r.status = models.MatchRunning
	r.startTick = r.tick
	r.startedAt = time.Now()
	r.logger.Info("对局开始", "walls", len(r.walls), "tanks", len(r.tanks))
	return nil
}

// Status 当前对局状态
func (r *Room) Status() models.MatchStatus {
	return r.status
}

func (r *Room) broadcastLobby() {
	r.out.Broadcast(protocol.NewEnvelope(protocol.MsgLobbyWaiting, protocol.LobbyWaiting{
		Players:  r.roster.ActiveCount(),
		Required: MaxActivePlayers,
	}))
}

// newName 生成房间内唯一的实体名
func (r *Room) newName(prefix string) string {
	for {
		name := prefix + "-" + uuid.New().String()
		if !r.nameTaken(name) {
			return name
		}
	}
}

func (r *Room) nameTaken(name string) bool {
	for _, registry := range []map[string]*models.Entity{r.borders, r.walls, r.tanks, r.rockets} {
		if _, ok := registry[name]; ok {
			return true
		}
	}
	return false
}
