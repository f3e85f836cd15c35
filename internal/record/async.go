// async.go

package record

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
)

// writeTimeout 单条记录的写入超时
const writeTimeout = 5 * time.Second

// Async 在独立协程中写入记录，Submit 从不阻塞
type Async struct {
	rec    Recorder
	queue  chan MatchRecord
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsync 启动写入协程，buffer 为队列长度
func NewAsync(rec Recorder, buffer int) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	a := &Async{
		rec:    rec,
		queue:  make(chan MatchRecord, buffer),
		logger: log.Default().WithPrefix("record"),
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

// Submit 提交对局结果，队列已满或已关闭时返回 false
func (a *Async) Submit(res models.MatchResult) bool {
	return a.Enqueue(FromResult(res))
}

// Enqueue 提交记录，队列已满或已关闭时返回 false
func (a *Async) Enqueue(rec MatchRecord) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- rec:
		return true
	default:
		return false
	}
}

func (a *Async) loop() {
	defer a.wg.Done()
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := a.rec.RecordMatch(ctx, rec); err != nil {
			a.logger.Error("写入对局记录失败", "id", rec.ID, "err", err)
		} else {
			a.logger.Debug("对局记录已写入", "id", rec.ID, "winner", rec.WinnerID)
		}
		cancel()
	}
}

// Close 写完队列中剩余的记录后关闭后端
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	return a.rec.Close()
}
