// recorder.go

package record

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jacl-coder/PureMadTanks-Server/config"
	"github.com/jacl-coder/PureMadTanks-Server/internal/models"
	"github.com/jacl-coder/PureMadTanks-Server/pkg/db"
)

// MatchRecord 一局的历史记录，只写不读回
type MatchRecord struct {
	ID        string    `json:"id"`
	WinnerID  string    `json:"winner_id,omitempty"`
	LoserID   string    `json:"loser_id,omitempty"`
	Reason    string    `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Ticks     uint64    `json:"ticks"`
}

// FromResult 由对局结果生成记录
func FromResult(res models.MatchResult) MatchRecord {
	return MatchRecord{
		ID:        uuid.New().String(),
		WinnerID:  res.WinnerID,
		LoserID:   res.LoserID,
		Reason:    string(res.Reason),
		StartedAt: res.StartedAt,
		EndedAt:   res.EndedAt,
		Ticks:     res.Ticks,
	}
}

// Recorder 对局记录后端
type Recorder interface {
	RecordMatch(ctx context.Context, rec MatchRecord) error
	Close() error
}

// Nop 不记录
type Nop struct{}

func (Nop) RecordMatch(context.Context, MatchRecord) error { return nil }

func (Nop) Close() error { return nil }

// Open 按配置打开记录后端
func Open(ctx context.Context, cfg *config.Config) (Recorder, error) {
	switch cfg.Record.Driver {
	case "", "none":
		return Nop{}, nil
	case "postgres":
		dsn := cfg.Record.DSN
		if dsn == "" {
			dsn = cfg.Database.GetDSN()
		}
		conn, err := db.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLRecorder(ctx, conn, DialectPostgres)
	case "sqlite":
		conn, err := db.OpenSQLite(ctx, cfg.Record.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLRecorder(ctx, conn, DialectSQLite)
	case "redis":
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisRecorder(client), nil
	default:
		return nil, fmt.Errorf("%w: 未知的记录驱动 %q", config.ErrInvalidConfig, cfg.Record.Driver)
	}
}
