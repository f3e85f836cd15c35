package record

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jacl-coder/PureMadTanks-Server/pkg/db"
)

// Dialect SQL方言
type Dialect int

const (
	// DialectPostgres 使用 $n 占位符
	DialectPostgres Dialect = iota
	// DialectSQLite 使用 ? 占位符
	DialectSQLite
)

// SQLRecorder 写入 match_records 表
type SQLRecorder struct {
	conn    *sql.DB
	dialect Dialect
}

// NewSQLRecorder 建表后返回记录器，失败时关闭连接
func NewSQLRecorder(ctx context.Context, conn *sql.DB, dialect Dialect) (*SQLRecorder, error) {
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLRecorder{conn: conn, dialect: dialect}, nil
}

func (r *SQLRecorder) placeholders(n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		if r.dialect == DialectPostgres {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// RecordMatch 插入一条记录
func (r *SQLRecorder) RecordMatch(ctx context.Context, rec MatchRecord) error {
	query := fmt.Sprintf(`INSERT INTO match_records (id, winner_id, loser_id, reason, started_at, ended_at, ticks)
VALUES (%s, %s, %s, %s, %s, %s, %s)`, r.placeholders(7)...)

	var startedAt sql.NullTime
	if !rec.StartedAt.IsZero() {
		startedAt = sql.NullTime{Time: rec.StartedAt.UTC(), Valid: true}
	}

	_, err := r.conn.ExecContext(ctx, query,
		rec.ID,
		nullString(rec.WinnerID),
		nullString(rec.LoserID),
		rec.Reason,
		startedAt,
		rec.EndedAt.UTC(),
		int64(rec.Ticks),
	)
	if err != nil {
		return fmt.Errorf("写入对局记录失败: %w", err)
	}
	return nil
}

// WinsByPlayer 玩家胜场数
func (r *SQLRecorder) WinsByPlayer(ctx context.Context, playerID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM match_records WHERE winner_id = %s`, r.placeholders(1)...)
	var wins int
	if err := r.conn.QueryRowContext(ctx, query, playerID).Scan(&wins); err != nil {
		return 0, fmt.Errorf("查询胜场失败: %w", err)
	}
	return wins, nil
}

// Count 记录总数
func (r *SQLRecorder) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_records`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close 关闭数据库连接
func (r *SQLRecorder) Close() error {
	return r.conn.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
