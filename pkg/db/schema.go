// schema.go

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// 对局记录表，PostgreSQL 与 SQLite 通用
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS match_records (
    id VARCHAR(36) PRIMARY KEY,
    winner_id VARCHAR(64),
    loser_id VARCHAR(64),
    reason VARCHAR(32) NOT NULL,
    started_at TIMESTAMP,
    ended_at TIMESTAMP NOT NULL,
    ticks BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_match_records_winner ON match_records(winner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_match_records_ended ON match_records(ended_at)`,
}

// Migrate 创建所需的表和索引，可重复执行
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("创建表结构失败: %w", err)
		}
	}
	return nil
}

// Reset 删除对局记录表
func Reset(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, `DROP TABLE IF EXISTS match_records`); err != nil {
		return fmt.Errorf("删除表失败: %w", err)
	}
	return nil
}
