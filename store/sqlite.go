package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite 参与者、奖金与遥测数据的 SQLite 实现
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开数据库并启用 WAL
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// 每个连接都是独立的内存库
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate 建表（幂等）
func (s *SQLite) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_participant (
			worker_id TEXT PRIMARY KEY,
			bonus_pay TEXT NOT NULL DEFAULT '0.00',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS telemetry (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			cond TEXT NOT NULL,
			round INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			best_target TEXT NOT NULL,
			role TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			angle REAL NOT NULL,
			points INTEGER NOT NULL,
			noise REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_game ON telemetry(game_id, round, tick)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// RegisterParticipant 登记 worker（已存在则忽略）
func (s *SQLite) RegisterParticipant(ctx context.Context, workerID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_participant (worker_id) VALUES (?) ON CONFLICT(worker_id) DO NOTHING`, workerID)
	if err != nil {
		return fmt.Errorf("register participant %s: %w", workerID, err)
	}
	return nil
}

func (s *SQLite) ParticipantExists(ctx context.Context, workerID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM game_participant WHERE worker_id = ?)`, workerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check participant %s: %w", workerID, err)
	}
	return exists, nil
}

func (s *SQLite) UpdateBonus(ctx context.Context, workerID string, bonus decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE game_participant SET bonus_pay = ?, updated_at = CURRENT_TIMESTAMP WHERE worker_id = ?`,
		FormatBonus(bonus), workerID)
	if err != nil {
		return fmt.Errorf("update bonus for %s: %w", workerID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update bonus for %s: %w", workerID, ErrParticipantNotFound)
	}
	return nil
}

// GetBonus 读取当前奖金
func (s *SQLite) GetBonus(ctx context.Context, workerID string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT bonus_pay FROM game_participant WHERE worker_id = ?`, workerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrParticipantNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get bonus for %s: %w", workerID, err)
	}
	return decimal.NewFromString(raw)
}

func (s *SQLite) AppendTelemetry(ctx context.Context, batch TelemetryBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin telemetry tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO telemetry
		(game_id, cond, round, tick, best_target, role, x, y, angle, points, noise)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare telemetry insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch.Rows {
		if _, err := stmt.ExecContext(ctx, batch.GameID, batch.Condition, r.Round, r.Tick,
			r.BestTarget, r.Role, r.X, r.Y, r.Angle, r.Points, r.Noise); err != nil {
			return fmt.Errorf("insert telemetry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit telemetry: %w", err)
	}
	return nil
}
