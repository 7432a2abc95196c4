package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

// sqliteTimeLayout is fixed width so that stored timestamps sort and compare
// as plain text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// OpenSQLite opens (and creates) the local database used by the CLI.
func OpenSQLite(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := MigrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type sqliteSessionRow struct {
	ID              string `db:"id"`
	UserID          string `db:"user_id"`
	RecordedAt      string `db:"recorded_at"`
	Activity        string `db:"activity"`
	DurationSeconds int    `db:"duration_seconds"`
}

type SQLiteSessionRepository struct {
	db *sqlx.DB
}

func NewSQLiteSessionRepository(db *sqlx.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Append(ctx context.Context, record *domain.SessionRecord) error {
	row := sqliteSessionRow{
		ID:              record.ID,
		UserID:          record.UserID,
		RecordedAt:      sqliteTime(record.Timestamp),
		Activity:        string(record.Activity),
		DurationSeconds: record.DurationSeconds,
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO session_records (id, user_id, recorded_at, activity, duration_seconds)
		VALUES (:id, :user_id, :recorded_at, :activity, :duration_seconds)`, row)
	if err != nil {
		return fmt.Errorf("repository: append session failed: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) PruneBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session_records WHERE user_id = ? AND recorded_at < ?`,
		userID, sqliteTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("repository: prune sessions failed: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteSessionRepository) ListByUserID(ctx context.Context, userID string, since time.Time) ([]*domain.SessionRecord, error) {
	var rows []sqliteSessionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, recorded_at, activity, duration_seconds
		FROM session_records
		WHERE user_id = ? AND recorded_at >= ?
		ORDER BY recorded_at ASC`, userID, sqliteTime(since))
	if err != nil {
		return nil, fmt.Errorf("repository: list sessions failed: %w", err)
	}

	records := make([]*domain.SessionRecord, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(sqliteTimeLayout, row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: bad timestamp on session %s: %w", row.ID, err)
		}
		records = append(records, &domain.SessionRecord{
			ID:              row.ID,
			UserID:          row.UserID,
			Timestamp:       at,
			Activity:        domain.ActivityType(row.Activity),
			DurationSeconds: row.DurationSeconds,
		})
	}
	return records, nil
}

// SQLiteKV stores counter blobs in the kv table.
type SQLiteKV struct {
	db *sqlx.DB
}

func NewSQLiteKV(db *sqlx.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("repository: kv get %s failed: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, sqliteTime(time.Now()))
	if err != nil {
		return fmt.Errorf("repository: kv set %s failed: %w", key, err)
	}
	return nil
}
