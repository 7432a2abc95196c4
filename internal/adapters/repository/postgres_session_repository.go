package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Append(ctx context.Context, record *domain.SessionRecord) error {
	query := `
		INSERT INTO session_records (id, user_id, recorded_at, activity, duration_seconds)
		VALUES (:id, :user_id, :recorded_at, :activity, :duration_seconds)`

	_, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		switch pgErrorCode(err) {
		case pgForeignKeyViolation:
			return errors.New("referenced user does not exist")
		case pgCheckViolation:
			return domain.ErrInvalidSession
		}
		return fmt.Errorf("repository: append session failed: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) PruneBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session_records WHERE user_id = $1 AND recorded_at < $2`,
		userID, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("repository: prune sessions failed: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresSessionRepository) ListByUserID(ctx context.Context, userID string, since time.Time) ([]*domain.SessionRecord, error) {
	records := []*domain.SessionRecord{}

	query := `
		SELECT id, user_id, recorded_at, activity, duration_seconds
		FROM session_records
		WHERE user_id = $1
		  AND recorded_at >= $2
		ORDER BY recorded_at ASC`

	if err := r.db.SelectContext(ctx, &records, query, userID, since.UTC()); err != nil {
		return nil, fmt.Errorf("repository: list sessions failed: %w", err)
	}
	return records, nil
}
