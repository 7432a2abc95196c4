package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

type PostgresSleepRepository struct {
	db *sqlx.DB
}

func NewPostgresSleepRepository(db *sqlx.DB) *PostgresSleepRepository {
	return &PostgresSleepRepository{db: db}
}

// InsertBatch stores samples in one transaction. Re-uploaded samples keep
// their first version.
func (r *PostgresSleepRepository) InsertBatch(ctx context.Context, samples []domain.SleepSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin sleep batch failed: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sleep_samples (id, user_id, start_time, end_time, stage_code)
		VALUES (:id, :user_id, :start_time, :end_time, :stage_code)
		ON CONFLICT (id) DO NOTHING`

	for _, s := range samples {
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("repository: insert sleep sample %s failed: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresSleepRepository) ListByUserIDAndRange(ctx context.Context, userID string, start, end time.Time) ([]domain.SleepSample, error) {
	samples := []domain.SleepSample{}

	query := `
		SELECT id, user_id, start_time, end_time, stage_code
		FROM sleep_samples
		WHERE user_id = $1
		  AND end_time >= $2
		  AND end_time <= $3
		ORDER BY start_time ASC`

	if err := r.db.SelectContext(ctx, &samples, query, userID, start.UTC(), end.UTC()); err != nil {
		return nil, fmt.Errorf("repository: list sleep samples failed: %w", err)
	}
	return samples, nil
}
