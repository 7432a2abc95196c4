package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupPostgres connects to the test database, migrates it and wipes it. It
// skips the test when no database is reachable.
func setupPostgres(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("DB_USER", "kanso_user"),
		getEnv("DB_PASSWORD", "secret"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "kanso_db"),
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("Database connection failed (skipping integration tests): %v", err)
	}

	require.NoError(t, MigratePostgres(context.Background(), db))
	db.MustExec("TRUNCATE TABLE sleep_samples, session_records, users CASCADE")

	return db, func() {
		db.Close()
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, tz string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(uuid.NewString(), fmt.Sprintf("test_%s@example.com", uuid.NewString()), tz)
	require.NoError(t, err)
	require.NoError(t, user.SetPassword("passwordStrong123"))
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestPostgresUserRepository_Integration(t *testing.T) {
	db, teardown := setupPostgres(t)
	defer teardown()

	repo := NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("Should create and read back a user", func(t *testing.T) {
		user := createTestUser(t, repo, "Europe/Rome")

		byEmail, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
		assert.Equal(t, "Europe/Rome", byEmail.Timezone)
		assert.False(t, byEmail.CreatedAt.IsZero())

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
		assert.NoError(t, byID.CheckPassword("passwordStrong123"))
	})

	t.Run("Should fail on duplicate email", func(t *testing.T) {
		first := createTestUser(t, repo, "UTC")

		dup, _ := domain.NewUser(uuid.NewString(), first.Email, "UTC")
		_ = dup.SetPassword("passwordStrong123")

		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	})

	t.Run("Should return ErrUserNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = repo.GetByEmail(ctx, "nonexistent@ghost.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
