//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"example.com/pushups/internal/clock"
	"example.com/pushups/internal/domain"
)

func TestRepositoryAccumulatesSameDayAndWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	repo := NewRepository(pool)
	fake := clock.NewFake(time.Date(2026, time.May, 4, 9, 30, 0, 0, time.UTC))
	service := domain.NewService(repo, domain.WithClock(fake))

	_, err := service.Register(ctx, 1001, "Ada")
	require.NoError(t, err)

	_, err = service.Complete(ctx, 1001, 10)
	require.NoError(t, err)
	outcome, err := service.Complete(ctx, 1001, 15)
	require.NoError(t, err)
	require.False(t, outcome.Created)
	require.Equal(t, 25, outcome.Record.Amount)

	user, err := repo.GetUser(ctx, 1001)
	require.NoError(t, err)
	require.Equal(t, 25, user.TotalCount)
	require.Equal(t, 1, user.ConsecutiveDays)
	require.NotNil(t, user.LastActivityDate)

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM daily_activity WHERE user_id=$1`, 1001).Scan(&rows))
	require.Equal(t, 1, rows)

	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type='activity.recorded'`).Scan(&outboxRows))
	require.Equal(t, 2, outboxRows)

	today, err := repo.TodayAmount(ctx, 1001, domain.DateOf(fake.Now()))
	require.NoError(t, err)
	require.Equal(t, 25, today)

	summary, err := repo.Summary(ctx, 1001, fake.Now())
	require.NoError(t, err)
	require.Equal(t, 1, summary.DaysCount)
	require.Equal(t, 25, summary.Week.Amount)

	active, err := repo.ActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestRepositoryPromotionEmitsEvent(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	repo := NewRepository(pool)
	start := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	service := domain.NewService(repo, domain.WithClock(fake))

	_, err := service.Register(ctx, 2002, "Grace")
	require.NoError(t, err)

	var last *domain.ActivityOutcome
	for i := 0; i < 7; i++ {
		last, err = service.Complete(ctx, 2002, 20)
		require.NoError(t, err)
		fake.Advance(24 * time.Hour)
	}
	require.NotNil(t, last.Promotion)
	require.Equal(t, 2, last.User.Level)
	require.Equal(t, 45, last.User.DailyGoal)
	require.NotNil(t, last.Achievement)

	var promoted, unlocked int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type='user.promoted'`).Scan(&promoted))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type='achievement.unlocked'`).Scan(&unlocked))
	require.Equal(t, 1, promoted)
	require.Equal(t, 1, unlocked)

	records, next, err := repo.ListRecords(ctx, 2002, nil, 5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.NotNil(t, next)

	rest, _, err := repo.ListRecords(ctx, 2002, next, 5)
	require.NoError(t, err)
	require.Len(t, rest, 2)
}

func TestRepositoryRecordActivityUnknownUser(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	_, err := NewRepository(pool).RecordActivity(ctx, 404, time.Now().UTC(), func(domain.LedgerState) (domain.ActivityOutcome, error) {
		t.Fatal("transition must not run for an unknown user")
		return domain.ActivityOutcome{}, nil
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func setupPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("pushups"),
		postgrescontainer.WithUsername("pushups"),
		postgrescontainer.WithPassword("pushups"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runMigrations(t, ctx, pool)
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	matches, err := filepath.Glob(resolvePath(t, "../../../db/postgres/migrations/*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
