package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/pushups/internal/domain"
)

func TestRecordActivityRequiresUser(t *testing.T) {
	repo := NewRepository()
	_, err := repo.RecordActivity(context.Background(), 1, time.Now(), func(domain.LedgerState) (domain.ActivityOutcome, error) {
		t.Fatal("transition must not run")
		return domain.ActivityOutcome{}, nil
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRecordActivityCountsActiveDays(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	day := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.SaveUser(ctx, domain.NewUser(1, "Ann", day))
	require.NoError(t, err)

	write := func(d time.Time, amount int) {
		_, err := repo.RecordActivity(ctx, 1, d, func(state domain.LedgerState) (domain.ActivityOutcome, error) {
			return domain.ActivityOutcome{
				User:   state.User,
				Record: domain.DailyActivityRecord{ID: d.Format(time.DateOnly), UserID: 1, Date: d, Amount: amount, Completed: true},
			}, nil
		})
		require.NoError(t, err)
	}
	write(day, 10)
	write(day.AddDate(0, 0, 1), 0)
	write(day.AddDate(0, 0, 2), 5)

	var seen domain.LedgerState
	_, err = repo.RecordActivity(ctx, 1, day.AddDate(0, 0, 2), func(state domain.LedgerState) (domain.ActivityOutcome, error) {
		seen = state
		return domain.ActivityOutcome{User: state.User, Record: *state.Today}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, seen.ActiveDays)
	require.NotNil(t, seen.Today)
	require.Equal(t, 5, seen.Today.Amount)

	amount, err := repo.TodayAmount(ctx, 1, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Zero(t, amount)
}

func TestGetUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	last := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	u := domain.NewUser(2, "Bo", last)
	u.LastActivityDate = &last
	_, err := repo.SaveUser(ctx, u)
	require.NoError(t, err)

	got, err := repo.GetUser(ctx, 2)
	require.NoError(t, err)
	*got.LastActivityDate = last.AddDate(1, 0, 0)

	again, err := repo.GetUser(ctx, 2)
	require.NoError(t, err)
	require.True(t, again.LastActivityDate.Equal(last))

	missing, err := repo.GetUser(ctx, 3)
	require.NoError(t, err)
	require.Nil(t, missing)

	active, err := repo.ActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}
