package domain

import "time"

// User is the progression aggregate. TotalCount, ConsecutiveDays and Level are projections of the
// ledger that are only ever changed together with a ledger write.
type User struct {
	ID               int64
	Name             string
	Level            int
	DailyGoal        int
	ConsecutiveDays  int
	LastActivityDate *time.Time
	TotalCount       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser builds a freshly registered user at level 1.
func NewUser(id int64, name string, now time.Time) User {
	return User{
		ID:        id,
		Name:      name,
		Level:     MinLevel,
		DailyGoal: DailyGoalFor(MinLevel),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the user has ever recorded activity.
func (u User) Active() bool {
	return u.LastActivityDate != nil
}

// DailyActivityRecord is the per-user, per-day accumulation of performed amount.
type DailyActivityRecord struct {
	ID        string
	UserID    int64
	Date      time.Time
	Amount    int
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rollup aggregates active days and amount over a window.
type Rollup struct {
	Days   int
	Amount int
}

// ActivitySummary is what the store computes over a user's ledger.
type ActivitySummary struct {
	DaysCount     int
	TotalAmount   int
	FirstActivity *time.Time
	LastActivity  *time.Time
	Week          Rollup
	Month         Rollup
	TodayAmount   int
}

// UserStats is the derived, never cached view shown to the user.
type UserStats struct {
	User            User
	LevelName       string
	DaysCount       int
	TotalAmount     int
	FirstActivity   *time.Time
	LastActivity    *time.Time
	Week            Rollup
	Month           Rollup
	AveragePerDay   float64
	TodayAmount     int
	ConsecutiveDays int
	Achievement     string
}

// Cursor models the pagination token for ledger history.
type Cursor struct {
	Date time.Time
	ID   string
}

// DateOf truncates t to its calendar date in t's own location, returned as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate compares two calendar dates.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
