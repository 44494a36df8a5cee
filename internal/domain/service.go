// Package domain defines the progression and ledger rules of the push-up tracker.
package domain

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/pushups/internal/clock"
	"example.com/pushups/internal/observability"
)

// ActivityTransition computes the outcome of one activity from the state read under the user's lock.
type ActivityTransition func(LedgerState) (ActivityOutcome, error)

// Repository captures persistence operations on users and their daily ledger.
type Repository interface {
	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, id int64) (*User, error)
	// SaveUser inserts candidate when absent, otherwise refreshes the stored name.
	SaveUser(ctx context.Context, candidate User) (*User, error)
	UpdateUserLevel(ctx context.Context, id int64, level, goal int, updatedAt time.Time) error
	// RecordActivity loads the ledger state for (id, day), applies the transition and persists the
	// resulting user and record atomically.
	RecordActivity(ctx context.Context, id int64, day time.Time, apply ActivityTransition) (*ActivityOutcome, error)
	TodayAmount(ctx context.Context, id int64, day time.Time) (int, error)
	Summary(ctx context.Context, id int64, today time.Time) (ActivitySummary, error)
	ActiveUsers(ctx context.Context) ([]User, error)
	ListRecords(ctx context.Context, id int64, cursor *Cursor, limit int) ([]DailyActivityRecord, *Cursor, error)
}

// Service orchestrates the progression workflows.
type Service struct {
	repo  Repository
	clock clock.Clock
	rng   IntN
	newID func() string
	locks *userLocks
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the wall clock used to derive "today".
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithRand overrides the random source for task generation.
func WithRand(rng IntN) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

// WithIDGenerator overrides how new ledger record IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		clock: clock.Real{},
		rng:   defaultRand{},
		newID: uuid.NewString,
		locks: newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date according to the service clock.
func (s *Service) Today() time.Time {
	return DateOf(s.clock.Now())
}

// Register creates the user on first contact or refreshes the display name.
func (s *Service) Register(ctx context.Context, id int64, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}
	unlock := s.locks.lock(id)
	defer unlock()

	return s.repo.SaveUser(ctx, NewUser(id, name, s.clock.Now().UTC()))
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GenerateTask proposes an amount for the user's current level.
func (s *Service) GenerateTask(ctx context.Context, id int64) (*Task, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	task := GenerateTask(*user, s.Today(), s.rng)
	return &task, nil
}

// Complete records amount performed today and runs the streak, promotion and achievement rules.
func (s *Service) Complete(ctx context.Context, id int64, amount int) (*ActivityOutcome, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	now := s.clock.Now()
	today := DateOf(now)
	outcome, err := s.repo.RecordActivity(ctx, id, today, func(state LedgerState) (ActivityOutcome, error) {
		return ApplyActivity(state, amount, today, now.UTC(), s.newID), nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordActivity(amount, outcome.Record.UpdatedAt)
	if outcome.Promotion != nil {
		observability.RecordPromotion(outcome.Promotion.NewLevel)
	}
	if outcome.Achievement != nil {
		observability.RecordAchievement(outcome.Achievement.Days)
	}
	return outcome, nil
}

// Skip records an explicit zero-amount day.
func (s *Service) Skip(ctx context.Context, id int64) (*ActivityOutcome, error) {
	return s.Complete(ctx, id, 0)
}

// SetLevel moves the user to level and aligns the daily goal with it.
func (s *Service) SetLevel(ctx context.Context, id int64, level int) (*User, error) {
	if !ValidLevel(level) {
		return nil, validationErrorf("level must be between %d and %d", MinLevel, MaxLevel)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.repo.UpdateUserLevel(ctx, id, level, DailyGoalFor(level), s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// TodayAmount returns the amount accumulated today.
func (s *Service) TodayAmount(ctx context.Context, id int64) (int, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return 0, err
	}
	return s.repo.TodayAmount(ctx, id, s.Today())
}

// Stats recomputes the user's statistics from the ledger.
func (s *Service) Stats(ctx context.Context, id int64) (*UserStats, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, id, s.Today())
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		User:            *user,
		LevelName:       LevelName(user.Level),
		DaysCount:       summary.DaysCount,
		TotalAmount:     summary.TotalAmount,
		FirstActivity:   summary.FirstActivity,
		LastActivity:    summary.LastActivity,
		Week:            summary.Week,
		Month:           summary.Month,
		TodayAmount:     summary.TodayAmount,
		ConsecutiveDays: user.ConsecutiveDays,
	}
	if summary.DaysCount > 0 {
		avg := float64(summary.TotalAmount) / float64(summary.DaysCount)
		stats.AveragePerDay = math.Round(avg*10) / 10
	}
	if achievement, ok := CheckAchievement(summary.DaysCount); ok {
		stats.Achievement = achievement.Message
	}
	return stats, nil
}

// ActiveUsers lists every user with at least one active day.
func (s *Service) ActiveUsers(ctx context.Context) ([]User, error) {
	return s.repo.ActiveUsers(ctx)
}

// History lists daily records newest first with cursor pagination.
func (s *Service) History(ctx context.Context, id int64, cursor *Cursor, limit int) ([]DailyActivityRecord, *Cursor, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, nil, err
	}
	return s.repo.ListRecords(ctx, id, cursor, limit)
}

// DailyProgress pairs a user with today's accumulated amount.
type DailyProgress struct {
	User User
	Done int
}

// Goal is the user's current daily goal.
func (p DailyProgress) Goal() int {
	return p.User.DailyGoal
}

// Remaining is the amount still missing to reach the goal; it may be zero or negative.
func (p DailyProgress) Remaining() int {
	return p.User.DailyGoal - p.Done
}

// GoalMet reports whether today's amount reached the goal.
func (p DailyProgress) GoalMet() bool {
	return p.Remaining() <= 0
}

// Progress reads the user and today's amount under the user's lock so a concurrent completion is
// observed either entirely or not at all.
func (s *Service) Progress(ctx context.Context, id int64) (*DailyProgress, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	done, err := s.repo.TodayAmount(ctx, id, s.Today())
	if err != nil {
		return nil, err
	}
	return &DailyProgress{User: *user, Done: done}, nil
}
