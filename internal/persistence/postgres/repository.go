package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/pushups/internal/domain"
	"example.com/pushups/internal/events"
)

// Repository provides Postgres-backed persistence for users, the daily ledger and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `user_id, name, level, daily_goal, consecutive_days, total_count, last_activity_date, created_at, updated_at`

const recordColumns = `record_id::text, user_id, activity_date, amount, completed, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Level, &u.DailyGoal, &u.ConsecutiveDays, &u.TotalCount, &u.LastActivityDate, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanRecord(row pgx.Row) (*domain.DailyActivityRecord, error) {
	var rec domain.DailyActivityRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Amount, &rec.Completed, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// unavailable marks connection-level failures so callers can tell them from query errors.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// GetUser returns the user or nil when absent.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SaveUser inserts the candidate or refreshes the name of an existing row.
func (r *Repository) SaveUser(ctx context.Context, candidate domain.User) (*domain.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer conn.Release()

	const stmt = `INSERT INTO users (user_id, name, level, daily_goal, consecutive_days, total_count, last_activity_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,0,0,NULL,$5,$5)
        ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
        RETURNING ` + userColumns

	return scanUser(conn.QueryRow(ctx, stmt, candidate.ID, candidate.Name, candidate.Level, candidate.DailyGoal, candidate.CreatedAt))
}

// UpdateUserLevel sets level and goal together.
func (r *Repository) UpdateUserLevel(ctx context.Context, id int64, level, goal int, updatedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET level=$2, daily_goal=$3, updated_at=$4 WHERE user_id=$1`, id, level, goal, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// RecordActivity locks the user row, applies the transition and writes the user, the day's record and
// the outbox events inside a single transaction.
func (r *Repository) RecordActivity(ctx context.Context, id int64, day time.Time, apply domain.ActivityTransition) (*domain.ActivityOutcome, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var state domain.LedgerState
	user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrUserNotFound
		}
		return nil, err
	}
	state.User = *user

	today, err := scanRecord(tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM daily_activity WHERE user_id=$1 AND activity_date=$2 FOR UPDATE`, id, day))
	switch {
	case err == nil:
		state.Today = today
	case errors.Is(err, pgx.ErrNoRows):
		err = nil
	default:
		return nil, err
	}

	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM daily_activity WHERE user_id=$1 AND amount > 0`, id).Scan(&state.ActiveDays); err != nil {
		return nil, err
	}

	outcome, err := apply(state)
	if err != nil {
		return nil, err
	}

	rec := outcome.Record
	_, err = tx.Exec(ctx,
		`INSERT INTO daily_activity (record_id, user_id, activity_date, amount, completed, created_at, updated_at)
        VALUES ($1::uuid,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (user_id, activity_date) DO UPDATE SET amount = EXCLUDED.amount, completed = EXCLUDED.completed, updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.UserID, rec.Date, rec.Amount, rec.Completed, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u := outcome.User
	_, err = tx.Exec(ctx,
		`UPDATE users SET level=$2, daily_goal=$3, consecutive_days=$4, total_count=$5, last_activity_date=$6, updated_at=$7 WHERE user_id=$1`,
		u.ID, u.Level, u.DailyGoal, u.ConsecutiveDays, u.TotalCount, u.LastActivityDate, u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err = r.insertProgressEvents(ctx, tx, outcome); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (r *Repository) insertProgressEvents(ctx context.Context, tx pgx.Tx, outcome domain.ActivityOutcome) error {
	u := outcome.User
	at := u.UpdatedAt

	recordedID := uuid.NewString()
	if err := r.insertOutbox(ctx, tx, u.ID, recordedID, events.TypeActivityRecorded, events.ActivityRecorded{
		EventID:         recordedID,
		UserID:          u.ID,
		RecordID:        outcome.Record.ID,
		Date:            outcome.Record.Date.Format(time.DateOnly),
		Amount:          outcome.Amount,
		DayAmount:       outcome.Record.Amount,
		TotalCount:      u.TotalCount,
		ConsecutiveDays: u.ConsecutiveDays,
		Level:           u.Level,
		OccurredAt:      at,
	}); err != nil {
		return err
	}

	if p := outcome.Promotion; p != nil {
		eventID := uuid.NewString()
		if err := r.insertOutbox(ctx, tx, u.ID, eventID, events.TypeUserPromoted, events.UserPromoted{
			EventID:    eventID,
			UserID:     u.ID,
			Name:       u.Name,
			FromLevel:  p.FromLevel,
			NewLevel:   p.NewLevel,
			LevelName:  domain.LevelName(p.NewLevel),
			NewGoal:    p.NewGoal,
			OccurredAt: at,
		}); err != nil {
			return err
		}
	}

	if a := outcome.Achievement; a != nil {
		eventID := uuid.NewString()
		if err := r.insertOutbox(ctx, tx, u.ID, eventID, events.TypeAchievementUnlocked, events.AchievementUnlocked{
			EventID:    eventID,
			UserID:     u.ID,
			Name:       u.Name,
			Days:       a.Days,
			Message:    a.Message,
			OccurredAt: at,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, userID int64, eventID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	aggregateID := strconv.FormatInt(userID, 10)
	dedupeKey := fmt.Sprintf("%s:%s", eventID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"user",
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		aggregateID,
		body,
		dedupeKey,
	)
	return err
}

// TodayAmount sums the amount recorded on day.
func (r *Repository) TodayAmount(ctx context.Context, id int64, day time.Time) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, unavailable(err)
	}
	defer conn.Release()

	var amount int
	err = conn.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM daily_activity WHERE user_id=$1 AND activity_date=$2`, id, day).Scan(&amount)
	return amount, err
}

// Summary aggregates the user's ledger; only positive amounts count as active days.
func (r *Repository) Summary(ctx context.Context, id int64, today time.Time) (domain.ActivitySummary, error) {
	const query = `SELECT
            COUNT(*) FILTER (WHERE amount > 0),
            COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
            MIN(activity_date) FILTER (WHERE amount > 0),
            MAX(activity_date) FILTER (WHERE amount > 0),
            COUNT(*) FILTER (WHERE amount > 0 AND activity_date >= $3),
            COALESCE(SUM(amount) FILTER (WHERE amount > 0 AND activity_date >= $3), 0),
            COUNT(*) FILTER (WHERE amount > 0 AND activity_date >= $4),
            COALESCE(SUM(amount) FILTER (WHERE amount > 0 AND activity_date >= $4), 0),
            COALESCE(SUM(amount) FILTER (WHERE activity_date = $2), 0)
        FROM daily_activity WHERE user_id=$1 AND completed`

	var s domain.ActivitySummary
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return s, unavailable(err)
	}
	defer conn.Release()

	day := domain.DateOf(today)
	err = conn.QueryRow(ctx, query, id, day, domain.WindowStart(day, 7), domain.WindowStart(day, 30)).Scan(
		&s.DaysCount, &s.TotalAmount, &s.FirstActivity, &s.LastActivity,
		&s.Week.Days, &s.Week.Amount, &s.Month.Days, &s.Month.Amount, &s.TodayAmount,
	)
	return s, err
}

// ActiveUsers returns users with a non-null last activity date.
func (r *Repository) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE last_activity_date IS NOT NULL ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListRecords returns ledger rows for a user, newest first.
func (r *Repository) ListRecords(ctx context.Context, id int64, cursor *domain.Cursor, limit int) ([]domain.DailyActivityRecord, *domain.Cursor, error) {
	args := []interface{}{id, limit}
	query := `SELECT ` + recordColumns + ` FROM daily_activity WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (activity_date, record_id) < ($3, $4::uuid)`
		args = append(args, cursor.Date, cursor.ID)
	}

	query += ` ORDER BY activity_date DESC, record_id DESC LIMIT $2`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.DailyActivityRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return results, next, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityRecorded:    {Topic: "progress_events", SchemaSubject: "progress_events-activity_recorded"},
	events.TypeUserPromoted:        {Topic: "progress_events", SchemaSubject: "progress_events-user_promoted"},
	events.TypeAchievementUnlocked: {Topic: "progress_events", SchemaSubject: "progress_events-achievement_unlocked"},
}
