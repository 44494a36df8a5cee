package api

import (
	"time"

	"example.com/pushups/internal/domain"
)

const dateLayout = time.DateOnly

// RegisterRequest is the payload for POST /v1/users.
type RegisterRequest struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required,max=64"`
}

// CompleteRequest is the payload for POST /v1/users/{id}/complete.
type CompleteRequest struct {
	Amount *int `json:"amount" validate:"required,gte=0,lte=1000"`
}

// SetLevelRequest is the payload for PUT /v1/users/{id}/level.
type SetLevelRequest struct {
	Level int `json:"level" validate:"required,min=1,max=6"`
}

// UserView exposes a user's progression state.
type UserView struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Level            int       `json:"level"`
	LevelName        string    `json:"level_name"`
	DailyGoal        int       `json:"daily_goal"`
	ConsecutiveDays  int       `json:"consecutive_days"`
	TotalCount       int       `json:"total_count"`
	LastActivityDate string    `json:"last_activity_date,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TaskView is a generated task plus an encouragement line.
type TaskView struct {
	UserID  int64  `json:"user_id"`
	Amount  int    `json:"amount"`
	Level   int    `json:"level"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// RecordView is one day of the activity ledger.
type RecordView struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Amount    int       `json:"amount"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PromotionView describes a level-up.
type PromotionView struct {
	FromLevel int    `json:"from_level"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
	NewGoal   int    `json:"new_goal"`
}

// AchievementView describes a reached milestone.
type AchievementView struct {
	Days    int    `json:"days"`
	Message string `json:"message"`
}

// OutcomeView is the response to a completion or skip.
type OutcomeView struct {
	User        UserView         `json:"user"`
	Record      RecordView       `json:"record"`
	Remaining   int              `json:"remaining"`
	Promotion   *PromotionView   `json:"promotion,omitempty"`
	Achievement *AchievementView `json:"achievement,omitempty"`
}

// TodayView reports today's progress toward the daily goal.
type TodayView struct {
	UserID    int64  `json:"user_id"`
	Date      string `json:"date"`
	Done      int    `json:"done"`
	Goal      int    `json:"goal"`
	Remaining int    `json:"remaining"`
	GoalMet   bool   `json:"goal_met"`
}

// RollupView aggregates a trailing window.
type RollupView struct {
	Days   int `json:"days"`
	Amount int `json:"amount"`
}

// StatsView is the statistics screen.
type StatsView struct {
	User            UserView   `json:"user"`
	DaysCount       int        `json:"days_count"`
	TotalAmount     int        `json:"total_amount"`
	FirstActivity   string     `json:"first_activity,omitempty"`
	LastActivity    string     `json:"last_activity,omitempty"`
	Week            RollupView `json:"week"`
	Month           RollupView `json:"month"`
	AveragePerDay   float64    `json:"average_per_day"`
	TodayAmount     int        `json:"today_amount"`
	ConsecutiveDays int        `json:"consecutive_days"`
	Achievement     string     `json:"achievement,omitempty"`
}

// ListRecordsResponse packages a page of ledger records.
type ListRecordsResponse struct {
	Items      []RecordView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:               u.ID,
		Name:             u.Name,
		Level:            u.Level,
		LevelName:        domain.LevelName(u.Level),
		DailyGoal:        u.DailyGoal,
		ConsecutiveDays:  u.ConsecutiveDays,
		TotalCount:       u.TotalCount,
		LastActivityDate: formatDate(u.LastActivityDate),
		CreatedAt:        u.CreatedAt,
	}
}

func toRecordView(rec domain.DailyActivityRecord) RecordView {
	return RecordView{
		ID:        rec.ID,
		Date:      rec.Date.Format(dateLayout),
		Amount:    rec.Amount,
		Completed: rec.Completed,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toOutcomeView(o domain.ActivityOutcome) OutcomeView {
	view := OutcomeView{
		User:      toUserView(o.User),
		Record:    toRecordView(o.Record),
		Remaining: max(o.User.DailyGoal-o.Record.Amount, 0),
	}
	if p := o.Promotion; p != nil {
		view.Promotion = &PromotionView{
			FromLevel: p.FromLevel,
			NewLevel:  p.NewLevel,
			LevelName: domain.LevelName(p.NewLevel),
			NewGoal:   p.NewGoal,
		}
	}
	if a := o.Achievement; a != nil {
		view.Achievement = &AchievementView{Days: a.Days, Message: a.Message}
	}
	return view
}

func toStatsView(s domain.UserStats) StatsView {
	return StatsView{
		User:            toUserView(s.User),
		DaysCount:       s.DaysCount,
		TotalAmount:     s.TotalAmount,
		FirstActivity:   formatDate(s.FirstActivity),
		LastActivity:    formatDate(s.LastActivity),
		Week:            RollupView{Days: s.Week.Days, Amount: s.Week.Amount},
		Month:           RollupView{Days: s.Month.Days, Amount: s.Month.Amount},
		AveragePerDay:   s.AveragePerDay,
		TodayAmount:     s.TodayAmount,
		ConsecutiveDays: s.ConsecutiveDays,
		Achievement:     s.Achievement,
	}
}
