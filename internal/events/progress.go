// Package events defines the progress event payloads exchanged over Kafka.
package events

import "time"

// Event types written to the outbox and carried in the event_type header.
const (
	TypeActivityRecorded    = "activity.recorded"
	TypeUserPromoted        = "user.promoted"
	TypeAchievementUnlocked = "achievement.unlocked"
)

// ActivityRecorded is emitted for every completion or skip applied to the ledger.
type ActivityRecorded struct {
	EventID         string    `json:"event_id"`
	UserID          int64     `json:"user_id"`
	RecordID        string    `json:"record_id"`
	Date            string    `json:"date"`
	Amount          int       `json:"amount"`
	DayAmount       int       `json:"day_amount"`
	TotalCount      int       `json:"total_count"`
	ConsecutiveDays int       `json:"consecutive_days"`
	Level           int       `json:"level"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// UserPromoted is emitted when a streak lifts the user to the next level.
type UserPromoted struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	FromLevel  int       `json:"from_level"`
	NewLevel   int       `json:"new_level"`
	LevelName  string    `json:"level_name"`
	NewGoal    int       `json:"new_goal"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AchievementUnlocked is emitted when the active-day count lands on a milestone.
type AchievementUnlocked struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Days       int       `json:"days"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notification is the outbound chat message handed to the notification channel.
type Notification struct {
	UserID int64     `json:"user_id"`
	Kind   string    `json:"kind,omitempty"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}
