package reminder

import "time"

// Notification kinds emitted by the scheduler.
const (
	KindMorning      = "morning_reminder"
	KindAfternoon    = "afternoon_reminder"
	KindEvening      = "evening_reminder"
	KindWeeklyReport = "weekly_report"
)

// Trigger is a fixed wall-clock instant. A zero Weekday pointer matches every day.
type Trigger struct {
	Kind    string
	Hour    int
	Minute  int
	Weekday *time.Weekday
}

func weekday(d time.Weekday) *time.Weekday { return &d }

var triggers = []Trigger{
	{Kind: KindMorning, Hour: 8},
	{Kind: KindAfternoon, Hour: 14},
	{Kind: KindEvening, Hour: 20},
	{Kind: KindWeeklyReport, Hour: 18, Weekday: weekday(time.Sunday)},
}

// Matches reports whether t fires at now, compared at minute resolution.
func (t Trigger) Matches(now time.Time) bool {
	if now.Hour() != t.Hour || now.Minute() != t.Minute {
		return false
	}
	return t.Weekday == nil || now.Weekday() == *t.Weekday
}

func dueTriggers(now time.Time) []Trigger {
	var due []Trigger
	for _, t := range triggers {
		if t.Matches(now) {
			due = append(due, t)
		}
	}
	return due
}
