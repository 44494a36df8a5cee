package domain

import "time"

const (
	weekWindowDays  = 7
	monthWindowDays = 30
)

// WindowStart returns the first date included in a window of days ending on today.
func WindowStart(today time.Time, days int) time.Time {
	return DateOf(today).AddDate(0, 0, -(days - 1))
}

// Summarize folds ledger records into an ActivitySummary. Only positive amounts count as active days.
func Summarize(records []DailyActivityRecord, today time.Time) ActivitySummary {
	weekStart := WindowStart(today, weekWindowDays)
	monthStart := WindowStart(today, monthWindowDays)

	var summary ActivitySummary
	for _, rec := range records {
		if SameDate(rec.Date, today) {
			summary.TodayAmount += rec.Amount
		}
		if !rec.Completed || rec.Amount <= 0 {
			continue
		}
		date := DateOf(rec.Date)
		summary.DaysCount++
		summary.TotalAmount += rec.Amount
		if summary.FirstActivity == nil || date.Before(*summary.FirstActivity) {
			first := date
			summary.FirstActivity = &first
		}
		if summary.LastActivity == nil || date.After(*summary.LastActivity) {
			last := date
			summary.LastActivity = &last
		}
		if !date.Before(weekStart) {
			summary.Week.Days++
			summary.Week.Amount += rec.Amount
		}
		if !date.Before(monthStart) {
			summary.Month.Days++
			summary.Month.Amount += rec.Amount
		}
	}
	return summary
}
