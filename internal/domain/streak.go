package domain

import "time"

// NextStreak derives the consecutive-day count for an active day on today.
//
// last is the user's last activity date as it was before the current event. A previous activity
// yesterday extends the streak; a previous activity today leaves it as it is, so repeated
// completions on one day never double count; anything else starts a new streak of one.
func NextStreak(current int, last *time.Time, today time.Time) int {
	if last == nil {
		return 1
	}
	if SameDate(*last, today) {
		return current
	}
	if SameDate(*last, today.AddDate(0, 0, -1)) {
		return current + 1
	}
	return 1
}

// UpdateStreak applies NextStreak to a user snapshot taken before the activity was recorded.
func UpdateStreak(user User, today time.Time) int {
	return NextStreak(user.ConsecutiveDays, user.LastActivityDate, today)
}
