package domain

// PromotionStreak is the consecutive-day count that earns the next level.
const PromotionStreak = 7

// Promotion describes a level change produced by MaybePromote.
type Promotion struct {
	FromLevel int
	NewLevel  int
	NewGoal   int
}

// MaybePromote raises the level once the streak reaches PromotionStreak, resetting the streak so
// the next promotion needs another full run. Level MaxLevel is a ceiling.
func MaybePromote(user User) (User, *Promotion) {
	if user.ConsecutiveDays < PromotionStreak || user.Level >= MaxLevel {
		return user, nil
	}
	from := user.Level
	user.Level = from + 1
	user.DailyGoal = DailyGoalFor(user.Level)
	user.ConsecutiveDays = 0
	return user, &Promotion{FromLevel: from, NewLevel: user.Level, NewGoal: user.DailyGoal}
}
