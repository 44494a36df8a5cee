package domain

import "time"

// MaxAmount bounds a single recorded amount.
const MaxAmount = 1000

// LedgerState is the slice of the store an activity transition reads, loaded under the user's lock.
type LedgerState struct {
	User User
	// Today is nil when the user has no record for the current date yet.
	Today *DailyActivityRecord
	// ActiveDays counts dates with a positive amount, excluding the current event.
	ActiveDays int
}

// ActivityOutcome is the result of recording one activity.
type ActivityOutcome struct {
	User        User
	Record      DailyActivityRecord
	Amount      int
	Created     bool
	Promotion   *Promotion
	Achievement *Achievement
}

// ValidateAmount rejects amounts outside [0, MaxAmount].
func ValidateAmount(amount int) error {
	if amount < 0 || amount > MaxAmount {
		return validationErrorf("amount must be between 0 and %d", MaxAmount)
	}
	return nil
}

// ApplyActivity computes the ledger and user state after amount was performed on today.
//
// Same-day completions accumulate into one record and TotalCount grows by exactly amount. A zero
// amount is an explicit skip: a skip that creates the day's record leaves the last activity date
// and the streak alone, while any activity on an existing record moves the last activity date to
// today. The streak moves together with that date and is derived from its value before this event,
// then the promotion rule runs on the result.
func ApplyActivity(state LedgerState, amount int, today, now time.Time, newID func() string) ActivityOutcome {
	prev := state.User
	user := prev

	created := state.Today == nil
	var record DailyActivityRecord
	if created {
		record = DailyActivityRecord{
			ID:        newID(),
			UserID:    user.ID,
			Date:      today,
			Amount:    amount,
			CreatedAt: now,
		}
	} else {
		record = *state.Today
		record.Amount += amount
	}
	record.Completed = true
	record.UpdatedAt = now

	firstActive := amount > 0 && (created || state.Today.Amount == 0)

	user.TotalCount += amount
	if amount > 0 || !created {
		user.ConsecutiveDays = UpdateStreak(prev, today)
		day := today
		user.LastActivityDate = &day
	}

	user, promotion := MaybePromote(user)
	user.UpdatedAt = now

	outcome := ActivityOutcome{
		User:      user,
		Record:    record,
		Amount:    amount,
		Created:   created,
		Promotion: promotion,
	}
	if firstActive {
		if achievement, ok := CheckAchievement(state.ActiveDays + 1); ok {
			outcome.Achievement = &achievement
		}
	}
	return outcome
}
