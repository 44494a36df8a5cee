package domain

import (
	"math/rand/v2"
	"time"
)

// Task is a single proposed amount for the user to perform now. It is never persisted.
type Task struct {
	UserID int64
	Amount int
	Level  int
	Date   time.Time
}

// IntN is the random source used by task generation.
type IntN interface {
	IntN(n int) int
}

type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// GenerateTask draws an amount uniformly from the closed range of the user's level.
func GenerateTask(user User, today time.Time, rng IntN) Task {
	if rng == nil {
		rng = defaultRand{}
	}
	params := LookupLevel(user.Level)
	return Task{
		UserID: user.ID,
		Amount: params.MinTask + rng.IntN(params.MaxTask-params.MinTask+1),
		Level:  params.Level,
		Date:   today,
	}
}

var motivationalMessages = []string{
	"You get stronger every day!",
	"Your strength is in consistency!",
	"Every push-up brings you closer to the goal!",
	"You are doing it right!",
	"Your progress is impressive!",
	"You are a real fighter!",
	"Your discipline deserves respect!",
	"You charge everyone around with energy!",
}

// MotivationalMessage picks one of the fixed encouragement lines.
func MotivationalMessage(rng IntN) string {
	if rng == nil {
		rng = defaultRand{}
	}
	return motivationalMessages[rng.IntN(len(motivationalMessages))]
}
