package reminder

import (
	"fmt"
	"strings"

	"example.com/pushups/internal/domain"
)

type greeting struct {
	hello   string
	met     string
	pending string
}

var greetings = map[string]greeting{
	KindMorning: {
		hello:   "Good morning",
		met:     "Daily goal met: %d push-ups already done. Great work!",
		pending: "Start the day with a set!",
	},
	KindAfternoon: {
		hello:   "Hi",
		met:     "Daily goal met: %d push-ups. Rest up or add a bonus set!",
		pending: "Take a break and knock out a few push-ups!",
	},
	KindEvening: {
		hello:   "Good evening",
		met:     "Daily goal met: %d push-ups. See you tomorrow!",
		pending: "One final push to finish the day!",
	},
}

func reminderText(kind string, p domain.DailyProgress) string {
	g := greetings[kind]
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s!\n\n", g.hello, p.User.Name)
	if p.GoalMet() {
		fmt.Fprintf(&b, g.met, p.Goal())
		return b.String()
	}
	fmt.Fprintf(&b, "Progress: %d/%d\nRemaining: %d\n\n%s", p.Done, p.Goal(), p.Remaining(), g.pending)
	return b.String()
}

func weeklyReport(stats domain.UserStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly report, %s!\n\n", stats.User.Name)
	fmt.Fprintf(&b, "Level: %d (%s)\n", stats.User.Level, stats.LevelName)
	fmt.Fprintf(&b, "Daily goal: %d push-ups\n", stats.User.DailyGoal)
	fmt.Fprintf(&b, "Training days this week: %d\n", stats.Week.Days)
	fmt.Fprintf(&b, "Push-ups this week: %d\n\n", stats.Week.Amount)
	switch {
	case stats.Week.Days >= 7:
		b.WriteString("Great week! You trained every day!")
	case stats.Week.Days >= 5:
		b.WriteString("Good week! Keep it up!")
	default:
		b.WriteString("Try to train more often next week!")
	}
	return b.String()
}
