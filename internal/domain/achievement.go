package domain

// Achievement is a one-shot congratulation for reaching an active-day milestone.
type Achievement struct {
	Days    int
	Message string
}

var milestones = map[int]string{
	7:   "A week of training! You are on the right track!",
	14:  "Two weeks! You are building a habit!",
	30:  "A month of training! You are a true champion!",
	50:  "50 days! You are made of iron!",
	100: "100 days! You are a legend!",
}

// CheckAchievement returns the milestone for daysCount. It fires on equality only.
func CheckAchievement(daysCount int) (Achievement, bool) {
	msg, ok := milestones[daysCount]
	if !ok {
		return Achievement{}, false
	}
	return Achievement{Days: daysCount, Message: msg}, true
}
