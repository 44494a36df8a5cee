package domain

const (
	// MinLevel is the entry difficulty tier.
	MinLevel = 1
	// MaxLevel is the ceiling; promotion never goes past it.
	MaxLevel = 6
)

// LevelParams holds the task range and daily goal for one level.
type LevelParams struct {
	Level     int
	MinTask   int
	MaxTask   int
	DailyGoal int
	Name      string
}

var levelTable = [...]LevelParams{
	{Level: 1, MinTask: 5, MaxTask: 15, DailyGoal: 30, Name: "Beginner"},
	{Level: 2, MinTask: 10, MaxTask: 25, DailyGoal: 45, Name: "Novice"},
	{Level: 3, MinTask: 15, MaxTask: 35, DailyGoal: 60, Name: "Intermediate"},
	{Level: 4, MinTask: 20, MaxTask: 45, DailyGoal: 75, Name: "Advanced"},
	{Level: 5, MinTask: 25, MaxTask: 60, DailyGoal: 90, Name: "Expert"},
	{Level: 6, MinTask: 30, MaxTask: 80, DailyGoal: 100, Name: "Master"},
}

// ValidLevel reports whether level is inside [MinLevel, MaxLevel].
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// LookupLevel returns the parameters for level. Anything outside the table falls back to level 1.
func LookupLevel(level int) LevelParams {
	if !ValidLevel(level) {
		level = MinLevel
	}
	return levelTable[level-1]
}

// DailyGoalFor is the goal a user at level must reach each day.
func DailyGoalFor(level int) int {
	return LookupLevel(level).DailyGoal
}

// LevelName returns the display name of a level, or "Unknown".
func LevelName(level int) string {
	if !ValidLevel(level) {
		return "Unknown"
	}
	return levelTable[level-1].Name
}
