package outbox

import "example.com/pushups/internal/events"

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeActivityRecorded:    {Schema: activityRecordedSchema},
	events.TypeUserPromoted:        {Schema: userPromotedSchema},
	events.TypeAchievementUnlocked: {Schema: achievementUnlockedSchema},
}

const activityRecordedSchema = `{
  "type": "object",
  "title": "ActivityRecorded",
  "properties": {
    "event_id": {"type": "string"},
    "user_id": {"type": "integer"},
    "record_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "amount": {"type": "integer", "minimum": 0},
    "day_amount": {"type": "integer", "minimum": 0},
    "total_count": {"type": "integer", "minimum": 0},
    "consecutive_days": {"type": "integer", "minimum": 0},
    "level": {"type": "integer", "minimum": 1, "maximum": 6},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "user_id", "record_id", "date", "amount", "day_amount", "total_count", "consecutive_days", "level", "occurred_at"],
  "additionalProperties": false
}`

const userPromotedSchema = `{
  "type": "object",
  "title": "UserPromoted",
  "properties": {
    "event_id": {"type": "string"},
    "user_id": {"type": "integer"},
    "name": {"type": "string"},
    "from_level": {"type": "integer"},
    "new_level": {"type": "integer", "minimum": 2, "maximum": 6},
    "level_name": {"type": "string"},
    "new_goal": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "user_id", "from_level", "new_level", "new_goal", "occurred_at"],
  "additionalProperties": false
}`

const achievementUnlockedSchema = `{
  "type": "object",
  "title": "AchievementUnlocked",
  "properties": {
    "event_id": {"type": "string"},
    "user_id": {"type": "integer"},
    "name": {"type": "string"},
    "days": {"type": "integer"},
    "message": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "user_id", "days", "message", "occurred_at"],
  "additionalProperties": false
}`
