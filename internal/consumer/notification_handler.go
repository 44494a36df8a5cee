package consumer

import (
	"context"
	"errors"
	"fmt"

	"example.com/pushups/internal/clock"
	"example.com/pushups/internal/events"
	"example.com/pushups/internal/notify"
)

// Notification kinds derived from progress events.
const (
	KindLevelUp     = "level_up"
	KindAchievement = "achievement"
)

// NotificationHandler turns promotion and achievement events into chat notifications.
type NotificationHandler struct {
	sender notify.Sender
	clock  clock.Clock
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(sender notify.Sender, c clock.Clock) *NotificationHandler {
	if c == nil {
		c = clock.Real{}
	}
	return &NotificationHandler{sender: sender, clock: c}
}

// Handle implements Handler. Activity events and unknown types are ignored.
func (h *NotificationHandler) Handle(ctx context.Context, msg Message) error {
	evt, err := msg.TypedEvent()
	if errors.Is(err, errUnknownEventType) {
		return nil
	}
	if err != nil {
		return err
	}

	var n events.Notification
	switch evt := evt.(type) {
	case events.UserPromoted:
		n = events.Notification{UserID: evt.UserID, Kind: KindLevelUp, Text: levelUpText(evt)}
	case events.AchievementUnlocked:
		n = events.Notification{UserID: evt.UserID, Kind: KindAchievement, Text: evt.Message}
	default:
		return nil
	}
	if n.UserID == 0 {
		n.UserID = msg.UserID
	}

	n.SentAt = h.clock.Now().UTC()
	if err := h.sender.Send(ctx, n); err != nil {
		return err
	}
	recordNotification(msg.EventType)
	return nil
}

func levelUpText(evt events.UserPromoted) string {
	return fmt.Sprintf("Congratulations, %s! You reached level %d (%s).\nNew daily goal: %d push-ups.",
		evt.Name, evt.NewLevel, evt.LevelName, evt.NewGoal)
}
