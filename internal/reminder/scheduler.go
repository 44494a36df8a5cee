// Package reminder sends goal reminders and weekly reports at fixed wall-clock instants.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"example.com/pushups/internal/clock"
	"example.com/pushups/internal/domain"
	"example.com/pushups/internal/events"
	"example.com/pushups/internal/notify"
)

// State reports whether a reminder cycle is in flight.
type State int32

const (
	Idle State = iota
	Firing
)

func (s State) String() string {
	if s == Firing {
		return "firing"
	}
	return "idle"
}

// ProgressReader is the read side of the progression service the scheduler depends on.
type ProgressReader interface {
	ActiveUsers(ctx context.Context) ([]domain.User, error)
	Progress(ctx context.Context, id int64) (*domain.DailyProgress, error)
	Stats(ctx context.Context, id int64) (*domain.UserStats, error)
}

// Scheduler matches the current minute against the trigger table and fans notifications out to
// every active user.
type Scheduler struct {
	reader      ProgressReader
	sender      notify.Sender
	clock       clock.Clock
	location    *time.Location
	concurrency int
	logger      *log.Logger

	state     atomic.Int32
	mu        sync.Mutex
	lastFired time.Time
}

// Option configures optional behaviour for the Scheduler.
type Option func(*Scheduler)

// WithLogger overrides the scheduler logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock consulted by Run.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLocation sets the zone the trigger table is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithConcurrency bounds the number of sends in flight during one cycle.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewScheduler constructs a Scheduler.
func NewScheduler(reader ProgressReader, sender notify.Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		reader:      reader,
		sender:      sender,
		clock:       clock.Real{},
		location:    time.UTC,
		concurrency: 8,
		logger:      log.New(os.Stdout, "reminder ", log.LstdFlags|log.LUTC),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run evaluates the trigger table once per minute until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc("* * * * *", func() {
		if _, err := s.Tick(ctx, s.clock.Now()); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Printf("cycle aborted: %v", err)
		}
	}); err != nil {
		return err
	}

	s.logger.Printf("started location=%s concurrency=%d", s.location, s.concurrency)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Tick fires every trigger matching now. It returns the notifications that were delivered. An
// error is returned only when the active-user list could not be read, which aborts this cycle.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]events.Notification, error) {
	now = now.In(s.location)
	due := dueTriggers(now)
	if len(due) == 0 || !s.claimMinute(now) {
		return nil, nil
	}

	s.state.Store(int32(Firing))
	defer s.state.Store(int32(Idle))
	start := time.Now()

	users, err := s.reader.ActiveUsers(ctx)
	if err != nil {
		for _, t := range due {
			cyclesTotal.WithLabelValues(t.Kind, "aborted").Inc()
		}
		return nil, err
	}
	if len(users) == 0 {
		s.logger.Printf("no active users at %s", now.Format("Mon 15:04"))
	}

	var (
		mu   sync.Mutex
		sent []events.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, t := range due {
		for _, user := range users {
			t, user := t, user
			g.Go(func() error {
				n, err := s.notify(gctx, t, user, now)
				if err != nil {
					s.logger.Printf("%s for user %d skipped: %v", t.Kind, user.ID, err)
					userFailures.WithLabelValues(t.Kind).Inc()
					return nil
				}
				mu.Lock()
				sent = append(sent, n)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	for _, t := range due {
		cyclesTotal.WithLabelValues(t.Kind, "completed").Inc()
	}
	cycleDuration.Observe(time.Since(start).Seconds())
	s.logger.Printf("fired %d notifications for %d users at %s", len(sent), len(users), now.Format("Mon 15:04"))

	sort.Slice(sent, func(i, j int) bool {
		if sent[i].UserID == sent[j].UserID {
			return sent[i].Kind < sent[j].Kind
		}
		return sent[i].UserID < sent[j].UserID
	})
	return sent, nil
}

// claimMinute reports whether now's minute has not been fired yet and marks it fired.
func (s *Scheduler) claimMinute(now time.Time) bool {
	minute := now.Truncate(time.Minute)
	s.mu.Lock()
	defer s.mu.Unlock()
	if minute.Equal(s.lastFired) {
		return false
	}
	s.lastFired = minute
	return true
}

// notify builds and sends one user's notification. A panic raised while doing so is returned as an
// error so the rest of the cycle keeps going.
func (s *Scheduler) notify(ctx context.Context, t Trigger, user domain.User, now time.Time) (n events.Notification, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = events.Notification{}, fmt.Errorf("panic: %v", r)
		}
	}()

	var text string
	if t.Kind == KindWeeklyReport {
		stats, err := s.reader.Stats(ctx, user.ID)
		if err != nil {
			return events.Notification{}, err
		}
		text = weeklyReport(*stats)
	} else {
		progress, err := s.reader.Progress(ctx, user.ID)
		if err != nil {
			return events.Notification{}, err
		}
		text = reminderText(t.Kind, *progress)
	}

	n = events.Notification{UserID: user.ID, Kind: t.Kind, Text: text, SentAt: now.UTC()}
	if err := s.sender.Send(ctx, n); err != nil {
		return events.Notification{}, err
	}
	return n, nil
}
