package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Updater runs UpdateFromFeed on a cron schedule. It implements
// system.Service so the runtime can manage its lifecycle.
type Updater struct {
	service  *Service
	schedule cron.Schedule
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewUpdater parses the schedule expression (standard cron or the @every
// form) and builds the updater.
func NewUpdater(service *Service, schedule string, log *logger.Logger) (*Updater, error) {
	parsed, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = logger.NewDefault("updater")
	}
	return &Updater{service: service, schedule: parsed, log: log}, nil
}

func (u *Updater) Name() string { return "feed-updater" }

// Start launches the update loop. One update runs immediately so a fresh
// deployment does not wait a full schedule interval for data.
func (u *Updater) Start(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancel != nil {
		return fmt.Errorf("updater already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	u.done = make(chan struct{})

	go u.run(ctx)
	return nil
}

// Stop cancels the loop and waits for any in-flight update to finish.
func (u *Updater) Stop(ctx context.Context) error {
	u.mu.Lock()
	cancel, done := u.cancel, u.done
	u.cancel = nil
	u.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *Updater) run(ctx context.Context) {
	defer close(u.done)

	u.update(ctx)
	for {
		next := u.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			u.update(ctx)
		}
	}
}

func (u *Updater) update(ctx context.Context) {
	stats, err := u.service.UpdateFromFeed(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		u.log.WithError(err).Error("scheduled feed update failed")
		return
	}
	u.log.WithField("inserted", stats.Inserted).Debug("scheduled feed update finished")
}
