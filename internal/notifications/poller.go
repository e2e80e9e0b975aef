package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Maintenance is an optional housekeeping task the poller runs on a
// cron schedule, e.g. purging stale cache rows.
type Maintenance struct {
	Name string
	Cron string
	Task func(ctx context.Context)
}

// Poller refreshes a notification store on a fixed interval. Each
// view lifecycle owns its poller: Start on appear, Stop on disappear,
// so timers never leak across lifecycles.
type Poller struct {
	store     *Store
	scheduler gocron.Scheduler
	timeout   time.Duration
	stopOnce  sync.Once
	stopErr   error
}

// NewPoller creates a poller that refreshes store every interval.
// Each refresh runs under its own timeout so one slow request cannot
// pile up behind the next tick.
func NewPoller(store *Store, interval, timeout time.Duration, maintenance ...Maintenance) (*Poller, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Poller job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}

	p := &Poller{store: store, scheduler: scheduler, timeout: timeout}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.refreshOnce),
		gocron.WithName("notification-refresh"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	for _, m := range maintenance {
		task := m.Task
		timeout := timeout
		_, err = scheduler.NewJob(
			gocron.CronJob(m.Cron, false),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				task(ctx)
			}),
			gocron.WithName(m.Name),
		)
		if err != nil {
			_ = scheduler.Shutdown()
			return nil, err
		}
	}

	return p, nil
}

func (p *Poller) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Refresh(ctx); err != nil {
		log.Debug().Err(err).Msg("Notification refresh failed")
	}
}

// Start begins polling.
func (p *Poller) Start() {
	log.Info().Msg("Notification poller starting")
	p.scheduler.Start()
}

// Stop shuts the poller down and releases its timers. Safe to call
// more than once.
func (p *Poller) Stop() error {
	p.stopOnce.Do(func() {
		log.Info().Msg("Notification poller stopping")
		p.stopErr = p.scheduler.Shutdown()
	})
	return p.stopErr
}
