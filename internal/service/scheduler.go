package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/config"
)

type scheduledJob interface {
	RunScheduled(ctx context.Context)
}

// Scheduler drives the periodic refresh on a market-hours cadence: every
// interval tick that falls inside the configured daily window runs one
// best-effort refresh cycle. Ticks outside the window are skipped.
type Scheduler struct {
	cfg      config.ScheduleConfig
	job      scheduledJob
	logger   *zap.Logger
	location *time.Location
	stopChan chan struct{}
	running  bool
}

// NewScheduler creates a new refresh scheduler
func NewScheduler(cfg config.ScheduleConfig, job scheduledJob, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		job:      job,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the ticker loop. It fails fast on an unparseable
// timezone or window instead of silently never firing.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", s.cfg.Timezone, err)
	}
	s.location = loc

	if _, err := parseWindow(s.cfg.WindowStart); err != nil {
		return fmt.Errorf("invalid window start: %w", err)
	}
	if _, err := parseWindow(s.cfg.WindowEnd); err != nil {
		return fmt.Errorf("invalid window end: %w", err)
	}

	s.running = true
	s.logger.Info("refresh scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.String("window", s.cfg.WindowStart+"-"+s.cfg.WindowEnd),
		zap.String("timezone", s.cfg.Timezone))

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				now := time.Now().In(s.location)
				if !s.withinWindow(now) {
					continue
				}
				s.logger.Debug("running scheduled refresh")
				s.job.RunScheduled(ctx)
			case <-s.stopChan:
				s.logger.Info("refresh scheduler stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker loop.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
}

// withinWindow reports whether t falls inside the daily refresh window.
func (s *Scheduler) withinWindow(t time.Time) bool {
	if s.cfg.WeekdaysOnly {
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}

	start, _ := parseWindow(s.cfg.WindowStart)
	end, _ := parseWindow(s.cfg.WindowEnd)
	minute := t.Hour()*60 + t.Minute()

	return minute >= start && minute <= end
}

// parseWindow converts a wall-clock "15:04" string to minutes since
// midnight.
func parseWindow(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
