package service

import (
	"context"
	"fmt"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/pkg/logger"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// Scheduler runs the batch refresh on a fixed interval. Overlapping
// runs collapse into one: a tick that fires while a run is in flight
// joins it instead of starting another.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	// TriggerRefresh runs (or joins) a refresh immediately and reports
	// its summary.
	TriggerRefresh(ctx context.Context) (*dto.RefreshSummary, error)
}

type scheduler struct {
	cfg       *config.Config
	log       *logger.Logger
	refresher Refresher
	cron      *cron.Cron
	group     singleflight.Group
}

func NewScheduler(cfg *config.Config, log *logger.Logger, refresher Refresher) Scheduler {
	return &scheduler{
		cfg:       cfg,
		log:       log,
		refresher: refresher,
		cron:      cron.New(),
	}
}

func (s *scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.cfg.Scheduler.RefreshInterval)
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.TriggerRefresh(ctx); err != nil && ctx.Err() == nil {
			s.log.ErrorContext(ctx, "Scheduled refresh failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("interval", s.cfg.Scheduler.RefreshInterval.String()))
	return nil
}

func (s *scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.cfg.Scheduler.TimeoutDuration):
		s.log.Warn("Timed out waiting for scheduler jobs to drain")
	}
}

func (s *scheduler) TriggerRefresh(ctx context.Context) (*dto.RefreshSummary, error) {
	result, err, shared := s.group.Do("refresh", func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
		defer cancel()
		return s.refresher.RefreshAll(runCtx)
	})
	if shared {
		s.log.Debug("Joined in-flight refresh run")
	}
	if err != nil {
		return nil, err
	}
	summary, _ := result.(*dto.RefreshSummary)
	return summary, nil
}
