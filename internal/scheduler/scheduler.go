package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"powdercast/internal/services"
)

// Scheduler refreshes the current-month overview for the configured
// locations on a fixed interval, so the calendar stays warm without a
// browser attached.
type Scheduler struct {
	service     *services.Service
	logger      *zap.Logger
	locationIDs []string
	interval    time.Duration

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func NewScheduler(service *services.Service, locationIDs []string, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service:     service,
		logger:      logger,
		locationIDs: locationIDs,
		interval:    interval,
		cron:        cron.New(),
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.runRefresh)
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Strings("locations", s.locationIDs))

	// Warm the cache right away instead of waiting a full interval.
	go s.runRefresh()

	return nil
}

func (s *Scheduler) runRefresh() {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	failures := 0
	for _, locationID := range s.locationIDs {
		if err := s.service.RefreshActiveOverview(ctx, locationID); err != nil {
			failures++
			s.logger.Error("Scheduled overview refresh failed",
				zap.String("location", locationID),
				zap.Error(err))
		}
	}

	s.logger.Info("Scheduled overview refresh completed",
		zap.Int("locations", len(s.locationIDs)),
		zap.Int("failures", failures),
		zap.Duration("duration", time.Since(startTime)))
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

// ForceRun triggers a refresh outside the schedule.
func (s *Scheduler) ForceRun() {
	s.logger.Info("Manually triggering overview refresh")
	go s.runRefresh()
}

func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":   s.running,
		"interval":  s.interval.String(),
		"last_run":  s.lastRun,
		"locations": s.locationIDs,
	}
	if s.running {
		status["next_run"] = s.cron.Entry(s.entryID).Next
	}
	return status
}
