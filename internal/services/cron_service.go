package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	sweeper *SweeperService
	logger  *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(sweeper *SweeperService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:    cron.New(cron.WithSeconds()),
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start schedules and starts all cron jobs
func (s *CronService) Start(sweepInterval time.Duration) error {
	if sweepInterval < time.Minute {
		sweepInterval = time.Minute
	}

	spec := fmt.Sprintf("@every %s", sweepInterval)
	if _, err := s.cron.AddFunc(spec, s.sweepJob); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	s.logger.WithField("interval", sweepInterval).Info("Scheduled expiry sweep")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) sweepJob() {
	start := time.Now()
	expired, err := s.sweeper.Sweep(start)
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep failed")
		return
	}
	if expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":  expired,
			"duration": time.Since(start),
		}).Info("Expiry sweep reclaimed bookings")
	}
}

// RunSweepNow runs the expiry sweep immediately. Exposed for the admin
// trigger endpoint.
func (s *CronService) RunSweepNow() (int, error) {
	return s.sweeper.Sweep(time.Now())
}
