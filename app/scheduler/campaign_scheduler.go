// Package scheduler runs the background sweep that launches due campaigns
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/amirphl/Raijin/app/middleware"
	businessflow "github.com/amirphl/Raijin/business_flow"
	"github.com/amirphl/Raijin/config"
	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/repository"
	"github.com/amirphl/Raijin/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CampaignScheduler periodically sweeps for due campaigns and launches them.
// The clock and interval are injectable so sweeps are testable without
// sleeping; production wires utils.UTCNow and the configured interval.
type CampaignScheduler struct {
	campaignRepo repository.CampaignRepository
	launcher     businessflow.LaunchFlow
	logger       *log.Logger
	interval     time.Duration
	batchLimit   int
	now          func() time.Time

	logSink io.Closer
}

func NewCampaignScheduler(
	campaignRepo repository.CampaignRepository,
	launcher businessflow.LaunchFlow,
	logger *log.Logger,
	cfg config.SchedulerConfig,
	now func() time.Time,
) *CampaignScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batchLimit := cfg.DueBatchLimit
	if batchLimit <= 0 {
		batchLimit = 100
	}
	if now == nil {
		now = utils.UTCNow
	}

	s := &CampaignScheduler{
		campaignRepo: campaignRepo,
		launcher:     launcher,
		logger:       logger,
		interval:     interval,
		batchLimit:   batchLimit,
		now:          now,
	}

	if s.logger == nil {
		if err := s.initSchedulerLogger(cfg.LogDir); err != nil {
			s.logger = log.Default()
			s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
		}
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a
// size-rotated file under the configured log directory.
func (s *CampaignScheduler) initSchedulerLogger(dir string) error {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "scheduler.log"),
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	s.logSink = rotator

	mw := io.MultiWriter(os.Stdout, rotator)
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	return nil
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *CampaignScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		if s.logSink != nil {
			_ = s.logSink.Close()
		}
	}
}

// runOnce performs one sweep: list due campaigns and launch each in its own
// goroutine so a slow or failing campaign never blocks the rest of the sweep.
func (s *CampaignScheduler) runOnce(ctx context.Context) {
	now := s.now()

	due, err := s.campaignRepo.ListDue(ctx, now, s.batchLimit)
	if err != nil {
		s.logger.Printf("scheduler: list due campaigns failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("scheduler: %d campaigns due", len(due))

	for _, campaign := range due {
		go func(c *models.Campaign) {
			if err := s.processCampaign(ctx, c, now); err != nil {
				s.logger.Printf("scheduler: process campaign id=%d failed: %v", c.ID, err)
			}
		}(campaign)
	}
}

// processCampaign launches one due campaign. Losing the claim race is normal
// operation under overlapping sweeps, not a failure. Any other launch error
// marks the campaign failed so it is not picked up again.
func (s *CampaignScheduler) processCampaign(ctx context.Context, c *models.Campaign, now time.Time) error {
	result, err := s.launcher.LaunchDue(ctx, c, now)
	if err != nil {
		if businessflow.IsCampaignAlreadyClaimed(err) {
			s.logger.Printf("scheduler: campaign id=%d already claimed", c.ID)
			return nil
		}
		if businessflow.IsEmptyAudience(err) {
			// LaunchDue already moved the campaign to failed.
			s.logger.Printf("scheduler: campaign id=%d had empty audience", c.ID)
			middleware.RecordCampaignLaunch("scheduler", "failure")
			return nil
		}
		s.markFailed(ctx, c.ID)
		middleware.RecordCampaignLaunch("scheduler", "failure")
		return err
	}

	middleware.RecordCampaignLaunch("scheduler", "success")
	s.logger.Printf("scheduler: campaign id=%d launched total=%d queued=%d failed=%d",
		c.ID, result.Total, result.Queued, result.Failed)
	return nil
}

// markFailed moves the campaign to failed from whichever non-terminal state
// it is stuck in after a launch error.
func (s *CampaignScheduler) markFailed(ctx context.Context, campaignID uint) {
	for _, from := range []models.CampaignStatus{models.CampaignStatusProcessing, models.CampaignStatusScheduled} {
		claimed, err := s.campaignRepo.UpdateStatusIf(ctx, campaignID, from, models.CampaignStatusFailed, nil)
		if err != nil {
			s.logger.Printf("scheduler: mark failed for campaign id=%d from %s errored: %v", campaignID, from, err)
			return
		}
		if claimed {
			return
		}
	}
}
