package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Raijin/app/dto"
	businessflow "github.com/amirphl/Raijin/business_flow"
	"github.com/amirphl/Raijin/config"
	"github.com/amirphl/Raijin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCampaignRepo struct {
	mu       sync.Mutex
	due      []*models.Campaign
	listErr  error
	statuses map[uint]models.CampaignStatus
}

func newFakeCampaignRepo(due ...*models.Campaign) *fakeCampaignRepo {
	r := &fakeCampaignRepo{
		due:      due,
		statuses: make(map[uint]models.CampaignStatus),
	}
	for _, c := range due {
		r.statuses[c.ID] = c.Status
	}
	return r
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	return nil, nil
}
func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}
func (r *fakeCampaignRepo) Save(ctx context.Context, c *models.Campaign) error        { return nil }
func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, cs []*models.Campaign) error { return nil }
func (r *fakeCampaignRepo) Update(ctx context.Context, c *models.Campaign) error      { return nil }
func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	return 0, nil
}
func (r *fakeCampaignRepo) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	return nil, nil
}
func (r *fakeCampaignRepo) AddCounters(ctx context.Context, campaignID uint, sent, failed int64) error {
	return nil
}

func (r *fakeCampaignRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	if len(r.due) > limit {
		return r.due[:limit], nil
	}
	return r.due, nil
}

func (r *fakeCampaignRepo) UpdateStatusIf(ctx context.Context, campaignID uint, from, to models.CampaignStatus, extra map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses[campaignID] != from {
		return false, nil
	}
	r.statuses[campaignID] = to
	return true, nil
}

func (r *fakeCampaignRepo) status(id uint) models.CampaignStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[id]
}

// fakeLauncher records LaunchDue calls and fails the campaigns it is told to
type fakeLauncher struct {
	mu       sync.Mutex
	launched []uint
	errFor   map[uint]error
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{errFor: make(map[uint]error)}
}

func (l *fakeLauncher) LaunchCampaign(ctx context.Context, req *dto.LaunchCampaignRequest, metadata *businessflow.ClientMetadata) (*dto.LaunchCampaignResponse, error) {
	return nil, fmt.Errorf("not used by the scheduler")
}

func (l *fakeLauncher) LaunchDue(ctx context.Context, campaign *models.Campaign, now time.Time) (*businessflow.LaunchResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, campaign.ID)
	if err := l.errFor[campaign.ID]; err != nil {
		return nil, err
	}
	return &businessflow.LaunchResult{Total: 1, Queued: 1}, nil
}

func (l *fakeLauncher) launchedIDs() []uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uint, len(l.launched))
	copy(out, l.launched)
	return out
}

func testScheduler(repo *fakeCampaignRepo, launcher *fakeLauncher, now time.Time) *CampaignScheduler {
	return NewCampaignScheduler(
		repo,
		launcher,
		log.New(io.Discard, "", 0),
		config.SchedulerConfig{Interval: time.Hour, DueBatchLimit: 10},
		func() time.Time { return now },
	)
}

func scheduledCampaign(id uint) *models.Campaign {
	return &models.Campaign{
		ID:       id,
		TenantID: 7,
		Name:     fmt.Sprintf("Campaign %d", id),
		Status:   models.CampaignStatusScheduled,
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("LaunchesAllDueCampaigns", func(t *testing.T) {
		repo := newFakeCampaignRepo(scheduledCampaign(1), scheduledCampaign(2), scheduledCampaign(3))
		launcher := newFakeLauncher()
		s := testScheduler(repo, launcher, now)

		s.runOnce(ctx)

		assert.Eventually(t, func() bool {
			return len(launcher.launchedIDs()) == 3
		}, time.Second, 10*time.Millisecond)
		assert.ElementsMatch(t, []uint{1, 2, 3}, launcher.launchedIDs())
	})

	t.Run("NoDueCampaigns", func(t *testing.T) {
		repo := newFakeCampaignRepo()
		launcher := newFakeLauncher()
		s := testScheduler(repo, launcher, now)

		s.runOnce(ctx)

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, launcher.launchedIDs())
	})

	t.Run("ListDueErrorSkipsSweep", func(t *testing.T) {
		repo := newFakeCampaignRepo(scheduledCampaign(1))
		repo.listErr = fmt.Errorf("connection refused")
		launcher := newFakeLauncher()
		s := testScheduler(repo, launcher, now)

		s.runOnce(ctx)

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, launcher.launchedIDs())
	})

	t.Run("BatchLimitRespected", func(t *testing.T) {
		campaigns := make([]*models.Campaign, 0, 15)
		for i := 1; i <= 15; i++ {
			campaigns = append(campaigns, scheduledCampaign(uint(i)))
		}
		repo := newFakeCampaignRepo(campaigns...)
		launcher := newFakeLauncher()
		s := testScheduler(repo, launcher, now)

		s.runOnce(ctx)

		assert.Eventually(t, func() bool {
			return len(launcher.launchedIDs()) == 10
		}, time.Second, 10*time.Millisecond)
	})
}

func TestSchedulerProcessCampaign(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("ClaimLossIsNotAFailure", func(t *testing.T) {
		campaign := scheduledCampaign(1)
		repo := newFakeCampaignRepo(campaign)
		launcher := newFakeLauncher()
		launcher.errFor[1] = businessflow.ErrCampaignAlreadyClaimed
		s := testScheduler(repo, launcher, now)

		err := s.processCampaign(ctx, campaign, now)
		require.NoError(t, err)
		// Another sweep owns the campaign; its status is left alone.
		assert.Equal(t, models.CampaignStatusScheduled, repo.status(1))
	})

	t.Run("EmptyAudienceHandledByLauncher", func(t *testing.T) {
		campaign := scheduledCampaign(1)
		repo := newFakeCampaignRepo(campaign)
		launcher := newFakeLauncher()
		launcher.errFor[1] = businessflow.ErrEmptyAudience
		s := testScheduler(repo, launcher, now)

		err := s.processCampaign(ctx, campaign, now)
		require.NoError(t, err)
		// LaunchDue moves the campaign to failed itself; the sweep does not
		// touch it again.
		assert.Equal(t, models.CampaignStatusScheduled, repo.status(1))
	})

	t.Run("LaunchErrorMarksFailed", func(t *testing.T) {
		campaign := scheduledCampaign(1)
		repo := newFakeCampaignRepo(campaign)
		launcher := newFakeLauncher()
		launcher.errFor[1] = fmt.Errorf("broker unavailable")
		s := testScheduler(repo, launcher, now)

		err := s.processCampaign(ctx, campaign, now)
		require.Error(t, err)
		assert.Equal(t, models.CampaignStatusFailed, repo.status(1))
	})

	t.Run("LaunchErrorAfterClaimMarksFailed", func(t *testing.T) {
		campaign := scheduledCampaign(1)
		repo := newFakeCampaignRepo(campaign)
		// The launch claimed the campaign before erroring.
		repo.statuses[1] = models.CampaignStatusProcessing
		launcher := newFakeLauncher()
		launcher.errFor[1] = fmt.Errorf("broker unavailable")
		s := testScheduler(repo, launcher, now)

		err := s.processCampaign(ctx, campaign, now)
		require.Error(t, err)
		assert.Equal(t, models.CampaignStatusFailed, repo.status(1))
	})
}

func TestSchedulerStartStop(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	repo := newFakeCampaignRepo(scheduledCampaign(1))
	launcher := newFakeLauncher()
	s := NewCampaignScheduler(
		repo,
		launcher,
		log.New(io.Discard, "", 0),
		config.SchedulerConfig{Interval: 10 * time.Millisecond, DueBatchLimit: 10},
		func() time.Time { return now },
	)

	stop := s.Start(context.Background())

	// The initial sweep runs immediately, then the ticker repeats it.
	assert.Eventually(t, func() bool {
		return len(launcher.launchedIDs()) >= 2
	}, time.Second, 5*time.Millisecond)

	stop()
	time.Sleep(30 * time.Millisecond)
	count := len(launcher.launchedIDs())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, len(launcher.launchedIDs()))
}
