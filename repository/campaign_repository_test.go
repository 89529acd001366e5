package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/repository"
	"github.com/amirphl/Raijin/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRepositoryByUUID(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	tenant, err := fixtures.CreateTestTenant()
	require.NoError(t, err)
	tmpl, err := fixtures.CreateTestTemplate(tenant.ID)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, models.CampaignStatusDraft)
	require.NoError(t, err)

	t.Run("Found", func(t *testing.T) {
		found, err := repo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, campaign.ID, found.ID)
		assert.Equal(t, campaign.Name, found.Name)
	})

	t.Run("NotFound", func(t *testing.T) {
		found, err := repo.ByUUID(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("PreloadsVariantsInLetterOrder", func(t *testing.T) {
		abCampaign, _, err := fixtures.CreateTestABCampaign(tenant.ID, models.CampaignStatusDraft, []float64{60, 40})
		require.NoError(t, err)

		found, err := repo.ByUUID(ctx, abCampaign.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Len(t, found.Variants, 2)
		assert.Equal(t, "A", found.Variants[0].Letter)
		assert.Equal(t, "B", found.Variants[1].Letter)
	})
}

func TestCampaignRepositoryUpdateStatusIf(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	tenant, err := fixtures.CreateTestTenant()
	require.NoError(t, err)
	tmpl, err := fixtures.CreateTestTemplate(tenant.ID)
	require.NoError(t, err)

	t.Run("ClaimsMatchingStatus", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, models.CampaignStatusDraft)
		require.NoError(t, err)

		claimed, err := repo.UpdateStatusIf(ctx, campaign.ID,
			models.CampaignStatusDraft, models.CampaignStatusProcessing,
			map[string]any{"total_count": int64(5)})
		require.NoError(t, err)
		assert.True(t, claimed)

		reloaded, err := repo.ByID(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusProcessing, reloaded.Status)
		assert.Equal(t, int64(5), reloaded.TotalCount)
	})

	t.Run("SecondClaimLoses", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, models.CampaignStatusScheduled)
		require.NoError(t, err)

		claimed, err := repo.UpdateStatusIf(ctx, campaign.ID,
			models.CampaignStatusScheduled, models.CampaignStatusProcessing, nil)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = repo.UpdateStatusIf(ctx, campaign.ID,
			models.CampaignStatusScheduled, models.CampaignStatusProcessing, nil)
		require.NoError(t, err)
		assert.False(t, claimed)

		reloaded, err := repo.ByID(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusProcessing, reloaded.Status)
	})

	t.Run("RearmWritesNextScheduledAt", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, models.CampaignStatusProcessing)
		require.NoError(t, err)

		next := utils.UTCNow().Add(24 * time.Hour).Truncate(time.Second)
		claimed, err := repo.UpdateStatusIf(ctx, campaign.ID,
			models.CampaignStatusProcessing, models.CampaignStatusScheduled,
			map[string]any{"scheduled_at": next})
		require.NoError(t, err)
		assert.True(t, claimed)

		reloaded, err := repo.ByID(ctx, campaign.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.ScheduledAt)
		assert.WithinDuration(t, next, *reloaded.ScheduledAt, time.Second)
	})
}

func TestCampaignRepositoryListDue(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	tenant, err := fixtures.CreateTestTenant()
	require.NoError(t, err)
	tmpl, err := fixtures.CreateTestTemplate(tenant.ID)
	require.NoError(t, err)

	now := utils.UTCNow()

	schedule := func(status models.CampaignStatus, at time.Time) *models.Campaign {
		c, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, status)
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(c).Update("scheduled_at", at).Error)
		return c
	}

	overdue := schedule(models.CampaignStatusScheduled, now.Add(-time.Hour))
	dueNow := schedule(models.CampaignStatusScheduled, now.Add(-time.Minute))
	schedule(models.CampaignStatusScheduled, now.Add(time.Hour))   // not due yet
	schedule(models.CampaignStatusDraft, now.Add(-time.Hour))      // wrong status
	schedule(models.CampaignStatusProcessing, now.Add(-time.Hour)) // already running

	due, err := repo.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	// Oldest scheduled_at first
	assert.Equal(t, overdue.ID, due[0].ID)
	assert.Equal(t, dueNow.ID, due[1].ID)

	limited, err := repo.ListDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, overdue.ID, limited[0].ID)
}

func TestCampaignRepositoryAddCounters(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	tenant, err := fixtures.CreateTestTenant()
	require.NoError(t, err)
	tmpl, err := fixtures.CreateTestTemplate(tenant.ID)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, models.CampaignStatusProcessing)
	require.NoError(t, err)

	require.NoError(t, repo.AddCounters(ctx, campaign.ID, 3, 1))
	require.NoError(t, repo.AddCounters(ctx, campaign.ID, 2, 0))

	reloaded, err := repo.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), reloaded.SentCount)
	assert.Equal(t, int64(1), reloaded.FailedCount)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := repository.NewCampaignRepository(testDB.DB)
	ctx := context.Background()

	tenant, err := fixtures.CreateTestTenant()
	require.NoError(t, err)
	tmpl, err := fixtures.CreateTestTemplate(tenant.ID)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(tenant.ID, tmpl.ID, models.CampaignStatusDraft)
	require.NoError(t, err)

	err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
		claimed, err := repo.UpdateStatusIf(txCtx, campaign.ID,
			models.CampaignStatusDraft, models.CampaignStatusProcessing, nil)
		require.NoError(t, err)
		require.True(t, claimed)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	reloaded, err := repo.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, reloaded.Status)
}
