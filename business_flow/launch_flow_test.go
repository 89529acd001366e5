package businessflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Raijin/app/dto"
	"github.com/amirphl/Raijin/app/services"
	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo satisfies the generic repository contract with no-ops so the fakes
// below only implement what the launch path actually touches.
type stubRepo[T any, F any] struct{}

func (stubRepo[T, F]) ByID(ctx context.Context, id uint) (*T, error) { return nil, nil }
func (stubRepo[T, F]) ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error) {
	return nil, nil
}
func (stubRepo[T, F]) Save(ctx context.Context, entity *T) error        { return nil }
func (stubRepo[T, F]) SaveBatch(ctx context.Context, entities []*T) error { return nil }
func (stubRepo[T, F]) Update(ctx context.Context, entity *T) error      { return nil }
func (stubRepo[T, F]) Count(ctx context.Context, filter F) (int64, error) { return 0, nil }

type fakeCampaignRepo struct {
	stubRepo[models.Campaign, models.CampaignFilter]

	mu        sync.Mutex
	campaigns map[uint]*models.Campaign
	counters  map[uint][2]int64 // sent, failed increments
}

func newFakeCampaignRepo(campaigns ...*models.Campaign) *fakeCampaignRepo {
	r := &fakeCampaignRepo{
		campaigns: make(map[uint]*models.Campaign),
		counters:  make(map[uint][2]int64),
	}
	for _, c := range campaigns {
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, uuidStr string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.UUID.String() == uuidStr {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) UpdateStatusIf(ctx context.Context, campaignID uint, from, to models.CampaignStatus, extra map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	if v, ok := extra["scheduled_at"]; ok {
		switch t := v.(type) {
		case time.Time:
			c.ScheduledAt = &t
		case nil:
			c.ScheduledAt = nil
		}
	}
	if v, ok := extra["total_count"]; ok {
		c.TotalCount = v.(int64)
	}
	if v, ok := extra["sent_count"]; ok {
		c.SentCount = v.(int64)
	}
	if v, ok := extra["failed_count"]; ok {
		c.FailedCount = v.(int64)
	}
	if v, ok := extra["last_run_at"]; ok {
		t := v.(time.Time)
		c.LastRunAt = &t
	}
	return true, nil
}

func (r *fakeCampaignRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Campaign, error) {
	return nil, nil
}

func (r *fakeCampaignRepo) AddCounters(ctx context.Context, campaignID uint, sent, failed int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.counters[campaignID]
	r.counters[campaignID] = [2]int64{prev[0] + sent, prev[1] + failed}
	if c, ok := r.campaigns[campaignID]; ok {
		c.SentCount += sent
		c.FailedCount += failed
	}
	return nil
}

func (r *fakeCampaignRepo) status(id uint) models.CampaignStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

type fakeContactRepo struct {
	stubRepo[models.Contact, models.ContactFilter]
	contacts []*models.Contact
}

func (r *fakeContactRepo) ByAudience(ctx context.Context, tenantID uint, filter models.TargetFilter, now time.Time) ([]*models.Contact, error) {
	return r.contacts, nil
}

func (r *fakeContactRepo) CountAudience(ctx context.Context, tenantID uint, filter models.TargetFilter, now time.Time) (int64, error) {
	return int64(len(r.contacts)), nil
}

type fakeTemplateRepo struct {
	stubRepo[models.MessageTemplate, models.MessageTemplateFilter]
	templates map[uint]*models.MessageTemplate
}

func (r *fakeTemplateRepo) ByID(ctx context.Context, id uint) (*models.MessageTemplate, error) {
	return r.templates[id], nil
}

type fakeVariantRepo struct {
	stubRepo[models.CampaignVariant, models.CampaignVariantFilter]
	variants []*models.CampaignVariant
}

func (r *fakeVariantRepo) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignVariant, error) {
	return r.variants, nil
}

type fakeItemRepo struct {
	stubRepo[models.DispatchItem, models.DispatchItemFilter]

	mu     sync.Mutex
	nextID uint
	items  map[string]*models.DispatchItem
	failed map[uint]string
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{
		items:  make(map[string]*models.DispatchItem),
		failed: make(map[uint]string),
	}
}

func itemKey(campaignID, contactID uint) string {
	return fmt.Sprintf("%d:%d", campaignID, contactID)
}

func (r *fakeItemRepo) CreateIfAbsent(ctx context.Context, item *models.DispatchItem) (*models.DispatchItem, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := itemKey(item.CampaignID, item.ContactID)
	if existing, ok := r.items[key]; ok {
		return existing, false, nil
	}
	r.nextID++
	item.ID = r.nextID
	r.items[key] = item
	return item, true, nil
}

func (r *fakeItemRepo) MarkFailed(ctx context.Context, itemID uint, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[itemID] = reason
	return nil
}

func (r *fakeItemRepo) CountByStatus(ctx context.Context, campaignID uint, status models.DispatchItemStatus) (int64, error) {
	return 0, nil
}

type fakeProducer struct {
	mu       sync.Mutex
	jobs     []*services.SendJob
	failFor  map[string]bool // phone -> fail publish
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{failFor: make(map[string]bool)}
}

func (p *fakeProducer) Publish(ctx context.Context, job *services.SendJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[job.Phone] {
		return fmt.Errorf("broker unavailable")
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *fakeProducer) Ping(ctx context.Context) error { return nil }

func (p *fakeProducer) published() []*services.SendJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*services.SendJob, len(p.jobs))
	copy(out, p.jobs)
	return out
}

// launchEnv wires a LaunchFlow over in-memory fakes
type launchEnv struct {
	campaignRepo *fakeCampaignRepo
	contactRepo  *fakeContactRepo
	templateRepo *fakeTemplateRepo
	variantRepo  *fakeVariantRepo
	itemRepo     *fakeItemRepo
	producer     *fakeProducer
	flow         LaunchFlow
}

func newLaunchEnv(campaign *models.Campaign, contacts []*models.Contact, templates map[uint]*models.MessageTemplate, variants []*models.CampaignVariant, assigner *VariantAssigner) *launchEnv {
	env := &launchEnv{
		campaignRepo: newFakeCampaignRepo(campaign),
		contactRepo:  &fakeContactRepo{contacts: contacts},
		templateRepo: &fakeTemplateRepo{templates: templates},
		variantRepo:  &fakeVariantRepo{variants: variants},
		itemRepo:     newFakeItemRepo(),
		producer:     newFakeProducer(),
	}
	if assigner == nil {
		assigner = NewVariantAssigner(nil)
	}
	env.flow = NewLaunchFlow(
		env.campaignRepo,
		env.variantRepo,
		env.templateRepo,
		env.contactRepo,
		env.itemRepo,
		repository.TenantRepository(nil),
		env.producer,
		assigner,
		2,
		func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) },
		nil,
	)
	return env
}

func draftCampaign(templateID uint) *models.Campaign {
	return &models.Campaign{
		ID:         1,
		UUID:       uuid.New(),
		TenantID:   7,
		Name:       "Winter Promo",
		Status:     models.CampaignStatusDraft,
		TemplateID: &templateID,
	}
}

func testContacts(n int) []*models.Contact {
	contacts := make([]*models.Contact, 0, n)
	for i := 1; i <= n; i++ {
		contacts = append(contacts, &models.Contact{
			ID:    uint(i),
			Phone: fmt.Sprintf("+1555000%04d", i),
			Name:  fmt.Sprintf("Contact %d", i),
		})
	}
	return contacts
}

func testTemplates() map[uint]*models.MessageTemplate {
	return map[uint]*models.MessageTemplate{
		10: {ID: 10, TenantID: 7, Name: "welcome_offer", Language: "en"},
		11: {ID: 11, TenantID: 7, Name: "welcome_offer_alt", Language: "en"},
	}
}

func TestLaunchCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("QueuesAllRecipients", func(t *testing.T) {
		campaign := draftCampaign(10)
		env := newLaunchEnv(campaign, testContacts(3), testTemplates(), nil, nil)

		resp, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		require.NoError(t, err)

		assert.Equal(t, int64(3), resp.TotalCount)
		assert.Equal(t, int64(3), resp.QueuedCount)
		assert.Equal(t, int64(0), resp.FailedCount)
		assert.Equal(t, models.CampaignStatusProcessing, env.campaignRepo.status(1))
		assert.Equal(t, int64(3), env.campaignRepo.campaigns[1].TotalCount)
		assert.NotNil(t, env.campaignRepo.campaigns[1].LastRunAt)

		jobs := env.producer.published()
		require.Len(t, jobs, 3)
		for _, job := range jobs {
			assert.Equal(t, uint(1), job.CampaignID)
			assert.Equal(t, uint(7), job.TenantID)
			assert.Equal(t, "welcome_offer", job.TemplateName)
			assert.Nil(t, job.VariantLetter)
		}
	})

	t.Run("RequiresDraft", func(t *testing.T) {
		campaign := draftCampaign(10)
		campaign.Status = models.CampaignStatusScheduled
		env := newLaunchEnv(campaign, testContacts(1), testTemplates(), nil, nil)

		_, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		assert.True(t, IsCampaignNotDraft(err))
	})

	t.Run("TenantOwnership", func(t *testing.T) {
		campaign := draftCampaign(10)
		env := newLaunchEnv(campaign, testContacts(1), testTemplates(), nil, nil)

		_, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 99}, nil)
		assert.True(t, IsCampaignAccessDenied(err))
	})

	t.Run("EmptyAudienceLeavesDraft", func(t *testing.T) {
		campaign := draftCampaign(10)
		env := newLaunchEnv(campaign, nil, testTemplates(), nil, nil)

		_, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		assert.True(t, IsEmptyAudience(err))
		assert.Equal(t, models.CampaignStatusDraft, env.campaignRepo.status(1))
		assert.Empty(t, env.producer.published())
	})

	t.Run("MissingTemplateReportedBeforeAudience", func(t *testing.T) {
		campaign := draftCampaign(10)
		campaign.TemplateID = nil
		env := newLaunchEnv(campaign, nil, testTemplates(), nil, nil)

		// The campaign is unlaunchable regardless of who it would reach, so
		// the error names the missing template, not the empty audience.
		_, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		assert.True(t, IsTemplateRequired(err))
		assert.False(t, IsEmptyAudience(err))
		assert.Equal(t, models.CampaignStatusDraft, env.campaignRepo.status(1))
	})

	t.Run("LostClaimRace", func(t *testing.T) {
		campaign := draftCampaign(10)
		env := newLaunchEnv(campaign, testContacts(1), testTemplates(), nil, nil)

		// Another launcher claims the campaign between lookup and claim.
		env.campaignRepo.campaigns[1].Status = models.CampaignStatusDraft
		c, err := env.campaignRepo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		env.campaignRepo.campaigns[1].Status = models.CampaignStatusProcessing

		_, err = (env.flow.(*LaunchFlowImpl)).launch(ctx, c, models.CampaignStatusDraft, time.Now().UTC())
		assert.True(t, IsCampaignAlreadyClaimed(err))
		assert.Empty(t, env.producer.published())
	})

	t.Run("RetriedLaunchSkipsExistingItems", func(t *testing.T) {
		campaign := draftCampaign(10)
		contacts := testContacts(3)
		env := newLaunchEnv(campaign, contacts, testTemplates(), nil, nil)

		// Contact 1 already has a ledger entry from a previous partial run.
		_, created, err := env.itemRepo.CreateIfAbsent(ctx, &models.DispatchItem{
			CampaignID: 1,
			ContactID:  1,
			Status:     models.DispatchItemStatusQueued,
			QueuedAt:   time.Now().UTC(),
		})
		require.NoError(t, err)
		require.True(t, created)

		resp, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		require.NoError(t, err)

		// Only contacts 2 and 3 are enqueued again.
		assert.Equal(t, int64(3), resp.TotalCount)
		assert.Equal(t, int64(2), resp.QueuedCount)
		assert.Len(t, env.producer.published(), 2)
		assert.Len(t, env.itemRepo.items, 3)
	})

	t.Run("PublishFailureMarksItemFailed", func(t *testing.T) {
		campaign := draftCampaign(10)
		contacts := testContacts(3)
		env := newLaunchEnv(campaign, contacts, testTemplates(), nil, nil)
		env.producer.failFor[contacts[1].Phone] = true

		resp, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		require.NoError(t, err)

		assert.Equal(t, int64(3), resp.TotalCount)
		assert.Equal(t, int64(2), resp.QueuedCount)
		assert.Equal(t, int64(1), resp.FailedCount)

		// The failed contact's item carries the failure reason and the
		// campaign's failed counter was bumped.
		env.itemRepo.mu.Lock()
		failedItem := env.itemRepo.items[itemKey(1, 2)]
		reason := env.itemRepo.failed[failedItem.ID]
		env.itemRepo.mu.Unlock()
		assert.Contains(t, reason, "queue publish failed")

		assert.Equal(t, [2]int64{0, 1}, env.campaignRepo.counters[1])
	})
}

func TestLaunchDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("ClaimsScheduledCampaign", func(t *testing.T) {
		campaign := draftCampaign(10)
		campaign.Status = models.CampaignStatusScheduled
		env := newLaunchEnv(campaign, testContacts(2), testTemplates(), nil, nil)

		result, err := env.flow.LaunchDue(ctx, campaign, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
		assert.Equal(t, int64(2), result.Queued)
		assert.Equal(t, models.CampaignStatusProcessing, env.campaignRepo.status(1))
	})

	t.Run("EmptyAudienceMarksFailed", func(t *testing.T) {
		campaign := draftCampaign(10)
		campaign.Status = models.CampaignStatusScheduled
		env := newLaunchEnv(campaign, nil, testTemplates(), nil, nil)

		_, err := env.flow.LaunchDue(ctx, campaign, now)
		assert.True(t, IsEmptyAudience(err))
		assert.Equal(t, models.CampaignStatusFailed, env.campaignRepo.status(1))
	})

	t.Run("RecurringCampaignRearms", func(t *testing.T) {
		campaign := draftCampaign(10)
		campaign.Status = models.CampaignStatusScheduled
		campaign.RecurrenceType = models.RecurrenceDaily
		env := newLaunchEnv(campaign, testContacts(1), testTemplates(), nil, nil)

		_, err := env.flow.LaunchDue(ctx, campaign, now)
		require.NoError(t, err)

		assert.Equal(t, models.CampaignStatusScheduled, env.campaignRepo.status(1))
		require.NotNil(t, env.campaignRepo.campaigns[1].ScheduledAt)
		assert.Equal(t, now.Add(24*time.Hour), *env.campaignRepo.campaigns[1].ScheduledAt)
	})

	t.Run("RecurringRunResetsFailedCount", func(t *testing.T) {
		campaign := draftCampaign(10)
		campaign.Status = models.CampaignStatusScheduled
		campaign.RecurrenceType = models.RecurrenceDaily
		contacts := testContacts(2)
		env := newLaunchEnv(campaign, contacts, testTemplates(), nil, nil)
		env.producer.failFor[contacts[0].Phone] = true

		result, err := env.flow.LaunchDue(ctx, campaign, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Failed)
		assert.Equal(t, int64(1), env.campaignRepo.campaigns[1].FailedCount)

		// The next day's sweep runs the re-armed campaign again. The first
		// run's ledger is cleared so idempotency does not swallow the retry.
		env.itemRepo.mu.Lock()
		env.itemRepo.items = make(map[string]*models.DispatchItem)
		env.itemRepo.mu.Unlock()

		result, err = env.flow.LaunchDue(ctx, campaign, now.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Failed)

		// The counter reports the current run, not an accumulation of runs.
		assert.Equal(t, int64(1), env.campaignRepo.campaigns[1].FailedCount)
	})
}

func TestLaunchABCampaign(t *testing.T) {
	ctx := context.Background()

	abCampaign := func() *models.Campaign {
		return &models.Campaign{
			ID:        1,
			UUID:      uuid.New(),
			TenantID:  7,
			Name:      "AB Promo",
			Status:    models.CampaignStatusDraft,
			ABEnabled: true,
		}
	}

	variants := []*models.CampaignVariant{
		{CampaignID: 1, Letter: "A", TemplateID: 10, SplitPercent: 40},
		{CampaignID: 1, Letter: "B", TemplateID: 11, SplitPercent: 30},
	}

	t.Run("AssignsVariantTemplates", func(t *testing.T) {
		// Draws land in A, B, A for the three contacts.
		draws := []float64{10, 60, 30}
		var i int
		assigner := NewVariantAssignerWithDraw(func() float64 {
			d := draws[i%len(draws)]
			i++
			return d
		})

		campaign := abCampaign()
		env := newLaunchEnv(campaign, testContacts(3), testTemplates(), variants, assigner)

		resp, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.QueuedCount)

		byTemplate := map[string]int{}
		for _, job := range env.producer.published() {
			require.NotNil(t, job.VariantLetter)
			byTemplate[job.TemplateName]++
		}
		assert.Equal(t, 2, byTemplate["welcome_offer"])
		assert.Equal(t, 1, byTemplate["welcome_offer_alt"])
	})

	t.Run("HoldoutRecipientsSkipped", func(t *testing.T) {
		// Every draw lands past the 70 percent threshold.
		assigner := NewVariantAssignerWithDraw(func() float64 { return 90 })

		campaign := abCampaign()
		env := newLaunchEnv(campaign, testContacts(2), testTemplates(), variants, assigner)

		resp, err := env.flow.LaunchCampaign(ctx, &dto.LaunchCampaignRequest{UUID: campaign.UUID.String(), TenantID: 7}, nil)
		require.NoError(t, err)

		// Holdouts get no ledger entry and no queue job.
		assert.Equal(t, int64(2), resp.TotalCount)
		assert.Equal(t, int64(0), resp.QueuedCount)
		assert.Equal(t, int64(0), resp.FailedCount)
		assert.Empty(t, env.producer.published())
		assert.Empty(t, env.itemRepo.items)
	})
}
