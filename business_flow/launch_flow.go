package businessflow

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/amirphl/Raijin/app/dto"
	"github.com/amirphl/Raijin/app/services"
	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/repository"
	"github.com/amirphl/Raijin/utils"
	"golang.org/x/sync/errgroup"
)

// LaunchTrigger identifies who initiated a campaign run
type LaunchTrigger string

const (
	TriggerInteractive LaunchTrigger = "interactive"
	TriggerScheduler   LaunchTrigger = "scheduler"
)

// LaunchResult summarizes one campaign run
type LaunchResult struct {
	Total  int64
	Queued int64
	Failed int64
}

// LaunchFlow turns a campaign into dispatch items and queued send jobs.
//
// A run claims the campaign with a conditional status write, so concurrent
// launches of the same campaign collapse to one winner, and the per-recipient
// ledger insert is idempotent on (campaign, contact). A recipient that fails
// to enqueue is marked failed in the ledger without aborting the run.
type LaunchFlow interface {
	// LaunchCampaign is the interactive path: the campaign must be in draft.
	LaunchCampaign(ctx context.Context, req *dto.LaunchCampaignRequest, metadata *ClientMetadata) (*dto.LaunchCampaignResponse, error)
	// LaunchDue is the scheduler path: the campaign must still be scheduled.
	LaunchDue(ctx context.Context, campaign *models.Campaign, now time.Time) (*LaunchResult, error)
}

// LaunchFlowImpl implements the launch business flow
type LaunchFlowImpl struct {
	campaignRepo repository.CampaignRepository
	variantRepo  repository.CampaignVariantRepository
	templateRepo repository.MessageTemplateRepository
	contactRepo  repository.ContactRepository
	itemRepo     repository.DispatchItemRepository
	tenantRepo   repository.TenantRepository
	producer     services.QueueProducer
	assigner     *VariantAssigner
	workers      int
	now          func() time.Time
	logger       *log.Logger
}

// NewLaunchFlow creates a new launch flow instance. The clock is injectable
// so recurrence arithmetic is testable; nil means wall clock UTC.
func NewLaunchFlow(
	campaignRepo repository.CampaignRepository,
	variantRepo repository.CampaignVariantRepository,
	templateRepo repository.MessageTemplateRepository,
	contactRepo repository.ContactRepository,
	itemRepo repository.DispatchItemRepository,
	tenantRepo repository.TenantRepository,
	producer services.QueueProducer,
	assigner *VariantAssigner,
	workers int,
	now func() time.Time,
	logger *log.Logger,
) LaunchFlow {
	if workers <= 0 {
		workers = 8
	}
	if now == nil {
		now = utils.UTCNow
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LaunchFlowImpl{
		campaignRepo: campaignRepo,
		variantRepo:  variantRepo,
		templateRepo: templateRepo,
		contactRepo:  contactRepo,
		itemRepo:     itemRepo,
		tenantRepo:   tenantRepo,
		producer:     producer,
		assigner:     assigner,
		workers:      workers,
		now:          now,
		logger:       logger,
	}
}

// LaunchCampaign launches a draft campaign immediately on behalf of a tenant
func (s *LaunchFlowImpl) LaunchCampaign(ctx context.Context, req *dto.LaunchCampaignRequest, metadata *ClientMetadata) (*dto.LaunchCampaignResponse, error) {
	campaign, err := getTenantCampaign(ctx, s.campaignRepo, req.UUID, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, NewBusinessError("CAMPAIGN_NOT_DRAFT", "Only draft campaigns can be launched directly", ErrCampaignNotDraft)
	}

	result, err := s.launch(ctx, campaign, models.CampaignStatusDraft, s.now())
	if err != nil {
		if IsEmptyAudience(err) {
			// Interactive empty audience leaves the campaign in draft.
			return nil, NewBusinessError("EMPTY_AUDIENCE", "Audience filter matches no contacts", err)
		}
		return nil, NewBusinessError("CAMPAIGN_LAUNCH_FAILED", "Campaign launch failed", err)
	}

	return &dto.LaunchCampaignResponse{
		Message:     "Campaign launched successfully",
		Status:      models.CampaignStatusProcessing.String(),
		TotalCount:  result.Total,
		QueuedCount: result.Queued,
		FailedCount: result.Failed,
	}, nil
}

// LaunchDue runs one due campaign on behalf of the scheduler sweep. An empty
// audience on this path is terminal: the run cannot be retried interactively,
// so the campaign is marked failed.
func (s *LaunchFlowImpl) LaunchDue(ctx context.Context, campaign *models.Campaign, now time.Time) (*LaunchResult, error) {
	result, err := s.launch(ctx, campaign, models.CampaignStatusScheduled, now)
	if err != nil {
		if IsEmptyAudience(err) {
			if _, ferr := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
				models.CampaignStatusScheduled, models.CampaignStatusFailed, nil); ferr != nil {
				s.logger.Printf("failed to mark campaign %d failed after empty audience: %v", campaign.ID, ferr)
			}
		}
		return nil, err
	}
	return result, nil
}

// launch resolves the audience, claims the campaign out of fromStatus, fans
// out the per-recipient work, and re-arms recurring campaigns.
func (s *LaunchFlowImpl) launch(ctx context.Context, campaign *models.Campaign, fromStatus models.CampaignStatus, now time.Time) (*LaunchResult, error) {
	// An unusable dispatch plan is reported before the audience is even
	// looked at, so an invalid campaign never masquerades as empty.
	variants, templates, err := s.loadDispatchPlan(ctx, campaign)
	if err != nil {
		return nil, err
	}

	// Audience resolution happens before the claim so an empty audience
	// never leaves a campaign stuck in processing.
	contacts, err := s.contactRepo.ByAudience(ctx, campaign.TenantID, campaign.Filter, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience for campaign %d: %w", campaign.ID, err)
	}
	if len(contacts) == 0 {
		return nil, ErrEmptyAudience
	}

	// The claim resets every aggregate counter so a recurring campaign
	// reports the current run, not an accumulation of all runs.
	claimed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID, fromStatus, models.CampaignStatusProcessing, map[string]any{
		"total_count":      int64(len(contacts)),
		"sent_count":       int64(0),
		"failed_count":     int64(0),
		"read_count":       int64(0),
		"response_count":   int64(0),
		"conversion_count": int64(0),
		"last_run_at":      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim campaign %d: %w", campaign.ID, err)
	}
	if !claimed {
		return nil, ErrCampaignAlreadyClaimed
	}

	var queued, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, contact := range contacts {
		g.Go(func() error {
			if err := s.dispatchOne(gctx, campaign, contact, variants, templates, now, &queued, &failed); err != nil {
				// Per-recipient failures never abort the run.
				s.logger.Printf("campaign %d contact %d dispatch error: %v", campaign.ID, contact.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed.Load() > 0 {
		if err := s.campaignRepo.AddCounters(ctx, campaign.ID, 0, failed.Load()); err != nil {
			s.logger.Printf("failed to add counters for campaign %d: %v", campaign.ID, err)
		}
	}

	s.rearmRecurrence(ctx, campaign, now)

	return &LaunchResult{
		Total:  int64(len(contacts)),
		Queued: queued.Load(),
		Failed: failed.Load(),
	}, nil
}

// dispatchOne writes the ledger entry for one recipient and enqueues the send
// job when this run created the entry. Holdout recipients of a partial A/B
// split get no ledger entry.
func (s *LaunchFlowImpl) dispatchOne(
	ctx context.Context,
	campaign *models.Campaign,
	contact *models.Contact,
	variants []*models.CampaignVariant,
	templates map[uint]*models.MessageTemplate,
	now time.Time,
	queued, failed *atomic.Int64,
) error {
	var letter *string
	templateID := campaign.TemplateID
	if campaign.ABEnabled {
		letter = s.assigner.Assign(variants)
		if letter == nil {
			return nil
		}
		for _, v := range variants {
			if v.Letter == *letter {
				templateID = &v.TemplateID
				break
			}
		}
	}
	if templateID == nil {
		return fmt.Errorf("no template resolvable for campaign %d", campaign.ID)
	}
	tmpl := templates[*templateID]
	if tmpl == nil {
		return fmt.Errorf("template %d not loaded for campaign %d", *templateID, campaign.ID)
	}

	item, created, err := s.itemRepo.CreateIfAbsent(ctx, &models.DispatchItem{
		CampaignID:    campaign.ID,
		ContactID:     contact.ID,
		VariantLetter: letter,
		Status:        models.DispatchItemStatusQueued,
		QueuedAt:      now,
	})
	if err != nil {
		failed.Add(1)
		return err
	}
	if !created {
		// A previous run already owns this recipient.
		return nil
	}

	job := &services.SendJob{
		DispatchItemID:   item.ID,
		CampaignID:       campaign.ID,
		TenantID:         campaign.TenantID,
		ContactID:        contact.ID,
		Phone:            contact.Phone,
		ContactName:      contact.Name,
		TemplateName:     tmpl.Name,
		TemplateLanguage: tmpl.Language,
		VariantLetter:    letter,
		EnqueuedAt:       now,
	}
	if err := s.producer.Publish(ctx, job); err != nil {
		failed.Add(1)
		if merr := s.itemRepo.MarkFailed(ctx, item.ID, fmt.Sprintf("queue publish failed: %v", err)); merr != nil {
			s.logger.Printf("failed to mark item %d failed: %v", item.ID, merr)
		}
		return err
	}

	queued.Add(1)
	return nil
}

// loadDispatchPlan loads the variants and every template the run can send with
func (s *LaunchFlowImpl) loadDispatchPlan(ctx context.Context, campaign *models.Campaign) ([]*models.CampaignVariant, map[uint]*models.MessageTemplate, error) {
	var variants []*models.CampaignVariant
	templateIDs := make([]uint, 0, models.MaxVariantsPerCampaign)

	if campaign.ABEnabled {
		var err error
		variants, err = s.variantRepo.ListByCampaign(ctx, campaign.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load variants for campaign %d: %w", campaign.ID, err)
		}
		if len(variants) == 0 {
			return nil, nil, ErrVariantsRequired
		}
		for _, v := range variants {
			templateIDs = append(templateIDs, v.TemplateID)
		}
	} else {
		if campaign.TemplateID == nil {
			return nil, nil, ErrTemplateRequired
		}
		templateIDs = append(templateIDs, *campaign.TemplateID)
	}

	templates := make(map[uint]*models.MessageTemplate, len(templateIDs))
	for _, id := range templateIDs {
		if templates[id] != nil {
			continue
		}
		tmpl, err := s.templateRepo.ByID(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load template %d: %w", id, err)
		}
		if tmpl == nil {
			return nil, nil, ErrTemplateNotFound
		}
		templates[id] = tmpl
	}

	return variants, templates, nil
}

// rearmRecurrence moves a recurring campaign back to scheduled at its next
// occurrence. Non-recurring campaigns stay in processing until the delivery
// status path completes them.
func (s *LaunchFlowImpl) rearmRecurrence(ctx context.Context, campaign *models.Campaign, now time.Time) {
	if !campaign.IsRecurring() {
		return
	}
	next, ok := campaign.RecurrenceType.NextOccurrence(now)
	if !ok {
		return
	}
	claimed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
		models.CampaignStatusProcessing, models.CampaignStatusScheduled,
		map[string]any{"scheduled_at": next})
	if err != nil {
		s.logger.Printf("failed to re-arm campaign %d: %v", campaign.ID, err)
		return
	}
	if !claimed {
		s.logger.Printf("campaign %d left processing before re-arm", campaign.ID)
	}
}
