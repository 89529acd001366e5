// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/amirphl/Raijin/app/dto"
	"github.com/amirphl/Raijin/config"
	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/repository"
	"github.com/amirphl/Raijin/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	ScheduleCampaign(ctx context.Context, req *dto.ScheduleCampaignRequest, metadata *ClientMetadata) (*dto.ScheduleCampaignResponse, error)
	CancelSchedule(ctx context.Context, req *dto.CancelScheduleRequest, metadata *ClientMetadata) (*dto.CancelScheduleResponse, error)
	PreviewAudience(ctx context.Context, req *dto.PreviewAudienceRequest, metadata *ClientMetadata) (*dto.PreviewAudienceResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.GetCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error)
	ListDispatchItems(ctx context.Context, req *dto.ListDispatchItemsRequest, metadata *ClientMetadata) (*dto.ListDispatchItemsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	variantRepo  repository.CampaignVariantRepository
	templateRepo repository.MessageTemplateRepository
	contactRepo  repository.ContactRepository
	itemRepo     repository.DispatchItemRepository
	tenantRepo   repository.TenantRepository
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	variantRepo repository.CampaignVariantRepository,
	templateRepo repository.MessageTemplateRepository,
	contactRepo repository.ContactRepository,
	itemRepo repository.DispatchItemRepository,
	tenantRepo repository.TenantRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		variantRepo:  variantRepo,
		templateRepo: templateRepo,
		contactRepo:  contactRepo,
		itemRepo:     itemRepo,
		tenantRepo:   tenantRepo,
		cacheConfig:  cacheConfig,
		rc:           rc,
		db:           db,
	}
}

// CreateCampaign handles the complete campaign creation process
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	// Validate business rules
	if err := s.validateCreateCampaignRequest(ctx, req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	if _, err := getActiveTenant(ctx, s.tenantRepo, req.TenantID); err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to lookup tenant", err)
	}

	abEnabled := len(req.Variants) > 0
	status := models.CampaignStatusDraft
	if req.ScheduledAt != nil {
		status = models.CampaignStatusScheduled
	}

	recurrence := models.RecurrenceNone
	if req.RecurrenceType != nil {
		recurrence = models.RecurrenceType(*req.RecurrenceType)
	}

	campaign := &models.Campaign{
		TenantID:       req.TenantID,
		Name:           req.Name,
		Status:         status,
		TemplateID:     req.TemplateID,
		ABEnabled:      abEnabled,
		Filter:         ToTargetFilter(req.Filter),
		RecurrenceType: recurrence,
		ScheduledAt:    req.ScheduledAt,
	}

	// Use transaction for atomicity
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}

		if len(req.Variants) == 0 {
			return nil
		}

		variants := make([]*models.CampaignVariant, 0, len(req.Variants))
		for _, v := range req.Variants {
			variants = append(variants, &models.CampaignVariant{
				CampaignID:   campaign.ID,
				Letter:       v.Letter,
				TemplateID:   v.TemplateID,
				SplitPercent: v.SplitPercent,
			})
		}
		return s.variantRepo.SaveBatch(txCtx, variants)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	return &dto.CreateCampaignResponse{
		Message:   "Campaign created successfully",
		UUID:      campaign.UUID.String(),
		Status:    campaign.Status.String(),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ScheduleCampaign arms a draft campaign for the scheduler sweep
func (s *CampaignFlowImpl) ScheduleCampaign(ctx context.Context, req *dto.ScheduleCampaignRequest, metadata *ClientMetadata) (*dto.ScheduleCampaignResponse, error) {
	if req.ScheduledAt == nil {
		return nil, NewBusinessError("INVALID_SCHEDULE_TIME", "Schedule time is required", ErrScheduleTimeNotPresent)
	}
	if !req.ScheduledAt.After(utils.UTCNow()) {
		return nil, NewBusinessError("INVALID_SCHEDULE_TIME", "Schedule time must be in the future", ErrScheduleTimeInPast)
	}

	if req.RecurrenceType != nil && !models.RecurrenceType(*req.RecurrenceType).Valid() {
		return nil, NewBusinessError("INVALID_RECURRENCE_TYPE", "Invalid recurrence type", fmt.Errorf("invalid recurrence type: %s", *req.RecurrenceType))
	}

	campaign, err := getTenantCampaign(ctx, s.campaignRepo, req.UUID, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	// Conditional write: only a draft campaign may be armed, and a concurrent
	// arm or launch loses the race instead of overwriting state. Recurrence
	// rides in the same UPDATE when the caller sets it; otherwise the value
	// chosen at creation stands.
	extra := map[string]any{"scheduled_at": *req.ScheduledAt}
	if req.RecurrenceType != nil {
		extra["recurrence_type"] = models.RecurrenceType(*req.RecurrenceType)
	}
	claimed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
		models.CampaignStatusDraft, models.CampaignStatusScheduled, extra)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SCHEDULE_FAILED", "Failed to schedule campaign", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_DRAFT", "Only draft campaigns can be scheduled", ErrCampaignNotDraft)
	}

	return &dto.ScheduleCampaignResponse{
		Message:     "Campaign scheduled successfully",
		Status:      models.CampaignStatusScheduled.String(),
		ScheduledAt: *req.ScheduledAt,
	}, nil
}

// CancelSchedule returns a scheduled campaign to draft before it fires
func (s *CampaignFlowImpl) CancelSchedule(ctx context.Context, req *dto.CancelScheduleRequest, metadata *ClientMetadata) (*dto.CancelScheduleResponse, error) {
	campaign, err := getTenantCampaign(ctx, s.campaignRepo, req.UUID, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	claimed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
		models.CampaignStatusScheduled, models.CampaignStatusDraft,
		map[string]any{"scheduled_at": nil})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel schedule", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_SCHEDULED", "Campaign is not scheduled", ErrCampaignNotScheduled)
	}

	return &dto.CancelScheduleResponse{
		Message: "Campaign schedule cancelled",
		Status:  models.CampaignStatusDraft.String(),
	}, nil
}

// PreviewAudience counts the contacts the filter would match right now. The
// count runs through the same repository predicate the launcher resolves
// with, and is cached briefly to absorb filter-builder UI polling.
func (s *CampaignFlowImpl) PreviewAudience(ctx context.Context, req *dto.PreviewAudienceRequest, metadata *ClientMetadata) (*dto.PreviewAudienceResponse, error) {
	if _, err := getActiveTenant(ctx, s.tenantRepo, req.TenantID); err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to lookup tenant", err)
	}

	filter := ToTargetFilter(req.Filter)
	cacheKey := s.previewCacheKey(req.TenantID, filter)

	if s.rc != nil && cacheKey != "" {
		if raw, err := s.rc.Get(ctx, cacheKey).Result(); err == nil {
			if count, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				return &dto.PreviewAudienceResponse{
					Message: "Audience preview retrieved from cache",
					Count:   count,
					Cached:  true,
				}, nil
			}
		}
	}

	count, err := s.contactRepo.CountAudience(ctx, req.TenantID, filter, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_PREVIEW_FAILED", "Failed to count audience", err)
	}

	if s.rc != nil && cacheKey != "" {
		_ = s.rc.Set(ctx, cacheKey, strconv.FormatInt(count, 10), utils.PreviewCountCacheTTL).Err()
	}

	return &dto.PreviewAudienceResponse{
		Message: "Audience preview retrieved",
		Count:   count,
	}, nil
}

// GetCampaign returns one campaign with its variants
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.GetCampaignResponse, error) {
	campaign, err := getTenantCampaign(ctx, s.campaignRepo, req.UUID, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	resp := ToGetCampaignResponse(campaign)
	return &resp, nil
}

// ListCampaigns returns a paginated list of the tenant's campaigns
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error) {
	page, limit, err := normalizePagination(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	filter := models.CampaignFilter{TenantID: &req.TenantID}
	if req.Filter != nil {
		filter.Name = req.Filter.Name
		if req.Filter.Status != nil {
			status := models.CampaignStatus(*req.Filter.Status)
			filter.Status = &status
		}
	}

	orderBy := "created_at DESC"
	if req.OrderBy == "oldest" {
		orderBy = "created_at ASC"
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, orderBy, limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.GetCampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, ToGetCampaignResponse(c))
	}

	return &dto.ListCampaignsResponse{
		Message:    "Campaigns retrieved successfully",
		Items:      items,
		Pagination: paginationInfo(total, page, limit),
	}, nil
}

// ListDispatchItems returns a paginated slice of a campaign's ledger
func (s *CampaignFlowImpl) ListDispatchItems(ctx context.Context, req *dto.ListDispatchItemsRequest, metadata *ClientMetadata) (*dto.ListDispatchItemsResponse, error) {
	page, limit, err := normalizePagination(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	campaign, err := getTenantCampaign(ctx, s.campaignRepo, req.CampaignUUID, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	filter := models.DispatchItemFilter{CampaignID: &campaign.ID}
	if req.Status != nil {
		status := models.DispatchItemStatus(*req.Status)
		filter.Status = &status
	}

	total, err := s.itemRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DISPATCH_ITEM_LIST_FAILED", "Failed to count dispatch items", err)
	}

	rows, err := s.itemRepo.ByFilter(ctx, filter, "id ASC", limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("DISPATCH_ITEM_LIST_FAILED", "Failed to list dispatch items", err)
	}

	items := make([]dto.DispatchItemDTO, 0, len(rows))
	for _, item := range rows {
		items = append(items, ToDispatchItemDTO(item))
	}

	return &dto.ListDispatchItemsResponse{
		Message:    "Dispatch items retrieved successfully",
		Items:      items,
		Pagination: paginationInfo(total, page, limit),
	}, nil
}

// validateCreateCampaignRequest enforces the template-or-variants invariant
// and the variant split rules before anything is written.
func (s *CampaignFlowImpl) validateCreateCampaignRequest(ctx context.Context, req *dto.CreateCampaignRequest) error {
	if req.Name == "" {
		return ErrCampaignNameRequired
	}

	if req.RecurrenceType != nil && !models.RecurrenceType(*req.RecurrenceType).Valid() {
		return fmt.Errorf("invalid recurrence type: %s", *req.RecurrenceType)
	}

	recurring := req.RecurrenceType != nil && models.RecurrenceType(*req.RecurrenceType) != models.RecurrenceNone
	if recurring && req.ScheduledAt == nil {
		return ErrRecurrenceNeedsSchedule
	}
	if req.ScheduledAt != nil && !req.ScheduledAt.After(utils.UTCNow()) {
		return ErrScheduleTimeInPast
	}

	if len(req.Variants) > 0 {
		if req.TemplateID != nil {
			return ErrTemplateConflictsVariant
		}
		variants := make([]models.CampaignVariant, 0, len(req.Variants))
		for _, v := range req.Variants {
			variants = append(variants, models.CampaignVariant{
				Letter:       v.Letter,
				TemplateID:   v.TemplateID,
				SplitPercent: v.SplitPercent,
			})
		}
		if err := ValidateVariants(variants); err != nil {
			return err
		}
		for _, v := range req.Variants {
			if err := s.checkTemplate(ctx, v.TemplateID, req.TenantID); err != nil {
				return err
			}
		}
		return nil
	}

	if req.TemplateID == nil {
		return ErrTemplateRequired
	}
	return s.checkTemplate(ctx, *req.TemplateID, req.TenantID)
}

// checkTemplate verifies the template exists and belongs to the tenant
func (s *CampaignFlowImpl) checkTemplate(ctx context.Context, templateID, tenantID uint) error {
	tmpl, err := s.templateRepo.ByID(ctx, templateID)
	if err != nil {
		return err
	}
	if tmpl == nil || tmpl.TenantID != tenantID {
		return ErrTemplateNotFound
	}
	return nil
}

// previewCacheKey derives a tenant scoped cache key from the filter digest
func (s *CampaignFlowImpl) previewCacheKey(tenantID uint, filter models.TargetFilter) string {
	raw, err := json.Marshal(filter)
	if err != nil {
		return ""
	}
	digest := sha256.Sum256(raw)
	return redisKey(*s.cacheConfig, fmt.Sprintf("audience_preview:%d:%s", tenantID, hex.EncodeToString(digest[:8])))
}

// redisKey prefixes a cache key with the configured namespace
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// getActiveTenant loads the tenant and rejects inactive ones
func getActiveTenant(ctx context.Context, repo repository.TenantRepository, tenantID uint) (*models.Tenant, error) {
	tenant, err := repo.ByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	if !utils.IsTrue(tenant.IsActive) {
		return nil, ErrTenantInactive
	}
	return tenant, nil
}

// getTenantCampaign loads a campaign by UUID and enforces tenant ownership
func getTenantCampaign(ctx context.Context, repo repository.CampaignRepository, uuidStr string, tenantID uint) (*models.Campaign, error) {
	if uuidStr == "" {
		return nil, ErrCampaignUUIDRequired
	}
	campaign, err := repo.ByUUID(ctx, uuidStr)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if campaign.TenantID != tenantID {
		return nil, ErrCampaignAccessDenied
	}
	return campaign, nil
}

// normalizePagination applies defaults and bounds to page and limit
func normalizePagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if limit < 1 || limit > 100 {
		return 0, 0, ErrInvalidPageSize
	}
	return page, limit, nil
}

// paginationInfo builds pagination metadata for list responses
func paginationInfo(total int64, page, limit int) dto.PaginationInfo {
	return dto.PaginationInfo{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}
