// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Raijin/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Tenant, error)
}

// ContactRepository defines operations for contacts. ByAudience and
// CountAudience share one predicate implementation so preview counts can
// never drift from launch-time resolution. Both always exclude opted-out
// contacts.
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByAudience(ctx context.Context, tenantID uint, filter models.TargetFilter, now time.Time) ([]*models.Contact, error)
	CountAudience(ctx context.Context, tenantID uint, filter models.TargetFilter, now time.Time) (int64, error)
}

// MessageTemplateRepository defines read operations for message templates
type MessageTemplateRepository interface {
	Repository[models.MessageTemplate, models.MessageTemplateFilter]
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	// UpdateStatusIf performs a conditional status transition as a single
	// UPDATE ... WHERE status = ? write and reports whether the row was
	// claimed. Extra columns are applied in the same statement.
	UpdateStatusIf(ctx context.Context, campaignID uint, from, to models.CampaignStatus, extra map[string]any) (bool, error)
	// ListDue returns campaigns in status scheduled with scheduled_at <= now
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Campaign, error)
	// AddCounters atomically increments the campaign's aggregate counters
	AddCounters(ctx context.Context, campaignID uint, sent, failed int64) error
}

// CampaignVariantRepository defines operations for campaign variants
type CampaignVariantRepository interface {
	Repository[models.CampaignVariant, models.CampaignVariantFilter]
	// ListByCampaign returns the campaign's variants in letter order
	ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignVariant, error)
}

// DispatchItemRepository defines operations for the dispatch item ledger
type DispatchItemRepository interface {
	Repository[models.DispatchItem, models.DispatchItemFilter]
	// CreateIfAbsent inserts the item unless one already exists for the same
	// (campaign, contact) pair. It returns the stored item and whether this
	// call created it; callers must only enqueue when created is true.
	CreateIfAbsent(ctx context.Context, item *models.DispatchItem) (*models.DispatchItem, bool, error)
	// MarkFailed records a permanent dispatch failure for the item
	MarkFailed(ctx context.Context, itemID uint, reason string) error
	CountByStatus(ctx context.Context, campaignID uint, status models.DispatchItemStatus) (int64, error)
}
