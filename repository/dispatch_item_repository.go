package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DispatchItemRepositoryImpl implements DispatchItemRepository
type DispatchItemRepositoryImpl struct {
	*BaseRepository[models.DispatchItem, models.DispatchItemFilter]
}

func NewDispatchItemRepository(db *gorm.DB) DispatchItemRepository {
	return &DispatchItemRepositoryImpl{BaseRepository: NewBaseRepository[models.DispatchItem, models.DispatchItemFilter](db)}
}

func (r *DispatchItemRepositoryImpl) applyFilter(db *gorm.DB, f models.DispatchItemFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.ContactID != nil {
		db = db.Where("contact_id = ?", *f.ContactID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.VariantLetter != nil {
		db = db.Where("variant_letter = ?", *f.VariantLetter)
	}
	if f.QueuedAfter != nil {
		db = db.Where("queued_at >= ?", *f.QueuedAfter)
	}
	if f.QueuedBefore != nil {
		db = db.Where("queued_at < ?", *f.QueuedBefore)
	}
	return db
}

func (r *DispatchItemRepositoryImpl) ByFilter(ctx context.Context, filter models.DispatchItemFilter, orderBy string, limit, offset int) ([]*models.DispatchItem, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DispatchItem{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.DispatchItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find dispatch items by filter: %w", err)
	}
	return rows, nil
}

func (r *DispatchItemRepositoryImpl) Count(ctx context.Context, filter models.DispatchItemFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DispatchItem{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateIfAbsent relies on the (campaign_id, contact_id) unique index: the
// insert carries ON CONFLICT DO NOTHING, and a zero RowsAffected means an
// entry already existed, in which case the stored row is returned with
// created = false. This is the sole idempotency arbiter for enqueue.
func (r *DispatchItemRepositoryImpl) CreateIfAbsent(ctx context.Context, item *models.DispatchItem) (*models.DispatchItem, bool, error) {
	db := r.getDB(ctx)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "contact_id"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create dispatch item: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return item, true, nil
	}

	var existing models.DispatchItem
	err := db.Where("campaign_id = ? AND contact_id = ?", item.CampaignID, item.ContactID).Last(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("dispatch item conflict but existing row not found for campaign=%d contact=%d", item.CampaignID, item.ContactID)
		}
		return nil, false, fmt.Errorf("failed to load existing dispatch item: %w", err)
	}
	return &existing, false, nil
}

func (r *DispatchItemRepositoryImpl) MarkFailed(ctx context.Context, itemID uint, reason string) error {
	db := r.getDB(ctx)
	res := db.Model(&models.DispatchItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"status":         models.DispatchItemStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark dispatch item %d failed: %w", itemID, res.Error)
	}
	return nil
}

func (r *DispatchItemRepositoryImpl) CountByStatus(ctx context.Context, campaignID uint, status models.DispatchItemStatus) (int64, error) {
	return r.Count(ctx, models.DispatchItemFilter{
		CampaignID: utils.ToPtr(campaignID),
		Status:     &status,
	})
}
