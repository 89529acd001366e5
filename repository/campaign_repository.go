package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements CampaignRepository
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db)}
}

func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Campaign, error) {
	db := r.getDB(ctx)
	var c models.Campaign
	err := db.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("letter ASC")
	}).Where("uuid = ?", uuidStr).Last(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign by uuid %s: %w", uuidStr, err)
	}
	return &c, nil
}

func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.TenantID != nil {
		db = db.Where("tenant_id = ?", *f.TenantID)
	}
	if f.Name != nil {
		db = db.Where("name = ?", *f.Name)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.RecurrenceType != nil {
		db = db.Where("recurrence_type = ?", *f.RecurrenceType)
	}
	if f.ScheduledAfter != nil {
		db = db.Where("scheduled_at >= ?", *f.ScheduledAfter)
	}
	if f.DueBefore != nil {
		db = db.Where("scheduled_at <= ?", *f.DueBefore)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Campaign
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find campaigns by filter: %w", err)
	}
	return rows, nil
}

func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatusIf flips the campaign status only when the row still holds the
// expected current status. RowsAffected == 0 means another writer got there
// first; callers treat that as "not claimed", never as an error.
func (r *CampaignRepositoryImpl) UpdateStatusIf(ctx context.Context, campaignID uint, from, to models.CampaignStatus, extra map[string]any) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     to,
		"updated_at": utils.UTCNow(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaignID, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition campaign %d from %s to %s: %w", campaignID, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *CampaignRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Campaign, error) {
	status := models.CampaignStatusScheduled
	return r.ByFilter(ctx, models.CampaignFilter{
		Status:    &status,
		DueBefore: &now,
	}, "scheduled_at ASC", limit, 0)
}

func (r *CampaignRepositoryImpl) AddCounters(ctx context.Context, campaignID uint, sent, failed int64) error {
	db := r.getDB(ctx)
	res := db.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]any{
			"sent_count":   gorm.Expr("sent_count + ?", sent),
			"failed_count": gorm.Expr("failed_count + ?", failed),
			"updated_at":   utils.UTCNow(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to add counters for campaign %d: %w", campaignID, res.Error)
	}
	return nil
}
