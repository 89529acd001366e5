package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Raijin/models"
	"gorm.io/gorm"
)

// CampaignVariantRepositoryImpl implements CampaignVariantRepository
type CampaignVariantRepositoryImpl struct {
	*BaseRepository[models.CampaignVariant, models.CampaignVariantFilter]
}

func NewCampaignVariantRepository(db *gorm.DB) CampaignVariantRepository {
	return &CampaignVariantRepositoryImpl{BaseRepository: NewBaseRepository[models.CampaignVariant, models.CampaignVariantFilter](db)}
}

func (r *CampaignVariantRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignVariantFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.Letter != nil {
		db = db.Where("letter = ?", *f.Letter)
	}
	if f.TemplateID != nil {
		db = db.Where("template_id = ?", *f.TemplateID)
	}
	return db
}

func (r *CampaignVariantRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignVariantFilter, orderBy string, limit, offset int) ([]*models.CampaignVariant, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignVariant{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.CampaignVariant
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find campaign variants by filter: %w", err)
	}
	return rows, nil
}

func (r *CampaignVariantRepositoryImpl) Count(ctx context.Context, filter models.CampaignVariantFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignVariant{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByCampaign returns variants in letter order, which is also the
// declaration order the assigner walks cumulative thresholds in.
func (r *CampaignVariantRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignVariant, error) {
	return r.ByFilter(ctx, models.CampaignVariantFilter{CampaignID: &campaignID}, "letter ASC", 0, 0)
}
