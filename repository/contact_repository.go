package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Raijin/models"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements ContactRepository
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db)}
}

func (r *ContactRepositoryImpl) applyFilter(db *gorm.DB, f models.ContactFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.TenantID != nil {
		db = db.Where("tenant_id = ?", *f.TenantID)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.OptedOut != nil {
		db = db.Where("opted_out = ?", *f.OptedOut)
	}
	return db
}

func (r *ContactRepositoryImpl) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Contact{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Contact
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find contacts by filter: %w", err)
	}
	return rows, nil
}

func (r *ContactRepositoryImpl) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Contact{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyAudienceFilter is the single predicate implementation behind both
// ByAudience and CountAudience. Opted-out contacts are always excluded;
// every set field narrows the result with logical AND.
func (r *ContactRepositoryImpl) applyAudienceFilter(db *gorm.DB, tenantID uint, f models.TargetFilter, now time.Time) *gorm.DB {
	db = db.Where("tenant_id = ?", tenantID).Where("opted_out = ?", false)

	if len(f.Tags) > 0 {
		// overlap: contact has at least one of the requested tags
		db = db.Where("tags && ?", pq.StringArray(f.Tags))
	}
	if f.Location != nil && *f.Location != "" {
		db = db.Where("location ILIKE ?", "%"+*f.Location+"%")
	}
	if f.Country != nil && *f.Country != "" {
		db = db.Where("UPPER(country) = ?", strings.ToUpper(*f.Country))
	}
	if f.LastInteractionDays != nil && *f.LastInteractionDays > 0 {
		cutoff := now.AddDate(0, 0, -*f.LastInteractionDays)
		db = db.Where("last_interaction_at >= ?", cutoff)
	}
	return db
}

func (r *ContactRepositoryImpl) ByAudience(ctx context.Context, tenantID uint, filter models.TargetFilter, now time.Time) ([]*models.Contact, error) {
	db := r.getDB(ctx)
	query := r.applyAudienceFilter(db.Model(&models.Contact{}), tenantID, filter, now)

	var rows []*models.Contact
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}
	return rows, nil
}

func (r *ContactRepositoryImpl) CountAudience(ctx context.Context, tenantID uint, filter models.TargetFilter, now time.Time) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyAudienceFilter(db.Model(&models.Contact{}), tenantID, filter, now)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count audience: %w", err)
	}
	return count, nil
}
