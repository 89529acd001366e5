// Package testing provides test utilities and disposable database setup for the dispatch engine
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active tenant with a random API key
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	tenant := &models.Tenant{
		UUID:          uuid.New(),
		Name:          fmt.Sprintf("Test Tenant %s", randomDigits),
		PhoneNumberID: fmt.Sprintf("pn_%s", randomDigits),
		APIKey:        fmt.Sprintf("test-api-key-%s", randomDigits),
		IsActive:      utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTestContact creates a contact for the tenant with the given tags
func (tf *TestFixtures) CreateTestContact(tenantID uint, tags []string) (*models.Contact, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	contact := &models.Contact{
		TenantID: tenantID,
		Phone:    fmt.Sprintf("+989%s", randomDigits),
		Name:     "Test Contact",
		Tags:     pq.StringArray(tags),
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}
	return contact, nil
}

// CreateTestContactFull creates a contact with location, country, and interaction recency
func (tf *TestFixtures) CreateTestContactFull(tenantID uint, tags []string, location, country string, lastInteraction *time.Time, optedOut bool) (*models.Contact, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	contact := &models.Contact{
		TenantID:          tenantID,
		Phone:             fmt.Sprintf("+989%s", randomDigits),
		Name:              "Test Contact",
		Tags:              pq.StringArray(tags),
		LastInteractionAt: lastInteraction,
		OptedOut:          optedOut,
	}
	if location != "" {
		contact.Location = &location
	}
	if country != "" {
		contact.Country = &country
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}
	return contact, nil
}

// CreateTestTemplate creates an approved message template for the tenant
func (tf *TestFixtures) CreateTestTemplate(tenantID uint) (*models.MessageTemplate, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	tmpl := &models.MessageTemplate{
		TenantID: tenantID,
		Name:     fmt.Sprintf("test_template_%s", randomDigits),
		Language: "en",
		Body:     "Hello {{1}}, this is a test message.",
	}

	if err := tf.DB.DB.Create(tmpl).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}
	return tmpl, nil
}

// CreateTestCampaign creates a template-driven campaign in the given status
func (tf *TestFixtures) CreateTestCampaign(tenantID, templateID uint, status models.CampaignStatus) (*models.Campaign, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	campaign := &models.Campaign{
		UUID:           uuid.New(),
		TenantID:       tenantID,
		Name:           fmt.Sprintf("Test Campaign %s", randomDigits),
		Status:         status,
		TemplateID:     &templateID,
		RecurrenceType: models.RecurrenceNone,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestABCampaign creates a variant-driven campaign with the given splits.
// Each variant gets its own template.
func (tf *TestFixtures) CreateTestABCampaign(tenantID uint, status models.CampaignStatus, splits []float64) (*models.Campaign, []*models.CampaignVariant, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	campaign := &models.Campaign{
		UUID:           uuid.New(),
		TenantID:       tenantID,
		Name:           fmt.Sprintf("Test AB Campaign %s", randomDigits),
		Status:         status,
		ABEnabled:      true,
		RecurrenceType: models.RecurrenceNone,
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	variants := make([]*models.CampaignVariant, 0, len(splits))
	for i, split := range splits {
		tmpl, err := tf.CreateTestTemplate(tenantID)
		if err != nil {
			return nil, nil, err
		}
		variant := &models.CampaignVariant{
			CampaignID:   campaign.ID,
			Letter:       models.VariantLetters[i],
			TemplateID:   tmpl.ID,
			SplitPercent: split,
		}
		if err := tf.DB.DB.Create(variant).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create test variant: %w", err)
		}
		variants = append(variants, variant)
	}

	return campaign, variants, nil
}

// CreateTestDispatchItem creates a queued ledger entry for the campaign and contact
func (tf *TestFixtures) CreateTestDispatchItem(campaignID, contactID uint) (*models.DispatchItem, error) {
	item := &models.DispatchItem{
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     models.DispatchItemStatusQueued,
		QueuedAt:   utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create test dispatch item: %w", err)
	}
	return item, nil
}
