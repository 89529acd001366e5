// Package businessflow contains the core business logic and use cases for campaign dispatch workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Tenant-related errors
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant is inactive")

	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignAccessDenied     = errors.New("campaign access denied")
	ErrCampaignNameRequired     = errors.New("campaign name is required")
	ErrCampaignUUIDRequired     = errors.New("campaign UUID is required")
	ErrCampaignNotDraft         = errors.New("campaign is not in draft state")
	ErrCampaignNotScheduled     = errors.New("campaign is not scheduled")
	ErrCampaignAlreadyClaimed   = errors.New("campaign was claimed by another launcher")
	ErrScheduleTimeNotPresent   = errors.New("schedule time is not present")
	ErrScheduleTimeInPast       = errors.New("schedule time must be in the future")
	ErrRecurrenceNeedsSchedule  = errors.New("recurring campaigns require a schedule time")
	ErrEmptyAudience            = errors.New("audience filter matches no contacts")
	ErrTemplateNotFound         = errors.New("message template not found")
	ErrTemplateRequired         = errors.New("template is required for non A/B campaigns")
	ErrTemplateConflictsVariant = errors.New("template and variants are mutually exclusive")

	// Variant-related errors
	ErrVariantsRequired       = errors.New("A/B campaigns require at least two variants")
	ErrTooManyVariants        = errors.New("too many variants")
	ErrDuplicateVariantLetter = errors.New("duplicate variant letter")
	ErrInvalidVariantLetter   = errors.New("invalid variant letter")
	ErrInvalidSplitPercent    = errors.New("split percent must be greater than zero")
	ErrSplitTotalExceeded     = errors.New("variant split percentages exceed 100")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")

	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignNotDraft(err error) bool {
	return errors.Is(err, ErrCampaignNotDraft)
}

func IsCampaignNotScheduled(err error) bool {
	return errors.Is(err, ErrCampaignNotScheduled)
}

func IsCampaignAlreadyClaimed(err error) bool {
	return errors.Is(err, ErrCampaignAlreadyClaimed)
}

func IsScheduleTimeNotPresent(err error) bool {
	return errors.Is(err, ErrScheduleTimeNotPresent)
}

func IsScheduleTimeInPast(err error) bool {
	return errors.Is(err, ErrScheduleTimeInPast)
}

func IsRecurrenceNeedsSchedule(err error) bool {
	return errors.Is(err, ErrRecurrenceNeedsSchedule)
}

func IsEmptyAudience(err error) bool {
	return errors.Is(err, ErrEmptyAudience)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsTemplateRequired(err error) bool {
	return errors.Is(err, ErrTemplateRequired)
}

func IsTemplateConflictsVariant(err error) bool {
	return errors.Is(err, ErrTemplateConflictsVariant)
}

func IsVariantsRequired(err error) bool {
	return errors.Is(err, ErrVariantsRequired)
}

func IsTooManyVariants(err error) bool {
	return errors.Is(err, ErrTooManyVariants)
}

func IsDuplicateVariantLetter(err error) bool {
	return errors.Is(err, ErrDuplicateVariantLetter)
}

func IsInvalidVariantLetter(err error) bool {
	return errors.Is(err, ErrInvalidVariantLetter)
}

func IsInvalidSplitPercent(err error) bool {
	return errors.Is(err, ErrInvalidSplitPercent)
}

func IsSplitTotalExceeded(err error) bool {
	return errors.Is(err, ErrSplitTotalExceeded)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
