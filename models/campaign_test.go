package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/callbacks"
)

// GORM dispatches creation hooks by signature; these assertions keep the
// models on the interface GORM actually calls.
var (
	_ callbacks.BeforeCreateInterface = (*Campaign)(nil)
	_ callbacks.BeforeCreateInterface = (*Tenant)(nil)
	_ callbacks.BeforeCreateInterface = (*DispatchItem)(nil)
)

func TestCampaignBeforeCreate(t *testing.T) {
	t.Run("DefaultsEmptyFields", func(t *testing.T) {
		c := &Campaign{TenantID: 1, Name: "spring sale"}
		require.NoError(t, c.BeforeCreate(nil))

		assert.NotEqual(t, uuid.Nil, c.UUID)
		assert.Equal(t, CampaignStatusDraft, c.Status)
		assert.Equal(t, RecurrenceNone, c.RecurrenceType)
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("PreservesSetFields", func(t *testing.T) {
		id := uuid.New()
		created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
		c := &Campaign{
			UUID:           id,
			Status:         CampaignStatusScheduled,
			RecurrenceType: RecurrenceWeekly,
			CreatedAt:      created,
		}
		require.NoError(t, c.BeforeCreate(nil))

		assert.Equal(t, id, c.UUID)
		assert.Equal(t, CampaignStatusScheduled, c.Status)
		assert.Equal(t, RecurrenceWeekly, c.RecurrenceType)
		assert.Equal(t, created, c.CreatedAt)
	})

	t.Run("DistinctUUIDsPerCreate", func(t *testing.T) {
		first := &Campaign{}
		second := &Campaign{}
		require.NoError(t, first.BeforeCreate(nil))
		require.NoError(t, second.BeforeCreate(nil))
		assert.NotEqual(t, first.UUID, second.UUID)
	})
}

func TestTenantBeforeCreate(t *testing.T) {
	tenant := &Tenant{Name: "acme"}
	require.NoError(t, tenant.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, tenant.UUID)
	assert.False(t, tenant.CreatedAt.IsZero())
}

func TestDispatchItemBeforeCreate(t *testing.T) {
	item := &DispatchItem{CampaignID: 1, ContactID: 2}
	require.NoError(t, item.BeforeCreate(nil))
	assert.Equal(t, DispatchItemStatusQueued, item.Status)
	assert.False(t, item.QueuedAt.IsZero())
}

func TestCampaignStatusTransitions(t *testing.T) {
	all := []CampaignStatus{
		CampaignStatusDraft,
		CampaignStatusScheduled,
		CampaignStatusProcessing,
		CampaignStatusCompleted,
		CampaignStatusFailed,
	}

	allowed := map[CampaignStatus][]CampaignStatus{
		CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusProcessing},
		CampaignStatusScheduled: {CampaignStatusDraft, CampaignStatusProcessing, CampaignStatusFailed},
		// processing -> scheduled is the recurrence re-arm
		CampaignStatusProcessing: {CampaignStatusCompleted, CampaignStatusFailed, CampaignStatusScheduled},
		CampaignStatusCompleted:  {},
		CampaignStatusFailed:     {},
	}

	for from, targets := range allowed {
		ok := map[CampaignStatus]bool{}
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			c := &Campaign{Status: from}
			assert.Equal(t, ok[to], c.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestCampaignStatusValid(t *testing.T) {
	assert.True(t, CampaignStatusDraft.Valid())
	assert.True(t, CampaignStatusFailed.Valid())
	assert.False(t, CampaignStatus("archived").Valid())
	assert.False(t, CampaignStatus("").Valid())
}

func TestCampaignStatusValue(t *testing.T) {
	v, err := CampaignStatusScheduled.Value()
	require.NoError(t, err)
	assert.Equal(t, "scheduled", v)

	_, err = CampaignStatus("bogus").Value()
	assert.Error(t, err)
}

func TestRecurrenceTypeNextOccurrence(t *testing.T) {
	from := time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)

	t.Run("Daily", func(t *testing.T) {
		next, ok := RecurrenceDaily.NextOccurrence(from)
		require.True(t, ok)
		assert.Equal(t, from.Add(24*time.Hour), next)
	})

	t.Run("Weekly", func(t *testing.T) {
		next, ok := RecurrenceWeekly.NextOccurrence(from)
		require.True(t, ok)
		assert.Equal(t, from.Add(7*24*time.Hour), next)
	})

	t.Run("MonthlyUsesCalendarMonth", func(t *testing.T) {
		next, ok := RecurrenceMonthly.NextOccurrence(from)
		require.True(t, ok)
		// Jan 31 + 1 month normalizes to Mar 3 in a non-leap year wrapping;
		// 2026 is not a leap year so Feb has 28 days.
		assert.Equal(t, time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC), next)

		mid, ok := RecurrenceMonthly.NextOccurrence(time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC), mid)
	})

	t.Run("NoneDoesNotRecur", func(t *testing.T) {
		_, ok := RecurrenceNone.NextOccurrence(from)
		assert.False(t, ok)

		_, ok = RecurrenceType("").NextOccurrence(from)
		assert.False(t, ok)
	})
}

func TestCampaignIsRecurring(t *testing.T) {
	assert.False(t, (&Campaign{RecurrenceType: RecurrenceNone}).IsRecurring())
	assert.False(t, (&Campaign{}).IsRecurring())
	assert.True(t, (&Campaign{RecurrenceType: RecurrenceDaily}).IsRecurring())
	assert.True(t, (&Campaign{RecurrenceType: RecurrenceMonthly}).IsRecurring())
}

func TestTargetFilter(t *testing.T) {
	t.Run("IsEmpty", func(t *testing.T) {
		assert.True(t, TargetFilter{}.IsEmpty())

		location := "Tehran"
		assert.False(t, TargetFilter{Tags: []string{"vip"}}.IsEmpty())
		assert.False(t, TargetFilter{Location: &location}.IsEmpty())

		days := 30
		assert.False(t, TargetFilter{LastInteractionDays: &days}.IsEmpty())
	})

	t.Run("ValueScanRoundtrip", func(t *testing.T) {
		country := "IR"
		days := 7
		original := TargetFilter{
			Tags:                []string{"vip", "newsletter"},
			Country:             &country,
			LastInteractionDays: &days,
		}

		v, err := original.Value()
		require.NoError(t, err)

		var scanned TargetFilter
		require.NoError(t, scanned.Scan(v))
		assert.Equal(t, original, scanned)
	})

	t.Run("ScanNil", func(t *testing.T) {
		f := TargetFilter{Tags: []string{"stale"}}
		require.NoError(t, f.Scan(nil))
		assert.True(t, f.IsEmpty())
	})

	t.Run("ScanRejectsUnknownType", func(t *testing.T) {
		var f TargetFilter
		assert.Error(t, f.Scan(42))
	})
}

func TestDispatchItemTransitions(t *testing.T) {
	tests := []struct {
		from DispatchItemStatus
		to   DispatchItemStatus
		want bool
	}{
		{DispatchItemStatusQueued, DispatchItemStatusSent, true},
		{DispatchItemStatusQueued, DispatchItemStatusFailed, true},
		{DispatchItemStatusQueued, DispatchItemStatusDelivered, false},
		{DispatchItemStatusSent, DispatchItemStatusDelivered, true},
		{DispatchItemStatusSent, DispatchItemStatusFailed, true},
		{DispatchItemStatusSent, DispatchItemStatusQueued, false},
		{DispatchItemStatusDelivered, DispatchItemStatusFailed, false},
		{DispatchItemStatusFailed, DispatchItemStatusQueued, false},
	}

	for _, tt := range tests {
		item := &DispatchItem{Status: tt.from}
		assert.Equal(t, tt.want, item.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestValidVariantLetter(t *testing.T) {
	assert.True(t, ValidVariantLetter("A"))
	assert.True(t, ValidVariantLetter("B"))
	assert.True(t, ValidVariantLetter("C"))
	assert.False(t, ValidVariantLetter("D"))
	assert.False(t, ValidVariantLetter("a"))
	assert.False(t, ValidVariantLetter(""))
}
