package entitlement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-inc/vendora/internal/domain/subscription"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func paid(plan string) subscription.Record {
	return subscription.Record{Subscribed: true, PlanName: strPtr(plan)}
}

// ===== TestClassify =====

func TestClassify(t *testing.T) {
	tests := []struct {
		plan string
		want Tier
	}{
		{"Pro", TierPro},
		{"Plano Pro Mensal", TierPro},
		{"PREMIUM annual", TierPro},
		{"Start", TierStart},
		{"basic monthly", TierStart},
		{"Starter Basic", TierStart},
		{"Enterprise Ultra", TierStart},
		{"", TierStart},
		{"ＰＲＯ", TierStart},
		{"PRÓ", TierStart},
		{"ProStart bundle", TierPro},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.plan))
		})
	}
}

func TestClassify_FoldsUnicodeCase(t *testing.T) {
	assert.Equal(t, TierStart, Classify("BASIC Mensal"))
	assert.Equal(t, TierPro, Classify("PlAnO pReMiUm"))
}

// ===== TestPlanTier =====

func TestPlanTier(t *testing.T) {
	assert.Equal(t, TierTrial, PlanTier(subscription.Record{}))
	assert.Equal(t, TierTrial, PlanTier(subscription.Record{Subscribed: false, PlanName: strPtr("Pro")}))
	assert.Equal(t, TierPro, PlanTier(paid("Plano Pro Mensal")))
	assert.Equal(t, TierStart, PlanTier(paid("Enterprise Ultra")))
	assert.Equal(t, TierStart, PlanTier(subscription.Record{Subscribed: true}))
}

// ===== TestHasAccess =====

func TestHasAccess_Monotonic(t *testing.T) {
	records := []subscription.Record{
		{},
		subscription.FailClosedRecord(),
		paid("Start"),
		paid("Pro"),
		paid("Enterprise Ultra"),
	}
	tiers := []Tier{TierTrial, TierStart, TierPro}

	for _, r := range records {
		for i, higher := range tiers {
			if !HasAccess(r, higher) {
				continue
			}
			for _, lower := range tiers[:i] {
				assert.True(t, HasAccess(r, lower), "record %+v has %s but not %s", r, higher, lower)
			}
		}
	}
}

func TestHasAccess_TrialCountsAsStart(t *testing.T) {
	trial := subscription.NewTrialRecord(time.Now())

	assert.True(t, HasAccess(trial, TierTrial))
	assert.True(t, HasAccess(trial, TierStart))
	assert.False(t, HasAccess(trial, TierPro))
	assert.True(t, HasAccess(paid("Pro"), TierPro))
	assert.False(t, HasAccess(paid("Basic"), TierPro))
}

// ===== TestTrialWindow =====

func TestTrialBoundary(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

	before := subscription.Record{TrialEnd: timePtr(now.Add(time.Millisecond))}
	assert.True(t, IsInTrial(before, now))
	assert.Equal(t, 1, TrialDaysRemaining(before, now))
	assert.True(t, HasActivePeriodAccess(before, now))

	after := subscription.Record{TrialEnd: timePtr(now.Add(-time.Millisecond))}
	assert.False(t, IsInTrial(after, now))
	assert.Equal(t, 0, TrialDaysRemaining(after, now))
	assert.False(t, HasActivePeriodAccess(after, now))

	exact := subscription.Record{TrialEnd: timePtr(now)}
	assert.False(t, IsInTrial(exact, now))
	assert.Equal(t, 0, TrialDaysRemaining(exact, now))
}

func TestTrialDaysRemaining_RoundsUp(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		left time.Duration
		want int
	}{
		{7 * 24 * time.Hour, 7},
		{6*24*time.Hour + time.Second, 7},
		{24 * time.Hour, 1},
		{23 * time.Hour, 1},
	}
	for _, tt := range tests {
		r := subscription.Record{TrialEnd: timePtr(now.Add(tt.left))}
		assert.Equal(t, tt.want, TrialDaysRemaining(r, now), tt.left.String())
	}

	assert.Equal(t, 0, TrialDaysRemaining(subscription.Record{}, now))
}

func TestHasActivePeriodAccess_IndependentOfTrial(t *testing.T) {
	now := time.Now()
	expired := timePtr(now.Add(-48 * time.Hour))

	subscribedExpiredTrial := subscription.Record{Subscribed: true, PlanName: strPtr("Start"), TrialEnd: expired}
	assert.True(t, HasActivePeriodAccess(subscribedExpiredTrial, now))
	assert.False(t, IsInTrial(subscribedExpiredTrial, now))

	assert.False(t, HasActivePeriodAccess(subscription.FailClosedRecord(), now))
}

// ===== TestSummarize =====

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	rec := subscription.NewTrialRecord(now.Add(-2 * 24 * time.Hour))

	s := Summarize(rec, now)
	assert.Equal(t, TierTrial, s.Tier)
	assert.Equal(t, TierStart, s.EffectiveTier)
	assert.True(t, s.InTrial)
	assert.Equal(t, 5, s.TrialDaysRemaining)
	assert.True(t, s.ActivePeriod)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tier":"trial"`)
	assert.Contains(t, string(data), `"effective_tier":"start"`)
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Pro ")
	require.NoError(t, err)
	assert.Equal(t, TierPro, tier)

	_, err = ParseTier("gold")
	assert.Error(t, err)

	var decoded Tier
	require.NoError(t, json.Unmarshal([]byte(`"start"`), &decoded))
	assert.Equal(t, TierStart, decoded)
}
