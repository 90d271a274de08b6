package earnings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpay/payroll-engine/earnings"
)

// =============================================================================
// DESCRIPTION CLASSIFICATION
// =============================================================================

func TestIsBonusDescription(t *testing.T) {
	bonus := []string{
		"Production Bonus",
		"Quarterly Incentive",
		"Sales Commission",
		"Referral Award",
		"Gift Card",
	}
	for _, desc := range bonus {
		assert.True(t, earnings.IsBonusDescription(desc), desc)
	}

	regular := []string{
		"Regular",
		"Overtime",
		"Holiday",
		"Vacation",
		"Sick",
	}
	for _, desc := range regular {
		assert.False(t, earnings.IsBonusDescription(desc), desc)
	}
}

func TestIsBonusDescription_RegularKeywordsWin(t *testing.T) {
	// "Overtime Premium" contains neither bonus word, but lines like
	// "Holiday Bonus"-adjacent names that also match a regular keyword
	// must classify as regular: misreading regular pay as bonus would
	// halve the payee's share.
	assert.False(t, earnings.IsBonusDescription("Overtime Premium"))
	assert.False(t, earnings.IsBonusDescription("Holiday Incentive"))
}

func TestIsSupplementalLine(t *testing.T) {
	assert.True(t, earnings.IsSupplementalLine("Overtime Premium"))
	assert.True(t, earnings.IsSupplementalLine("Education Differential"))
	assert.True(t, earnings.IsSupplementalLine("Group Term Life"))
	assert.False(t, earnings.IsSupplementalLine("Overtime"))
	assert.False(t, earnings.IsSupplementalLine("Regular"))
}

func TestClassifyLines_TagsBonusLines(t *testing.T) {
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("40")},
		{Description: "Production Bonus", ClientAmount: dec("400.00")},
	}

	out := earnings.ClassifyLines(lines)
	require.Len(t, out, 2)
	assert.False(t, out[0].IsBonus)
	assert.True(t, out[1].IsBonus)
}

// =============================================================================
// MULTIPLIER DERIVATION
// =============================================================================

func TestDeriveMultiplier_OvertimeWithPremiumCompanion(t *testing.T) {
	// Client splits OT into base-rate hours plus a 0.5x premium line.
	// The contractor's overtime is still time and a half.
	m, ok := earnings.DeriveMultiplier("Overtime", dec("20.00"), dec("20.00"), true)
	require.True(t, ok)
	assert.True(t, m.Equal(dec("1.5")), "got %s", m)
}

func TestDeriveMultiplier_OvertimeFromRateRatio(t *testing.T) {
	m, ok := earnings.DeriveMultiplier("Overtime", dec("30.00"), dec("20.00"), false)
	require.True(t, ok)
	assert.True(t, m.Equal(dec("1.5")), "got %s", m)
}

func TestDeriveMultiplier_DoubleTime(t *testing.T) {
	m, ok := earnings.DeriveMultiplier("Double Time", dec("40.00"), dec("20.00"), false)
	require.True(t, ok)
	assert.True(t, m.Equal(dec("2")), "got %s", m)
}

func TestDeriveMultiplier_RatioRoundsToNearestHalf(t *testing.T) {
	// 29.40 / 20.00 = 1.47 -> 1.5
	m, ok := earnings.DeriveMultiplier("Holiday", dec("29.40"), dec("20.00"), false)
	require.True(t, ok)
	assert.True(t, m.Equal(dec("1.5")), "got %s", m)

	// 20.80 / 20.00 = 1.04 -> 1.0
	m, ok = earnings.DeriveMultiplier("Holiday", dec("20.80"), dec("20.00"), false)
	require.True(t, ok)
	assert.True(t, m.Equal(dec("1")), "got %s", m)
}

func TestDeriveMultiplier_SupplementalSkipped(t *testing.T) {
	_, ok := earnings.DeriveMultiplier("Overtime Premium", dec("10.00"), dec("20.00"), true)
	assert.False(t, ok)
}

func TestDeriveMultiplier_NoBaseRateDefaultsToOne(t *testing.T) {
	m, ok := earnings.DeriveMultiplier("Vacation", dec("20.00"), dec("0"), false)
	require.True(t, ok)
	assert.True(t, m.Equal(dec("1")))
}

func TestBaseRate(t *testing.T) {
	lines := []earnings.PayLine{
		{Description: "Overtime", ClientRate: dec("30.00")},
		{Description: "Regular", ClientRate: dec("20.00")},
	}
	rate, ok := earnings.BaseRate(lines)
	require.True(t, ok)
	assert.True(t, rate.Equal(dec("20.00")))

	_, ok = earnings.BaseRate(nil)
	assert.False(t, ok)
}

func TestHasOvertimePremium(t *testing.T) {
	assert.True(t, earnings.HasOvertimePremium([]earnings.PayLine{
		{Description: "Overtime Premium"},
	}))
	assert.False(t, earnings.HasOvertimePremium([]earnings.PayLine{
		{Description: "Overtime"},
	}))
}

func TestNormalizeLines_FlagsAndMultipliers(t *testing.T) {
	// Raw parser output: no flags, no multipliers.
	lines := earnings.NormalizeLines([]earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), ClientRate: dec("20.00")},
		{Description: "Overtime", Hours: dec("10"), ClientRate: dec("30.00")},
		{Description: "Overtime Premium", Hours: dec("10"), ClientAmount: dec("100.00")},
		{Description: "Referral Bonus", ClientAmount: dec("250.00")},
	})
	require.Len(t, lines, 4)

	assert.False(t, lines[0].IsBonus)
	assert.True(t, lines[0].Multiplier.Equal(dec("1")))

	assert.False(t, lines[1].IsBonus)
	assert.True(t, lines[1].Multiplier.Equal(dec("1.5")))

	// Supplemental companion: no multiplier derived
	assert.False(t, lines[2].IsBonus)
	assert.True(t, lines[2].Multiplier.IsZero())

	assert.True(t, lines[3].IsBonus)
	assert.True(t, lines[3].Multiplier.IsZero())
}

func TestNormalizeLines_CallerMultiplierKept(t *testing.T) {
	lines := earnings.NormalizeLines([]earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), ClientRate: dec("20.00")},
		{Description: "Overtime", Hours: dec("10"), ClientRate: dec("30.00"), Multiplier: dec("2")},
	})
	assert.True(t, lines[1].Multiplier.Equal(dec("2")))
}
