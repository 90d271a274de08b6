package earnings_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpay/payroll-engine/earnings"
)

func paystub(gross string, lines ...earnings.PayLine) earnings.Paystub {
	return earnings.Paystub{
		AssignmentID:   "asg-1",
		PayPeriodBegin: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PayPeriodEnd:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		ClientGrossPay: dec(gross),
		Lines:          lines,
	}
}

// =============================================================================
// RECORD BUILDING
// =============================================================================

func TestBuildRecord_FixedWithBonus(t *testing.T) {
	// GIVEN: $25/hr fixed, 50% bonus split, 40 regular hours + $400 bonus
	a := fixedAssignment("25.00", "50")
	stub := paystub("1800.00",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
		earnings.PayLine{Description: "Production Bonus", IsBonus: true, ClientAmount: dec("400.00")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	// THEN: regular 1000, bonus share 200, total 1200, margin 600
	assert.True(t, rec.RegularEarnings.Equal(dec("1000.00")), "regular %s", rec.RegularEarnings)
	assert.True(t, rec.BonusShare.Equal(dec("200.00")), "bonus %s", rec.BonusShare)
	assert.True(t, rec.TotalEarnings.Equal(dec("1200.00")), "total %s", rec.TotalEarnings)
	assert.True(t, rec.CompanyMargin.Equal(dec("600.00")), "margin %s", rec.CompanyMargin)

	// AND: Nothing paid yet
	assert.True(t, rec.AmountPaid.IsZero())
	assert.True(t, rec.AmountPending.Equal(rec.TotalEarnings))
	assert.Equal(t, earnings.StatusUnpaid, rec.Status)

	// AND: Bonus breakdown present with per-item detail
	require.NotNil(t, rec.BonusBreakdown)
	require.Len(t, rec.BonusBreakdown.Items, 1)
	assert.True(t, rec.BonusBreakdown.Items[0].Share.Equal(dec("200.00")))
}

func TestBuildRecord_ZeroBonusSplit_NoBreakdown(t *testing.T) {
	// GIVEN: 0% bonus split and no bonus lines
	a := fixedAssignment("25.00", "0")
	stub := paystub("1000.00",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	assert.True(t, rec.BonusShare.IsZero())
	assert.Nil(t, rec.BonusBreakdown)
}

func TestBuildRecord_ZeroSplitWithBonusLines_ZeroShare(t *testing.T) {
	// Bonus lines present, but the assignment gives the payee no cut.
	a := fixedAssignment("25.00", "0")
	stub := paystub("1400.00",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
		earnings.PayLine{Description: "Bonus", IsBonus: true, ClientAmount: dec("400.00")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	assert.True(t, rec.BonusShare.IsZero())
	require.NotNil(t, rec.BonusBreakdown)
	assert.True(t, rec.BonusBreakdown.Items[0].Share.IsZero())
	assert.True(t, rec.BonusBreakdown.BonusTotal.Equal(dec("400.00")))
}

func TestBuildRecord_ZeroDollar_IsPaid(t *testing.T) {
	// GIVEN: An empty paystub producing zero earnings
	a := fixedAssignment("25.00", "0")
	stub := paystub("0")

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	// THEN: Paid by definition, never enters the unpaid queue
	assert.Equal(t, earnings.StatusPaid, rec.Status)
	assert.True(t, rec.AmountPending.IsZero())
}

func TestBuildRecord_UntaggedBonus_Classified(t *testing.T) {
	// GIVEN: 25% percentage rate, 50% bonus split, and a parser that supplies
	// no is_bonus flags at all
	a := percentageAssignment("25", "50")
	stub := paystub("2400.00",
		earnings.PayLine{Description: "Regular", ClientAmount: dec("2000.00")},
		earnings.PayLine{Description: "Production Bonus", ClientAmount: dec("400.00")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	// THEN: The bonus line is excluded from the percentage base and split
	// separately, not folded into regular earnings
	assert.True(t, rec.RegularEarnings.Equal(dec("500.00")), "regular %s", rec.RegularEarnings)
	assert.True(t, rec.BonusShare.Equal(dec("200.00")), "bonus %s", rec.BonusShare)
	assert.True(t, rec.TotalEarnings.Equal(dec("700.00")), "total %s", rec.TotalEarnings)
	require.NotNil(t, rec.BonusBreakdown)
	require.Len(t, rec.BonusBreakdown.Items, 1)
	assert.Equal(t, "Production Bonus", rec.BonusBreakdown.Items[0].Description)
}

func TestBuildRecord_UntaggedMultipliers_Derived(t *testing.T) {
	// GIVEN: $20/hr fixed and raw lines carrying client rates but no
	// multipliers; the overtime rate is 1.5x the base client rate
	a := fixedAssignment("20.00", "0")
	stub := paystub("1400.00",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), ClientRate: dec("20.00")},
		earnings.PayLine{Description: "Overtime", Hours: dec("10"), ClientRate: dec("30.00")},
		earnings.PayLine{Description: "Overtime Premium", Hours: dec("10"), ClientAmount: dec("100.00")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	// THEN: 40x20 + 10x1.5x20 = 1100; the premium companion contributes
	// neither pay nor hours
	assert.True(t, rec.RegularEarnings.Equal(dec("1100.00")), "regular %s", rec.RegularEarnings)
	assert.True(t, rec.ClientTotalHours.Equal(dec("50")), "hours %s", rec.ClientTotalHours)
}

func TestBuildRecord_CallerFlagsPreserved(t *testing.T) {
	// A line explicitly flagged as a bonus keeps its flag even though the
	// description would classify as regular.
	a := fixedAssignment("25.00", "50")
	stub := paystub("1400.00",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
		earnings.PayLine{Description: "Holiday Payout", IsBonus: true, ClientAmount: dec("400.00")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	assert.True(t, rec.RegularEarnings.Equal(dec("1000.00")), "regular %s", rec.RegularEarnings)
	assert.True(t, rec.BonusShare.Equal(dec("200.00")), "bonus %s", rec.BonusShare)
}

func TestBuildRecord_InvalidRateConfig(t *testing.T) {
	a := fixedAssignment("25.00", "0")
	a.FixedHourlyRate = nil

	_, err := earnings.BuildRecord(a, paystub("0"))
	assert.ErrorIs(t, err, earnings.ErrInvalidRateConfiguration)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestValidateRecord_WithinTolerance(t *testing.T) {
	a := fixedAssignment("25.00", "0")
	stub := paystub("1000.01",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
	)

	rec, err := earnings.BuildRecord(a, stub)
	require.NoError(t, err)

	// total 1000 + margin 0.01 = 1000.01, off by 0 from gross
	assert.NoError(t, earnings.ValidateRecord(rec))
}

func TestValidateRecord_MismatchBeyondTolerance(t *testing.T) {
	a := fixedAssignment("25.00", "0")
	rec, err := earnings.BuildRecord(a, paystub("1000.00",
		earnings.PayLine{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
	))
	require.NoError(t, err)

	// Corrupt the margin so total + margin drifts past 2 cents
	rec.CompanyMargin = rec.CompanyMargin.Add(dec("0.05"))
	assert.ErrorIs(t, earnings.ValidateRecord(rec), earnings.ErrEarningsMismatch)
}

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name  string
		total string
		paid  string
		want  earnings.PaymentStatus
	}{
		{"nothing paid", "100.00", "0", earnings.StatusUnpaid},
		{"partial", "100.00", "40.00", earnings.StatusPartiallyPaid},
		{"one cent short", "100.00", "99.99", earnings.StatusPartiallyPaid},
		{"exactly paid", "100.00", "100.00", earnings.StatusPaid},
		{"one cent over", "100.00", "100.01", earnings.StatusOverpaid},
		{"zero dollar record", "0", "0", earnings.StatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := earnings.StatusFor(dec(tc.total), dec(tc.paid))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatusFor_DerivedNotStored(t *testing.T) {
	// Status must only depend on (total, paid); pending is always the
	// difference, never tracked independently.
	total := dec("250.00")
	paid := decimal.Zero
	for _, inc := range []string{"100.00", "100.00", "50.00"} {
		paid = paid.Add(dec(inc))
	}
	assert.Equal(t, earnings.StatusPaid, earnings.StatusFor(total, paid))
}
