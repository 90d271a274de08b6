package earnings_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpay/payroll-engine/earnings"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	return earnings.MustDecimal(s)
}

func fixedAssignment(rate string, bonusSplit string) earnings.Assignment {
	r := dec(rate)
	return earnings.Assignment{
		ID:                   "asg-1",
		Payee:                earnings.Contractor("con-1"),
		ClientID:             "client-1",
		RateType:             earnings.RateFixed,
		FixedHourlyRate:      &r,
		BonusSplitPercentage: dec(bonusSplit),
		IsActive:             true,
	}
}

func percentageAssignment(pct string, bonusSplit string) earnings.Assignment {
	p := dec(pct)
	return earnings.Assignment{
		ID:                   "asg-2",
		Payee:                earnings.Contractor("con-2"),
		ClientID:             "client-1",
		RateType:             earnings.RatePercentage,
		PercentageRate:       &p,
		BonusSplitPercentage: dec(bonusSplit),
		IsActive:             true,
	}
}

func managerAssignment(rate string) earnings.Assignment {
	r := dec(rate)
	return earnings.Assignment{
		ID:                   "asg-3",
		Payee:                earnings.Manager("mgr-1"),
		ClientID:             "client-1",
		RateType:             earnings.RateFixed,
		FixedHourlyRate:      &r,
		BonusSplitPercentage: decimal.Zero,
		IsActive:             true,
	}
}

// =============================================================================
// FIXED RATE TESTS
// =============================================================================

func TestComputeRegular_Fixed_RegularHours(t *testing.T) {
	// GIVEN: 40 regular hours at a $25/hr contractor rate
	a := fixedAssignment("25.00", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
	}

	// WHEN: Computing regular earnings
	bd, err := earnings.ComputeRegular(a, lines)

	// THEN: 40 x 1.0 x 25 = 1000.00
	require.NoError(t, err)
	assert.True(t, bd.Total.Equal(dec("1000.00")), "got %s", bd.Total)
	assert.True(t, bd.TotalHours.Equal(dec("40")))
	require.Len(t, bd.Lines, 1)
	assert.True(t, bd.Lines[0].Amount.Equal(dec("1000.00")))
}

func TestComputeRegular_Fixed_OvertimeMultiplier(t *testing.T) {
	// GIVEN: Regular and overtime lines with the client's multiplier structure
	a := fixedAssignment("20.00", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
		{Description: "Overtime", Hours: dec("10"), Multiplier: dec("1.5")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)

	// THEN: 40x20 + 10x1.5x20 = 800 + 300 = 1100
	assert.True(t, bd.Total.Equal(dec("1100.00")), "got %s", bd.Total)
	assert.True(t, bd.TotalHours.Equal(dec("50")))
	require.Len(t, bd.Lines, 2)
	assert.True(t, bd.Lines[1].ContractorRate.Equal(dec("30.00")))
}

func TestComputeRegular_Fixed_MissingMultiplierDefaultsToOne(t *testing.T) {
	a := fixedAssignment("30.00", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("10")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)
	assert.True(t, bd.Total.Equal(dec("300.00")))
	assert.True(t, bd.Lines[0].Multiplier.Equal(dec("1")))
}

func TestComputeRegular_Fixed_SkipsSupplementalAndZeroHourLines(t *testing.T) {
	// GIVEN: An overtime premium companion line and a zero-hour line.
	// Premium hours duplicate the base overtime line's hours.
	a := fixedAssignment("25.00", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
		{Description: "Overtime", Hours: dec("5"), Multiplier: dec("1.5")},
		{Description: "Overtime Premium", Hours: dec("5"), Multiplier: dec("0.5")},
		{Description: "Holiday", Hours: dec("0"), Multiplier: dec("1")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)

	// THEN: Only regular + overtime count; 1000 + 187.50
	assert.True(t, bd.Total.Equal(dec("1187.50")), "got %s", bd.Total)
	assert.True(t, bd.TotalHours.Equal(dec("45")))
	assert.Len(t, bd.Lines, 2)
}

func TestComputeRegular_Fixed_RoundsPerLine(t *testing.T) {
	// GIVEN: A line that produces a sub-cent amount
	a := fixedAssignment("23.33", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("7.25"), Multiplier: dec("1")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)

	// 7.25 x 23.33 = 169.1425 -> 169.14
	assert.True(t, bd.Total.Equal(dec("169.14")), "got %s", bd.Total)
}

func TestComputeRegular_Fixed_BonusLinesExcluded(t *testing.T) {
	a := fixedAssignment("25.00", "50")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), Multiplier: dec("1")},
		{Description: "Production Bonus", IsBonus: true, ClientAmount: dec("400.00")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)
	assert.True(t, bd.Total.Equal(dec("1000.00")))
	assert.Len(t, bd.Lines, 1)
}

// =============================================================================
// MANAGER FLAT RATE TESTS
// =============================================================================

func TestComputeRegular_ManagerFlat_IgnoresMultipliers(t *testing.T) {
	// GIVEN: A manager overseeing staff hours that include overtime
	a := managerAssignment("2.00")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("100"), Multiplier: dec("1")},
		{Description: "Overtime", Hours: dec("20"), Multiplier: dec("1.5")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)

	// THEN: 120 total hours x $2 flat, overtime multiplier NOT applied
	assert.True(t, bd.Total.Equal(dec("240.00")), "got %s", bd.Total)
	assert.True(t, bd.TotalHours.Equal(dec("120")))
	require.Len(t, bd.Lines, 1)
	assert.Equal(t, "Staff hours (flat rate)", bd.Lines[0].Description)
}

func TestComputeRegular_ManagerFlat_ZeroHours(t *testing.T) {
	a := managerAssignment("2.00")

	bd, err := earnings.ComputeRegular(a, nil)
	require.NoError(t, err)
	assert.True(t, bd.Total.IsZero())
	assert.Empty(t, bd.Lines)
}

// =============================================================================
// PERCENTAGE RATE TESTS
// =============================================================================

func TestComputeRegular_Percentage_OfClientGross(t *testing.T) {
	// GIVEN: 25% of $2000 non-bonus client gross
	a := percentageAssignment("25", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("80"), ClientAmount: dec("2000.00")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)

	assert.True(t, bd.Total.Equal(dec("500.00")), "got %s", bd.Total)
}

func TestComputeRegular_Percentage_PerLineDetail(t *testing.T) {
	a := percentageAssignment("30", "0")
	lines := []earnings.PayLine{
		{Description: "Regular", Hours: dec("40"), ClientAmount: dec("1000.00")},
		{Description: "Overtime", Hours: dec("10"), ClientAmount: dec("375.00")},
	}

	bd, err := earnings.ComputeRegular(a, lines)
	require.NoError(t, err)

	// 300 + 112.50
	assert.True(t, bd.Total.Equal(dec("412.50")), "got %s", bd.Total)
	assert.Len(t, bd.Lines, 2)
}

func TestComputeRegular_Percentage_ZeroGross(t *testing.T) {
	a := percentageAssignment("25", "0")

	bd, err := earnings.ComputeRegular(a, nil)
	require.NoError(t, err)
	assert.True(t, bd.Total.IsZero())
}

// =============================================================================
// RATE CONFIGURATION VALIDATION
// =============================================================================

func TestComputeRegular_FixedWithoutRate_Rejected(t *testing.T) {
	a := fixedAssignment("25.00", "0")
	a.FixedHourlyRate = nil

	_, err := earnings.ComputeRegular(a, nil)
	assert.ErrorIs(t, err, earnings.ErrInvalidRateConfiguration)
}

func TestComputeRegular_PercentageWithoutRate_Rejected(t *testing.T) {
	a := percentageAssignment("25", "0")
	a.PercentageRate = nil

	_, err := earnings.ComputeRegular(a, nil)
	assert.ErrorIs(t, err, earnings.ErrInvalidRateConfiguration)
}

func TestAssignment_Validate_BonusSplitRange(t *testing.T) {
	a := fixedAssignment("25.00", "101")
	assert.ErrorIs(t, a.Validate(), earnings.ErrInvalidRateConfiguration)

	a = fixedAssignment("25.00", "-1")
	assert.ErrorIs(t, a.Validate(), earnings.ErrInvalidRateConfiguration)

	a = fixedAssignment("25.00", "100")
	assert.NoError(t, a.Validate())
}
