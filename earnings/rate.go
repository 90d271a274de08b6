/*
rate.go - Regular earnings calculation

PURPOSE:
  Computes the payee's regular (non-bonus) earnings from an assignment's rate
  configuration and a paystub's pay lines.

RATE MODES:
  Fixed (contractor):    per line, hours x multiplier x fixed hourly rate.
                         Mirrors the client's pay structure (1.5x overtime etc).
  Fixed (manager):       total staff hours x flat rate, NO multipliers.
                         Manager pay is flat regardless of overtime.
  Percentage:            non-bonus client gross x (percentage / 100).

ROUNDING:
  Each line amount is rounded half-up to cents as it is produced; the total
  is the sum of rounded lines so the breakdown always adds up exactly.

SEE ALSO:
  - classify.go: Line classification for untagged paystub lines
  - bonus.go: Bonus share calculation
*/
package earnings

import "github.com/shopspring/decimal"

// ComputeRegular calculates the payee's regular earnings breakdown.
//
// Only non-bonus lines participate. Zero hours or zero gross produce a zero
// breakdown, not an error. Returns ErrInvalidRateConfiguration when the
// assignment's rate fields don't match its rate type.
func ComputeRegular(a Assignment, lines []PayLine) (RegularBreakdown, error) {
	if err := a.Validate(); err != nil {
		return RegularBreakdown{}, err
	}

	regular := nonBonusLines(lines)

	switch a.RateType {
	case RateFixed:
		if a.Payee.Kind == PayeeManager {
			return computeManagerFlat(*a.FixedHourlyRate, regular), nil
		}
		return computeFixed(*a.FixedHourlyRate, regular), nil
	case RatePercentage:
		return computePercentage(*a.PercentageRate, regular), nil
	}
	// Unreachable: Validate rejects unknown rate types.
	return RegularBreakdown{}, &InvalidRateConfigError{AssignmentID: a.ID, RateType: a.RateType}
}

func nonBonusLines(lines []PayLine) []PayLine {
	var out []PayLine
	for _, l := range lines {
		if !l.IsBonus {
			out = append(out, l)
		}
	}
	return out
}

// computeFixed mirrors the client's per-line structure at the contractor's rate.
func computeFixed(rate decimal.Decimal, lines []PayLine) RegularBreakdown {
	bd := RegularBreakdown{TotalHours: decimal.Zero, Total: decimal.Zero}

	for _, l := range lines {
		if !l.Hours.IsPositive() {
			continue
		}
		// Supplemental lines (overtime premium, differentials) reuse hours
		// from their base line: their hours must not count twice and the
		// contractor is already compensated via the base line's multiplier.
		if IsSupplementalLine(l.Description) {
			continue
		}
		mult := l.Multiplier
		if mult.IsZero() {
			mult = decimal.NewFromInt(1)
		}
		amount := RoundCents(l.Hours.Mul(mult).Mul(rate))

		bd.Lines = append(bd.Lines, BreakdownLine{
			Description:    l.Description,
			Hours:          l.Hours,
			Multiplier:     mult,
			ContractorRate: RoundCents(rate.Mul(mult)),
			Amount:         amount,
		})
		bd.TotalHours = bd.TotalHours.Add(l.Hours)
		bd.Total = bd.Total.Add(amount)
	}
	return bd
}

// computeManagerFlat pays total staff hours at a flat rate, no multipliers.
func computeManagerFlat(rate decimal.Decimal, lines []PayLine) RegularBreakdown {
	hours := decimal.Zero
	for _, l := range lines {
		if !l.Hours.IsPositive() || IsSupplementalLine(l.Description) {
			continue
		}
		hours = hours.Add(l.Hours)
	}

	bd := RegularBreakdown{TotalHours: hours, Total: decimal.Zero}
	if hours.IsZero() {
		return bd
	}

	one := decimal.NewFromInt(1)
	amount := RoundCents(hours.Mul(rate))
	bd.Lines = []BreakdownLine{{
		Description:    "Staff hours (flat rate)",
		Hours:          hours,
		Multiplier:     one,
		ContractorRate: RoundCents(rate),
		Amount:         amount,
	}}
	bd.Total = amount
	return bd
}

// computePercentage takes a cut of the non-bonus client gross.
// Per-line detail is kept when the source preserves line amounts; otherwise
// a single aggregate line is produced.
func computePercentage(pct decimal.Decimal, lines []PayLine) RegularBreakdown {
	bd := RegularBreakdown{TotalHours: decimal.Zero, Total: decimal.Zero}
	factor := pct.Div(oneHundred)

	haveLineAmounts := false
	gross := decimal.Zero
	for _, l := range lines {
		gross = gross.Add(l.ClientAmount)
		if !l.ClientAmount.IsZero() {
			haveLineAmounts = true
		}
		if !IsSupplementalLine(l.Description) {
			bd.TotalHours = bd.TotalHours.Add(l.Hours)
		}
	}

	if !haveLineAmounts || gross.IsZero() {
		total := RoundCents(gross.Mul(factor))
		if !gross.IsZero() {
			bd.Lines = []BreakdownLine{{
				Description:    "Percentage of client gross",
				ContractorRate: pct,
				Amount:         total,
			}}
		}
		bd.Total = total
		return bd
	}

	for _, l := range lines {
		if l.ClientAmount.IsZero() {
			continue
		}
		amount := RoundCents(l.ClientAmount.Mul(factor))
		bd.Lines = append(bd.Lines, BreakdownLine{
			Description:    l.Description,
			Hours:          l.Hours,
			Multiplier:     l.Multiplier,
			ContractorRate: pct,
			Amount:         amount,
		})
		bd.Total = bd.Total.Add(amount)
	}
	return bd
}
