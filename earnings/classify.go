/*
classify.go - Pay line classification for untagged paystub lines

PURPOSE:
  Parsed paystubs from some clients arrive without bonus flags or multipliers.
  This file classifies line descriptions (bonus vs regular vs supplemental)
  and derives rate multipliers from the client's own rate structure, so the
  rate calculator can run on raw parser output.

CLASSIFICATION RULES:
  - "Overtime Premium" and "Education Differential" are REGULAR earnings
    companions, not bonuses; their hours duplicate base-line hours.
  - Bonus keywords (bonus, incentive, commission, ...) mark bonus lines.
  - Anything unclear is treated as regular: the safer assumption, since
    misclassifying regular pay as a bonus would halve the payee's share.
*/
package earnings

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Keywords that identify bonus line items.
var bonusKeywords = []string{
	"bonus",
	"incentive",
	"commission",
	"retention",
	"referral",
	"award",
	"stipend",
	"gift card",
	"gift",
}

// Keywords that identify regular earnings. Checked before bonus keywords so
// "Overtime Premium" never matches as a bonus.
var regularKeywords = []string{
	"regular",
	"overtime",
	"overtime premium",
	"education differential",
	"shift differential",
	"holiday",
	"vacation",
	"sick",
	"pto",
	"personal time",
}

// Supplemental earning types that duplicate hours from base lines. Their
// dollar amounts count toward client gross, but their hours must not be
// summed and they earn the contractor nothing independently.
var supplementalHourKeywords = []string{
	"premium",
	"differential",
	"group term life",
	"gtl",
	"gross up",
}

func containsAny(desc string, keywords []string) bool {
	desc = strings.ToLower(desc)
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// IsBonusDescription reports whether a line description names a bonus item.
func IsBonusDescription(desc string) bool {
	if containsAny(desc, regularKeywords) {
		return false
	}
	return containsAny(desc, bonusKeywords)
}

// IsSupplementalLine reports whether a line's hours duplicate a base line.
func IsSupplementalLine(desc string) bool {
	return containsAny(desc, supplementalHourKeywords)
}

// ClassifyLines sets IsBonus on each line from its description.
// Lines already flagged as bonuses are left alone.
func ClassifyLines(lines []PayLine) []PayLine {
	out := make([]PayLine, len(lines))
	copy(out, lines)
	for i := range out {
		if !out[i].IsBonus {
			out[i].IsBonus = IsBonusDescription(out[i].Description)
		}
	}
	return out
}

// NormalizeLines prepares raw parser output for the rate calculator.
// Untagged bonus lines are flagged from their descriptions, and lines
// missing a multiplier get one derived from the client's rate structure.
// Caller-supplied flags and multipliers are never overwritten.
func NormalizeLines(lines []PayLine) []PayLine {
	out := ClassifyLines(lines)
	base, _ := BaseRate(out)
	hasOT := HasOvertimePremium(out)
	for i := range out {
		if out[i].IsBonus || !out[i].Multiplier.IsZero() {
			continue
		}
		if m, ok := DeriveMultiplier(out[i].Description, out[i].ClientRate, base, hasOT); ok {
			out[i].Multiplier = m
		}
	}
	return out
}

// =============================================================================
// MULTIPLIER DERIVATION - From the client's own rate structure
// =============================================================================

var (
	half       = MustDecimal("0.5")
	oneAndHalf = MustDecimal("1.5")
	two        = decimal.NewFromInt(2)
)

// BaseRate extracts the base hourly rate from the "Regular" line, if any.
func BaseRate(lines []PayLine) (decimal.Decimal, bool) {
	for _, l := range lines {
		if strings.Contains(strings.ToLower(l.Description), "regular") && l.ClientRate.IsPositive() {
			return l.ClientRate, true
		}
	}
	return decimal.Zero, false
}

// HasOvertimePremium reports whether an "Overtime Premium" companion line exists.
func HasOvertimePremium(lines []PayLine) bool {
	for _, l := range lines {
		if strings.Contains(strings.ToLower(l.Description), "overtime premium") {
			return true
		}
	}
	return false
}

// DeriveMultiplier determines the rate multiplier for an untagged line.
//
// Overtime with a premium companion is time and a half. Other types are
// derived by comparing the line rate to the base rate, rounded to the
// nearest 0.5 (handles 1.0, 1.5, 2.0). Supplemental lines return ok=false
// and should be skipped.
func DeriveMultiplier(desc string, lineRate, baseRate decimal.Decimal, hasOTPremium bool) (decimal.Decimal, bool) {
	lower := strings.ToLower(desc)

	if containsAny(lower, supplementalHourKeywords) {
		return decimal.Zero, false
	}

	if strings.Contains(lower, "double time") {
		return two, true
	}

	if strings.Contains(lower, "overtime") {
		if hasOTPremium {
			return oneAndHalf, true
		}
		if m, ok := ratioToHalf(lineRate, baseRate); ok {
			return m, true
		}
		return oneAndHalf, true // default OT
	}

	if m, ok := ratioToHalf(lineRate, baseRate); ok {
		return m, true
	}
	return decimal.NewFromInt(1), true
}

// ratioToHalf rounds lineRate/baseRate to the nearest 0.5.
func ratioToHalf(lineRate, baseRate decimal.Decimal) (decimal.Decimal, bool) {
	if !baseRate.IsPositive() || !lineRate.IsPositive() {
		return decimal.Zero, false
	}
	raw := lineRate.Div(baseRate)
	return raw.Div(half).Round(0).Mul(half), true
}
