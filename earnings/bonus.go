package earnings

import "github.com/shopspring/decimal"

// =============================================================================
// BONUS SPLITTER - Contractor's share of client bonus line items
// =============================================================================

// SplitBonus computes the contractor's share of each bonus line.
//
// Each share is client_amount x (splitPct / 100), rounded to cents per line
// so the item shares always sum to ContractorShare exactly. Zero bonus lines
// produce an empty breakdown, not an error; callers treat Empty() breakdowns
// as absent.
func SplitBonus(lines []PayLine, splitPct decimal.Decimal) BonusBreakdown {
	bd := BonusBreakdown{
		BonusTotal:      decimal.Zero,
		ContractorShare: decimal.Zero,
		SplitPercentage: splitPct,
	}
	factor := splitPct.Div(oneHundred)

	for _, l := range lines {
		if !l.IsBonus {
			continue
		}
		share := RoundCents(l.ClientAmount.Mul(factor))
		bd.Items = append(bd.Items, BonusItem{
			Description:  l.Description,
			ClientAmount: l.ClientAmount,
			Share:        share,
		})
		bd.BonusTotal = bd.BonusTotal.Add(l.ClientAmount)
		bd.ContractorShare = bd.ContractorShare.Add(share)
	}
	return bd
}
