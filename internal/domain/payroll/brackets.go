package payroll

import "github.com/shopspring/decimal"

// BracketShare is the slice of taxable income that falls in one bracket.
type BracketShare struct {
	Bracket TaxBracket
	Amount  int64
	Tax     decimal.Decimal
}

// SplitIncome walks the brackets in ascending order and assigns each unit of
// income to exactly one bracket. Non-positive income yields no shares.
func SplitIncome(taxableIncome int64, brackets []TaxBracket) []BracketShare {
	remaining := taxableIncome
	shares := make([]BracketShare, 0, len(brackets))
	for _, bracket := range brackets {
		if remaining <= 0 {
			break
		}
		portion := remaining
		if limit, ok := bracket.Upper.Limit(); ok {
			if width := limit - bracket.Lower; width < portion {
				portion = width
			}
		}
		shares = append(shares, BracketShare{
			Bracket: bracket,
			Amount:  portion,
			Tax:     decimal.NewFromInt(portion).Mul(bracket.Rate),
		})
		remaining -= portion
	}
	return shares
}

// ComputeTax applies the progressive table and rounds once, on the total.
func ComputeTax(taxableIncome int64, brackets []TaxBracket) int64 {
	total := decimal.Zero
	for _, share := range SplitIncome(taxableIncome, brackets) {
		total = total.Add(share.Tax)
	}
	return roundGNF(total)
}

func roundGNF(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

func applyRate(amount int64, rate decimal.Decimal) int64 {
	return roundGNF(decimal.NewFromInt(amount).Mul(rate))
}
