// Package detector implements the no-arbitrage rule for binary markets:
// buying both outcomes is profitable when Yes + No < 1 - margin.
package detector

// Verdict is the result of evaluating one price pair.
type Verdict struct {
	IsOpportunity bool
	Profit        float64
}

// Evaluate applies the arbitrage rule to a Yes/No price pair. It is
// pure and total: any finite inputs produce a result, including
// negative or >1 prices, since upstream data cannot be fully trusted.
func Evaluate(yesPrice, noPrice, margin float64) Verdict {
	total := yesPrice + noPrice
	if total < 1.0-margin {
		profit := 1.0 - total
		if profit < 0 {
			profit = 0
		}
		return Verdict{IsOpportunity: true, Profit: profit}
	}
	return Verdict{IsOpportunity: false, Profit: 0}
}
