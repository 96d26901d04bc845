package ledger

import "github.com/shopspring/decimal"

// costScale is the decimal scale applied to computed unit costs.
const costScale = 6

// NewAverageCost blends addQty units received at addCost into an existing
// position of oldQty units at oldCost and returns the new weighted-average
// unit cost. Pure function, used by the balance store on every increase.
// When the resulting quantity is zero the previous cost is kept unchanged.
func NewAverageCost(oldQty, oldCost, addQty, addCost decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(addQty)
	if newQty.IsZero() {
		return oldCost
	}
	total := oldQty.Mul(oldCost).Add(addQty.Mul(addCost))
	return total.DivRound(newQty, costScale)
}
