package inventory

import "github.com/shopspring/decimal"

// ApplyCostedReceipt computes the moving-average cost after receiving stock.
//
// totalStock is the product's stock across all warehouses before the receipt,
// quantity and unitCost describe the receipt in base units, currentAverage is
// the product's average cost before the receipt. When no stock exists the
// receipt cost replaces the average outright. The result is rounded to four
// decimal places.
//
//	newAvg = (currentAverage*totalStock + unitCost*quantity) / (totalStock + quantity)
func ApplyCostedReceipt(totalStock, quantity, unitCost, currentAverage decimal.Decimal) decimal.Decimal {
	if totalStock.LessThanOrEqual(decimal.Zero) {
		return unitCost.Round(4)
	}
	existingValue := currentAverage.Mul(totalStock)
	incomingValue := unitCost.Mul(quantity)
	newTotal := totalStock.Add(quantity)
	if newTotal.LessThanOrEqual(decimal.Zero) {
		return unitCost.Round(4)
	}
	return existingValue.Add(incomingValue).Div(newTotal).Round(4)
}
