package picking

import "github.com/shopspring/decimal"

// LineStatus is the picking/delivery progress of one document line
type LineStatus string

const (
	LineStatusCreated    LineStatus = "CREATED"
	LineStatusInProgress LineStatus = "IN_PROGRESS"
	LineStatusCompleted  LineStatus = "COMPLETED"
)

// String returns the string representation
func (s LineStatus) String() string {
	return string(s)
}

// LineStatusFor derives the line status from cumulative picked/delivered
// quantity against the ordered quantity
func LineStatusFor(cumulativeQty, orderedQty decimal.Decimal) LineStatus {
	if cumulativeQty.GreaterThanOrEqual(orderedQty) && orderedQty.GreaterThan(decimal.Zero) {
		return LineStatusCompleted
	}
	if cumulativeQty.GreaterThan(decimal.Zero) {
		return LineStatusInProgress
	}
	return LineStatusCreated
}
