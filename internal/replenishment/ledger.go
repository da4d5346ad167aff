package replenishment

// Ledger tracks the warehouse stock still available for one product. It is a
// value: Take returns the next ledger instead of mutating the receiver, so an
// allocation pass owns its counter and products can be allocated in parallel.
type Ledger struct {
	ProductID int64
	Unit      int
	Remaining int
}

// NewLedger opens a ledger for a product. Negative stock is treated as empty.
func NewLedger(productID int64, unit, stock int) Ledger {
	return Ledger{ProductID: productID, Unit: max(unit, 1), Remaining: max(stock, 0)}
}

// Exhausted reports whether less than one ordering unit is left.
func (l Ledger) Exhausted() bool {
	return l.Remaining < l.Unit
}

// Fit returns the largest multiple of the unit not above qty that the
// remaining stock can cover.
func (l Ledger) Fit(qty int) int {
	if qty <= 0 || l.Exhausted() {
		return 0
	}
	return roundDown(min(qty, l.Remaining), l.Unit)
}

// Take grants as much of qty as fits and returns the granted quantity with
// the updated ledger.
func (l Ledger) Take(qty int) (int, Ledger) {
	granted := l.Fit(qty)
	l.Remaining -= granted
	return granted, l
}
