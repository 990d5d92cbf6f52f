package domain

import "time"

// Trade represents one reconstructed round-trip position on one instrument.
// A trade may span multiple executions (partial fills, partial closes) and
// multiple calendar days.
type Trade struct {
	ID        string // Unique identifier (UUID)
	AccountID string // Owning account
	Symbol    string // Instrument symbol
	ConID     int64  // Broker contract id (0 if unknown)

	Direction Direction // LONG or SHORT at open

	OpenedAtUTC time.Time // Timestamp of the first opening execution
	ClosedAtUTC time.Time // Timestamp of the final closing execution (zero while open)

	Status TradeStatus // open or closed

	QuantityOpened float64 // Total quantity accumulated on the opening side
	QuantityClosed float64 // Total quantity matched against open lots so far

	GrossPnL    float64 // Realized gross P&L across all matched lots
	Commissions float64 // Total commissions attributed to this trade
	NetPnL      float64 // GrossPnL - Commissions

	Sequence int // Position in the rebuilt set; stable tie-break when open times collide
}

// IsOpen reports whether the trade still has unmatched quantity.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// TradeExecution links a trade to one of its contributing executions.
// A flip execution produces two links: a close link on the finished trade and
// an open link on the newly opened one.
type TradeExecution struct {
	ID             string        // Unique identifier (UUID)
	TradeID        string        // Trade this slice of the execution belongs to
	ExecutionID    string        // Contributing execution
	SignedQuantity float64       // Portion of the execution's signed quantity used here
	Role           ExecutionRole // open or close
}
