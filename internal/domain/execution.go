package domain

import (
	"fmt"
	"time"
)

// Execution represents one raw buy/sell fill reported by the broker.
// Executions are immutable once imported; the reconstruction engine only reads them.
type Execution struct {
	ID                string    // Unique identifier (UUID)
	AccountID         string    // Owning account
	SourceExecutionID string    // Broker-assigned execution id, unique per account
	Symbol            string    // Instrument symbol (e.g., "AAPL")
	ConID             int64     // Broker contract/instrument id (0 if unknown)
	TimestampUTC      time.Time // Execution time in UTC
	Side              Side      // BUY or SELL
	Quantity          float64   // Filled quantity, always positive
	Price             float64   // Fill price, always positive
	Commission        float64   // Commission magnitude, always >= 0
	Exchange          string    // Venue the fill occurred on (optional)
	OrderType         string    // Order type reported by the broker (optional)
	Currency          string    // Trade currency
}

// SignedQuantity returns the quantity signed by side: positive for BUY,
// negative for SELL.
func (e *Execution) SignedQuantity() float64 {
	if e.Side == Sell {
		return -e.Quantity
	}
	return e.Quantity
}

// InstrumentKey identifies the instrument an execution belongs to. The broker
// contract id wins when present so that symbol reuse cannot merge instruments.
func (e *Execution) InstrumentKey() string {
	if e.ConID != 0 {
		return fmt.Sprintf("%d#%s", e.ConID, e.Symbol)
	}
	return e.Symbol
}
