package reconstruct

import (
	"errors"
	"time"
)

// ErrInsufficientInventory indicates a closing execution tried to consume more
// quantity than the open lots hold. Position tracking guarantees this cannot
// happen for well-formed input, so hitting it aborts the whole reconstruction
// run for the account.
var ErrInsufficientInventory = errors.New("insufficient open lot inventory")

// quantity comparisons tolerate float accumulation error
const qtyEpsilon = 1e-9

// openLot is a quantity of an instrument acquired at a specific price and time,
// tracked until fully matched against later opposing executions. Owned
// exclusively by one instrument's lot queue.
type openLot struct {
	executionID string    // execution that created the lot
	acquiredAt  time.Time // acquisition timestamp (UTC)
	price       float64   // acquisition price
	quantity    float64   // remaining unmatched quantity
}

// lotMatch describes one slice drawn from an open lot by a closing execution.
// Each slice pairs a historical entry price with the current exit price and is
// the unit realized P&L is computed over.
type lotMatch struct {
	executionID string    // execution that created the consumed lot
	acquiredAt  time.Time // acquisition timestamp of the consumed lot
	price       float64   // entry price of the consumed lot
	quantity    float64   // quantity matched from the lot
}

// lotQueue tracks open inventory for one instrument as an ordered FIFO queue of
// acquisition lots. Oldest lot is matched first.
type lotQueue struct {
	lots []openLot
}

// add appends a lot to the tail of the queue.
func (q *lotQueue) add(lot openLot) {
	q.lots = append(q.lots, lot)
}

// total returns the unmatched quantity across all open lots.
func (q *lotQueue) total() float64 {
	var sum float64
	for i := range q.lots {
		sum += q.lots[i].quantity
	}
	return sum
}

// consume removes quantity from the head of the queue, splitting the head lot
// when it holds more than requested, and returns the ordered slices drawn down.
// Returns ErrInsufficientInventory if the queue holds less than requested.
func (q *lotQueue) consume(quantity float64) ([]lotMatch, error) {
	if quantity > q.total()+qtyEpsilon {
		return nil, ErrInsufficientInventory
	}

	matches := make([]lotMatch, 0, 1)
	remaining := quantity
	for remaining > qtyEpsilon && len(q.lots) > 0 {
		head := &q.lots[0]
		matched := head.quantity
		if matched > remaining {
			matched = remaining
		}

		matches = append(matches, lotMatch{
			executionID: head.executionID,
			acquiredAt:  head.acquiredAt,
			price:       head.price,
			quantity:    matched,
		})

		remaining -= matched
		head.quantity -= matched
		if head.quantity <= qtyEpsilon {
			q.lots = q.lots[1:]
		}
	}
	return matches, nil
}
