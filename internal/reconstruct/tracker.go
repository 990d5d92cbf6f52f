package reconstruct

import (
	"math"
	"time"

	"tradejournal/internal/domain"
)

// positionState is the explicit state of one instrument's position.
type positionState int

const (
	stateFlat positionState = iota
	stateLong
	stateShort
)

// execEvent records how one execution (or a portion of it, for flips)
// contributed to a trade. Events are the raw material for execution links and
// per-day P&L attribution.
type execEvent struct {
	executionID    string
	timestamp      time.Time
	role           domain.ExecutionRole
	signedQuantity float64
	commission     float64
	gross          float64 // realized gross from this event's matched slices
	quantityClosed float64
	lotCount       int // number of lot slices matched by this event
}

// tradeBuilder accumulates one trade while its instrument's executions are
// replayed. Builders are turned into persisted rows only after the whole
// account rebuilds without error.
type tradeBuilder struct {
	symbol    string
	conID     int64
	direction domain.Direction

	openedAt time.Time
	closedAt time.Time
	status   domain.TradeStatus

	quantityOpened float64
	quantityClosed float64
	gross          float64
	commissions    float64

	sequence int // per-instrument open order, for deterministic output
	events   []execEvent
}

// positionTracker replays one instrument's time-ordered executions through the
// FLAT/LONG/SHORT state machine, delegating inventory to the lot queue.
type positionTracker struct {
	symbol string
	conID  int64

	state    positionState
	lots     lotQueue
	current  *tradeBuilder
	finished []*tradeBuilder
	sequence int
}

func newPositionTracker(symbol string, conID int64) *positionTracker {
	return &positionTracker{symbol: symbol, conID: conID, state: stateFlat}
}

// process applies one execution to the position. Executions must arrive in
// strict (timestamp, source id) order.
func (t *positionTracker) process(exe *domain.Execution) error {
	signed := exe.SignedQuantity()

	switch t.state {
	case stateFlat:
		t.openTrade(exe, signed, exe.Commission)
	case stateLong:
		if signed > 0 {
			t.accumulate(exe, signed)
		} else {
			return t.reduce(exe, signed)
		}
	case stateShort:
		if signed < 0 {
			t.accumulate(exe, signed)
		} else {
			return t.reduce(exe, signed)
		}
	}
	return nil
}

// finish returns every trade seen for this instrument, the still-open one (if
// any) last, in open order.
func (t *positionTracker) finish() []*tradeBuilder {
	out := t.finished
	if t.current != nil {
		out = append(out, t.current)
	}
	return out
}

// openTrade starts a new trade from FLAT with the given signed portion of the
// execution as its first lot. The commission is passed separately because a
// flip splits one execution's commission across two trades.
func (t *positionTracker) openTrade(exe *domain.Execution, signed, commission float64) {
	direction := domain.Long
	nextState := stateLong
	if signed < 0 {
		direction = domain.Short
		nextState = stateShort
	}

	qty := math.Abs(signed)
	b := &tradeBuilder{
		symbol:         t.symbol,
		conID:          t.conID,
		direction:      direction,
		openedAt:       exe.TimestampUTC,
		status:         domain.StatusOpen,
		quantityOpened: qty,
		commissions:    commission,
		sequence:       t.sequence,
	}
	t.sequence++
	b.events = append(b.events, execEvent{
		executionID:    exe.ID,
		timestamp:      exe.TimestampUTC,
		role:           domain.RoleOpen,
		signedQuantity: signed,
		commission:     commission,
	})

	t.lots.add(openLot{
		executionID: exe.ID,
		acquiredAt:  exe.TimestampUTC,
		price:       exe.Price,
		quantity:    qty,
	})
	t.current = b
	t.state = nextState
}

// accumulate adds a same-direction execution to the open trade as a new lot.
func (t *positionTracker) accumulate(exe *domain.Execution, signed float64) {
	qty := math.Abs(signed)
	t.current.quantityOpened += qty
	t.current.commissions += exe.Commission
	t.current.events = append(t.current.events, execEvent{
		executionID:    exe.ID,
		timestamp:      exe.TimestampUTC,
		role:           domain.RoleOpen,
		signedQuantity: signed,
		commission:     exe.Commission,
	})
	t.lots.add(openLot{
		executionID: exe.ID,
		acquiredAt:  exe.TimestampUTC,
		price:       exe.Price,
		quantity:    qty,
	})
}

// reduce applies an opposing execution: a partial close, a full close, or a
// flip. On a flip the position is closed exactly at the zero crossing and the
// remainder immediately opens a new trade in the opposite direction.
func (t *positionTracker) reduce(exe *domain.Execution, signed float64) error {
	position := t.lots.total()
	closeQty := math.Min(math.Abs(signed), position)
	remainder := math.Abs(signed) - closeQty

	matches, err := t.lots.consume(closeQty)
	if err != nil {
		return err
	}

	var gross float64
	for _, m := range matches {
		if t.state == stateLong {
			gross += (exe.Price - m.price) * m.quantity
		} else {
			gross += (m.price - exe.Price) * m.quantity
		}
	}

	// A flip splits the execution's commission pro-rata by quantity so trade
	// commission totals always sum to the imported commissions.
	closeCommission := exe.Commission
	openCommission := 0.0
	if remainder > qtyEpsilon {
		closeCommission = exe.Commission * closeQty / math.Abs(signed)
		openCommission = exe.Commission - closeCommission
	}

	signedClose := closeQty
	if signed < 0 {
		signedClose = -closeQty
	}

	b := t.current
	b.quantityClosed += closeQty
	b.gross += gross
	b.commissions += closeCommission
	b.events = append(b.events, execEvent{
		executionID:    exe.ID,
		timestamp:      exe.TimestampUTC,
		role:           domain.RoleClose,
		signedQuantity: signedClose,
		commission:     closeCommission,
		gross:          gross,
		quantityClosed: closeQty,
		lotCount:       len(matches),
	})

	if t.lots.total() <= qtyEpsilon {
		b.status = domain.StatusClosed
		b.closedAt = exe.TimestampUTC
		t.finished = append(t.finished, b)
		t.current = nil
		t.state = stateFlat
	}

	if remainder > qtyEpsilon {
		signedRemainder := remainder
		if signed < 0 {
			signedRemainder = -remainder
		}
		t.openTrade(exe, signedRemainder, openCommission)
	}
	return nil
}
