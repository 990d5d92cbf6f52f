package reconstruct

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Result is the complete rebuilt output for one account: trades, execution
// links, and per-day P&L attribution. It is handed to the trade repository for
// atomic replacement.
type Result struct {
	Trades []*domain.Trade
	Links  []*domain.TradeExecution
	Days   []*domain.TradeDay
}

// ReconstructionError reports an invariant violation during a rebuild with
// enough context to diagnose it. No partial results are persisted when it is
// returned.
type ReconstructionError struct {
	AccountID   string
	Symbol      string
	ExecutionID string
	Err         error
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("reconstruction failed for account %s (symbol %s, execution %s): %v",
		e.AccountID, e.Symbol, e.ExecutionID, e.Err)
}

func (e *ReconstructionError) Unwrap() error { return e.Err }

// Engine orchestrates full trade reconstruction for an account: load
// executions, rebuild trades deterministically, atomically replace the
// persisted rows.
type Engine struct {
	logger ports.Logger
	execs  ports.ExecutionRepository
	trades ports.TradeRepository
}

// Config holds the collaborators the engine needs.
type Config struct {
	Logger     ports.Logger
	Executions ports.ExecutionRepository
	Trades     ports.TradeRepository
}

// NewEngine creates a new reconstruction engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Logger == nil || cfg.Executions == nil || cfg.Trades == nil {
		return nil, fmt.Errorf("missing required dependencies for reconstruction engine")
	}
	return &Engine{logger: cfg.Logger, execs: cfg.Executions, trades: cfg.Trades}, nil
}

// ReconstructAccount rebuilds every trade and trade-day row for the account
// from its full execution set and atomically replaces the persisted rows.
// On failure the previously persisted rows are left untouched.
func (e *Engine) ReconstructAccount(ctx context.Context, account *domain.Account) (*Result, error) {
	loc, err := time.LoadLocation(account.Timezone)
	if err != nil {
		return nil, fmt.Errorf("account %s has invalid timezone %q: %w",
			account.AccountNumber, account.Timezone, ports.ErrConfigurationError)
	}

	executions, err := e.execs.FindExecutionsByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load executions for account %s: %w", account.ID, err)
	}

	result, err := Rebuild(account.ID, executions, loc)
	if err != nil {
		e.logger.Error(ctx, err, "Reconstruction aborted, persisted state untouched",
			map[string]interface{}{"accountID": account.ID})
		return nil, err
	}

	if err := e.trades.ReplaceForAccount(ctx, account.ID, result.Trades, result.Links, result.Days); err != nil {
		return nil, fmt.Errorf("failed to replace trades for account %s: %w", account.ID, err)
	}

	e.logger.Info(ctx, "Account reconstructed", map[string]interface{}{
		"accountID":  account.ID,
		"executions": len(executions),
		"trades":     len(result.Trades),
		"tradeDays":  len(result.Days),
	})
	return result, nil
}

// Rebuild deterministically reconstructs trades, execution links, and
// trade-day rows from an account's full execution set. It is a pure function
// of its inputs: the same executions and timezone always produce the same
// trades, the same totals, and the same day attribution. Callers that only
// changed the reporting timezone can re-run it without touching storage.
func Rebuild(accountID string, executions []*domain.Execution, loc *time.Location) (*Result, error) {
	byInstrument := make(map[string][]*domain.Execution)
	for _, exe := range executions {
		key := exe.InstrumentKey()
		byInstrument[key] = append(byInstrument[key], exe)
	}

	keys := make([]string, 0, len(byInstrument))
	for key := range byInstrument {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builders []*tradeBuilder
	for _, key := range keys {
		partition := byInstrument[key]
		sortExecutions(partition)

		tracker := newPositionTracker(partition[0].Symbol, partition[0].ConID)
		for _, exe := range partition {
			if err := tracker.process(exe); err != nil {
				return nil, &ReconstructionError{
					AccountID:   accountID,
					Symbol:      exe.Symbol,
					ExecutionID: exe.SourceExecutionID,
					Err:         err,
				}
			}
		}
		builders = append(builders, tracker.finish()...)
	}

	// Stable chronological order across instruments, independent of map
	// iteration and of any parallel per-instrument processing.
	sort.SliceStable(builders, func(i, j int) bool {
		if !builders[i].openedAt.Equal(builders[j].openedAt) {
			return builders[i].openedAt.Before(builders[j].openedAt)
		}
		if builders[i].symbol != builders[j].symbol {
			return builders[i].symbol < builders[j].symbol
		}
		return builders[i].sequence < builders[j].sequence
	})

	result := &Result{}
	for i, b := range builders {
		trade := &domain.Trade{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			Symbol:         b.symbol,
			ConID:          b.conID,
			Direction:      b.direction,
			OpenedAtUTC:    b.openedAt,
			ClosedAtUTC:    b.closedAt,
			Status:         b.status,
			QuantityOpened: b.quantityOpened,
			QuantityClosed: b.quantityClosed,
			GrossPnL:       b.gross,
			Commissions:    b.commissions,
			NetPnL:         b.gross - b.commissions,
			// Position in the final order, persisted so retrieval can
			// reproduce this order even when open times collide.
			Sequence: i,
		}
		result.Trades = append(result.Trades, trade)

		for _, ev := range b.events {
			result.Links = append(result.Links, &domain.TradeExecution{
				ID:             uuid.NewString(),
				TradeID:        trade.ID,
				ExecutionID:    ev.executionID,
				SignedQuantity: ev.signedQuantity,
				Role:           ev.role,
			})
		}

		result.Days = append(result.Days, buildTradeDays(trade, b, loc)...)
	}
	return result, nil
}

// dayBucket accumulates one local calendar day's activity for a trade.
type dayBucket struct {
	gross          float64
	commissions    float64
	quantityClosed float64
	lotCount       int
	hasClose       bool
}

// buildTradeDays groups a trade's events by local calendar date, applying the
// weekend roll-back, and materializes one TradeDay row per active day.
func buildTradeDays(trade *domain.Trade, b *tradeBuilder, loc *time.Location) []*domain.TradeDay {
	buckets := make(map[string]*dayBucket)
	for _, ev := range b.events {
		date := TradingDate(ev.timestamp, loc)
		bucket := buckets[date]
		if bucket == nil {
			bucket = &dayBucket{}
			buckets[date] = bucket
		}
		bucket.commissions += ev.commission
		if ev.role == domain.RoleClose {
			bucket.hasClose = true
			bucket.gross += ev.gross
			bucket.quantityClosed += ev.quantityClosed
			bucket.lotCount += ev.lotCount
		}
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var closedDate string
	if b.status == domain.StatusClosed {
		closedDate = TradingDate(b.closedAt, loc)
	}

	days := make([]*domain.TradeDay, 0, len(dates))
	for _, date := range dates {
		bucket := buckets[date]
		status := domain.DayOpened
		switch {
		case bucket.hasClose && date == closedDate:
			status = domain.DayClosed
		case bucket.hasClose:
			status = domain.DayAdjusted
		}
		days = append(days, &domain.TradeDay{
			ID:             uuid.NewString(),
			TradeID:        trade.ID,
			Date:           date,
			Status:         status,
			RealizedGross:  bucket.gross,
			Commissions:    bucket.commissions,
			RealizedNet:    bucket.gross - bucket.commissions,
			QuantityClosed: bucket.quantityClosed,
			LotCount:       bucket.lotCount,
		})
	}
	return days
}

// TradingDate returns the local calendar date ("YYYY-MM-DD") an execution's
// P&L is attributed to. Saturday rolls back one day and Sunday two, so weekend
// fills land on the preceding Friday. Only the bucketing date changes; the
// execution timestamp is never altered. Monday is never rolled back.
func TradingDate(ts time.Time, loc *time.Location) string {
	local := ts.In(loc)
	switch local.Weekday() {
	case time.Saturday:
		local = local.AddDate(0, 0, -1)
	case time.Sunday:
		local = local.AddDate(0, 0, -2)
	}
	return local.Format("2006-01-02")
}

// sortExecutions orders one instrument's executions by the total order used
// throughout reconstruction: timestamp, then source execution id as a stable
// tie-break.
func sortExecutions(executions []*domain.Execution) {
	sort.SliceStable(executions, func(i, j int) bool {
		if !executions[i].TimestampUTC.Equal(executions[j].TimestampUTC) {
			return executions[i].TimestampUTC.Before(executions[j].TimestampUTC)
		}
		return executions[i].SourceExecutionID < executions[j].SourceExecutionID
	})
}
