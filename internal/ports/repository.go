package ports

import (
	"context"

	"tradejournal/internal/domain"
)

// AccountRepository defines the interface for storing and retrieving accounts.
type AccountRepository interface {
	// CreateAccount saves a new account.
	CreateAccount(ctx context.Context, acct *domain.Account) error
	// FindAccountByNumber retrieves an account by its broker account number.
	// Returns nil, nil if not found.
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	// UpdateAccountTimezone changes the reporting timezone of an account.
	UpdateAccountTimezone(ctx context.Context, accountID, timezone string) error
}

// ExecutionRepository defines the interface for storing and retrieving raw executions.
type ExecutionRepository interface {
	// InsertExecutions saves a batch of new executions.
	InsertExecutions(ctx context.Context, execs []*domain.Execution) error
	// FindExecutionsByAccount retrieves all executions for an account,
	// ordered by timestamp then source execution id.
	FindExecutionsByAccount(ctx context.Context, accountID string) ([]*domain.Execution, error)
	// FindSourceExecutionIDs retrieves the set of broker execution ids already
	// stored for an account. Used by the importer for deduplication.
	FindSourceExecutionIDs(ctx context.Context, accountID string) (map[string]bool, error)
}

// TradeRepository defines the interface for storing and retrieving reconstructed
// trades and their per-day P&L attribution.
type TradeRepository interface {
	// ReplaceForAccount atomically replaces every trade, trade/execution link,
	// and trade-day row for the account with the supplied rebuilt set. Either
	// all rows are replaced or, on failure, the prior rows are left untouched.
	ReplaceForAccount(ctx context.Context, accountID string, trades []*domain.Trade, links []*domain.TradeExecution, days []*domain.TradeDay) error
	// FindTradesByAccount retrieves all trades for an account, ordered by open time.
	FindTradesByAccount(ctx context.Context, accountID string) ([]*domain.Trade, error)
	// FindTradeDaysByAccount retrieves all trade-day rows for an account,
	// ordered by local date.
	FindTradeDaysByAccount(ctx context.Context, accountID string) ([]*domain.TradeDay, error)
	// FindLinksByTrade retrieves the execution links for one trade.
	FindLinksByTrade(ctx context.Context, tradeID string) ([]*domain.TradeExecution, error)
}
