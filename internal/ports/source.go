package ports

import (
	"context"

	"tradejournal/internal/domain"
)

// ExecutionSource defines the interface for adapters that pull executions from
// an external broker API. File-based sources (e.g., Flex Query reports) are
// parsed directly and fed to the importer instead.
type ExecutionSource interface {
	// FetchExecutions retrieves the account's fill history for the given
	// symbols, normalized to domain executions (UTC timestamps, positive
	// quantities, commission magnitudes).
	FetchExecutions(ctx context.Context, accountID string, symbols []string) ([]*domain.Execution, error)
}
