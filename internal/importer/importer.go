// Package importer binds parsed executions to a stored account and inserts
// them idempotently: duplicates within one batch and against the repository
// are skipped, so re-importing the same report never creates new rows.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Importer performs idempotent execution imports.
type Importer struct {
	execs  ports.ExecutionRepository
	logger ports.Logger
}

// New creates a new importer.
func New(execs ports.ExecutionRepository, logger ports.Logger) (*Importer, error) {
	if execs == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for importer")
	}
	return &Importer{execs: execs, logger: logger}, nil
}

// Result summarizes one import run.
type Result struct {
	Parsed   int      // executions received from the source
	Inserted int      // executions newly stored
	Warnings []string // skipped duplicates and rejects
}

// Import stores the executions that are new for the account. Each inserted
// execution gets a fresh id and is bound to the account; executions whose
// source id already exists (in the batch or in storage) are skipped with a
// warning.
func (i *Importer) Import(ctx context.Context, account *domain.Account, executions []*domain.Execution) (*Result, error) {
	result := &Result{Parsed: len(executions)}

	existing, err := i.execs.FindSourceExecutionIDs(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored execution ids for account %s: %w", account.ID, err)
	}

	seenInBatch := make(map[string]bool)
	toInsert := make([]*domain.Execution, 0, len(executions))
	for _, exe := range executions {
		sourceID := strings.TrimSpace(exe.SourceExecutionID)
		if sourceID == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped execution with missing source id: %s", exe.Symbol))
			continue
		}
		if seenInBatch[sourceID] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped duplicate in batch: %s %s", exe.Symbol, sourceID))
			continue
		}
		seenInBatch[sourceID] = true
		if existing[sourceID] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped duplicate already stored: %s %s", exe.Symbol, sourceID))
			continue
		}

		exe.ID = uuid.NewString()
		exe.AccountID = account.ID
		exe.SourceExecutionID = sourceID
		toInsert = append(toInsert, exe)
	}

	if len(toInsert) > 0 {
		if err := i.execs.InsertExecutions(ctx, toInsert); err != nil {
			return nil, fmt.Errorf("failed to insert executions for account %s: %w", account.ID, err)
		}
	}
	result.Inserted = len(toInsert)

	i.logger.Info(ctx, "Executions imported", map[string]interface{}{
		"accountID": account.ID,
		"parsed":    result.Parsed,
		"inserted":  result.Inserted,
		"skipped":   result.Parsed - result.Inserted,
	})
	return result, nil
}
