package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradejournal/config"
	"tradejournal/internal/analytics"
	"tradejournal/internal/domain"
	"tradejournal/internal/importer"
	"tradejournal/internal/ports"
	"tradejournal/internal/reconstruct"
)

// JournalService orchestrates the import → reconstruct → report pipeline for
// one account. All collaborators are injected via ports; the service itself
// holds no state beyond its dependencies.
type JournalService struct {
	cfg      *config.Config
	logger   ports.Logger
	accounts ports.AccountRepository
	trades   ports.TradeRepository
	importer *importer.Importer
	engine   *reconstruct.Engine
}

// NewJournalService creates a new application service instance.
func NewJournalService(
	cfg *config.Config,
	logger ports.Logger,
	accounts ports.AccountRepository,
	trades ports.TradeRepository,
	imp *importer.Importer,
	engine *reconstruct.Engine,
) (*JournalService, error) {
	if cfg == nil || logger == nil || accounts == nil || trades == nil || imp == nil || engine == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService")
	}
	return &JournalService{
		cfg:      cfg,
		logger:   logger,
		accounts: accounts,
		trades:   trades,
		importer: imp,
		engine:   engine,
	}, nil
}

// EnsureAccount finds the account by broker number, creating it with the
// configured timezone and currency if it does not exist yet.
func (s *JournalService) EnsureAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	if accountNumber == "" {
		return nil, fmt.Errorf("account number is empty: %w", ports.ErrInvalidRequest)
	}

	acct, err := s.accounts.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account %s: %w", accountNumber, err)
	}
	if acct != nil {
		return acct, nil
	}

	acct = &domain.Account{
		ID:            uuid.NewString(),
		AccountNumber: accountNumber,
		Currency:      s.cfg.AccountCurrency,
		Timezone:      s.cfg.ReportTimezone,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", accountNumber, err)
	}
	s.logger.Info(ctx, "Account created", map[string]interface{}{
		"accountNumber": accountNumber, "timezone": acct.Timezone})
	return acct, nil
}

// ImportAndReconstruct imports the executions idempotently and rebuilds the
// account's trades from scratch. The rebuild runs even when the import found
// nothing new: executions may have been stored by an earlier run whose rebuild
// failed, so only a fresh rebuild guarantees the persisted trades are current.
func (s *JournalService) ImportAndReconstruct(ctx context.Context, account *domain.Account, executions []*domain.Execution) (*importer.Result, *reconstruct.Result, error) {
	impResult, err := s.importer.Import(ctx, account, executions)
	if err != nil {
		return nil, nil, err
	}
	for _, warn := range impResult.Warnings {
		s.logger.Warn(ctx, warn, map[string]interface{}{"accountID": account.ID})
	}

	if impResult.Inserted == 0 {
		s.logger.Info(ctx, "No new executions imported",
			map[string]interface{}{"accountID": account.ID})
	}

	recResult, err := s.engine.ReconstructAccount(ctx, account)
	if err != nil {
		return impResult, nil, err
	}
	return impResult, recResult, nil
}

// ChangeTimezone updates the account's reporting timezone and re-runs
// reconstruction so the persisted trade-day buckets match the new zone. FIFO
// matching is unaffected by the zone; only day attribution moves.
func (s *JournalService) ChangeTimezone(ctx context.Context, account *domain.Account, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, ports.ErrInvalidRequest)
	}
	if err := s.accounts.UpdateAccountTimezone(ctx, account.ID, timezone); err != nil {
		return err
	}
	account.Timezone = timezone
	_, err := s.engine.ReconstructAccount(ctx, account)
	return err
}

// Overview loads the account's persisted trades and computes summary
// statistics.
func (s *JournalService) Overview(ctx context.Context, account *domain.Account) (analytics.Overview, error) {
	trades, err := s.trades.FindTradesByAccount(ctx, account.ID)
	if err != nil {
		return analytics.Overview{}, fmt.Errorf("failed to load trades for account %s: %w", account.ID, err)
	}
	return analytics.OverviewStats(trades), nil
}
