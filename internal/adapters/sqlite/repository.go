package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.AccountRepository, ports.ExecutionRepository and
// ports.TradeRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradejournal.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		account_number TEXT NOT NULL UNIQUE,
		currency TEXT NOT NULL,
		timezone TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		source_execution_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		conid INTEGER NOT NULL DEFAULT 0,
		ts_utc TIMESTAMP NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		commission REAL NOT NULL,
		exchange TEXT NOT NULL DEFAULT '',
		order_type TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'USD',
		UNIQUE (account_id, source_execution_id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		conid INTEGER NOT NULL DEFAULT 0,
		direction TEXT NOT NULL,
		opened_at_utc TIMESTAMP NOT NULL,
		closed_at_utc TIMESTAMP DEFAULT NULL,
		status TEXT NOT NULL,
		quantity_opened REAL NOT NULL,
		quantity_closed REAL NOT NULL,
		gross_pnl REAL NOT NULL,
		commissions REAL NOT NULL,
		net_pnl REAL NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS trade_executions (
		id TEXT PRIMARY KEY,
		trade_id TEXT NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		execution_id TEXT NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
		signed_qty REAL NOT NULL,
		role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_days (
		id TEXT PRIMARY KEY,
		trade_id TEXT NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		day_date_local TEXT NOT NULL,
		day_status TEXT NOT NULL,
		realized_gross REAL NOT NULL,
		commissions REAL NOT NULL,
		realized_net REAL NOT NULL,
		quantity_closed REAL NOT NULL,
		lot_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_account_ts ON executions (account_id, ts_utc, source_execution_id);
	CREATE INDEX IF NOT EXISTS idx_trades_account_opened ON trades (account_id, opened_at_utc);
	CREATE INDEX IF NOT EXISTS idx_trade_executions_trade ON trade_executions (trade_id);
	CREATE INDEX IF NOT EXISTS idx_trade_days_trade_date ON trade_days (trade_id, day_date_local);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- AccountRepository Implementation ---

// CreateAccount saves a new account.
func (r *Repository) CreateAccount(ctx context.Context, acct *domain.Account) error {
	const query = `
	INSERT INTO accounts (id, account_number, currency, timezone, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		acct.ID, acct.AccountNumber, acct.Currency, acct.Timezone, acct.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account %s: %w", acct.AccountNumber, err)
	}
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": acct.ID, "number": acct.AccountNumber})
	return nil
}

// FindAccountByNumber retrieves an account by its broker account number.
func (r *Repository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	const query = `
	SELECT id, account_number, currency, timezone, created_at
	FROM accounts WHERE account_number = ?`

	acct := &domain.Account{}
	err := r.db.QueryRowContext(ctx, query, accountNumber).Scan(
		&acct.ID, &acct.AccountNumber, &acct.Currency, &acct.Timezone, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query account %s: %w", accountNumber, err)
	}
	return acct, nil
}

// UpdateAccountTimezone changes the reporting timezone of an account.
func (r *Repository) UpdateAccountTimezone(ctx context.Context, accountID, timezone string) error {
	const query = `UPDATE accounts SET timezone = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, timezone, accountID)
	if err != nil {
		return fmt.Errorf("failed to update timezone for account %s: %w", accountID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for account %s: %w", accountID, err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s not found for update: %w", accountID, ports.ErrNotFound)
	}
	return nil
}

// --- ExecutionRepository Implementation ---

// InsertExecutions saves a batch of new executions in one transaction.
func (r *Repository) InsertExecutions(ctx context.Context, execs []*domain.Execution) error {
	if len(execs) == 0 {
		return nil
	}
	const query = `
	INSERT INTO executions (id, account_id, source_execution_id, symbol, conid, ts_utc,
	                        side, quantity, price, commission, exchange, order_type, currency)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin execution insert: %w", err)
	}
	defer tx.Rollback()

	for _, exe := range execs {
		if _, err := tx.ExecContext(ctx, query,
			exe.ID, exe.AccountID, exe.SourceExecutionID, exe.Symbol, exe.ConID, exe.TimestampUTC,
			exe.Side, exe.Quantity, exe.Price, exe.Commission, exe.Exchange, exe.OrderType, exe.Currency,
		); err != nil {
			return fmt.Errorf("failed to insert execution %s: %w", exe.SourceExecutionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit execution insert: %w", err)
	}
	r.logger.Debug(ctx, "Executions inserted", map[string]interface{}{"count": len(execs)})
	return nil
}

// FindExecutionsByAccount retrieves all executions for an account in the total
// order used by reconstruction: timestamp, then source execution id.
func (r *Repository) FindExecutionsByAccount(ctx context.Context, accountID string) ([]*domain.Execution, error) {
	const query = `
	SELECT id, account_id, source_execution_id, symbol, conid, ts_utc,
	       side, quantity, price, commission, exchange, order_type, currency
	FROM executions
	WHERE account_id = ?
	ORDER BY ts_utc, source_execution_id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	executions := make([]*domain.Execution, 0)
	for rows.Next() {
		exe, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, exe)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}
	return executions, nil
}

// FindSourceExecutionIDs retrieves the set of broker execution ids already
// stored for an account.
func (r *Repository) FindSourceExecutionIDs(ctx context.Context, accountID string) (map[string]bool, error) {
	const query = `SELECT source_execution_id FROM executions WHERE account_id = ?`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution ids for account %s: %w", accountID, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan execution id: %w", err)
		}
		ids[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution id rows: %w", err)
	}
	return ids, nil
}

// --- TradeRepository Implementation ---

// ReplaceForAccount atomically replaces the account's trades, execution links,
// and trade-day rows with the rebuilt set. A failure rolls the transaction
// back, leaving the previously persisted rows untouched.
func (r *Repository) ReplaceForAccount(ctx context.Context, accountID string, trades []*domain.Trade, links []*domain.TradeExecution, days []*domain.TradeDay) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trade replace for account %s: %w", accountID, err)
	}
	defer tx.Rollback()

	// Child rows first; cascade would also handle them but keeps the intent
	// explicit when foreign keys are off.
	for _, stmt := range []string{
		`DELETE FROM trade_days WHERE trade_id IN (SELECT id FROM trades WHERE account_id = ?)`,
		`DELETE FROM trade_executions WHERE trade_id IN (SELECT id FROM trades WHERE account_id = ?)`,
		`DELETE FROM trades WHERE account_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, accountID); err != nil {
			return fmt.Errorf("failed to delete prior trades for account %s: %w", accountID, err)
		}
	}

	const tradeQuery = `
	INSERT INTO trades (id, account_id, symbol, conid, direction, opened_at_utc, closed_at_utc,
	                    status, quantity_opened, quantity_closed, gross_pnl, commissions, net_pnl, seq)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, t := range trades {
		var closedAt sql.NullTime
		if !t.ClosedAtUTC.IsZero() {
			closedAt = sql.NullTime{Time: t.ClosedAtUTC, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, tradeQuery,
			t.ID, t.AccountID, t.Symbol, t.ConID, t.Direction, t.OpenedAtUTC, closedAt,
			t.Status, t.QuantityOpened, t.QuantityClosed, t.GrossPnL, t.Commissions, t.NetPnL, t.Sequence,
		); err != nil {
			return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
		}
	}

	const linkQuery = `
	INSERT INTO trade_executions (id, trade_id, execution_id, signed_qty, role)
	VALUES (?, ?, ?, ?, ?)`
	for _, l := range links {
		if _, err := tx.ExecContext(ctx, linkQuery,
			l.ID, l.TradeID, l.ExecutionID, l.SignedQuantity, l.Role,
		); err != nil {
			return fmt.Errorf("failed to insert trade execution link %s: %w", l.ID, err)
		}
	}

	const dayQuery = `
	INSERT INTO trade_days (id, trade_id, day_date_local, day_status, realized_gross,
	                        commissions, realized_net, quantity_closed, lot_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, d := range days {
		if _, err := tx.ExecContext(ctx, dayQuery,
			d.ID, d.TradeID, d.Date, d.Status, d.RealizedGross,
			d.Commissions, d.RealizedNet, d.QuantityClosed, d.LotCount,
		); err != nil {
			return fmt.Errorf("failed to insert trade day %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade replace for account %s: %w", accountID, err)
	}
	r.logger.Debug(ctx, "Trades replaced", map[string]interface{}{
		"accountID": accountID, "trades": len(trades), "tradeDays": len(days)})
	return nil
}

// FindTradesByAccount retrieves all trades for an account, ordered by open
// time with the persisted rebuild sequence as the tie-break, so retrieval
// order always matches rebuild order.
func (r *Repository) FindTradesByAccount(ctx context.Context, accountID string) ([]*domain.Trade, error) {
	const query = `
	SELECT id, account_id, symbol, conid, direction, opened_at_utc, closed_at_utc,
	       status, quantity_opened, quantity_closed, gross_pnl, commissions, net_pnl, seq
	FROM trades
	WHERE account_id = ?
	ORDER BY opened_at_utc, symbol, seq`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for account %s: %w", accountID, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// FindTradeDaysByAccount retrieves all trade-day rows for an account, ordered
// by local date.
func (r *Repository) FindTradeDaysByAccount(ctx context.Context, accountID string) ([]*domain.TradeDay, error) {
	const query = `
	SELECT td.id, td.trade_id, td.day_date_local, td.day_status, td.realized_gross,
	       td.commissions, td.realized_net, td.quantity_closed, td.lot_count
	FROM trade_days td
	JOIN trades t ON t.id = td.trade_id
	WHERE t.account_id = ?
	ORDER BY td.day_date_local, td.trade_id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade days for account %s: %w", accountID, err)
	}
	defer rows.Close()

	days := make([]*domain.TradeDay, 0)
	for rows.Next() {
		day := &domain.TradeDay{}
		if err := rows.Scan(
			&day.ID, &day.TradeID, &day.Date, &day.Status, &day.RealizedGross,
			&day.Commissions, &day.RealizedNet, &day.QuantityClosed, &day.LotCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade day: %w", err)
		}
		days = append(days, day)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade day rows: %w", err)
	}
	return days, nil
}

// FindLinksByTrade retrieves the execution links for one trade.
func (r *Repository) FindLinksByTrade(ctx context.Context, tradeID string) ([]*domain.TradeExecution, error) {
	const query = `
	SELECT id, trade_id, execution_id, signed_qty, role
	FROM trade_executions
	WHERE trade_id = ?
	ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links for trade %s: %w", tradeID, err)
	}
	defer rows.Close()

	links := make([]*domain.TradeExecution, 0)
	for rows.Next() {
		link := &domain.TradeExecution{}
		var role string
		if err := rows.Scan(&link.ID, &link.TradeID, &link.ExecutionID, &link.SignedQuantity, &role); err != nil {
			return nil, fmt.Errorf("failed to scan trade execution link: %w", err)
		}
		link.Role = domain.ExecutionRole(role)
		links = append(links, link)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link rows: %w", err)
	}
	return links, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanExecution scans a row into a domain.Execution struct.
func scanExecution(s scanner) (*domain.Execution, error) {
	exe := &domain.Execution{}
	var side string
	err := s.Scan(
		&exe.ID, &exe.AccountID, &exe.SourceExecutionID, &exe.Symbol, &exe.ConID, &exe.TimestampUTC,
		&side, &exe.Quantity, &exe.Price, &exe.Commission, &exe.Exchange, &exe.OrderType, &exe.Currency)
	if err != nil {
		return nil, err
	}
	exe.Side = domain.Side(side)
	return exe, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var closedAt sql.NullTime
	var direction, status string
	err := s.Scan(
		&t.ID, &t.AccountID, &t.Symbol, &t.ConID, &direction, &t.OpenedAtUTC, &closedAt,
		&status, &t.QuantityOpened, &t.QuantityClosed, &t.GrossPnL, &t.Commissions, &t.NetPnL, &t.Sequence)
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t.ClosedAtUTC = closedAt.Time
	}
	t.Direction = domain.Direction(direction)
	t.Status = domain.TradeStatus(status)
	return t, nil
}
