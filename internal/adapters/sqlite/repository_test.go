package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err, "Failed to create test repository")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *Repository) *domain.Account {
	t.Helper()
	acct := &domain.Account{
		ID:            "acct-1",
		AccountNumber: "U1234567",
		Currency:      "USD",
		Timezone:      "America/New_York",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.CreateAccount(context.Background(), acct))
	return acct
}

func testExecution(id string, ts time.Time) *domain.Execution {
	return &domain.Execution{
		ID:                "uuid-" + id,
		AccountID:         "acct-1",
		SourceExecutionID: id,
		Symbol:            "XYZ",
		ConID:             1001,
		TimestampUTC:      ts,
		Side:              domain.Buy,
		Quantity:          100,
		Price:             10.5,
		Commission:        1.25,
		Exchange:          "NASDAQ",
		OrderType:         "LMT",
		Currency:          "USD",
	}
}

func TestAccountRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	found, err := repo.FindAccountByNumber(ctx, acct.AccountNumber)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, acct.ID, found.ID)
	assert.Equal(t, acct.Currency, found.Currency)
	assert.Equal(t, acct.Timezone, found.Timezone)
	assert.True(t, acct.CreatedAt.Equal(found.CreatedAt))
}

func TestFindAccountByNumber_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	found, err := repo.FindAccountByNumber(context.Background(), "U0000000")
	require.NoError(t, err)
	assert.Nil(t, found, "Missing account should return nil, not an error")
}

func TestCreateAccount_DuplicateNumber(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	seedAccount(t, repo)

	dup := &domain.Account{
		ID:            "acct-2",
		AccountNumber: "U1234567",
		Currency:      "USD",
		Timezone:      "UTC",
		CreatedAt:     time.Now().UTC(),
	}
	assert.Error(t, repo.CreateAccount(ctx, dup))
}

func TestUpdateAccountTimezone(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	require.NoError(t, repo.UpdateAccountTimezone(ctx, acct.ID, "Europe/London"))

	found, err := repo.FindAccountByNumber(ctx, acct.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", found.Timezone)

	err = repo.UpdateAccountTimezone(ctx, "no-such-account", "UTC")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInsertAndFindExecutions(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	// Inserted out of order and with a timestamp tie; reads must come back
	// ordered by (ts_utc, source_execution_id).
	execs := []*domain.Execution{
		testExecution("E3", base.Add(time.Minute)),
		testExecution("E2", base),
		testExecution("E1", base),
	}
	require.NoError(t, repo.InsertExecutions(ctx, execs))

	found, err := repo.FindExecutionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "E1", found[0].SourceExecutionID)
	assert.Equal(t, "E2", found[1].SourceExecutionID)
	assert.Equal(t, "E3", found[2].SourceExecutionID)

	got := found[0]
	assert.Equal(t, domain.Buy, got.Side)
	assert.Equal(t, int64(1001), got.ConID)
	assert.Equal(t, 10.5, got.Price)
	assert.Equal(t, 1.25, got.Commission)
	assert.Equal(t, "NASDAQ", got.Exchange)
	assert.True(t, base.Equal(got.TimestampUTC))
}

func TestInsertExecutions_DuplicateSourceIDRollsBack(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	require.NoError(t, repo.InsertExecutions(ctx, []*domain.Execution{testExecution("E1", base)}))

	// Second batch violates UNIQUE(account_id, source_execution_id) on its
	// second row; the whole batch must roll back.
	fresh := testExecution("E2", base.Add(time.Minute))
	dup := testExecution("E1", base.Add(2*time.Minute))
	dup.ID = "uuid-E1-dup"
	err := repo.InsertExecutions(ctx, []*domain.Execution{fresh, dup})
	require.Error(t, err)

	found, err := repo.FindExecutionsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "E1", found[0].SourceExecutionID)
}

func TestFindSourceExecutionIDs(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	require.NoError(t, repo.InsertExecutions(ctx, []*domain.Execution{
		testExecution("E1", base),
		testExecution("E2", base.Add(time.Minute)),
	}))

	ids, err := repo.FindSourceExecutionIDs(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"E1": true, "E2": true}, ids)

	empty, err := repo.FindSourceExecutionIDs(ctx, "other-account")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testTrade(id string, openedAt time.Time, status domain.TradeStatus) *domain.Trade {
	trade := &domain.Trade{
		ID:             id,
		AccountID:      "acct-1",
		Symbol:         "XYZ",
		ConID:          1001,
		Direction:      domain.Long,
		OpenedAtUTC:    openedAt,
		Status:         status,
		QuantityOpened: 100,
		QuantityClosed: 100,
		GrossPnL:       250,
		Commissions:    2.5,
		NetPnL:         247.5,
	}
	if status == domain.StatusClosed {
		trade.ClosedAtUTC = openedAt.Add(time.Hour)
	}
	return trade
}

func TestReplaceForAccount(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	require.NoError(t, repo.InsertExecutions(ctx, []*domain.Execution{testExecution("E1", base)}))

	first := testTrade("trade-1", base, domain.StatusClosed)
	firstLinks := []*domain.TradeExecution{{
		ID: "link-1", TradeID: "trade-1", ExecutionID: "uuid-E1",
		SignedQuantity: 100, Role: domain.RoleOpen,
	}}
	firstDays := []*domain.TradeDay{{
		ID: "day-1", TradeID: "trade-1", Date: "2025-01-06", Status: domain.DayClosed,
		RealizedGross: 250, Commissions: 2.5, RealizedNet: 247.5, QuantityClosed: 100, LotCount: 1,
	}}
	require.NoError(t, repo.ReplaceForAccount(ctx, acct.ID, []*domain.Trade{first}, firstLinks, firstDays))

	// A second replace fully supersedes the first set.
	second := testTrade("trade-2", base.Add(24*time.Hour), domain.StatusOpen)
	secondDays := []*domain.TradeDay{{
		ID: "day-2", TradeID: "trade-2", Date: "2025-01-07", Status: domain.DayOpened,
		Commissions: 1.0, RealizedNet: -1.0,
	}}
	require.NoError(t, repo.ReplaceForAccount(ctx, acct.ID, []*domain.Trade{second}, nil, secondDays))

	trades, err := repo.FindTradesByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "trade-2", trades[0].ID)
	assert.Equal(t, domain.StatusOpen, trades[0].Status)
	assert.True(t, trades[0].ClosedAtUTC.IsZero(), "Open trade should scan back with zero close time")

	days, err := repo.FindTradeDaysByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "day-2", days[0].ID)
	assert.Equal(t, domain.DayOpened, days[0].Status)

	links, err := repo.FindLinksByTrade(ctx, "trade-1")
	require.NoError(t, err)
	assert.Empty(t, links, "Links of the replaced trade should be gone")
}

func TestReplaceForAccount_FailureLeavesPriorRows(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	first := testTrade("trade-1", base, domain.StatusClosed)
	require.NoError(t, repo.ReplaceForAccount(ctx, acct.ID, []*domain.Trade{first}, nil, nil))

	// Duplicate trade ids inside the new batch make the insert fail midway;
	// the rollback must restore the first set.
	bad := []*domain.Trade{
		testTrade("trade-2", base, domain.StatusClosed),
		testTrade("trade-2", base.Add(time.Hour), domain.StatusOpen),
	}
	require.Error(t, repo.ReplaceForAccount(ctx, acct.ID, bad, nil, nil))

	trades, err := repo.FindTradesByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "trade-1", trades[0].ID)
}

func TestFindTradesByAccount_TieBreakBySequence(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	// Same symbol, same open instant; ids chosen so id ordering would invert
	// the rebuild order. The persisted sequence must win.
	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	first := testTrade("trade-z", base, domain.StatusClosed)
	first.Sequence = 0
	second := testTrade("trade-a", base, domain.StatusOpen)
	second.Sequence = 1
	require.NoError(t, repo.ReplaceForAccount(ctx, acct.ID, []*domain.Trade{first, second}, nil, nil))

	trades, err := repo.FindTradesByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "trade-z", trades[0].ID)
	assert.Equal(t, 0, trades[0].Sequence)
	assert.Equal(t, "trade-a", trades[1].ID)
	assert.Equal(t, 1, trades[1].Sequence)
}

func TestTradeRoundTripFields(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, repo)

	base := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	trade := testTrade("trade-1", base, domain.StatusClosed)
	trade.Direction = domain.Short
	require.NoError(t, repo.ReplaceForAccount(ctx, acct.ID, []*domain.Trade{trade}, nil, nil))

	trades, err := repo.FindTradesByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, domain.Short, got.Direction)
	assert.Equal(t, domain.StatusClosed, got.Status)
	assert.True(t, base.Equal(got.OpenedAtUTC))
	assert.True(t, base.Add(time.Hour).Equal(got.ClosedAtUTC))
	assert.Equal(t, 250.0, got.GrossPnL)
	assert.Equal(t, 2.5, got.Commissions)
	assert.Equal(t, 247.5, got.NetPnL)
}
