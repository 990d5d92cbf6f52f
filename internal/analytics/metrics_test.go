package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
)

func closedTrade(symbol string, openedAt time.Time, gross, commissions float64) *domain.Trade {
	return &domain.Trade{
		ID:          "trade-" + symbol + openedAt.Format("150405"),
		Symbol:      symbol,
		Status:      domain.StatusClosed,
		OpenedAtUTC: openedAt,
		GrossPnL:    gross,
		Commissions: commissions,
		NetPnL:      gross - commissions,
	}
}

func day(tradeID, date string, gross, commissions float64) *domain.TradeDay {
	return &domain.TradeDay{
		TradeID:       tradeID,
		Date:          date,
		RealizedGross: gross,
		Commissions:   commissions,
		RealizedNet:   gross - commissions,
	}
}

func TestEquityCurve(t *testing.T) {
	days := []*domain.TradeDay{
		day("t1", "2025-01-08", -50, 2),
		day("t1", "2025-01-06", 100, 2),
		day("t2", "2025-01-07", 200, 2),
		day("t3", "2025-01-07", -300, 2),
	}

	curve := EquityCurve(days)
	require.Len(t, curve, 3)

	assert.Equal(t, "2025-01-06", curve[0].Date)
	assert.InDelta(t, 98.0, curve[0].Cumulative, 1e-9)
	assert.InDelta(t, 0.0, curve[0].Drawdown, 1e-9)

	// Two rows on the 7th merge into one point. Net -104 that day.
	assert.Equal(t, "2025-01-07", curve[1].Date)
	assert.InDelta(t, -100.0, curve[1].DailyGross, 1e-9)
	assert.InDelta(t, -104.0, curve[1].DailyNet, 1e-9)
	assert.InDelta(t, -6.0, curve[1].Cumulative, 1e-9)
	assert.InDelta(t, -104.0, curve[1].Drawdown, 1e-9)

	assert.Equal(t, "2025-01-08", curve[2].Date)
	assert.InDelta(t, -58.0, curve[2].Cumulative, 1e-9)
	assert.InDelta(t, -156.0, curve[2].Drawdown, 1e-9)
}

func TestEquityCurve_AllLosingStart(t *testing.T) {
	// A curve that never goes positive still has drawdown measured from the
	// first day's peak, not from zero.
	curve := EquityCurve([]*domain.TradeDay{
		day("t1", "2025-01-06", -100, 0),
		day("t2", "2025-01-07", -50, 0),
	})
	require.Len(t, curve, 2)
	assert.InDelta(t, 0.0, curve[0].Drawdown, 1e-9)
	assert.InDelta(t, -50.0, curve[1].Drawdown, 1e-9)
}

func TestEquityCurve_Empty(t *testing.T) {
	assert.Nil(t, EquityCurve(nil))
}

func TestDailySummary(t *testing.T) {
	days := []*domain.TradeDay{
		day("t1", "2025-01-06", 100, 2),
		day("t2", "2025-01-06", -40, 1),
		day("t2", "2025-01-07", 30, 1),
	}

	summary := DailySummary(days, "2025-01-06")
	assert.Equal(t, "2025-01-06", summary.Date)
	assert.InDelta(t, 60.0, summary.Gross, 1e-9)
	assert.InDelta(t, 3.0, summary.Commissions, 1e-9)
	assert.InDelta(t, 57.0, summary.Net, 1e-9)
	assert.Equal(t, 2, summary.Trades)

	empty := DailySummary(days, "2025-01-10")
	assert.Equal(t, 0, empty.Trades)
	assert.InDelta(t, 0.0, empty.Net, 1e-9)
}

func TestOverviewStats(t *testing.T) {
	opened := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	trades := []*domain.Trade{
		closedTrade("AAA", opened, 300, 10),               // net +290
		closedTrade("BBB", opened.Add(time.Hour), 50, 5),  // net +45
		closedTrade("CCC", opened.Add(2*time.Hour), -100, 5), // net -105
		{Symbol: "DDD", Status: domain.StatusOpen, GrossPnL: 999, NetPnL: 999},
	}

	o := OverviewStats(trades)
	assert.Equal(t, 3, o.TotalTrades)
	assert.Equal(t, 2, o.WinningTrades)
	assert.Equal(t, 1, o.LosingTrades)
	assert.InDelta(t, 2.0/3.0, o.WinRate, 1e-9)
	assert.InDelta(t, 250.0, o.TotalGross, 1e-9)
	assert.InDelta(t, 20.0, o.TotalCommissions, 1e-9)
	assert.InDelta(t, 230.0, o.TotalNet, 1e-9)
	assert.InDelta(t, 167.5, o.AvgWin, 1e-9)
	assert.InDelta(t, -105.0, o.AvgLoss, 1e-9)
	assert.InDelta(t, 335.0/105.0, o.ProfitFactor, 1e-9)
}

func TestOverviewStats_NoLosers(t *testing.T) {
	opened := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	o := OverviewStats([]*domain.Trade{closedTrade("AAA", opened, 100, 1)})
	assert.Equal(t, 1, o.TotalTrades)
	assert.InDelta(t, 1.0, o.WinRate, 1e-9)
	assert.True(t, math.IsInf(o.ProfitFactor, 1))
}

func TestOverviewStats_Empty(t *testing.T) {
	o := OverviewStats(nil)
	assert.Equal(t, 0, o.TotalTrades)
	assert.Equal(t, 0.0, o.WinRate)
	assert.Equal(t, 0.0, o.ProfitFactor)
}

func TestOverviewStats_BreakEvenIsNeitherWinNorLoss(t *testing.T) {
	opened := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	o := OverviewStats([]*domain.Trade{closedTrade("AAA", opened, 0, 0)})
	assert.Equal(t, 1, o.TotalTrades)
	assert.Equal(t, 0, o.WinningTrades)
	assert.Equal(t, 0, o.LosingTrades)
	assert.Equal(t, 0.0, o.ProfitFactor)
}

func TestInstrumentStats(t *testing.T) {
	opened := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	trades := []*domain.Trade{
		closedTrade("BBB", opened, 100, 5),
		closedTrade("AAA", opened, -20, 2),
		closedTrade("BBB", opened.Add(time.Hour), -40, 5),
		{Symbol: "AAA", Status: domain.StatusOpen, NetPnL: 999},
	}

	stats := InstrumentStats(trades)
	require.Len(t, stats, 2)

	assert.Equal(t, "AAA", stats[0].Symbol)
	assert.Equal(t, 1, stats[0].Trades)
	assert.Equal(t, 0, stats[0].Wins)
	assert.InDelta(t, -22.0, stats[0].Net, 1e-9)

	assert.Equal(t, "BBB", stats[1].Symbol)
	assert.Equal(t, 2, stats[1].Trades)
	assert.Equal(t, 1, stats[1].Wins)
	assert.InDelta(t, 0.5, stats[1].WinRate, 1e-9)
	assert.InDelta(t, 60.0, stats[1].Gross, 1e-9)
	assert.InDelta(t, 50.0, stats[1].Net, 1e-9)
}

func TestEntryHourStats(t *testing.T) {
	nyc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 14:30 and 15:10 UTC are 09:30 and 10:10 in New York.
	trades := []*domain.Trade{
		closedTrade("AAA", time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC), 100, 0),
		closedTrade("BBB", time.Date(2025, 1, 6, 14, 45, 0, 0, time.UTC), -40, 0),
		closedTrade("CCC", time.Date(2025, 1, 6, 15, 10, 0, 0, time.UTC), 60, 0),
	}

	stats := EntryHourStats(trades, nyc)
	require.Len(t, stats, 2)

	assert.Equal(t, 9, stats[0].Hour)
	assert.Equal(t, 2, stats[0].Trades)
	assert.InDelta(t, 60.0, stats[0].Net, 1e-9)
	assert.InDelta(t, 30.0, stats[0].AvgNet, 1e-9)
	assert.InDelta(t, 0.5, stats[0].WinRate, 1e-9)

	assert.Equal(t, 10, stats[1].Hour)
	assert.Equal(t, 1, stats[1].Trades)
	assert.InDelta(t, 60.0, stats[1].Net, 1e-9)
}
