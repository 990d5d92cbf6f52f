// Package analytics aggregates reconstructed trades and trade-day rows into
// summary statistics. Every function is a pure, deterministic function of its
// input rows: no mutation, no storage access, safe to recompute at will.
package analytics

import (
	"math"
	"sort"
	"time"

	"tradejournal/internal/domain"
)

// EquityPoint is one day on the cumulative realized P&L curve.
type EquityPoint struct {
	Date       string  // local calendar date, "YYYY-MM-DD"
	DailyGross float64 // gross realized that day
	DailyNet   float64 // net realized that day
	Cumulative float64 // running net total through this day
	Drawdown   float64 // Cumulative minus running peak, always <= 0
}

// EquityCurve builds the ordered daily equity curve from trade-day rows.
// Drawdown is measured from the running maximum of the cumulative series.
func EquityCurve(days []*domain.TradeDay) []EquityPoint {
	if len(days) == 0 {
		return nil
	}

	byDate := make(map[string][]*domain.TradeDay)
	for _, td := range days {
		byDate[td.Date] = append(byDate[td.Date], td)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]EquityPoint, 0, len(dates))
	cumulative := 0.0
	peak := math.Inf(-1)
	for _, date := range dates {
		var gross, net float64
		for _, td := range byDate[date] {
			gross += td.RealizedGross
			net += td.RealizedNet
		}
		cumulative += net
		if cumulative > peak {
			peak = cumulative
		}
		points = append(points, EquityPoint{
			Date:       date,
			DailyGross: gross,
			DailyNet:   net,
			Cumulative: cumulative,
			Drawdown:   cumulative - peak,
		})
	}
	return points
}

// DaySummary aggregates all trade-day rows for one local calendar date.
type DaySummary struct {
	Date           string
	Gross          float64
	Commissions    float64
	Net            float64
	QuantityClosed float64
	Trades         int // distinct trades active that day
}

// DailySummary sums realized gross, commissions, and net across the trade-day
// rows for the given date.
func DailySummary(days []*domain.TradeDay, date string) DaySummary {
	summary := DaySummary{Date: date}
	seen := make(map[string]bool)
	for _, td := range days {
		if td.Date != date {
			continue
		}
		summary.Gross += td.RealizedGross
		summary.Commissions += td.Commissions
		summary.Net += td.RealizedNet
		summary.QuantityClosed += td.QuantityClosed
		if !seen[td.TradeID] {
			seen[td.TradeID] = true
			summary.Trades++
		}
	}
	return summary
}

// Overview holds account-level statistics over closed trades.
//
// ProfitFactor is the sum of winning trades' net P&L divided by the absolute
// sum of losing trades' net P&L. With wins and no losers it is +Inf (an
// explicit sentinel, never a division fault); with no closed trades it is 0.
type Overview struct {
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          float64
	TotalGross       float64
	TotalCommissions float64
	TotalNet         float64
	AvgWin           float64
	AvgLoss          float64
	ProfitFactor     float64
}

// OverviewStats computes account-level statistics. Only closed trades count;
// open trades are skipped.
func OverviewStats(trades []*domain.Trade) Overview {
	var o Overview
	var winSum, lossSum float64
	for _, t := range trades {
		if t.Status != domain.StatusClosed {
			continue
		}
		o.TotalTrades++
		o.TotalGross += t.GrossPnL
		o.TotalCommissions += t.Commissions
		o.TotalNet += t.NetPnL
		switch {
		case t.NetPnL > 0:
			o.WinningTrades++
			winSum += t.NetPnL
		case t.NetPnL < 0:
			o.LosingTrades++
			lossSum += t.NetPnL
		}
	}

	if o.TotalTrades == 0 {
		return o
	}

	o.WinRate = float64(o.WinningTrades) / float64(o.TotalTrades)
	if o.WinningTrades > 0 {
		o.AvgWin = winSum / float64(o.WinningTrades)
	}
	if o.LosingTrades > 0 {
		o.AvgLoss = lossSum / float64(o.LosingTrades)
	}
	switch {
	case lossSum < 0:
		o.ProfitFactor = winSum / -lossSum
	case winSum > 0:
		o.ProfitFactor = math.Inf(1)
	}
	return o
}

// InstrumentStat aggregates closed trades for one instrument.
type InstrumentStat struct {
	Symbol      string
	Trades      int
	Wins        int
	WinRate     float64
	Gross       float64
	Commissions float64
	Net         float64
}

// InstrumentStats computes per-instrument aggregates over closed trades,
// sorted by symbol.
func InstrumentStats(trades []*domain.Trade) []InstrumentStat {
	bySymbol := make(map[string]*InstrumentStat)
	for _, t := range trades {
		if t.Status != domain.StatusClosed {
			continue
		}
		stat := bySymbol[t.Symbol]
		if stat == nil {
			stat = &InstrumentStat{Symbol: t.Symbol}
			bySymbol[t.Symbol] = stat
		}
		stat.Trades++
		if t.NetPnL > 0 {
			stat.Wins++
		}
		stat.Gross += t.GrossPnL
		stat.Commissions += t.Commissions
		stat.Net += t.NetPnL
	}

	out := make([]InstrumentStat, 0, len(bySymbol))
	for _, stat := range bySymbol {
		stat.WinRate = float64(stat.Wins) / float64(stat.Trades)
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// HourStat aggregates closed trades by their local entry hour.
type HourStat struct {
	Hour    int
	Trades  int
	Net     float64
	AvgNet  float64
	WinRate float64
}

// EntryHourStats groups closed trades by the hour of day (in the reporting
// timezone) at which they were opened. No weekend roll-back applies here; this
// is about entry timing, not P&L day attribution.
func EntryHourStats(trades []*domain.Trade, loc *time.Location) []HourStat {
	type bucket struct {
		trades int
		wins   int
		net    float64
	}
	byHour := make(map[int]*bucket)
	for _, t := range trades {
		if t.Status != domain.StatusClosed {
			continue
		}
		hour := t.OpenedAtUTC.In(loc).Hour()
		b := byHour[hour]
		if b == nil {
			b = &bucket{}
			byHour[hour] = b
		}
		b.trades++
		b.net += t.NetPnL
		if t.NetPnL > 0 {
			b.wins++
		}
	}

	out := make([]HourStat, 0, len(byHour))
	for hour, b := range byHour {
		out = append(out, HourStat{
			Hour:    hour,
			Trades:  b.trades,
			Net:     b.net,
			AvgNet:  b.net / float64(b.trades),
			WinRate: float64(b.wins) / float64(b.trades),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}
