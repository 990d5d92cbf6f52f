// Command report prints summary statistics for a journaled account: overview,
// per-instrument breakdown, entry-hour breakdown, and the daily equity curve.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"tradejournal/config"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/analytics"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(logger.LevelWarn) // keep report output clean

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer repo.Close()

	account, err := repo.FindAccountByNumber(ctx, cfg.AccountNumber)
	if err != nil {
		log.Fatalf("FATAL: Failed to look up account: %v", err)
	}
	if account == nil {
		log.Fatalf("FATAL: Account %q not found (set ACCOUNT_NUMBER)", cfg.AccountNumber)
	}

	loc, err := time.LoadLocation(account.Timezone)
	if err != nil {
		log.Fatalf("FATAL: Account has invalid timezone %q: %v", account.Timezone, err)
	}

	trades, err := repo.FindTradesByAccount(ctx, account.ID)
	if err != nil {
		log.Fatalf("FATAL: Failed to load trades: %v", err)
	}
	days, err := repo.FindTradeDaysByAccount(ctx, account.ID)
	if err != nil {
		log.Fatalf("FATAL: Failed to load trade days: %v", err)
	}

	overview := analytics.OverviewStats(trades)
	fmt.Printf("Account %s (%s, %s)\n\n", account.AccountNumber, account.Currency, account.Timezone)
	fmt.Printf("Closed trades:  %d (%d wins / %d losses)\n", overview.TotalTrades, overview.WinningTrades, overview.LosingTrades)
	fmt.Printf("Win rate:       %.1f%%\n", overview.WinRate*100)
	fmt.Printf("Profit factor:  %s\n", formatProfitFactor(overview.ProfitFactor))
	fmt.Printf("Avg win/loss:   %.2f / %.2f\n", overview.AvgWin, overview.AvgLoss)
	fmt.Printf("Gross P&L:      %.2f\n", overview.TotalGross)
	fmt.Printf("Commissions:    %.2f\n", overview.TotalCommissions)
	fmt.Printf("Net P&L:        %.2f\n\n", overview.TotalNet)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Println("By instrument:")
	fmt.Fprintln(w, "SYMBOL\tTRADES\tWIN%\tGROSS\tNET")
	for _, stat := range analytics.InstrumentStats(trades) {
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%.2f\t%.2f\n",
			stat.Symbol, stat.Trades, stat.WinRate*100, stat.Gross, stat.Net)
	}
	w.Flush()
	fmt.Println()

	fmt.Println("By entry hour:")
	fmt.Fprintln(w, "HOUR\tTRADES\tWIN%\tNET\tAVG")
	for _, stat := range analytics.EntryHourStats(trades, loc) {
		fmt.Fprintf(w, "%02d\t%d\t%.1f\t%.2f\t%.2f\n",
			stat.Hour, stat.Trades, stat.WinRate*100, stat.Net, stat.AvgNet)
	}
	w.Flush()
	fmt.Println()

	fmt.Println("Equity curve:")
	fmt.Fprintln(w, "DATE\tDAILY\tCUMULATIVE\tDRAWDOWN")
	for _, point := range analytics.EquityCurve(days) {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\n",
			point.Date, point.DailyNet, point.Cumulative, point.Drawdown)
	}
	w.Flush()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf (no losing trades)"
	}
	return fmt.Sprintf("%.2f", pf)
}
