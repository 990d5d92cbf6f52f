package main

import (
	"context"
	"log" // standard log only for fatal errors before the logger is ready
	"os"

	"tradejournal/config"
	"tradejournal/internal/adapters/binanceclient"
	"tradejournal/internal/adapters/flexquery"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
	"tradejournal/internal/importer"
	"tradejournal/internal/ports"
	"tradejournal/internal/reconstruct"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogJSON {
		zl, err := logger.NewZapLogger(cfg.LogLevel.String())
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize logger: %v", err)
		}
		defer zl.Sync()
		appLogger = zl
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize Importer and Reconstruction Engine
	imp, err := importer.New(repo, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize importer: %v", err)
	}
	engine, err := reconstruct.NewEngine(reconstruct.Config{
		Logger:     appLogger,
		Executions: repo,
		Trades:     repo,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize reconstruction engine: %v", err)
	}

	// 5. Initialize Application Service
	service, err := app.NewJournalService(cfg, appLogger, repo, repo, imp, engine)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize journal service: %v", err)
	}

	// 6. Load executions from the configured source
	var (
		executions    []*domain.Execution
		accountNumber = cfg.AccountNumber
	)
	switch cfg.Source {
	case config.SourceFlex:
		if cfg.FlexReportPath == "" {
			log.Fatalf("FATAL: FLEX_REPORT_PATH must be set when SOURCE=flex")
		}
		parser, err := flexquery.New(flexquery.Config{
			SourceTimezone: cfg.FlexSourceTimezone,
			Logger:         appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Flex parser: %v", err)
		}
		data, err := os.ReadFile(cfg.FlexReportPath)
		if err != nil {
			log.Fatalf("FATAL: Failed to read Flex report %s: %v", cfg.FlexReportPath, err)
		}
		execs, reportAccount, warnings, err := parser.Parse(data)
		if err != nil {
			log.Fatalf("FATAL: Failed to parse Flex report: %v", err)
		}
		for _, warn := range warnings {
			appLogger.Warn(ctx, warn)
		}
		executions = execs
		if accountNumber == "" {
			accountNumber = reportAccount
		}

	case config.SourceBinance:
		source, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecretKey,
			UseTestnet: cfg.BinanceTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		executions, err = source.FetchExecutions(ctx, accountNumber, cfg.BinanceSymbols)
		if err != nil {
			log.Fatalf("FATAL: Failed to fetch executions from Binance: %v", err)
		}
	}

	// 7. Import, reconstruct, and summarize
	account, err := service.EnsureAccount(ctx, accountNumber)
	if err != nil {
		log.Fatalf("FATAL: Failed to resolve account: %v", err)
	}

	impResult, recResult, err := service.ImportAndReconstruct(ctx, account, executions)
	if err != nil {
		log.Fatalf("FATAL: Import/reconstruction failed: %v", err)
	}

	fields := map[string]interface{}{
		"parsed":   impResult.Parsed,
		"inserted": impResult.Inserted,
	}
	if recResult != nil {
		fields["trades"] = len(recResult.Trades)
		fields["tradeDays"] = len(recResult.Days)
	}
	appLogger.Info(ctx, "Journal updated", fields)

	overview, err := service.Overview(ctx, account)
	if err != nil {
		log.Fatalf("FATAL: Failed to compute overview: %v", err)
	}
	appLogger.Info(ctx, "Account overview", map[string]interface{}{
		"closedTrades": overview.TotalTrades,
		"winRate":      overview.WinRate,
		"totalNet":     overview.TotalNet,
		"profitFactor": overview.ProfitFactor,
	})
}
