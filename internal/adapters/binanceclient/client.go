// Package binanceclient implements ports.ExecutionSource against the Binance
// spot API: account trade history is pulled per symbol and normalized into
// domain executions, as an alternative to file-based Flex report imports.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"
)

// Client implements the ports.ExecutionSource interface using the go-binance library.
type Client struct {
	client *binance.Client
	logger ports.Logger
}

// Config holds configuration specific to the Binance source adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance source adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("API key and secret are required to read trade history: %w",
			ports.ErrConfigurationError)
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured",
		map[string]interface{}{"baseURL": client.BaseURL})

	return &Client{client: client, logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		var mapped error
		switch apiErr.Code {
		case -1003:
			mapped = ports.ErrRateLimited
		case -2014, -2015, -1022:
			mapped = ports.ErrAuthenticationFailed
		default:
			mapped = ports.ErrSourceUnavailable
		}
		c.logger.Error(ctx, err, "Binance API error", fields)
		return fmt.Errorf("%s: %s: %w", operation, apiErr.Message, mapped)
	}

	c.logger.Error(ctx, err, "Binance request failed", fields)
	return fmt.Errorf("%s: %w", operation, err)
}

// FetchExecutions retrieves the account's spot fill history for each symbol and
// converts it to domain executions. Execution ID and AccountID are left empty;
// the importer assigns them when binding executions to a stored account.
func (c *Client) FetchExecutions(ctx context.Context, accountID string, symbols []string) ([]*domain.Execution, error) {
	var executions []*domain.Execution
	for _, symbol := range symbols {
		trades, err := c.client.NewListTradesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, fmt.Sprintf("list trades for %s", symbol))
		}
		for _, t := range trades {
			exe, err := convertTrade(symbol, t)
			if err != nil {
				return nil, fmt.Errorf("failed to convert trade %d for %s: %w", t.ID, symbol, err)
			}
			executions = append(executions, exe)
		}
		c.logger.Debug(ctx, "Fetched trade history", map[string]interface{}{
			"symbol": symbol, "fills": len(trades)})
	}
	return executions, nil
}

// convertTrade normalizes one Binance fill into a domain execution.
func convertTrade(symbol string, t *binance.TradeV3) (*domain.Execution, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", t.Price, err)
	}
	quantity, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", t.Quantity, err)
	}
	commission, err := strconv.ParseFloat(t.Commission, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid commission %q: %w", t.Commission, err)
	}

	side := domain.Sell
	if t.IsBuyer {
		side = domain.Buy
	}

	return &domain.Execution{
		SourceExecutionID: fmt.Sprintf("%s-%d", symbol, t.ID),
		Symbol:            symbol,
		TimestampUTC:      time.UnixMilli(t.Time).UTC(),
		Side:              side,
		Quantity:          quantity,
		Price:             price,
		Commission:        commission,
		Exchange:          "BINANCE",
		Currency:          "USDT",
	}, nil
}
