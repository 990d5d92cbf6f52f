// Package flexquery parses IBKR Flex Query XML exports into normalized domain
// executions. Field-level validation happens here, at the boundary: rows that
// are malformed or incomplete are skipped with a warning and never reach the
// reconstruction engine.
package flexquery

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// IBKR reports timestamps in the exchange's local zone without an offset.
// US equity reports use Eastern time.
const defaultSourceTimezone = "America/New_York"

// Timestamp layouts seen across IBKR Flex report versions.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02, 15:04:05",
	"2006-01-02;15:04:05",
	"20060102 15:04:05",
	"20060102;150405",
}

// Parser converts Flex Query XML into domain executions.
type Parser struct {
	loc    *time.Location
	logger ports.Logger
}

// Config holds configuration for the Flex Query parser.
type Config struct {
	// SourceTimezone is the IANA zone IBKR timestamps are expressed in.
	// Defaults to America/New_York.
	SourceTimezone string
	Logger         ports.Logger
}

// New creates a new Flex Query parser.
func New(cfg Config) (*Parser, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Flex Query parser")
	}
	tz := cfg.SourceTimezone
	if tz == "" {
		tz = defaultSourceTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid source timezone %q: %w", tz, ports.ErrConfigurationError)
	}
	return &Parser{loc: loc, logger: cfg.Logger}, nil
}

type flexTrade struct {
	AccountID    string `xml:"accountId,attr"`
	TradeID      string `xml:"tradeID,attr"`
	Symbol       string `xml:"symbol,attr"`
	ConID        string `xml:"conid,attr"`
	TradeTime    string `xml:"tradeTime,attr"`
	OrderTime    string `xml:"orderTime,attr"`
	BuySell      string `xml:"buySell,attr"`
	Quantity     string `xml:"quantity,attr"`
	TradePrice   string `xml:"tradePrice,attr"`
	IBCommission string `xml:"ibCommission,attr"`
	Exchange     string `xml:"exchange,attr"`
	OrderType    string `xml:"orderType,attr"`
	Currency     string `xml:"currency,attr"`
}

type flexResponse struct {
	XMLName xml.Name    `xml:"FlexQueryResponse"`
	Trades  []flexTrade `xml:"FlexStatements>FlexStatement>Trades>Trade"`
}

// Parse reads a Flex Query XML document and returns the executions it
// contains, the broker account number the report belongs to, and warnings for
// any skipped rows. Execution ID and AccountID are left empty; the importer
// assigns them when binding executions to a stored account.
func (p *Parser) Parse(data []byte) ([]*domain.Execution, string, []string, error) {
	var doc flexResponse
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, "", nil, fmt.Errorf("failed to parse Flex Query XML: %w", ports.ErrMalformedReport)
	}

	var (
		executions    []*domain.Execution
		accountNumber string
		warnings      []string
	)
	for _, row := range doc.Trades {
		exe, warn := p.parseRow(row)
		if warn != "" {
			warnings = append(warnings, warn)
			continue
		}
		if accountNumber == "" {
			accountNumber = strings.TrimSpace(row.AccountID)
		} else if strings.TrimSpace(row.AccountID) != accountNumber {
			warnings = append(warnings, fmt.Sprintf(
				"skipped execution %s: account %s does not match report account %s",
				exe.SourceExecutionID, row.AccountID, accountNumber))
			continue
		}
		executions = append(executions, exe)
	}
	return executions, accountNumber, warnings, nil
}

// parseRow validates and converts one Trade element. Returns a non-empty
// warning instead of an execution when the row is unusable.
func (p *Parser) parseRow(row flexTrade) (*domain.Execution, string) {
	execID := strings.TrimSpace(row.TradeID)
	if execID == "" {
		return nil, fmt.Sprintf("skipped execution with missing tradeID (symbol %q)", row.Symbol)
	}

	symbol := strings.TrimSpace(row.Symbol)
	if symbol == "" {
		return nil, fmt.Sprintf("skipped execution %s: missing symbol", execID)
	}

	side := domain.Side(strings.ToUpper(strings.TrimSpace(row.BuySell)))
	if side != domain.Buy && side != domain.Sell {
		return nil, fmt.Sprintf("skipped execution %s: unknown side %q", execID, row.BuySell)
	}

	tsRaw := strings.TrimSpace(row.TradeTime)
	if tsRaw == "" {
		// Fall back to the order time when the fill time is missing.
		tsRaw = strings.TrimSpace(row.OrderTime)
	}
	if tsRaw == "" {
		return nil, fmt.Sprintf("skipped execution %s: missing timestamp", execID)
	}
	ts, err := p.parseTimestamp(tsRaw)
	if err != nil {
		return nil, fmt.Sprintf("skipped execution %s: %v", execID, err)
	}

	quantity, err := strconv.ParseFloat(strings.TrimSpace(row.Quantity), 64)
	if err != nil || quantity == 0 {
		return nil, fmt.Sprintf("skipped execution %s: invalid quantity %q", execID, row.Quantity)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row.TradePrice), 64)
	if err != nil || price <= 0 {
		return nil, fmt.Sprintf("skipped execution %s: invalid price %q", execID, row.TradePrice)
	}

	// IBKR reports commissions as negative amounts; store the magnitude.
	commission := 0.0
	if c := strings.TrimSpace(row.IBCommission); c != "" {
		commission, err = strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, fmt.Sprintf("skipped execution %s: invalid commission %q", execID, row.IBCommission)
		}
		commission = math.Abs(commission)
	}

	var conID int64
	if c := strings.TrimSpace(row.ConID); c != "" {
		conID, err = strconv.ParseInt(c, 10, 64)
		if err != nil {
			return nil, fmt.Sprintf("skipped execution %s: invalid conid %q", execID, row.ConID)
		}
	}

	currency := strings.TrimSpace(row.Currency)
	if currency == "" {
		currency = "USD"
	}

	return &domain.Execution{
		SourceExecutionID: execID,
		Symbol:            symbol,
		ConID:             conID,
		TimestampUTC:      ts,
		Side:              side,
		Quantity:          math.Abs(quantity),
		Price:             price,
		Commission:        commission,
		Exchange:          strings.TrimSpace(row.Exchange),
		OrderType:         strings.TrimSpace(row.OrderType),
		Currency:          currency,
	}, ""
}

// parseTimestamp interprets an IBKR timestamp string in the source timezone
// and converts it to UTC.
func (p *Parser) parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, p.loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse timestamp %q", raw)
}
