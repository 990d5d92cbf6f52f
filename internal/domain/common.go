package domain

// Side represents the side of an execution (BUY or SELL).
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Direction represents the direction of a position at open.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// TradeStatus represents the lifecycle status of a reconstructed trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// ExecutionRole indicates how an execution contributed to a trade.
type ExecutionRole string

const (
	RoleOpen  ExecutionRole = "open"
	RoleClose ExecutionRole = "close"
)

// DayStatus classifies a trade's activity on one local calendar day.
type DayStatus string

const (
	DayOpened   DayStatus = "opened"   // only opening executions that day
	DayAdjusted DayStatus = "adjusted" // realized activity while the trade stayed open
	DayClosed   DayStatus = "closed"   // the trade fully closed that day
)
