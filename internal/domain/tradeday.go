package domain

// TradeDay holds the portion of a trade's realized P&L attributable to one
// local calendar day. Dates are stored as "YYYY-MM-DD" strings in the account's
// reporting timezone, with weekend executions rolled back to the preceding
// Friday for bucketing purposes only.
type TradeDay struct {
	ID      string // Unique identifier (UUID)
	TradeID string // Owning trade

	Date   string    // Local calendar date, "YYYY-MM-DD"
	Status DayStatus // opened, adjusted, or closed

	RealizedGross  float64 // Gross P&L realized on this day
	Commissions    float64 // Commissions from this day's executions
	RealizedNet    float64 // RealizedGross - Commissions
	QuantityClosed float64 // Quantity matched against open lots on this day
	LotCount       int     // Number of lot slices matched on this day
}
