package domain

import "time"

// Account represents one brokerage account whose executions are journaled.
type Account struct {
	ID            string    // Unique identifier (UUID)
	AccountNumber string    // Broker account number (e.g., "U1234567")
	Currency      string    // Reporting currency (e.g., "USD")
	Timezone      string    // IANA zone name used for local-day bucketing
	CreatedAt     time.Time // Timestamp when the account was first imported
}
