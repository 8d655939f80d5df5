package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocType discriminates the singleton cache documents stored in the
// cache_documents table. Exactly one document exists per type.
type DocType string

const (
	DocTypeAccounts     DocType = "accounts-cache"
	DocTypeSymbols      DocType = "symbols-cache"
	DocTypeExchangeRate DocType = "exchange-rate-cache"
)

// Credential holds one owner's brokerage API credential. At most one
// credential exists per owner; records are provisioned out-of-band and
// rotated in place by the refresh flow.
type Credential struct {
	Owner        string    `json:"owner" db:"owner"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	APIServer    string    `json:"api_server" db:"api_server"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	Active       bool      `json:"active" db:"active"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the access token must be rotated before use.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// DailySnapshot is the recorded household balance for one calendar day.
// Dates are truncated to start-of-day UTC; at most one row per date.
type DailySnapshot struct {
	Date      time.Time       `json:"date" db:"snapshot_date"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// CacheDocument is one singleton cache row. Payload is the raw JSON
// document for the given type; callers unmarshal into the matching
// payload struct.
type CacheDocument struct {
	DocType   DocType   `json:"doc_type" db:"doc_type"`
	Payload   []byte    `json:"payload" db:"payload"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AccountEntry is one account line in the accounts cache.
type AccountEntry struct {
	AccountNumber string  `json:"accountNumber"`
	AccountType   string  `json:"accountType"`
	Owner         string  `json:"owner"`
	Balance       float64 `json:"balance"`
}

// AccountsPayload is the accounts-cache document body.
type AccountsPayload struct {
	Accounts []AccountEntry `json:"accounts"`
}

// SymbolEntry is one open position line in the symbols cache.
type SymbolEntry struct {
	Symbol           string  `json:"symbol"`
	SymbolID         int     `json:"symbolId"`
	Description      string  `json:"description"`
	DayChangePercent float64 `json:"dayChangePercent"`
}

// SymbolsPayload is the symbols-cache document body.
type SymbolsPayload struct {
	Symbols []SymbolEntry `json:"symbols"`
}

// ExchangeRatePayload is the exchange-rate-cache document body (USD to CAD).
type ExchangeRatePayload struct {
	Rate float64 `json:"rate"`
}

// HistoryPoint is one day of balance history in dashboard form.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Dashboard is the composed investments payload served to the frontend.
type Dashboard struct {
	Balance       float64        `json:"balance"`
	ChangePercent float64        `json:"changePercent"`
	History       []HistoryPoint `json:"history"`
	Accounts      []AccountEntry `json:"accounts"`
	Symbols       []SymbolEntry  `json:"symbols"`
	ExchangeRate  float64        `json:"exchangeRate"`
	LastUpdated   time.Time      `json:"lastUpdated"`
}

// BalanceResponse is the force-balance endpoint body.
type BalanceResponse struct {
	Amount float64 `json:"amount"`
}
