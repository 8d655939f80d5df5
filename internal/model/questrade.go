package model

// TokenGrant is the response body of the OAuth refresh-token exchange
// against the brokerage login server.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	APIServer    string `json:"api_server"`
}

// BrokerageAccount is one account as returned by the accounts listing.
type BrokerageAccount struct {
	Type      string `json:"type"`
	Number    string `json:"number"`
	Status    string `json:"status"`
	IsPrimary bool   `json:"isPrimary"`
}

// AccountsResponse wraps the accounts listing endpoint body.
type AccountsResponse struct {
	Accounts []BrokerageAccount `json:"accounts"`
}

// CurrencyBalance is one per-currency balance line for an account.
type CurrencyBalance struct {
	Currency    string  `json:"currency"`
	Cash        float64 `json:"cash"`
	MarketValue float64 `json:"marketValue"`
	TotalEquity float64 `json:"totalEquity"`
}

// BalancesResponse wraps the account balances endpoint body.
type BalancesResponse struct {
	PerCurrencyBalances []CurrencyBalance `json:"perCurrencyBalances"`
}

// Position is one open position line for an account.
type Position struct {
	Symbol       string  `json:"symbol"`
	SymbolID     int     `json:"symbolId"`
	OpenQuantity float64 `json:"openQuantity"`
	CurrentValue float64 `json:"currentMarketValue"`
}

// PositionsResponse wraps the account positions endpoint body.
type PositionsResponse struct {
	Positions []Position `json:"positions"`
}

// Quote is one market quote line.
type Quote struct {
	Symbol         string  `json:"symbol"`
	SymbolID       int     `json:"symbolId"`
	LastTradePrice float64 `json:"lastTradePrice"`
	OpenPrice      float64 `json:"openPrice"`
}

// QuotesResponse wraps the market quotes endpoint body.
type QuotesResponse struct {
	Quotes []Quote `json:"quotes"`
}

// SymbolDetail is one symbol metadata line.
type SymbolDetail struct {
	Symbol            string  `json:"symbol"`
	SymbolID          int     `json:"symbolId"`
	Description       string  `json:"description"`
	PrevDayClosePrice float64 `json:"prevDayClosePrice"`
}

// SymbolsResponse wraps the symbol details endpoint body.
type SymbolsResponse struct {
	Symbols []SymbolDetail `json:"symbols"`
}
