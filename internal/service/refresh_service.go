package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

type credentialLister interface {
	ListActive(ctx context.Context) ([]model.Credential, error)
}

type balanceAggregator interface {
	AccountBalance(ctx context.Context, cred *model.Credential, accountNumber string) (decimal.Decimal, error)
	AggregateBalance(ctx context.Context, creds []model.Credential) (decimal.Decimal, error)
}

type marketDataAPI interface {
	Accounts(ctx context.Context, cred *model.Credential) (*model.AccountsResponse, error)
	Positions(ctx context.Context, cred *model.Credential, accountNumber string) (*model.PositionsResponse, error)
	Quotes(ctx context.Context, cred *model.Credential, symbolIDs []int) (*model.QuotesResponse, error)
	Symbols(ctx context.Context, cred *model.Credential, symbolIDs []int) (*model.SymbolsResponse, error)
}

type snapshotWriter interface {
	Upsert(ctx context.Context, amount decimal.Decimal) (*model.DailySnapshot, error)
}

type documentWriter interface {
	Put(ctx context.Context, docType model.DocType, payload interface{}) error
}

type rateSource interface {
	USDToCAD(ctx context.Context) (float64, error)
}

// Notifier is a one-way best-effort message send. Implementations never
// report delivery failures back to the caller.
type Notifier interface {
	Notify(text string)
}

type eventPublisher interface {
	PublishBalanceUpdated(ctx context.Context, amount float64)
}

// RefreshService rebuilds the balance snapshot and the singleton cache
// documents from upstream. It backs both the scheduler and the dashboard's
// lazy populate path.
type RefreshService struct {
	creds     credentialLister
	balances  balanceAggregator
	api       marketDataAPI
	snapshots snapshotWriter
	documents documentWriter
	rates     rateSource
	notifier  Notifier
	events    eventPublisher
	logger    *zap.Logger
}

// NewRefreshService creates a new refresh service
func NewRefreshService(
	creds credentialLister,
	balances balanceAggregator,
	api marketDataAPI,
	snapshots snapshotWriter,
	documents documentWriter,
	rates rateSource,
	notifier Notifier,
	events eventPublisher,
	logger *zap.Logger,
) *RefreshService {
	return &RefreshService{
		creds:     creds,
		balances:  balances,
		api:       api,
		snapshots: snapshots,
		documents: documents,
		rates:     rates,
		notifier:  notifier,
		events:    events,
		logger:    logger,
	}
}

// RefreshBalance runs one full refresh pass: aggregate the household
// balance, snapshot it when positive, then rebuild every singleton cache.
func (s *RefreshService) RefreshBalance(ctx context.Context) error {
	creds, err := s.creds.ListActive(ctx)
	if err != nil {
		return err
	}

	total, err := s.balances.AggregateBalance(ctx, creds)
	if err != nil {
		return err
	}

	if total.IsPositive() {
		if _, err := s.snapshots.Upsert(ctx, total); err != nil {
			return err
		}
		amount, _ := total.Float64()
		s.events.PublishBalanceUpdated(ctx, amount)
		s.logger.Info("balance snapshot updated", zap.String("amount", total.String()))
	} else {
		s.logger.Warn("aggregate balance not positive, snapshot skipped",
			zap.String("amount", total.String()))
	}

	// Cache rebuilds reuse the already-refreshed credentials
	if err := s.refreshAccounts(ctx, creds); err != nil {
		return err
	}
	if err := s.refreshSymbols(ctx, creds); err != nil {
		return err
	}
	return s.RefreshExchangeRate(ctx)
}

// RunScheduled executes one best-effort cycle. All failures are caught and
// logged here so a bad cycle never takes the scheduler down; the household
// is notified, delivery itself being best effort too.
func (s *RefreshService) RunScheduled(ctx context.Context) {
	if err := s.RefreshBalance(ctx); err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err))
		s.notifier.Notify(fmt.Sprintf("Investment refresh failed: %v", err))
	}
}

// RefreshAccountsCache rebuilds the accounts cache from upstream.
func (s *RefreshService) RefreshAccountsCache(ctx context.Context) error {
	creds, err := s.creds.ListActive(ctx)
	if err != nil {
		return err
	}
	return s.refreshAccounts(ctx, creds)
}

func (s *RefreshService) refreshAccounts(ctx context.Context, creds []model.Credential) error {
	entries := make([]model.AccountEntry, 0)

	for i := range creds {
		cred := &creds[i]
		resp, err := s.api.Accounts(ctx, cred)
		if err != nil {
			return err
		}
		for _, account := range resp.Accounts {
			amount, err := s.balances.AccountBalance(ctx, cred, account.Number)
			if err != nil {
				return err
			}
			value, _ := amount.Float64()
			entries = append(entries, model.AccountEntry{
				AccountNumber: account.Number,
				AccountType:   account.Type,
				Owner:         cred.Owner,
				Balance:       value,
			})
		}
	}

	return s.documents.Put(ctx, model.DocTypeAccounts, model.AccountsPayload{Accounts: entries})
}

// RefreshSymbolsCache rebuilds the symbols cache from upstream.
func (s *RefreshService) RefreshSymbolsCache(ctx context.Context) error {
	creds, err := s.creds.ListActive(ctx)
	if err != nil {
		return err
	}
	return s.refreshSymbols(ctx, creds)
}

func (s *RefreshService) refreshSymbols(ctx context.Context, creds []model.Credential) error {
	// First-seen wins for each symbol id across all owners and accounts
	seen := make(map[int]bool)
	ordered := make([]model.Position, 0)

	for i := range creds {
		cred := &creds[i]
		resp, err := s.api.Accounts(ctx, cred)
		if err != nil {
			return err
		}
		for _, account := range resp.Accounts {
			positions, err := s.api.Positions(ctx, cred, account.Number)
			if err != nil {
				return err
			}
			for _, position := range positions.Positions {
				if position.OpenQuantity <= 0 || seen[position.SymbolID] {
					continue
				}
				seen[position.SymbolID] = true
				ordered = append(ordered, position)
			}
		}
	}

	if len(ordered) == 0 {
		return s.documents.Put(ctx, model.DocTypeSymbols, model.SymbolsPayload{Symbols: []model.SymbolEntry{}})
	}

	ids := make([]int, 0, len(ordered))
	for _, position := range ordered {
		ids = append(ids, position.SymbolID)
	}

	// One representative credential serves the batch market lookups
	rep := &creds[0]
	quotes, err := s.api.Quotes(ctx, rep, ids)
	if err != nil {
		return err
	}
	details, err := s.api.Symbols(ctx, rep, ids)
	if err != nil {
		return err
	}

	quotesByID := make(map[int]model.Quote, len(quotes.Quotes))
	for _, quote := range quotes.Quotes {
		quotesByID[quote.SymbolID] = quote
	}
	detailsByID := make(map[int]model.SymbolDetail, len(details.Symbols))
	for _, detail := range details.Symbols {
		detailsByID[detail.SymbolID] = detail
	}

	entries := make([]model.SymbolEntry, 0, len(ordered))
	for _, position := range ordered {
		quote := quotesByID[position.SymbolID]
		detail := detailsByID[position.SymbolID]
		entries = append(entries, model.SymbolEntry{
			Symbol:           position.Symbol,
			SymbolID:         position.SymbolID,
			Description:      detail.Description,
			DayChangePercent: dayChangePercent(quote, detail),
		})
	}

	return s.documents.Put(ctx, model.DocTypeSymbols, model.SymbolsPayload{Symbols: entries})
}

// dayChangePercent computes the day move against the previous close,
// falling back to the day's open when no previous close is available.
func dayChangePercent(quote model.Quote, detail model.SymbolDetail) float64 {
	base := detail.PrevDayClosePrice
	if base <= 0 {
		base = quote.OpenPrice
	}
	if base <= 0 {
		return 0
	}
	return percentChange(decimal.NewFromFloat(quote.LastTradePrice), decimal.NewFromFloat(base))
}

// RefreshExchangeRate rebuilds the exchange-rate cache.
func (s *RefreshService) RefreshExchangeRate(ctx context.Context) error {
	rate, err := s.rates.USDToCAD(ctx)
	if err != nil {
		return err
	}
	return s.documents.Put(ctx, model.DocTypeExchangeRate, model.ExchangeRatePayload{Rate: rate})
}
