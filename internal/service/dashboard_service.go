package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/config"
	"github.com/foyerhq/home-api/internal/model"
)

const dashboardCacheKey = "dashboard:v1"

type snapshotStore interface {
	Latest(ctx context.Context) (*model.DailySnapshot, error)
	ByDate(ctx context.Context, date time.Time) (*model.DailySnapshot, error)
	TodayIfFresh(ctx context.Context, window time.Duration) (*model.DailySnapshot, error)
	History(ctx context.Context, days int) ([]model.HistoryPoint, error)
	Upsert(ctx context.Context, amount decimal.Decimal) (*model.DailySnapshot, error)
}

type documentReader interface {
	Get(ctx context.Context, docType model.DocType) (*model.CacheDocument, error)
}

type cacheRefresher interface {
	RefreshAccountsCache(ctx context.Context) error
	RefreshSymbolsCache(ctx context.Context) error
	RefreshExchangeRate(ctx context.Context) error
}

// DashboardService composes the investments responses from the cache
// layer, reaching upstream only when a cache is stale or absent.
type DashboardService struct {
	snapshots snapshotStore
	documents documentReader
	creds     credentialLister
	balances  balanceAggregator
	refresher cacheRefresher
	cache     *redis.Client
	cacheCfg  config.CacheConfig
	logger    *zap.Logger
}

// NewDashboardService creates a new dashboard service. The Redis client is
// optional; a nil client disables response caching.
func NewDashboardService(
	snapshots snapshotStore,
	documents documentReader,
	creds credentialLister,
	balances balanceAggregator,
	refresher cacheRefresher,
	cache *redis.Client,
	cacheCfg config.CacheConfig,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		snapshots: snapshots,
		documents: documents,
		creds:     creds,
		balances:  balances,
		refresher: refresher,
		cache:     cache,
		cacheCfg:  cacheCfg,
		logger:    logger,
	}
}

// Balance returns today's snapshot when it was written inside the
// freshness window, recomputing from upstream and snapshotting otherwise.
func (s *DashboardService) Balance(ctx context.Context) (float64, error) {
	snap, err := s.snapshots.TodayIfFresh(ctx, s.cacheCfg.FreshnessWindow)
	if err != nil {
		return 0, err
	}
	if snap != nil {
		value, _ := snap.Amount.Float64()
		return value, nil
	}

	total, err := s.aggregate(ctx)
	if err != nil {
		return 0, err
	}
	if total.IsPositive() {
		if _, err := s.snapshots.Upsert(ctx, total); err != nil {
			return 0, err
		}
	}

	value, _ := total.Float64()
	return value, nil
}

// ForceBalance recomputes the household total straight from upstream,
// bypassing every cache.
func (s *DashboardService) ForceBalance(ctx context.Context) (float64, error) {
	total, err := s.aggregate(ctx)
	if err != nil {
		return 0, err
	}
	value, _ := total.Float64()
	return value, nil
}

func (s *DashboardService) aggregate(ctx context.Context) (decimal.Decimal, error) {
	creds, err := s.creds.ListActive(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return s.balances.AggregateBalance(ctx, creds)
}

// ChangeRatio returns the latest balance divided by yesterday's, rounded
// to two decimals. A missing or non-positive yesterday yields 0.
func (s *DashboardService) ChangeRatio(ctx context.Context) (float64, error) {
	latest, err := s.snapshots.Latest(ctx)
	if err != nil {
		return 0, err
	}

	yesterday, err := s.snapshots.ByDate(ctx, time.Now().UTC().AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	if yesterday == nil {
		return 0, nil
	}

	return changeRatio(latest.Amount, yesterday.Amount), nil
}

// Dashboard assembles the full investments payload. Absent cache
// documents are populated once and re-read; a section that still cannot
// be served degrades to empty rather than failing the response.
func (s *DashboardService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	if cached := s.fromResponseCache(ctx); cached != nil {
		return cached, nil
	}

	latest, err := s.snapshots.Latest(ctx)
	if err != nil {
		return nil, err
	}

	yesterday, err := s.snapshots.ByDate(ctx, time.Now().UTC().AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	changePercent := 0.0
	if yesterday != nil {
		changePercent = percentChange(latest.Amount, yesterday.Amount)
	}

	history, err := s.snapshots.History(ctx, s.cacheCfg.HistoryDays)
	if err != nil {
		return nil, err
	}

	accounts, accountsUpdated, err := s.accountsSection(ctx)
	if err != nil {
		return nil, err
	}

	symbols, symbolsUpdated, err := s.symbolsSection(ctx)
	if err != nil {
		return nil, err
	}

	rate, err := s.exchangeRateSection(ctx)
	if err != nil {
		return nil, err
	}

	balance, _ := latest.Amount.Float64()
	dashboard := &model.Dashboard{
		Balance:       balance,
		ChangePercent: changePercent,
		History:       history,
		Accounts:      accounts,
		Symbols:       symbols,
		ExchangeRate:  rate,
		LastUpdated:   lastUpdated(accountsUpdated, symbolsUpdated),
	}

	s.storeResponseCache(ctx, dashboard)

	return dashboard, nil
}

// lastUpdated picks the most recent of the two cache stamps, defaulting
// to now when neither cache has ever been written.
func lastUpdated(accounts, symbols *time.Time) time.Time {
	switch {
	case accounts != nil && symbols != nil:
		if symbols.After(*accounts) {
			return *symbols
		}
		return *accounts
	case accounts != nil:
		return *accounts
	case symbols != nil:
		return *symbols
	default:
		return time.Now().UTC()
	}
}

func (s *DashboardService) accountsSection(ctx context.Context) ([]model.AccountEntry, *time.Time, error) {
	var payload model.AccountsPayload
	updated, err := s.readDocument(ctx, model.DocTypeAccounts, s.refresher.RefreshAccountsCache, &payload)
	if err != nil {
		return nil, nil, err
	}
	if updated == nil || payload.Accounts == nil {
		return []model.AccountEntry{}, updated, nil
	}
	return payload.Accounts, updated, nil
}

func (s *DashboardService) symbolsSection(ctx context.Context) ([]model.SymbolEntry, *time.Time, error) {
	var payload model.SymbolsPayload
	updated, err := s.readDocument(ctx, model.DocTypeSymbols, s.refresher.RefreshSymbolsCache, &payload)
	if err != nil {
		return nil, nil, err
	}
	if updated == nil || payload.Symbols == nil {
		return []model.SymbolEntry{}, updated, nil
	}
	return payload.Symbols, updated, nil
}

func (s *DashboardService) exchangeRateSection(ctx context.Context) (float64, error) {
	var payload model.ExchangeRatePayload
	updated, err := s.readDocument(ctx, model.DocTypeExchangeRate, s.refresher.RefreshExchangeRate, &payload)
	if err != nil {
		return 0, err
	}
	if updated == nil {
		return 0, nil
	}
	return payload.Rate, nil
}

// readDocument returns a cache document's payload and stamp, triggering at
// most one populate attempt when the document has never been written. A
// populate failure degrades the section instead of failing the dashboard.
func (s *DashboardService) readDocument(ctx context.Context, docType model.DocType, populate func(context.Context) error, out interface{}) (*time.Time, error) {
	doc, err := s.documents.Get(ctx, docType)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		s.logger.Info("cache document absent, populating", zap.String("type", string(docType)))
		if err := populate(ctx); err != nil {
			s.logger.Warn("cache populate failed",
				zap.String("type", string(docType)),
				zap.Error(err))
			return nil, nil
		}
		doc, err = s.documents.Get(ctx, docType)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}
	}

	if err := json.Unmarshal(doc.Payload, out); err != nil {
		return nil, model.NewCacheReadError(err)
	}

	return &doc.UpdatedAt, nil
}

// fromResponseCache serves a recently composed dashboard, if Redis is
// configured and holds one.
func (s *DashboardService) fromResponseCache(ctx context.Context) *model.Dashboard {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("dashboard cache read failed", zap.Error(err))
		}
		return nil
	}

	var dashboard model.Dashboard
	if err := json.Unmarshal(data, &dashboard); err != nil {
		return nil
	}

	return &dashboard
}

func (s *DashboardService) storeResponseCache(ctx context.Context, dashboard *model.Dashboard) {
	if s.cache == nil || s.cacheCfg.DashboardTTL <= 0 {
		return
	}

	data, err := json.Marshal(dashboard)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, data, s.cacheCfg.DashboardTTL).Err(); err != nil {
		s.logger.Debug("dashboard cache write failed", zap.Error(err))
	}
}
