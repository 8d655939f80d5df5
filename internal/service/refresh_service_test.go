package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// marshalDocument renders a payload the way the document repository
// stores it.
func marshalDocument(docType model.DocType, payload interface{}) *model.CacheDocument {
	body, _ := json.Marshal(payload)
	return &model.CacheDocument{
		DocType:   docType,
		Payload:   body,
		UpdatedAt: time.Now().UTC(),
	}
}

// fakeQuestrade is an in-memory stand-in for the full brokerage client.
type fakeQuestrade struct {
	mu         sync.Mutex
	accounts   map[string][]model.BrokerageAccount
	balances   map[string][]model.CurrencyBalance
	positions  map[string][]model.Position
	quotes     map[int]model.Quote
	details    map[int]model.SymbolDetail
	quoteCreds []string
	quoteIDs   [][]int
}

func (f *fakeQuestrade) Accounts(ctx context.Context, cred *model.Credential) (*model.AccountsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.AccountsResponse{Accounts: f.accounts[cred.Owner]}, nil
}

func (f *fakeQuestrade) Balances(ctx context.Context, cred *model.Credential, accountNumber string) (*model.BalancesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.BalancesResponse{PerCurrencyBalances: f.balances[accountNumber]}, nil
}

func (f *fakeQuestrade) Positions(ctx context.Context, cred *model.Credential, accountNumber string) (*model.PositionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.PositionsResponse{Positions: f.positions[accountNumber]}, nil
}

func (f *fakeQuestrade) Quotes(ctx context.Context, cred *model.Credential, symbolIDs []int) (*model.QuotesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCreds = append(f.quoteCreds, cred.Owner)
	f.quoteIDs = append(f.quoteIDs, symbolIDs)
	out := make([]model.Quote, 0, len(symbolIDs))
	for _, id := range symbolIDs {
		if q, ok := f.quotes[id]; ok {
			out = append(out, q)
		}
	}
	return &model.QuotesResponse{Quotes: out}, nil
}

func (f *fakeQuestrade) Symbols(ctx context.Context, cred *model.Credential, symbolIDs []int) (*model.SymbolsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SymbolDetail, 0, len(symbolIDs))
	for _, id := range symbolIDs {
		if d, ok := f.details[id]; ok {
			out = append(out, d)
		}
	}
	return &model.SymbolsResponse{Symbols: out}, nil
}

type mockCredLister struct {
	creds []model.Credential
	err   error
}

func (m *mockCredLister) ListActive(ctx context.Context) ([]model.Credential, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.creds, nil
}

type mockSnapshotSink struct {
	upserts []decimal.Decimal
}

func (m *mockSnapshotSink) Upsert(ctx context.Context, amount decimal.Decimal) (*model.DailySnapshot, error) {
	m.upserts = append(m.upserts, amount)
	return &model.DailySnapshot{Amount: amount}, nil
}

// mockDocumentStore backs both the writer side used by the refresh flow
// and the reader side used by the dashboard tests.
type mockDocumentStore struct {
	docs    map[model.DocType]*model.CacheDocument
	puts    []model.DocType
	putErr  error
	getErr  error
	payload map[model.DocType]interface{}
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		docs:    make(map[model.DocType]*model.CacheDocument),
		payload: make(map[model.DocType]interface{}),
	}
}

func (m *mockDocumentStore) Put(ctx context.Context, docType model.DocType, payload interface{}) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, docType)
	m.payload[docType] = payload
	m.docs[docType] = marshalDocument(docType, payload)
	return nil
}

func (m *mockDocumentStore) Get(ctx context.Context, docType model.DocType) (*model.CacheDocument, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.docs[docType], nil
}

type mockRateSource struct {
	rate  float64
	err   error
	calls int
}

func (m *mockRateSource) USDToCAD(ctx context.Context) (float64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.rate, nil
}

type mockNotifier struct {
	messages []string
}

func (m *mockNotifier) Notify(text string) {
	m.messages = append(m.messages, text)
}

type mockEvents struct {
	amounts []float64
}

func (m *mockEvents) PublishBalanceUpdated(ctx context.Context, amount float64) {
	m.amounts = append(m.amounts, amount)
}

type refreshFixture struct {
	svc       *RefreshService
	api       *fakeQuestrade
	snapshots *mockSnapshotSink
	documents *mockDocumentStore
	rates     *mockRateSource
	notifier  *mockNotifier
	events    *mockEvents
}

func newRefreshFixture(creds credentialLister, api *fakeQuestrade) *refreshFixture {
	f := &refreshFixture{
		api:       api,
		snapshots: &mockSnapshotSink{},
		documents: newMockDocumentStore(),
		rates:     &mockRateSource{rate: 1.365},
		notifier:  &mockNotifier{},
		events:    &mockEvents{},
	}
	balances := NewBalanceService(api, zap.NewNop())
	f.svc = NewRefreshService(creds, balances, api, f.snapshots, f.documents, f.rates, f.notifier, f.events, zap.NewNop())
	return f
}

func TestRefreshBalanceWritesSnapshotAndAllCaches(t *testing.T) {
	creds := &mockCredLister{creds: []model.Credential{{Owner: "alice"}, {Owner: "bob"}}}
	api := &fakeQuestrade{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}},
			"bob":   {{Number: "2", Type: "RRSP"}},
		},
		balances: map[string][]model.CurrencyBalance{
			"1": cadBalance(50000),
			"2": cadBalance(25000),
		},
	}
	f := newRefreshFixture(creds, api)

	err := f.svc.RefreshBalance(context.Background())
	require.NoError(t, err)

	require.Len(t, f.snapshots.upserts, 1)
	assert.Equal(t, "75000", f.snapshots.upserts[0].String())
	assert.Equal(t, []float64{75000}, f.events.amounts)

	assert.Equal(t, []model.DocType{model.DocTypeAccounts, model.DocTypeSymbols, model.DocTypeExchangeRate}, f.documents.puts)
	assert.Equal(t, 1, f.rates.calls)
	assert.Empty(t, f.notifier.messages)
}

func TestRefreshBalanceSkipsSnapshotWhenTotalNotPositive(t *testing.T) {
	creds := &mockCredLister{creds: []model.Credential{{Owner: "alice"}}}
	api := &fakeQuestrade{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}},
		},
		balances: map[string][]model.CurrencyBalance{
			"1": {{Currency: "CAD", TotalEquity: 0}},
		},
	}
	f := newRefreshFixture(creds, api)

	err := f.svc.RefreshBalance(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.snapshots.upserts, "a non-positive total must not overwrite the snapshot")
	assert.Empty(t, f.events.amounts)
	// The singleton caches still refresh
	assert.Equal(t, []model.DocType{model.DocTypeAccounts, model.DocTypeSymbols, model.DocTypeExchangeRate}, f.documents.puts)
}

func TestRefreshAccountsCacheBuildsOrderedEntries(t *testing.T) {
	creds := &mockCredLister{creds: []model.Credential{{Owner: "alice"}, {Owner: "bob"}}}
	api := &fakeQuestrade{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}, {Number: "2", Type: "RRSP"}},
			"bob":   {{Number: "3", Type: "Margin"}},
		},
		balances: map[string][]model.CurrencyBalance{
			"1": cadBalance(30000),
			"2": cadBalance(25000),
			"3": cadBalance(20000),
		},
	}
	f := newRefreshFixture(creds, api)

	err := f.svc.RefreshAccountsCache(context.Background())
	require.NoError(t, err)

	payload, ok := f.documents.payload[model.DocTypeAccounts].(model.AccountsPayload)
	require.True(t, ok)
	require.Len(t, payload.Accounts, 3)

	assert.Equal(t, model.AccountEntry{AccountNumber: "1", AccountType: "TFSA", Owner: "alice", Balance: 30000}, payload.Accounts[0])
	assert.Equal(t, model.AccountEntry{AccountNumber: "2", AccountType: "RRSP", Owner: "alice", Balance: 25000}, payload.Accounts[1])
	assert.Equal(t, model.AccountEntry{AccountNumber: "3", AccountType: "Margin", Owner: "bob", Balance: 20000}, payload.Accounts[2])
}

func TestRefreshSymbolsCacheDeduplicatesFirstSeen(t *testing.T) {
	creds := &mockCredLister{creds: []model.Credential{{Owner: "alice"}, {Owner: "bob"}}}
	api := &fakeQuestrade{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}},
			"bob":   {{Number: "2", Type: "RRSP"}},
		},
		positions: map[string][]model.Position{
			"1": {
				{Symbol: "AAPL", SymbolID: 1, OpenQuantity: 10},
				{Symbol: "MSFT", SymbolID: 2, OpenQuantity: 5},
				{Symbol: "SOLD", SymbolID: 9, OpenQuantity: 0},
			},
			"2": {
				{Symbol: "AAPL", SymbolID: 1, OpenQuantity: 3},
				{Symbol: "VFV.TO", SymbolID: 3, OpenQuantity: 20},
			},
		},
		quotes: map[int]model.Quote{
			1: {SymbolID: 1, LastTradePrice: 120.50, OpenPrice: 119.00},
			2: {SymbolID: 2, LastTradePrice: 300, OpenPrice: 290},
			3: {SymbolID: 3, LastTradePrice: 100, OpenPrice: 101},
		},
		details: map[int]model.SymbolDetail{
			1: {SymbolID: 1, Description: "Apple Inc."},
			2: {SymbolID: 2, Description: "Microsoft Corp.", PrevDayClosePrice: 295},
			3: {SymbolID: 3, Description: "Vanguard S&P 500"},
		},
	}
	f := newRefreshFixture(creds, api)

	err := f.svc.RefreshSymbolsCache(context.Background())
	require.NoError(t, err)

	payload, ok := f.documents.payload[model.DocTypeSymbols].(model.SymbolsPayload)
	require.True(t, ok)
	require.Len(t, payload.Symbols, 3, "duplicate and closed positions must be dropped")

	assert.Equal(t, []int{1, 2, 3}, []int{
		payload.Symbols[0].SymbolID,
		payload.Symbols[1].SymbolID,
		payload.Symbols[2].SymbolID,
	}, "first-seen order must be preserved")
	assert.Equal(t, "Apple Inc.", payload.Symbols[0].Description)

	// No previous close for AAPL: the open price is the base
	assert.InDelta(t, 1.26, payload.Symbols[0].DayChangePercent, 0.001)
	// MSFT has a previous close, which wins over the open
	assert.InDelta(t, 1.69, payload.Symbols[1].DayChangePercent, 0.001)

	// The market lookups go through the first credential only
	require.Equal(t, []string{"alice"}, api.quoteCreds)
	require.Len(t, api.quoteIDs, 1)
	assert.Equal(t, []int{1, 2, 3}, api.quoteIDs[0])
}

func TestRefreshSymbolsCacheEmptyPositionsWritesEmptyList(t *testing.T) {
	creds := &mockCredLister{creds: []model.Credential{{Owner: "alice"}}}
	api := &fakeQuestrade{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}},
		},
	}
	f := newRefreshFixture(creds, api)

	err := f.svc.RefreshSymbolsCache(context.Background())
	require.NoError(t, err)

	payload, ok := f.documents.payload[model.DocTypeSymbols].(model.SymbolsPayload)
	require.True(t, ok)
	assert.Empty(t, payload.Symbols)
	assert.Empty(t, api.quoteIDs, "no market lookup for an empty symbol set")
}

func TestDayChangePercent(t *testing.T) {
	tests := []struct {
		name   string
		quote  model.Quote
		detail model.SymbolDetail
		want   float64
	}{
		{
			name:   "open price fallback when no previous close",
			quote:  model.Quote{LastTradePrice: 120.50, OpenPrice: 119.00},
			detail: model.SymbolDetail{},
			want:   1.26,
		},
		{
			name:   "previous close preferred over open",
			quote:  model.Quote{LastTradePrice: 102, OpenPrice: 99},
			detail: model.SymbolDetail{PrevDayClosePrice: 100},
			want:   2.00,
		},
		{
			name:   "zero base yields zero, not a division error",
			quote:  model.Quote{LastTradePrice: 120.50},
			detail: model.SymbolDetail{},
			want:   0,
		},
		{
			name:   "negative move",
			quote:  model.Quote{LastTradePrice: 98, OpenPrice: 100},
			detail: model.SymbolDetail{},
			want:   -2.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, dayChangePercent(tt.quote, tt.detail), 0.001)
		})
	}
}

func TestRefreshExchangeRateWritesSingleton(t *testing.T) {
	creds := &mockCredLister{}
	f := newRefreshFixture(creds, &fakeQuestrade{})

	require.NoError(t, f.svc.RefreshExchangeRate(context.Background()))
	require.NoError(t, f.svc.RefreshExchangeRate(context.Background()))

	assert.Equal(t, 2, f.rates.calls)
	assert.Equal(t, []model.DocType{model.DocTypeExchangeRate, model.DocTypeExchangeRate}, f.documents.puts)

	payload, ok := f.documents.payload[model.DocTypeExchangeRate].(model.ExchangeRatePayload)
	require.True(t, ok)
	assert.Equal(t, 1.365, payload.Rate)
}

func TestRunScheduledSwallowsFailuresAndNotifies(t *testing.T) {
	creds := &mockCredLister{err: errors.New("database on fire")}
	f := newRefreshFixture(creds, &fakeQuestrade{})

	// Must not panic or propagate
	f.svc.RunScheduled(context.Background())

	assert.Empty(t, f.snapshots.upserts)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "refresh failed")
}
