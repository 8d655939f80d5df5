package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// mockBrokerage serves canned accounts and balances keyed by owner and
// account number. It is safe for the concurrent fetches the aggregator
// issues.
type mockBrokerage struct {
	mu           sync.Mutex
	accounts     map[string][]model.BrokerageAccount
	balances     map[string][]model.CurrencyBalance
	balanceErr   error
	balanceCalls []string
}

func (m *mockBrokerage) Accounts(ctx context.Context, cred *model.Credential) (*model.AccountsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.AccountsResponse{Accounts: m.accounts[cred.Owner]}, nil
}

func (m *mockBrokerage) Balances(ctx context.Context, cred *model.Credential, accountNumber string) (*model.BalancesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceCalls = append(m.balanceCalls, accountNumber)
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &model.BalancesResponse{PerCurrencyBalances: m.balances[accountNumber]}, nil
}

func cadBalance(amount float64) []model.CurrencyBalance {
	return []model.CurrencyBalance{
		{Currency: "USD", TotalEquity: amount / 1.3},
		{Currency: "CAD", TotalEquity: amount},
	}
}

func TestAccountBalancePicksCADEntry(t *testing.T) {
	api := &mockBrokerage{
		balances: map[string][]model.CurrencyBalance{
			"26598145": cadBalance(30000),
		},
	}
	svc := NewBalanceService(api, zap.NewNop())

	amount, err := svc.AccountBalance(context.Background(), &model.Credential{Owner: "alice"}, "26598145")
	require.NoError(t, err)
	assert.Equal(t, "30000", amount.String())
}

func TestAccountBalanceMissingCADIsDefect(t *testing.T) {
	api := &mockBrokerage{
		balances: map[string][]model.CurrencyBalance{
			"26598145": {{Currency: "USD", TotalEquity: 1000}},
		},
	}
	svc := NewBalanceService(api, zap.NewNop())

	_, err := svc.AccountBalance(context.Background(), &model.Credential{Owner: "alice"}, "26598145")

	var defect *model.DefectError
	require.ErrorAs(t, err, &defect)
}

func TestTotalBalanceSumsAllAccounts(t *testing.T) {
	api := &mockBrokerage{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {
				{Number: "1", Type: "TFSA"},
				{Number: "2", Type: "RRSP"},
				{Number: "3", Type: "Margin"},
			},
		},
		balances: map[string][]model.CurrencyBalance{
			"1": cadBalance(30000),
			"2": cadBalance(25000),
			"3": cadBalance(20000),
		},
	}
	svc := NewBalanceService(api, zap.NewNop())

	total, err := svc.TotalBalance(context.Background(), &model.Credential{Owner: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "75000", total.String())
	assert.Len(t, api.balanceCalls, 3)
}

func TestTotalBalanceEmptyAccountListIsZero(t *testing.T) {
	api := &mockBrokerage{}
	svc := NewBalanceService(api, zap.NewNop())

	total, err := svc.TotalBalance(context.Background(), &model.Credential{Owner: "alice"})
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	assert.Empty(t, api.balanceCalls)
}

func TestAggregateBalanceSumsAcrossOwners(t *testing.T) {
	api := &mockBrokerage{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}},
			"bob":   {{Number: "2", Type: "RRSP"}, {Number: "3", Type: "TFSA"}},
		},
		balances: map[string][]model.CurrencyBalance{
			"1": cadBalance(50000),
			"2": cadBalance(10000),
			"3": cadBalance(15000),
		},
	}
	svc := NewBalanceService(api, zap.NewNop())

	total, err := svc.AggregateBalance(context.Background(), []model.Credential{
		{Owner: "alice"},
		{Owner: "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, "75000", total.String())
}

func TestAggregateBalanceAbortsOnFirstError(t *testing.T) {
	api := &mockBrokerage{
		accounts: map[string][]model.BrokerageAccount{
			"alice": {{Number: "1", Type: "TFSA"}},
			"bob":   {{Number: "2", Type: "RRSP"}},
		},
		balanceErr: model.NewAPIError("https://api.example.com/v1/accounts/2/balances", 429, "rate limited"),
	}
	svc := NewBalanceService(api, zap.NewNop())

	_, err := svc.AggregateBalance(context.Background(), []model.Credential{
		{Owner: "alice"},
		{Owner: "bob"},
	})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Status)
}
