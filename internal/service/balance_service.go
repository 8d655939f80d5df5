package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foyerhq/home-api/internal/model"
)

// brokerageAPI is the slice of the brokerage client the aggregator needs.
type brokerageAPI interface {
	Accounts(ctx context.Context, cred *model.Credential) (*model.AccountsResponse, error)
	Balances(ctx context.Context, cred *model.Credential, accountNumber string) (*model.BalancesResponse, error)
}

// BalanceService aggregates CAD balances across accounts and owners.
type BalanceService struct {
	api    brokerageAPI
	logger *zap.Logger
}

// NewBalanceService creates a new balance service
func NewBalanceService(api brokerageAPI, logger *zap.Logger) *BalanceService {
	return &BalanceService{
		api:    api,
		logger: logger,
	}
}

// AccountNumbers returns the owner's account numbers.
func (s *BalanceService) AccountNumbers(ctx context.Context, cred *model.Credential) ([]string, error) {
	resp, err := s.api.Accounts(ctx, cred)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(resp.Accounts))
	for _, account := range resp.Accounts {
		numbers = append(numbers, account.Number)
	}

	return numbers, nil
}

// AccountBalance returns the CAD total equity for one account. A balance
// response without a CAD entry is a defect, not a zero.
func (s *BalanceService) AccountBalance(ctx context.Context, cred *model.Credential, accountNumber string) (decimal.Decimal, error) {
	resp, err := s.api.Balances(ctx, cred, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}

	for _, balance := range resp.PerCurrencyBalances {
		if balance.Currency == "CAD" {
			return decimal.NewFromFloat(balance.TotalEquity), nil
		}
	}

	return decimal.Zero, model.NewDefectError("no CAD balance entry for account %s", accountNumber)
}

// TotalBalance sums CAD equity across all of one owner's accounts. The
// per-account fetches run concurrently; the first failure cancels the
// rest and aborts the pass.
func (s *BalanceService) TotalBalance(ctx context.Context, cred *model.Credential) (decimal.Decimal, error) {
	numbers, err := s.AccountNumbers(ctx, cred)
	if err != nil {
		return decimal.Zero, err
	}

	g, ctx := errgroup.WithContext(ctx)
	amounts := make([]decimal.Decimal, len(numbers))
	for i, number := range numbers {
		i, number := i, number
		g.Go(func() error {
			amount, err := s.AccountBalance(ctx, cred, number)
			if err != nil {
				return err
			}
			amounts[i] = amount
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}

	return total, nil
}

// AggregateBalance sums TotalBalance across all owners concurrently. This
// is the canonical current household balance in CAD.
func (s *BalanceService) AggregateBalance(ctx context.Context, creds []model.Credential) (decimal.Decimal, error) {
	g, ctx := errgroup.WithContext(ctx)
	totals := make([]decimal.Decimal, len(creds))
	for i := range creds {
		i := i
		cred := creds[i]
		g.Go(func() error {
			total, err := s.TotalBalance(ctx, &cred)
			if err != nil {
				return err
			}
			totals[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, t := range totals {
		total = total.Add(t)
	}

	return total, nil
}
