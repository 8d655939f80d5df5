package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
	"github.com/foyerhq/home-api/internal/ratelimit"
)

// QuestradeClient handles communication with the Questrade API. Token
// exchanges go straight to the login server; every data call is admitted
// through one of the two shared throttle queues before dispatch.
type QuestradeClient struct {
	loginURL     string
	httpClient   *http.Client
	accountQueue *ratelimit.Queue
	marketQueue  *ratelimit.Queue
	logger       *zap.Logger
}

// NewQuestradeClient creates a new Questrade API client
func NewQuestradeClient(loginURL string, timeout time.Duration, accountQueue, marketQueue *ratelimit.Queue, logger *zap.Logger) *QuestradeClient {
	return &QuestradeClient{
		loginURL: strings.TrimSuffix(loginURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		accountQueue: accountQueue,
		marketQueue:  marketQueue,
		logger:       logger,
	}
}

// RefreshToken exchanges a refresh token for a new grant against the login
// server. Exchanges are not throttled; the login host is rate limited
// independently of the data API.
func (c *QuestradeClient) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	reqURL := fmt.Sprintf("%s/oauth2/token", c.loginURL)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to reach login server", zap.Error(err))
		return nil, fmt.Errorf("failed to exchange refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("token exchange rejected",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(bodyBytes)))
		return nil, model.NewAuthError(resp.StatusCode)
	}

	var grant model.TokenGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		c.logger.Error("failed to decode token grant", zap.Error(err))
		return nil, fmt.Errorf("failed to decode token grant: %w", err)
	}

	return &grant, nil
}

// Accounts retrieves the owner's account list.
func (c *QuestradeClient) Accounts(ctx context.Context, cred *model.Credential) (*model.AccountsResponse, error) {
	var out model.AccountsResponse
	if err := c.getJSON(ctx, c.accountQueue, cred, "v1/accounts", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balances retrieves per-currency balances for one account.
func (c *QuestradeClient) Balances(ctx context.Context, cred *model.Credential, accountNumber string) (*model.BalancesResponse, error) {
	var out model.BalancesResponse
	path := fmt.Sprintf("v1/accounts/%s/balances", accountNumber)
	if err := c.getJSON(ctx, c.accountQueue, cred, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Positions retrieves open positions for one account.
func (c *QuestradeClient) Positions(ctx context.Context, cred *model.Credential, accountNumber string) (*model.PositionsResponse, error) {
	var out model.PositionsResponse
	path := fmt.Sprintf("v1/accounts/%s/positions", accountNumber)
	if err := c.getJSON(ctx, c.accountQueue, cred, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quotes retrieves market quotes for a batch of symbol ids.
func (c *QuestradeClient) Quotes(ctx context.Context, cred *model.Credential, symbolIDs []int) (*model.QuotesResponse, error) {
	var out model.QuotesResponse
	path := "v1/markets/quotes?ids=" + joinIDs(symbolIDs)
	if err := c.getJSON(ctx, c.marketQueue, cred, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Symbols retrieves symbol details for a batch of symbol ids.
func (c *QuestradeClient) Symbols(ctx context.Context, cred *model.Credential, symbolIDs []int) (*model.SymbolsResponse, error) {
	var out model.SymbolsResponse
	path := "v1/symbols?ids=" + joinIDs(symbolIDs)
	if err := c.getJSON(ctx, c.marketQueue, cred, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON admits a GET through the given queue, checks the status and
// decodes the body. Non-success responses surface as APIError and are not
// retried at this layer.
func (c *QuestradeClient) getJSON(ctx context.Context, queue *ratelimit.Queue, cred *model.Credential, path string, out interface{}) error {
	reqURL := strings.TrimSuffix(cred.APIServer, "/") + "/" + path

	return queue.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("failed to reach brokerage API",
				zap.Error(err),
				zap.String("url", reqURL),
				zap.String("owner", cred.Owner))
			return fmt.Errorf("failed to call %s: %w", reqURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			c.logger.Error("brokerage API error response",
				zap.Int("statusCode", resp.StatusCode),
				zap.String("url", reqURL),
				zap.String("response", string(bodyBytes)))
			return model.NewAPIError(reqURL, resp.StatusCode, string(bodyBytes))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.logger.Error("failed to decode brokerage response",
				zap.Error(err),
				zap.String("url", reqURL))
			return fmt.Errorf("failed to decode response from %s: %w", reqURL, err)
		}

		return nil
	})
}

func joinIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}
