package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// ExchangeRateClient fetches the USD to CAD rate from a configurable JSON
// API. The rate location inside the response is a JSONPath expression so a
// provider swap is a config change, not a code change.
type ExchangeRateClient struct {
	url        string
	ratePath   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewExchangeRateClient creates a new exchange-rate client
func NewExchangeRateClient(url, ratePath string, timeout time.Duration, logger *zap.Logger) *ExchangeRateClient {
	return &ExchangeRateClient{
		url:      url,
		ratePath: ratePath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// USDToCAD returns the current USD to CAD conversion rate.
func (c *ExchangeRateClient) USDToCAD(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to reach exchange-rate API", zap.Error(err), zap.String("url", c.url))
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("exchange-rate API error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(bodyBytes)))
		return 0, model.NewAPIError(c.url, resp.StatusCode, string(bodyBytes))
	}

	var doc interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		c.logger.Error("failed to decode exchange-rate response", zap.Error(err))
		return 0, fmt.Errorf("failed to decode exchange rate: %w", err)
	}

	val, err := jsonpath.Get(c.ratePath, doc)
	if err != nil {
		return 0, fmt.Errorf("rate path %q not found in response: %w", c.ratePath, err)
	}
	// Path expressions with filters come back as a list of one
	if list, ok := val.([]interface{}); ok && len(list) > 0 {
		val = list[0]
	}

	rate, ok := val.(float64)
	if !ok {
		return 0, model.NewDefectError("rate at %q is %T, not a number", c.ratePath, val)
	}
	if rate <= 0 {
		return 0, model.NewDefectError("rate at %q is non-positive: %v", c.ratePath, rate)
	}

	return rate, nil
}
