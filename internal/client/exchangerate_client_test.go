package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

func rateServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestUSDToCADExtractsConfiguredPath(t *testing.T) {
	server := rateServer(t, http.StatusOK, `{"base": "USD", "rates": {"CAD": 1.365, "EUR": 0.92}}`)

	c := NewExchangeRateClient(server.URL, "$.rates.CAD", 5*time.Second, zap.NewNop())

	rate, err := c.USDToCAD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.365, rate)
}

func TestUSDToCADUnwrapsSingleElementList(t *testing.T) {
	server := rateServer(t, http.StatusOK, `{"rates": {"CAD": 1.41}}`)

	c := NewExchangeRateClient(server.URL, "$.rates[*]", 5*time.Second, zap.NewNop())

	rate, err := c.USDToCAD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.41, rate)
}

func TestUSDToCADUpstreamFailure(t *testing.T) {
	server := rateServer(t, http.StatusBadGateway, "upstream exploded")

	c := NewExchangeRateClient(server.URL, "$.rates.CAD", 5*time.Second, zap.NewNop())

	_, err := c.USDToCAD(context.Background())
	require.Error(t, err)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, server.URL, apiErr.URL)
}

func TestUSDToCADMissingPath(t *testing.T) {
	server := rateServer(t, http.StatusOK, `{"base": "USD", "rates": {"EUR": 0.92}}`)

	c := NewExchangeRateClient(server.URL, "$.rates.CAD", 5*time.Second, zap.NewNop())

	_, err := c.USDToCAD(context.Background())
	require.Error(t, err)
}

func TestUSDToCADNonNumericRate(t *testing.T) {
	server := rateServer(t, http.StatusOK, `{"rates": {"CAD": "1.365"}}`)

	c := NewExchangeRateClient(server.URL, "$.rates.CAD", 5*time.Second, zap.NewNop())

	_, err := c.USDToCAD(context.Background())
	require.Error(t, err)

	var defect *model.DefectError
	require.ErrorAs(t, err, &defect)
}

func TestUSDToCADRejectsNonPositiveRate(t *testing.T) {
	for _, body := range []string{`{"rates": {"CAD": 0}}`, `{"rates": {"CAD": -1.2}}`} {
		server := rateServer(t, http.StatusOK, body)

		c := NewExchangeRateClient(server.URL, "$.rates.CAD", 5*time.Second, zap.NewNop())

		_, err := c.USDToCAD(context.Background())
		require.Error(t, err, "body=%s", body)

		var defect *model.DefectError
		require.ErrorAs(t, err, &defect)
	}
}
