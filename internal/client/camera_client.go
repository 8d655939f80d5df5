package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// CameraClient proxies still snapshots from the house camera.
type CameraClient struct {
	snapshotURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewCameraClient creates a new camera client
func NewCameraClient(snapshotURL string, timeout time.Duration, logger *zap.Logger) *CameraClient {
	return &CameraClient{
		snapshotURL: snapshotURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Snapshot fetches the current frame. The caller owns the returned body
// and must close it.
func (c *CameraClient) Snapshot(ctx context.Context) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.snapshotURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to reach camera", zap.Error(err))
		return nil, "", fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.logger.Error("camera error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(bodyBytes)))
		return nil, "", model.NewAPIError(c.snapshotURL, resp.StatusCode, string(bodyBytes))
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}
