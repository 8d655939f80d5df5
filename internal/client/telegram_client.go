package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TelegramClient sends best-effort notifications to the household chat.
// Notify is one-way: the caller never learns whether delivery succeeded,
// failures are logged and dropped. An unconfigured client is a no-op.
type TelegramClient struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTelegramClient creates a new Telegram notifier
func NewTelegramClient(botToken, chatID string, timeout time.Duration, logger *zap.Logger) *TelegramClient {
	return &TelegramClient{
		botToken: botToken,
		chatID:   chatID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Notify sends a message without waiting for the outcome.
func (c *TelegramClient) Notify(text string) {
	if c.botToken == "" || c.chatID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()

		reqURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.botToken)

		form := url.Values{}
		form.Set("chat_id", c.chatID)
		form.Set("text", text)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
		if err != nil {
			c.logger.Warn("failed to build notification request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("failed to send notification", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			c.logger.Warn("notification rejected",
				zap.Int("statusCode", resp.StatusCode),
				zap.String("response", string(bodyBytes)))
		}
	}()
}
