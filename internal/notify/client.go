// Package notify posts operator alerts to an ntfy topic when data refreshes
// fail. Disabled by default.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"auction_display/internal/retry"

	"github.com/rs/zerolog/log"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	retryCfg   retry.Config
}

func NewClient(baseURL, topic string, enabled bool) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		topic:   topic,
		enabled: enabled,
		retryCfg: retry.Config{
			MaxRetries: 2,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
			Timeout:    10 * time.Second,
		},
	}
}

// Send posts a message to the configured topic. A disabled client is a
// silent no-op so callers never need to branch.
func (c *Client) Send(ctx context.Context, title, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	_, err := retry.WithRetry(ctx, c.retryCfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.post(ctx, title, message)
	})
	if err != nil {
		log.Warn().Err(err).Str("topic", c.topic).Msg("Failed to send notification")
		return err
	}

	log.Debug().Str("topic", c.topic).Str("title", title).Msg("Notification sent")
	return nil
}

func (c *Client) post(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Title", title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification request failed with status %d", resp.StatusCode)
	}
	return nil
}
