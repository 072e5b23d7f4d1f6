// Package connect reads sink connector settings from the Kafka Connect REST API.
package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/vietddude/dlqdiag/internal/infra/retry"
)

var (
	// ErrConnectorNotFound is returned for an unknown connector name
	ErrConnectorNotFound = errors.New("connector not found")
)

// Config holds Kafka Connect REST settings.
type Config struct {
	URL       string        `yaml:"url"`
	Connector string        `yaml:"connector"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Client is a minimal Kafka Connect REST client.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new Kafka Connect client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// connectorInfo is the body of GET /connectors/{name}.
type connectorInfo struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
	Type   string         `json:"type"`
}

// ConnectorConfig returns the configuration of the named connector. Values
// are flattened to strings. A missing connector is a permanent error.
func (c *Client) ConnectorConfig(ctx context.Context, name string) (map[string]string, error) {
	var info connectorInfo
	if err := c.get(ctx, "/connectors/"+url.PathEscape(name), &info); err != nil {
		return nil, err
	}

	cfg := make(map[string]string, len(info.Config))
	for k, v := range info.Config {
		cfg[k] = cast.ToString(v)
	}
	return cfg, nil
}

// Connectors lists connector names.
func (c *Client) Connectors(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/connectors", &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(fmt.Errorf("%w: %s", ErrConnectorNotFound, path))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, string(body)))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("parse response: %w", err))
	}
	return nil
}
