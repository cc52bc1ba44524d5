package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ClientConfig defines where the remote runtime config is fetched from.
type ClientConfig struct {
	BaseURL string        `env:"NAOKA_API_URL"`
	Secret  string        `env:"NAOKA_API_SECRET"`
	Timeout time.Duration `env:"NAOKA_API_TIMEOUT" envDefault:"10s"`
}

// LoadClientConfigFromEnv reads the remote config endpoint settings.
func LoadClientConfigFromEnv() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse policy env: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return cfg, nil
}

// remoteConfig mirrors the JSON document served by the config endpoint.
type remoteConfig struct {
	RateLimitList        map[byte]int `json:"RateLimitList"`
	RateLimitUnknownBool bool         `json:"RateLimitUnknownBool"`
	MaxAccsPerIP         int          `json:"MaxAccsPerIp"`
}

// Client fetches the runtime policy once at startup.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a policy fetch client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs the one-shot config request. Any failure returns the
// defaults together with the error; callers log the fallback and proceed.
func (c *Client) Fetch(ctx context.Context) (Policy, error) {
	if c.cfg.BaseURL == "" {
		return Defaults(), fmt.Errorf("policy api url is not configured")
	}

	endpoint := fmt.Sprintf("%s/api/1/relay/getConfig?secret=%s",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.Secret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Defaults(), fmt.Errorf("build config request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Defaults(), fmt.Errorf("fetch remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Defaults(), fmt.Errorf("fetch remote config: status %d", resp.StatusCode)
	}

	var remote remoteConfig
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return Defaults(), fmt.Errorf("decode remote config: %w", err)
	}

	out := Defaults()
	for code, limit := range remote.RateLimitList {
		out.RateLimits[code] = limit
	}
	out.RateLimiterEnabled = remote.RateLimitUnknownBool
	if remote.MaxAccsPerIP > 0 {
		out.MaxAccountsPerAddress = remote.MaxAccsPerIP
	}
	return out, nil
}
