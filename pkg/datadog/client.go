package datadog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/vshn/datadog-downtime/pkg/types"
)

const DefaultBaseURL = "https://api.datadoghq.com"

type Config struct {
	BaseURL string
	APIKey  string
	AppKey  string

	// HTTPClient owns all transport concerns (timeouts, TLS, proxies).
	HTTPClient *http.Client
	Logger     *logr.Logger
}

// Client talks to the Datadog v1 downtime API. It carries its credentials
// explicitly, there is no package-level initialization.
type Client struct {
	baseURL string
	apiKey  string
	appKey  string
	http    *http.Client
	log     logr.Logger
}

func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" || config.AppKey == "" {
		return nil, errors.New("datadog: api key and app key are required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := logr.Discard()
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  config.APIKey,
		appKey:  config.AppKey,
		http:    httpClient,
		log:     logger,
	}, nil
}

func (c *Client) ListDowntimes(ctx context.Context) ([]types.Downtime, error) {
	downtimes := []types.Downtime{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/downtime", nil, &downtimes); err != nil {
		return nil, err
	}
	return downtimes, nil
}

func (c *Client) CreateDowntime(ctx context.Context, d types.Downtime) (*types.Downtime, error) {
	created := types.Downtime{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/downtime", d, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateDowntime(ctx context.Context, id int64, d types.Downtime) (*types.Downtime, error) {
	updated := types.Downtime{}
	if err := c.do(ctx, http.MethodPut, "/api/v1/downtime/"+strconv.FormatInt(id, 10), d, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) CancelDowntime(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/downtime/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("DD-API-KEY", c.apiKey)
	req.Header.Set("DD-APPLICATION-KEY", c.appKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.V(1).Info("Datadog API request", "method", method, "path", path)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to datadog failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("could not read datadog response: %w", err)
	}

	if err := errorFromResponse(res.StatusCode, raw); err != nil {
		return err
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("could not decode datadog response: %w", err)
		}
	}
	return nil
}
