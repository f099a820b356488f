// Package provider fetches market data from the EOD historical data API with
// an object-store read-through cache in front of it.
package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"sravz-backend/pkg/apperrors"
	appconfig "sravz-backend/pkg/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// dataBucket holds the provider cache objects.
	dataBucket = "sravz-data"

	// cachePrefix namespaces provider cache keys inside the bucket.
	cachePrefix = "eod/"

	// staleAfterMinutes is the cache window: roughly three months.
	staleAfterMinutes = 3 * 30 * 24 * 60

	requestTimeout = 60 * time.Second
)

// BlobStore is the slice of the object store the provider cache needs.
type BlobStore interface {
	Head(ctx context.Context, bucket, key string) (bool, time.Time, error)
	OlderThan(ctx context.Context, bucket, key string, mins int) (bool, error)
	Get(ctx context.Context, bucket, key string, decompress bool) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, gzipEncoding bool) error
}

// Client is the upstream data-provider client. Responses are cached in the
// object store keyed by endpoint; symbol-scoped refreshes are also written
// per symbol.
type Client struct {
	store      BlobStore
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// NewClient wires the provider against the configured upstream and cache.
func NewClient(cfg *appconfig.AppConfig, store BlobStore) *Client {
	transport := http.DefaultTransport
	if cfg.EnableTelemetry {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return &Client{
		store: store,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		baseURL:  cfg.DataProviderURL,
		apiToken: cfg.EODAPIKey,
	}
}

// Get returns the JSON body for an endpoint suffix such as
// "api/calendar/earnings". The probe object eod/<suffix> decides freshness:
// when it exists and is younger than the cache window the cached body is
// served with no upstream call; otherwise one HTTP GET refreshes the cache.
func (c *Client) Get(ctx context.Context, suffix string, params map[string]string) ([]byte, error) {
	probeKey := cachePrefix + suffix

	exists, _, err := c.store.Head(ctx, dataBucket, probeKey)
	if err != nil {
		return nil, err
	}

	needsRefresh := !exists
	if exists {
		stale, err := c.store.OlderThan(ctx, dataBucket, probeKey, staleAfterMinutes)
		if err != nil {
			return nil, err
		}
		needsRefresh = stale
	}

	if !needsRefresh {
		slog.Debug("Serving provider response from cache", "key", probeKey)
		return c.store.Get(ctx, dataBucket, probeKey, true)
	}

	body, err := c.fetch(ctx, suffix, params)
	if err != nil {
		return nil, err
	}

	if symbol, ok := params["symbols"]; ok && symbol != "" {
		symbolKey := fmt.Sprintf("%s%s/%s.json", cachePrefix, suffix, symbol)
		if err := c.store.Put(ctx, dataBucket, symbolKey, body, false); err != nil {
			return nil, err
		}
	} else {
		if err := c.store.Put(ctx, dataBucket, probeKey, body, false); err != nil {
			return nil, err
		}
	}

	return body, nil
}

func (c *Client) fetch(ctx context.Context, suffix string, params map[string]string) ([]byte, error) {
	u, err := url.Parse(c.baseURL + suffix)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.UpstreamUnavailable,
			fmt.Sprintf("bad provider URL for %s", suffix), err)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("api_token", c.apiToken)
	q.Set("fmt", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.UpstreamUnavailable, "failed to build provider request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.UpstreamUnavailable,
			fmt.Sprintf("provider request failed for %s", suffix), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.UpstreamUnavailable,
			"provider returned status %d for %s", resp.StatusCode, suffix)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.UpstreamUnavailable, "failed to read provider response", err)
	}

	slog.Info("Refreshed provider data", "endpoint", suffix, "bytes", len(body))
	return body, nil
}
