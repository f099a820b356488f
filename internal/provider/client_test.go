package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sravz-backend/pkg/apperrors"
	appconfig "sravz-backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	objects  map[string][]byte
	modified map[string]time.Time
	puts     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

func (f *fakeStore) Head(_ context.Context, _, key string) (bool, time.Time, error) {
	_, ok := f.objects[key]
	return ok, f.modified[key], nil
}

func (f *fakeStore) OlderThan(_ context.Context, _, key string, mins int) (bool, error) {
	mod, ok := f.modified[key]
	if !ok {
		return false, nil
	}
	return mod.Before(time.Now().UTC().Add(-time.Duration(mins) * time.Minute)), nil
}

func (f *fakeStore) Get(_ context.Context, _, key string, _ bool) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, apperrors.Newf(apperrors.StoreUnavailable, "no object %s", key)
	}
	return data, nil
}

func (f *fakeStore) Put(_ context.Context, _, key string, data []byte, _ bool) error {
	f.objects[key] = data
	f.modified[key] = time.Now().UTC()
	f.puts = append(f.puts, key)
	return nil
}

func newTestClient(t *testing.T, store BlobStore, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &appconfig.AppConfig{
		DataProviderURL: srv.URL + "/",
		EODAPIKey:       "token-1",
	}
	return NewClient(cfg, store), srv
}

func TestGetServesFreshCacheWithoutHTTP(t *testing.T) {
	store := newFakeStore()
	store.objects["eod/api/calendar/earnings"] = []byte(`{"earnings":[]}`)
	store.modified["eod/api/calendar/earnings"] = time.Now().UTC().Add(-time.Hour)

	calls := 0
	client, _ := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	body, err := client.Get(context.Background(), "api/calendar/earnings", map[string]string{"symbols": "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, `{"earnings":[]}`, string(body))
	assert.Zero(t, calls)
	assert.Empty(t, store.puts)
}

func TestGetRefreshesStaleCacheWithOneRequest(t *testing.T) {
	store := newFakeStore()
	store.objects["eod/api/calendar/earnings"] = []byte(`old`)
	store.modified["eod/api/calendar/earnings"] = time.Now().UTC().Add(-4 * 30 * 24 * time.Hour)

	calls := 0
	client, _ := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/calendar/earnings", r.URL.Path)
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbols"))
		assert.Equal(t, "token-1", r.URL.Query().Get("api_token"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		w.Write([]byte(`{"earnings":[{"code":"NVDA.US"}]}`))
	})

	body, err := client.Get(context.Background(), "api/calendar/earnings", map[string]string{"symbols": "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, `{"earnings":[{"code":"NVDA.US"}]}`, string(body))
	assert.Equal(t, []string{"eod/api/calendar/earnings/NVDA.json"}, store.puts)
}

func TestGetFetchesWhenProbeAbsent(t *testing.T) {
	store := newFakeStore()

	calls := 0
	client, _ := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	})

	body, err := client.Get(context.Background(), "api/eod/AAPL.US", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, []string{"eod/api/eod/AAPL.US"}, store.puts)
}

func TestGetUpstreamErrorIsFatal(t *testing.T) {
	store := newFakeStore()

	client, _ := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Get(context.Background(), "api/eod/AAPL.US", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.UpstreamUnavailable))
	assert.Empty(t, store.puts)
}
