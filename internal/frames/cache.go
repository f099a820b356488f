// Package frames is the in-process dataframe layer: a memoizing cache of
// normalized historical series plus the conversions (row JSON, parquet,
// percent change) the handlers build on.
package frames

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sravz-backend/pkg/apperrors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// dataBucket holds the historical blobs and per-request exports.
const dataBucket = "sravz-data"

// BlobStore is the slice of the object store the cache needs.
type BlobStore interface {
	Get(ctx context.Context, bucket, key string, decompress bool) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, gzipEncoding bool) error
	PresignedGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ProviderClient fetches from the upstream data provider.
type ProviderClient interface {
	Get(ctx context.Context, suffix string, params map[string]string) ([]byte, error)
}

// Cache memoizes one normalized table per asset identifier for the lifetime
// of the process. Get hands out independent copies; callers mutate freely.
type Cache struct {
	mu     sync.Mutex
	tables map[string]dataframe.DataFrame

	store    BlobStore
	provider ProviderClient
}

// NewCache builds an empty cache over the given store and provider.
func NewCache(store BlobStore, provider ProviderClient) *Cache {
	return &Cache{
		tables:   make(map[string]dataframe.DataFrame),
		store:    store,
		provider: provider,
	}
}

// historicalRecord is one element of a historical blob. The date arrives
// nested under Date._isoformat.
type historicalRecord struct {
	Date struct {
		ISOFormat string `json:"_isoformat"`
	} `json:"Date"`
	Volume        float64 `json:"Volume"`
	Open          float64 `json:"Open"`
	High          float64 `json:"High"`
	Low           float64 `json:"Low"`
	Close         float64 `json:"Close"`
	AdjustedClose float64 `json:"AdjustedClose"`
}

// Get returns the normalized historical table for an asset: a DateTime column
// of canonical timestamps plus <assetId>_<column> numeric columns, sorted by
// DateTime ascending. The first access fetches and normalizes the blob; later
// accesses return a copy of the memoized table. A missing blob is an error.
func (c *Cache) Get(ctx context.Context, assetID string) (*dataframe.DataFrame, error) {
	c.mu.Lock()
	if memo, ok := c.tables[assetID]; ok {
		clone := memo.Copy()
		c.mu.Unlock()
		return &clone, nil
	}
	c.mu.Unlock()

	raw, err := c.store.Get(ctx, dataBucket, "historical/"+assetID+".json", true)
	if err != nil {
		return nil, err
	}

	records, err := parseHistoricalRecords(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.DataShape,
			fmt.Sprintf("failed to parse historical blob for %s", assetID), err)
	}
	if len(records) == 0 {
		return nil, apperrors.Newf(apperrors.DataShape, "historical blob for %s has no records", assetID)
	}

	df, err := buildHistoricalTable(assetID, records)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[assetID] = df
	clone := df.Copy()
	c.mu.Unlock()

	slog.Debug("Memoized historical table", "asset", assetID, "rows", df.Nrow())
	return &clone, nil
}

// parseHistoricalRecords accepts either a JSON array of records or
// newline-delimited JSON records.
func parseHistoricalRecords(raw []byte) ([]historicalRecord, error) {
	var records []historicalRecord
	if err := json.Unmarshal(raw, &records); err == nil {
		return records, nil
	}

	for _, line := range bytes.Split(raw, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec historicalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func buildHistoricalTable(assetID string, records []historicalRecord) (dataframe.DataFrame, error) {
	n := len(records)
	dates := make([]string, 0, n)
	volume := make([]float64, 0, n)
	open := make([]float64, 0, n)
	high := make([]float64, 0, n)
	low := make([]float64, 0, n)
	closePx := make([]float64, 0, n)
	adjClose := make([]float64, 0, n)

	for _, rec := range records {
		ts, err := ParseTimestamp(rec.Date.ISOFormat)
		if err != nil {
			return dataframe.DataFrame{}, apperrors.Wrap(apperrors.DataShape,
				fmt.Sprintf("bad date %q for %s", rec.Date.ISOFormat, assetID), err)
		}
		dates = append(dates, ts)
		volume = append(volume, rec.Volume)
		open = append(open, rec.Open)
		high = append(high, rec.High)
		low = append(low, rec.Low)
		closePx = append(closePx, rec.Close)
		adjClose = append(adjClose, rec.AdjustedClose)
	}

	df := dataframe.New(
		series.New(dates, series.String, "DateTime"),
		series.New(volume, series.Float, assetID+"_Volume"),
		series.New(open, series.Float, assetID+"_Open"),
		series.New(high, series.Float, assetID+"_High"),
		series.New(low, series.Float, assetID+"_Low"),
		series.New(closePx, series.Float, assetID+"_Close"),
		series.New(adjClose, series.Float, assetID+"_AdjustedClose"),
	)
	if df.Err != nil {
		return df, apperrors.Wrap(apperrors.DataShape,
			fmt.Sprintf("failed to build table for %s", assetID), df.Err)
	}

	df = df.Arrange(dataframe.Sort("DateTime"))
	if df.Err != nil {
		return df, apperrors.Wrap(apperrors.DataShape,
			fmt.Sprintf("failed to sort table for %s", assetID), df.Err)
	}
	return df, nil
}

// SaveToStore serializes a table as row JSON, uploads it gzip-compressed and
// returns a presigned GET URL for the uploaded object.
func (c *Cache) SaveToStore(ctx context.Context, df *dataframe.DataFrame, key string) (string, error) {
	rowJSON, err := ToRowJSON(df)
	if err != nil {
		return "", err
	}
	if err := c.store.Put(ctx, dataBucket, key, []byte(rowJSON), true); err != nil {
		return "", err
	}
	return c.store.PresignedGetURL(ctx, dataBucket, key, 0)
}
