package frames

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"sravz-backend/pkg/apperrors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// earningsLookback bounds the earnings calendar query: ten years back.
const earningsLookback = 10 * 365 * 24 * time.Hour

// earningsRow is one calendar entry. Pointer fields distinguish absent from
// zero so malformed rows can be rejected rather than zero-filled.
type earningsRow struct {
	Code              *string  `json:"code"`
	ReportDate        *string  `json:"report_date"`
	Date              *string  `json:"date"`
	BeforeAfterMarket *string  `json:"before_after_market"`
	Currency          *string  `json:"currency"`
	Actual            *float64 `json:"actual"`
	Estimate          *float64 `json:"estimate"`
	Difference        *float64 `json:"difference"`
	Percent           *float64 `json:"percent"`
}

func (r earningsRow) complete() bool {
	return r.Code != nil && r.ReportDate != nil && r.Date != nil &&
		r.BeforeAfterMarket != nil && r.Currency != nil &&
		r.Actual != nil && r.Estimate != nil && r.Difference != nil && r.Percent != nil
}

// GetEarnings fetches the earnings calendar for a symbol and builds a table
// from the well-formed rows. Rows missing any field are skipped with a
// warning. Returns nil when no row is admitted.
func (c *Cache) GetEarnings(ctx context.Context, code string) (*dataframe.DataFrame, error) {
	from := time.Now().UTC().Add(-earningsLookback).Format("2006-01-02")
	body, err := c.provider.Get(ctx, "api/calendar/earnings", map[string]string{
		"symbols": code,
		"from":    from,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Earnings []json.RawMessage `json:"earnings"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.DataShape, "failed to parse earnings response", err)
	}

	var (
		codes, reportDates, dates, markets, currencies []string
		actuals, estimates, differences, percents      []float64
	)

	for i, raw := range payload.Earnings {
		var row earningsRow
		if err := json.Unmarshal(raw, &row); err != nil {
			slog.Warn("Skipping malformed earnings row", "symbol", code, "row", i, "error", err)
			continue
		}
		if !row.complete() {
			slog.Warn("Skipping incomplete earnings row", "symbol", code, "row", i)
			continue
		}
		codes = append(codes, *row.Code)
		reportDates = append(reportDates, *row.ReportDate)
		dates = append(dates, *row.Date)
		markets = append(markets, *row.BeforeAfterMarket)
		currencies = append(currencies, *row.Currency)
		actuals = append(actuals, *row.Actual)
		estimates = append(estimates, *row.Estimate)
		differences = append(differences, *row.Difference)
		percents = append(percents, *row.Percent)
	}

	if len(codes) == 0 {
		slog.Warn("No usable earnings rows", "symbol", code)
		return nil, nil
	}

	df := dataframe.New(
		series.New(codes, series.String, "code"),
		series.New(reportDates, series.String, "report_date"),
		series.New(dates, series.String, "date"),
		series.New(markets, series.String, "before_after_market"),
		series.New(currencies, series.String, "currency"),
		series.New(actuals, series.Float, "actual"),
		series.New(estimates, series.Float, "estimate"),
		series.New(differences, series.Float, "difference"),
		series.New(percents, series.Float, "percent"),
	)
	if df.Err != nil {
		return nil, apperrors.Wrap(apperrors.DataShape, "failed to build earnings table", df.Err)
	}
	return &df, nil
}
