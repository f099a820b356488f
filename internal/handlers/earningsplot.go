package handlers

import (
	"context"
	"log/slog"

	"sravz-backend/internal/compute"
	"sravz-backend/internal/frames"
	"sravz-backend/internal/models"
	"sravz-backend/pkg/apperrors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// pctChangeWindows are the row shifts applied to the adjusted close and the
// names of the derived columns.
var pctChangeWindows = []struct {
	shift int
	name  string
}{
	{1, "1_day_pct_change"},
	{7, "7_days_pct_change"},
	{30, "1_month_pct_change"},
	{90, "3_month_pct_change"},
	{365, "1_year_pct_change"},
	{1825, "5_year_pct_change"},
}

// EarningsPlot joins an asset's price history with its earnings calendar,
// derives percent-change columns and renders the earnings plot.
type EarningsPlot struct {
	deps Deps
}

// NewEarningsPlot builds the handler.
func NewEarningsPlot(deps Deps) *EarningsPlot {
	return &EarningsPlot{deps: deps}
}

// Handle implements Handler. Expects args = [assetId, code, ...]; anything
// less is a no-op reply with no error.
func (h *EarningsPlot) Handle(ctx context.Context, msg *models.Message) error {
	if len(msg.Params.Args) < 2 {
		slog.Info("Earnings plot request without asset and code", "key", msg.Key)
		return nil
	}
	assetID := msg.Params.Args[0]
	code := msg.Params.Args[1]

	historical, err := h.deps.Frames.Get(ctx, assetID)
	if err != nil {
		slog.Warn("No historical data for earnings plot", "asset", assetID, "error", err)
		return nil
	}

	earnings, err := h.deps.Frames.GetEarnings(ctx, code)
	if err != nil {
		return err
	}
	if earnings == nil {
		slog.Warn("No earnings data for symbol", "symbol", code)
		return nil
	}

	joined, err := joinEarnings(assetID, historical, earnings)
	if err != nil {
		return err
	}
	if joined == nil {
		slog.Warn("No earnings rows with usable report dates", "symbol", code)
		return nil
	}

	exportKey := "historical/earnings/" + assetID + ".json"
	if url, err := h.deps.Frames.SaveToStore(ctx, joined, exportKey); err != nil {
		slog.Warn("Failed to export joined earnings table", "key", exportKey, "error", err)
	} else {
		slog.Debug("Exported joined earnings table", "key", exportKey, "url", url)
	}

	parquetPath := frames.ToParquetFile(joined)

	if _, err := h.deps.Bridge.Run(ctx, compute.PyMessage{
		MessageID:   messageID(msg),
		Key:         msg.Key,
		SravzIDs:    assetID,
		Codes:       code,
		ParquetPath: parquetPath,
		JSONKeys:    msg.Params.Kwargs.JSONKeys.Join(),
		LLMQuery:    msg.Params.Kwargs.LLMQuery,
	}); err != nil {
		return err
	}

	return uploadArtifact(ctx, h.deps, msg)
}

// joinEarnings outer-joins price history with the earnings calendar on the
// report date and appends the percent-change columns. Calendar rows whose
// report date cannot be parsed are dropped; keeping them would inject an
// empty sentinel date that sorts ahead of every real row and skews the
// shifted percent-change windows. Returns nil when no row survives.
func joinEarnings(assetID string, historical, earnings *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	reportDates := earnings.Col("report_date").Records()
	keep := make([]int, 0, len(reportDates))
	normalized := make([]string, 0, len(reportDates))
	for i, rd := range reportDates {
		ts, err := frames.ParseTimestamp(rd)
		if err != nil {
			slog.Warn("Dropping earnings row with unparseable report date", "value", rd)
			continue
		}
		keep = append(keep, i)
		normalized = append(normalized, ts)
	}
	if len(keep) == 0 {
		return nil, nil
	}

	kept := *earnings
	if len(keep) < len(reportDates) {
		kept = earnings.Subset(keep)
		if kept.Err != nil {
			return nil, apperrors.Wrap(apperrors.DataShape, "failed to filter earnings rows", kept.Err)
		}
	}

	withDates := kept.
		Mutate(series.New(normalized, series.String, "ReportDateTime")).
		Mutate(series.New(normalized, series.String, "DateTime"))
	if withDates.Err != nil {
		return nil, apperrors.Wrap(apperrors.DataShape, "failed to add report date columns", withDates.Err)
	}

	joined := historical.OuterJoin(withDates, "DateTime")
	if joined.Err != nil {
		return nil, apperrors.Wrap(apperrors.DataShape, "failed to join earnings with history", joined.Err)
	}
	joined = joined.Arrange(dataframe.Sort("DateTime"))
	if joined.Err != nil {
		return nil, apperrors.Wrap(apperrors.DataShape, "failed to sort joined table", joined.Err)
	}

	for _, w := range pctChangeWindows {
		joined = frames.WithPctChange(joined, assetID+"_AdjustedClose", w.shift, w.name)
		if joined.Err != nil {
			return nil, apperrors.Wrap(apperrors.DataShape, "failed to derive percent change", joined.Err)
		}
	}
	return &joined, nil
}
