package handlers

import (
	"context"
	"log/slog"
	"path/filepath"

	"sravz-backend/internal/compute"
	"sravz-backend/internal/frames"
	"sravz-backend/internal/models"
	"sravz-backend/pkg/apperrors"

	"github.com/go-gota/gota/dataframe"
)

// LeveragedFunds joins the historical series of the requested assets into one
// wide table, renders a comparison plot through the compute runtime and
// uploads the result.
type LeveragedFunds struct {
	deps Deps
}

// NewLeveragedFunds builds the handler.
func NewLeveragedFunds(deps Deps) *LeveragedFunds {
	return &LeveragedFunds{deps: deps}
}

// Handle implements Handler.
func (h *LeveragedFunds) Handle(ctx context.Context, msg *models.Message) error {
	joined, err := foldHistorical(ctx, h.deps.Frames, msg.Params.Args)
	if err != nil {
		return err
	}
	if joined == nil {
		slog.Warn("No historical data for any requested asset", "key", msg.Key)
		return nil
	}

	parquetPath := filepath.Join(frames.TempDir, msg.Key+".parquet")
	if err := frames.WriteParquet(joined, parquetPath); err != nil {
		return err
	}

	if _, err := h.deps.Bridge.Run(ctx, compute.PyMessage{
		MessageID: messageID(msg),
		Key:       msg.Key,
		JSONKeys:  msg.Params.Kwargs.JSONKeys.Join(),
		LLMQuery:  msg.Params.Kwargs.LLMQuery,
	}); err != nil {
		return err
	}

	return uploadArtifact(ctx, h.deps, msg)
}

// foldHistorical inner-joins the assets' tables on DateTime in args order,
// so the folded table's rows are exactly the dates present in every loaded
// input. Assets whose history cannot be loaded are skipped with a warning;
// nil means nothing loaded.
func foldHistorical(ctx context.Context, source FrameSource, assetIDs []string) (*dataframe.DataFrame, error) {
	var joined *dataframe.DataFrame
	for _, assetID := range assetIDs {
		df, err := source.Get(ctx, assetID)
		if err != nil {
			slog.Warn("Skipping asset without historical data", "asset", assetID, "error", err)
			continue
		}
		if joined == nil {
			joined = df
			continue
		}
		next := joined.InnerJoin(*df, "DateTime")
		if next.Err != nil {
			return nil, apperrors.Wrap(apperrors.DataShape, "failed to join historical tables", next.Err)
		}
		joined = &next
	}
	return joined, nil
}
