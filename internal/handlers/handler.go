// Package handlers implements the per-request-kind orchestration: dataframe
// assembly, compute invocation and artifact upload.
package handlers

import (
	"context"
	"strconv"

	"sravz-backend/internal/compute"
	"sravz-backend/internal/models"
	appconfig "sravz-backend/pkg/config"

	"github.com/go-gota/gota/dataframe"
)

// Handler processes one message in place. Errors propagate to the dispatcher,
// which sets the error fields, publishes and caches regardless.
type Handler interface {
	Handle(ctx context.Context, msg *models.Message) error
}

// FrameSource is the dataframe capability handlers consume.
type FrameSource interface {
	Get(ctx context.Context, assetID string) (*dataframe.DataFrame, error)
	GetEarnings(ctx context.Context, code string) (*dataframe.DataFrame, error)
	SaveToStore(ctx context.Context, df *dataframe.DataFrame, key string) (string, error)
}

// ArtifactStore uploads rendered artifacts.
type ArtifactStore interface {
	UploadFile(ctx context.Context, bucket, key, localPath string) error
}

// Bridge is the compute capability.
type Bridge interface {
	Run(ctx context.Context, msg compute.PyMessage) (compute.PyMessage, error)
}

// Deps is the capability set shared by all handlers.
type Deps struct {
	Frames FrameSource
	Store  ArtifactStore
	Bridge Bridge
	Config *appconfig.AppConfig
}

// messageID renders the numeric request id for the compute runtime.
func messageID(msg *models.Message) string {
	return strconv.FormatFloat(msg.ID, 'f', -1, 64)
}

// uploadArtifact pushes the rendered PNG for a key and points the message's
// artifact at it.
func uploadArtifact(ctx context.Context, deps Deps, msg *models.Message) error {
	fileName := msg.Key + ".png"
	objectKey := deps.Config.ContaboBucketKey + "/" + fileName

	if err := deps.Store.UploadFile(ctx, deps.Config.ContaboBucket, objectKey, localArtifactPath(fileName)); err != nil {
		return err
	}

	msg.UpdateArtifact(deps.Config.ContaboBucket, deps.Config.ContaboObjectURLPrefix, fileName)
	return nil
}

func localArtifactPath(fileName string) string {
	return "/tmp/data/" + fileName
}
