// Package compute invokes the embedded Python compute runtime that renders
// plots and answers LLM queries.
package compute

import (
	"context"
	"sync"

	"sravz-backend/pkg/apperrors"
)

// PyMessage is the typed payload exchanged with the compute runtime. The
// returned PyMessage supersedes the input.
type PyMessage struct {
	MessageID   string `json:"message_id"`
	Key         string `json:"key"`
	SravzIDs    string `json:"sravz_ids"`
	Codes       string `json:"codes"`
	ParquetPath string `json:"df_parquet_file_path"`
	Output      string `json:"output"`
	JSONKeys    string `json:"json_keys,omitempty"`
	LLMQuery    string `json:"llm_query,omitempty"`
}

// Runtime is a single compute invocation.
type Runtime interface {
	Run(ctx context.Context, msg PyMessage) (PyMessage, error)
}

// Bridge serializes access to the runtime. The runtime is not re-entrant, so
// concurrent handlers queue here; a call may take seconds to minutes.
type Bridge struct {
	mu      sync.Mutex
	runtime Runtime
}

// NewBridge wraps a runtime behind the global serialization lock.
func NewBridge(runtime Runtime) *Bridge {
	return &Bridge{runtime: runtime}
}

// Run executes one compute invocation. Errors carry the runtime traceback.
func (b *Bridge) Run(ctx context.Context, msg PyMessage) (PyMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out, err := b.runtime.Run(ctx, msg)
	if err != nil {
		if apperrors.IsKind(err, apperrors.ComputeFailed) {
			return out, err
		}
		return out, apperrors.Wrap(apperrors.ComputeFailed, "compute runtime call failed", err)
	}
	return out, nil
}
