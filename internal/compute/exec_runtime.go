package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"time"

	"sravz-backend/pkg/apperrors"
	appconfig "sravz-backend/pkg/config"
)

// ExecRuntime runs the Python entrypoint as a subprocess, passing the
// PyMessage as JSON on stdin and reading the superseding PyMessage from
// stdout. Stderr carries the traceback on failure.
type ExecRuntime struct {
	command    string
	entrypoint string
	env        []string
}

// NewExecRuntime reads the runtime location from the environment.
// PY_RUNTIME_CMD and PY_RUNTIME_ENTRYPOINT override the defaults.
func NewExecRuntime() *ExecRuntime {
	return &ExecRuntime{
		command:    appconfig.GetEnv("PY_RUNTIME_CMD", "python3"),
		entrypoint: appconfig.GetEnv("PY_RUNTIME_ENTRYPOINT", "/app/src/sravz_rust_py/main.py"),
		env:        []string{"MPLCONFIGDIR=/tmp/data"},
	}
}

// Run invokes the runtime once. The context bounds the subprocess lifetime.
func (r *ExecRuntime) Run(ctx context.Context, msg PyMessage) (PyMessage, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return msg, apperrors.Wrap(apperrors.ComputeFailed, "failed to encode runtime payload", err)
	}

	cmd := exec.CommandContext(ctx, r.command, r.entrypoint)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(cmd.Environ(), r.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	slog.Debug("Compute runtime finished", "key", msg.Key, "duration", time.Since(start))

	if err != nil {
		// The traceback on stderr is the useful part of a runtime failure.
		return msg, apperrors.Newf(apperrors.ComputeFailed,
			"compute runtime failed: %v: %s", err, stderr.String())
	}

	var out PyMessage
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return msg, apperrors.Wrap(apperrors.ComputeFailed, "failed to decode runtime response", err)
	}
	return out, nil
}
