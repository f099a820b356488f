package compute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sravz-backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	delay   time.Duration
	err     error
}

func (f *fakeRuntime) Run(_ context.Context, msg PyMessage) (PyMessage, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.err != nil {
		return msg, f.err
	}
	msg.Output = "done"
	return msg, nil
}

func TestBridgeSerializesRuntimeCalls(t *testing.T) {
	rt := &fakeRuntime{delay: 20 * time.Millisecond}
	bridge := NewBridge(rt)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := bridge.Run(context.Background(), PyMessage{Key: "k"})
			assert.NoError(t, err)
			assert.Equal(t, "done", out.Output)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rt.maxSeen)
}

func TestBridgeWrapsErrorsAsComputeFailed(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("Traceback (most recent call last): boom")}
	bridge := NewBridge(rt)

	_, err := bridge.Run(context.Background(), PyMessage{Key: "k"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ComputeFailed))
	assert.Contains(t, err.Error(), "Traceback")
}

func TestExecRuntimeSurfacesStderr(t *testing.T) {
	t.Setenv("PY_RUNTIME_CMD", "sh")
	t.Setenv("PY_RUNTIME_ENTRYPOINT", "/nonexistent/entrypoint.py")

	rt := NewExecRuntime()
	_, err := rt.Run(context.Background(), PyMessage{Key: "k"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ComputeFailed))
}
