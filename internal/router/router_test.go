package router

import (
	"context"
	"testing"

	"sravz-backend/internal/models"
	"sravz-backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	calls int
}

func (h *recordingHandler) Handle(_ context.Context, _ *models.Message) error {
	h.calls++
	return nil
}

func newTestRouter() (*Router, *recordingHandler, *recordingHandler, *recordingHandler) {
	lf := &recordingHandler{}
	llm := &recordingHandler{}
	ep := &recordingHandler{}
	r := &Router{routes: []route{
		{1.0, 1.009, lf},
		{2.0, 2.009, llm},
		{3.0, 3.009, ep},
	}}
	return r, lf, llm, ep
}

func TestProcessRoutesByIDRange(t *testing.T) {
	cases := []struct {
		id     float64
		target string
	}{
		{1.0, "lf"},
		{1.005, "lf"},
		{1.009, "lf"},
		{2.0, "llm"},
		{2.009, "llm"},
		{3.0, "ep"},
		{3.009, "ep"},
	}

	for _, tc := range cases {
		r, lf, llm, ep := newTestRouter()
		err := r.Process(context.Background(), &models.Message{ID: tc.id})
		require.NoError(t, err)

		counts := map[string]int{"lf": lf.calls, "llm": llm.calls, "ep": ep.calls}
		for name, n := range counts {
			if name == tc.target {
				assert.Equal(t, 1, n, "id %v should hit %s", tc.id, name)
			} else {
				assert.Zero(t, n, "id %v should not hit %s", tc.id, name)
			}
		}
	}
}

func TestProcessUnknownID(t *testing.T) {
	r, lf, llm, ep := newTestRouter()

	for _, id := range []float64{0.5, 1.01, 4.0, -1.0} {
		err := r.Process(context.Background(), &models.Message{ID: id})
		require.Error(t, err, "id %v", id)
		assert.True(t, apperrors.IsKind(err, apperrors.UnknownRequestKind))
		assert.Equal(t, "Message ID not implemented", err.Error())
	}
	assert.Zero(t, lf.calls+llm.calls+ep.calls)
}
