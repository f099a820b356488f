package frames

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteParquet(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"2024-01-01T00:00:00.000000", "2024-01-02T00:00:00.000000"}, series.String, "DateTime"),
		series.New([]float64{1.5, 2.5}, series.Float, "a_Close"),
	)
	require.NoError(t, df.Err)

	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, WriteParquet(&df, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteParquetBadPath(t *testing.T) {
	df := dataframe.New(series.New([]float64{1}, series.Float, "x"))
	require.NoError(t, df.Err)

	err := WriteParquet(&df, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	assert.Error(t, err)
}
