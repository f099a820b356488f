package frames

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"sravz-backend/pkg/apperrors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

// TempDir is where columnar files and rendered artifacts live. The compute
// runtime reads and writes the same directory.
const TempDir = "/tmp/data"

// WriteParquet writes a table as a parquet file at path. The schema is derived
// from the table's column types; NaN cells become nulls.
func WriteParquet(df *dataframe.DataFrame, path string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return apperrors.Wrap(apperrors.DataShape,
			fmt.Sprintf("failed to create parquet file %s", path), err)
	}
	defer fw.Close()

	jw, err := writer.NewJSONWriter(parquetSchema(df), fw, 4)
	if err != nil {
		return apperrors.Wrap(apperrors.DataShape, "failed to build parquet writer", err)
	}

	names := df.Names()
	types := df.Types()
	for i := 0; i < df.Nrow(); i++ {
		row := make(map[string]interface{}, len(names))
		for j, name := range names {
			elem := df.Elem(i, j)
			if types[j] == series.Float {
				v := elem.Float()
				if math.IsNaN(v) {
					continue
				}
				row[name] = v
				continue
			}
			row[name] = elem.String()
		}
		encoded, err := json.Marshal(row)
		if err != nil {
			return apperrors.Wrap(apperrors.DataShape, "failed to encode parquet row", err)
		}
		if err := jw.Write(string(encoded)); err != nil {
			return apperrors.Wrap(apperrors.DataShape, "failed to write parquet row", err)
		}
	}

	if err := jw.WriteStop(); err != nil {
		return apperrors.Wrap(apperrors.DataShape, "failed to finalize parquet file", err)
	}
	return nil
}

// ToParquetFile writes a table to a fresh path under TempDir and returns the
// path. On failure it logs and returns the empty string; callers treat a
// missing path as "no columnar input".
func ToParquetFile(df *dataframe.DataFrame) string {
	path := filepath.Join(TempDir, uuid.New().String()+".parquet")
	if err := WriteParquet(df, path); err != nil {
		slog.Warn("Failed to write columnar file", "path", path, "error", err)
		return ""
	}
	return path
}

// parquetSchema renders the dynamic JSON schema for a table. Strings map to
// UTF8 byte arrays, ints to INT64 and floats to DOUBLE; every field is
// optional so null cells round-trip.
func parquetSchema(df *dataframe.DataFrame) string {
	names := df.Names()
	types := df.Types()

	fields := make([]string, 0, len(names))
	for i, name := range names {
		var typ string
		switch types[i] {
		case series.Float:
			typ = "type=DOUBLE"
		case series.Int:
			typ = "type=INT64"
		case series.Bool:
			typ = "type=BOOLEAN"
		default:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		}
		fields = append(fields,
			fmt.Sprintf(`{"Tag":"name=%s, %s, repetitiontype=OPTIONAL"}`, name, typ))
	}

	return fmt.Sprintf(`{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[%s]}`,
		strings.Join(fields, ","))
}
