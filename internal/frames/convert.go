package frames

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"sravz-backend/pkg/apperrors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// TimestampLayout is the canonical microsecond timestamp format used for
// DateTime columns. Lexicographic order equals chronological order, so string
// sorts and equality joins behave like timestamp operations.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// parseLayouts are the accepted inbound date shapes, most precise first.
var parseLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp normalizes an ISO-8601-ish date string to TimestampLayout.
func ParseTimestamp(s string) (string, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimestampLayout), nil
		}
	}
	return "", apperrors.Newf(apperrors.DataShape, "unparseable timestamp %q", s)
}

// ToRowJSON renders a table as a JSON array of row objects whose values are
// the canonical string forms of the cells: floats in decimal notation,
// everything else via the element's own string form.
func ToRowJSON(df *dataframe.DataFrame) (string, error) {
	names := df.Names()
	types := df.Types()

	rows := make([]map[string]string, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		row := make(map[string]string, len(names))
		for j, name := range names {
			row[name] = cellString(df.Elem(i, j), types[j])
		}
		rows = append(rows, row)
	}

	out, err := json.Marshal(rows)
	if err != nil {
		return "", apperrors.Wrap(apperrors.DataShape, "failed to marshal row JSON", err)
	}
	return string(out), nil
}

func cellString(e series.Element, t series.Type) string {
	switch t {
	case series.Float:
		return strconv.FormatFloat(e.Float(), 'f', -1, 64)
	case series.Int:
		v, err := e.Int()
		if err != nil {
			return e.String()
		}
		return strconv.Itoa(v)
	default:
		return e.String()
	}
}

// WithPctChange appends a percent-change column computed from source shifted
// by the given number of rows: (x - x.shift(k)) / x.shift(k) * 100. The first
// shift rows are NaN.
func WithPctChange(df dataframe.DataFrame, source string, shift int, name string) dataframe.DataFrame {
	vals := df.Col(source).Float()
	out := make([]float64, len(vals))
	for i := range vals {
		if i < shift || math.IsNaN(vals[i]) || math.IsNaN(vals[i-shift]) || vals[i-shift] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (vals[i] - vals[i-shift]) / vals[i-shift] * 100
	}
	return df.Mutate(series.New(out, series.Float, name))
}
