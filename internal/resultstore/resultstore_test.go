package resultstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryFresh(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"done and recent", Entry{Status: StatusDone, Date: now.Add(-time.Hour)}, true},
		{"done just inside ttl", Entry{Status: StatusDone, Date: now.Add(-ResultTTL + time.Minute)}, true},
		{"done expired", Entry{Status: StatusDone, Date: now.Add(-ResultTTL)}, false},
		{"in progress never fresh", Entry{Status: StatusInProgress, Date: now}, false},
		{"empty status", Entry{Date: now}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.entry.Fresh(now, ResultTTL))
		})
	}
}
