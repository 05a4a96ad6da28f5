package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 5, 1, hour, minute, 0, 0, time.UTC)
}

func TestHasOverlap(t *testing.T) {
	existing := []Interval{
		{SubjectID: 1, Date: "2026-05-01", Start: at(9, 0), End: at(13, 0)},
		{SubjectID: 1, Date: "2026-05-01", Start: at(18, 0), End: at(22, 0), Cancelled: true},
		{SubjectID: 2, Date: "2026-05-01", Start: at(14, 0), End: at(16, 0)},
		{SubjectID: 1, Date: "2026-05-02", Start: at(14, 0), End: at(16, 0)},
	}

	cases := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"starts inside", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(12, 0), End: at(15, 0)}, true},
		{"ends inside", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(8, 0), End: at(10, 0)}, true},
		{"contains", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(8, 0), End: at(14, 0)}, true},
		{"identical", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(9, 0), End: at(13, 0)}, true},
		{"inside", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(10, 0), End: at(11, 0)}, true},
		{"touches end", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(13, 0), End: at(17, 0)}, false},
		{"touches start", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(7, 0), End: at(9, 0)}, false},
		{"cancelled ignored", Interval{SubjectID: 1, Date: "2026-05-01", Start: at(19, 0), End: at(21, 0)}, false},
		{"other employee", Interval{SubjectID: 3, Date: "2026-05-01", Start: at(9, 0), End: at(13, 0)}, false},
		{"other date", Interval{SubjectID: 1, Date: "2026-05-03", Start: at(9, 0), End: at(13, 0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasOverlap(existing, tc.candidate))
		})
	}
}
