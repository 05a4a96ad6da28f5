package domain

import "time"

// Interval is a half-open span [Start, End) owned by one subject on one
// date.
type Interval struct {
	SubjectID int64
	Date      string
	Start     time.Time
	End       time.Time
	Cancelled bool
}

// HasOverlap reports whether candidate collides with any live interval of
// the same subject and date. Intervals that only touch do not overlap.
func HasOverlap(existing []Interval, candidate Interval) bool {
	for _, e := range existing {
		if e.Cancelled || e.SubjectID != candidate.SubjectID || e.Date != candidate.Date {
			continue
		}
		startsInside := !candidate.Start.Before(e.Start) && candidate.Start.Before(e.End)
		endsInside := candidate.End.After(e.Start) && !candidate.End.After(e.End)
		contains := !candidate.Start.After(e.Start) && !candidate.End.Before(e.End)
		if startsInside || endsInside || contains {
			return true
		}
	}
	return false
}
