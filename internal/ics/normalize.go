package ics

import (
	"time"

	"caldigest/internal/model"
)

// Normalize rewrites every occurrence's start and end into the display
// zone:
//
//   - DateOnly becomes midnight of that date in loc.
//   - Floating wall clocks are re-anchored in loc.
//   - FixedInstants are converted into loc, preserving the instant.
//
// Running it again on already-normalized occurrences changes nothing.
func Normalize(occurrences []model.Occurrence, loc *time.Location) {
	for i := range occurrences {
		occurrences[i].Start = normalizeStamp(occurrences[i].Start, loc)
		occurrences[i].End = normalizeStamp(occurrences[i].End, loc)
	}
}

func normalizeStamp(s model.Stamp, loc *time.Location) model.Stamp {
	switch s.Kind {
	case model.FixedInstant:
		s.Time = s.Time.In(loc)
	default:
		// DateOnly and Floating carry a wall clock; rebuild it in loc.
		t := s.Time
		s.Time = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return s
}
