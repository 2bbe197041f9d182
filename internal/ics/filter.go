package ics

import (
	"time"

	appLog "caldigest/internal/log"
	"caldigest/internal/model"
)

// FilterToday keeps occurrences whose span intersects the local date of
// now. Occurrences must already be normalized into now's zone.
//
// Two edge rules apply:
//
//   - A timed occurrence that ends exactly at 00:00 today and started on
//     an earlier date is excluded; it belongs to yesterday.
//   - All-day spans use the source's exclusive end-date convention: a
//     stored end date of D means the span really ends at the close of
//     D-1.
func FilterToday(occurrences []model.Occurrence, now time.Time) []model.Occurrence {
	today := civilDate(now)

	kept := make([]model.Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if occursOn(occ, today) {
			kept = append(kept, occ)
		}
	}
	return kept
}

func occursOn(occ model.Occurrence, today time.Time) bool {
	start := occ.Start.Time
	end := occ.End.Time
	if end.Before(start) {
		appLog.Warn("occurrence ends before it starts",
			"uid", occ.UID, "summary", occ.Summary, "start", start.Format(time.RFC3339))
		end = start
	}

	startDate := civilDate(start)
	endDate := civilDate(end)

	if occ.AllDay {
		endDate = endDate.AddDate(0, 0, -1)
		if endDate.Before(startDate) {
			endDate = startDate
		}
	} else if endDate.Equal(today) && isMidnight(end) && startDate.Before(today) {
		return false
	}

	return !startDate.After(today) && !endDate.Before(today)
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
