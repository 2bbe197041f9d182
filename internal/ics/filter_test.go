package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"caldigest/internal/model"
)

// now is 2024-06-15 08:00 UTC for every filter test.
var filterNow = time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

func timedOcc(start, end time.Time) model.Occurrence {
	return model.Occurrence{
		UID:     "timed",
		Summary: "Timed",
		Start:   model.Stamp{Kind: model.FixedInstant, Time: start},
		End:     model.Stamp{Kind: model.FixedInstant, Time: end},
	}
}

func allDayOcc(start, end time.Time) model.Occurrence {
	return model.Occurrence{
		UID:     "allday",
		Summary: "All day",
		AllDay:  true,
		Start:   model.Stamp{Kind: model.DateOnly, Time: start},
		End:     model.Stamp{Kind: model.DateOnly, Time: end},
	}
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func at(d, h, m int) time.Time {
	return time.Date(2024, 6, d, h, m, 0, 0, time.UTC)
}

func TestFilterKeepsTodayEvents(t *testing.T) {
	occs := []model.Occurrence{
		timedOcc(at(15, 14, 0), at(15, 15, 0)), // today
		timedOcc(at(14, 14, 0), at(14, 15, 0)), // yesterday
		timedOcc(at(16, 14, 0), at(16, 15, 0)), // tomorrow
		timedOcc(at(14, 22, 0), at(15, 2, 0)),  // spans into today
		timedOcc(at(10, 9, 0), at(20, 17, 0)),  // long span covering today
	}

	kept := FilterToday(occs, filterNow)

	assert.Len(t, kept, 3)
}

func TestFilterMidnightBoundary(t *testing.T) {
	assert := assert.New(t)

	// Ended exactly at 00:00 today, started yesterday: excluded.
	kept := FilterToday([]model.Occurrence{timedOcc(at(14, 10, 0), at(15, 0, 0))}, filterNow)
	assert.Empty(kept)

	// Starts at 00:00 today: included.
	kept = FilterToday([]model.Occurrence{timedOcc(at(15, 0, 0), at(15, 9, 0))}, filterNow)
	assert.Len(kept, 1)

	// Ends at 00:01 today after starting yesterday: still running, included.
	kept = FilterToday([]model.Occurrence{timedOcc(at(14, 10, 0), at(15, 0, 1))}, filterNow)
	assert.Len(kept, 1)
}

func TestFilterAllDayExclusiveEnd(t *testing.T) {
	assert := assert.New(t)

	// 14th..15th stored: really ends close of the 14th, so not today.
	kept := FilterToday([]model.Occurrence{allDayOcc(day(14), day(15))}, filterNow)
	assert.Empty(kept)

	// Single day on the 15th.
	kept = FilterToday([]model.Occurrence{allDayOcc(day(15), day(16))}, filterNow)
	assert.Len(kept, 1)

	// 14th..16th stored: really 14th..15th, so today counts.
	kept = FilterToday([]model.Occurrence{allDayOcc(day(14), day(16))}, filterNow)
	assert.Len(kept, 1)
}

func TestFilterDegenerateAllDaySpan(t *testing.T) {
	// end == start is malformed (exclusive end); treated as single day.
	kept := FilterToday([]model.Occurrence{allDayOcc(day(15), day(15))}, filterNow)
	assert.Len(t, kept, 1)
}

func TestFilterEndBeforeStartIsClamped(t *testing.T) {
	// Data-quality fault, not a crash: evaluated as instantaneous.
	kept := FilterToday([]model.Occurrence{timedOcc(at(15, 14, 0), at(15, 13, 0))}, filterNow)
	assert.Len(t, kept, 1)
}
