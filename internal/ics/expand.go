package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "caldigest/internal/log"
	"caldigest/internal/model"
)

const (
	// DefaultHorizonYears bounds expansion of rules that carry neither a
	// COUNT nor an UNTIL.
	DefaultHorizonYears = 5

	// maxOccurrencesPerEvent is a secondary guard against pathological
	// rules (e.g. FREQ=SECONDLY) inside the year horizon.
	maxOccurrencesPerEvent = 5000
)

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Now anchors the expansion horizon.
	Now time.Time
	// HorizonYears stops generation once an instant's year exceeds
	// Now.Year()+HorizonYears. Zero means DefaultHorizonYears.
	HorizonYears int
}

// Expand turns parsed base events into concrete occurrences. Events
// without a rule pass through as a single occurrence; rule-bearing
// events are expanded up to the horizon with excluded instants removed.
// Overrides are not applied here; see Merge.
func Expand(events []RawEvent, cfg ExpandConfig) []model.Occurrence {
	if cfg.HorizonYears <= 0 {
		cfg.HorizonYears = DefaultHorizonYears
	}
	horizonYear := cfg.Now.Year() + cfg.HorizonYears

	out := make([]model.Occurrence, 0, len(events))
	for _, ev := range events {
		if ev.RRule == "" {
			out = append(out, occurrenceFrom(ev, ev.Start, ev.End))
			continue
		}
		out = append(out, expandRecurring(ev, horizonYear)...)
	}
	return out
}

func expandRecurring(ev RawEvent, horizonYear int) []model.Occurrence {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("dropping series with unparseable RRULE",
			&MalformedRecurrenceError{UID: ev.UID, Err: err},
			"uid", ev.UID, "rrule", ev.RRule)
		return nil
	}
	r.DTStart(ev.Start.Time)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Exclusion is by exact instant. Align the representation with
		// the series start so the comparison is instant-to-instant.
		set.ExDate(ex.In(ev.Start.Time.Location()))
	}

	duration := ev.End.Time.Sub(ev.Start.Time)
	if duration < 0 {
		appLog.Warn("event end precedes start, clamping duration", "uid", ev.UID, "summary", ev.Summary)
		duration = 0
	}

	out := make([]model.Occurrence, 0, 8)
	next := set.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if start.Year() > horizonYear {
			break
		}
		out = append(out, occurrenceFrom(ev,
			model.Stamp{Kind: ev.Start.Kind, Time: start},
			model.Stamp{Kind: ev.End.Kind, Time: start.Add(duration)},
		))
		if len(out) >= maxOccurrencesPerEvent {
			appLog.Warn("occurrence cap reached for series", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
			break
		}
	}
	return out
}

func occurrenceFrom(ev RawEvent, start, end model.Stamp) model.Occurrence {
	return model.Occurrence{
		FeedID:      ev.Feed.ID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}
