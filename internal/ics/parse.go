package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "caldigest/internal/log"
	"caldigest/internal/model"
)

// RawEvent is one VEVENT as read from a feed, before recurrence
// expansion. Override records (RECURRENCE-ID) are reported separately by
// ParseFeed and are never emitted as base events.
type RawEvent struct {
	Feed Feed

	UID         string
	Summary     string
	Description string
	Location    string

	Start  model.Stamp
	End    model.Stamp
	AllDay bool

	// RRule is the raw RRULE value; expansion happens in expand.go.
	RRule string
	// ExDates are instants removed from the generated sequence.
	ExDates []time.Time
	// RecurrenceID is set only on overrides: the original start of the
	// instance this record replaces.
	RecurrenceID *model.Stamp
}

// errCancelledEvent marks a VEVENT with STATUS:CANCELLED or DECLINED;
// such components are skipped silently.
var errCancelledEvent = errors.New("event is cancelled")

// ParseFeed parses a raw iCalendar document into base events plus the
// override records the merger will overlay later. Individual broken
// VEVENTs are logged and skipped; only an unreadable document fails the
// feed as a whole.
func ParseFeed(feed Feed, body []byte) (events, overrides []RawEvent, err error) {
	if len(body) == 0 {
		return nil, nil, &ParseError{FeedID: feed.ID, Err: errors.New("empty feed body")}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, nil, &ParseError{FeedID: feed.ID, Err: err}
	}

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(feed, comp)
		if perr != nil {
			if !errors.Is(perr, errCancelledEvent) {
				appLog.Warn("skipping unparseable VEVENT", "feed", feed.ID, "err", perr)
			}
			continue
		}
		if ev.RecurrenceID != nil {
			overrides = append(overrides, ev)
		} else {
			events = append(events, ev)
		}
	}

	appLog.Info("feed parsed", "feed", feed.ID, "events", len(events), "overrides", len(overrides))
	return events, overrides, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (RawEvent, error) {
	out := RawEvent{Feed: feed, Summary: "No Title"}

	if p := ve.GetProperty("STATUS"); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "CANCELLED", "DECLINED":
			return out, errCancelledEvent
		}
	}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, err := parseStamp(startProp.Value, startProp.ICalParameters)
	if err != nil {
		return out, err
	}
	out.Start = start
	// All-day is structural: the start value was a date, not a
	// date-time. A timed event at 00:00 is not all-day.
	out.AllDay = start.Kind == model.DateOnly

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, err := parseStamp(endProp.Value, endProp.ICalParameters)
		if err != nil {
			return out, err
		}
		out.End = end
	} else {
		// No DTEND: a date start spans one day (exclusive end); a timed
		// start is instantaneous.
		out.End = start
		if out.AllDay {
			out.End.Time = start.Time.AddDate(0, 0, 1)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ex, err := parseStamp(part, p.ICalParameters)
			if err != nil {
				appLog.Warn("unparseable EXDATE value, ignoring", "feed", feed.ID, "uid", out.UID, "value", part)
				continue
			}
			out.ExDates = append(out.ExDates, ex.Time)
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		rid, err := parseStamp(p.Value, p.ICalParameters)
		if err != nil {
			return out, &MalformedRecurrenceError{UID: out.UID, Err: err}
		}
		out.RecurrenceID = &rid
	}

	return out, nil
}

// parseStamp decodes one DTSTART/DTEND/EXDATE/RECURRENCE-ID value into
// the date-only / floating / fixed-instant trichotomy.
func parseStamp(val string, params map[string][]string) (model.Stamp, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return model.Stamp{}, errors.New("empty date-time value")
	}

	// Date-only: VALUE=DATE, or no time component at all.
	if paramEquals(params, "VALUE", "DATE") || !strings.Contains(val, "T") {
		t, err := time.ParseInLocation("20060102", val, time.UTC)
		if err != nil {
			return model.Stamp{}, err
		}
		return model.Stamp{Kind: model.DateOnly, Time: t}, nil
	}

	// UTC form, e.g. 20250101T090000Z.
	if strings.HasSuffix(val, "Z") {
		t, err := time.Parse("20060102T150405Z", val)
		if err != nil {
			return model.Stamp{}, err
		}
		return model.Stamp{Kind: model.FixedInstant, Time: t}, nil
	}

	// TZID-qualified local time is a fixed instant in that zone. An
	// unknown zone degrades to floating rather than dropping the event.
	if tzid := firstParam(params, "TZID"); tzid != "" {
		loc, err := time.LoadLocation(tzid)
		if err != nil {
			appLog.Warn("unknown TZID, treating value as floating", "tzid", tzid)
		} else {
			t, err := time.ParseInLocation("20060102T150405", val, loc)
			if err != nil {
				return model.Stamp{}, err
			}
			return model.Stamp{Kind: model.FixedInstant, Time: t}, nil
		}
	}

	t, err := time.ParseInLocation("20060102T150405", val, time.UTC)
	if err != nil {
		return model.Stamp{}, err
	}
	return model.Stamp{Kind: model.Floating, Time: t}, nil
}

func paramEquals(params map[string][]string, key, want string) bool {
	return strings.EqualFold(firstParam(params, key), want)
}

func firstParam(params map[string][]string, key string) string {
	if params == nil {
		return ""
	}
	vs := params[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}
