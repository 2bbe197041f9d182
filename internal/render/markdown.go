package render

import (
	"fmt"
	"strings"
	"time"

	"caldigest/internal/model"
)

// Options control digest rendering.
type Options struct {
	// TwelveHour selects a 12-hour clock with AM/PM.
	TwelveHour bool
}

const (
	clock24  = "15:04"
	clock12  = "03:04 PM"
	longDate = "Monday, January 02, 2006"
)

// Markdown renders the filtered, sorted occurrence list as the Events
// section of the digest. The caller concatenates it with the other
// digest sections. Returns "" when there is nothing to show.
func Markdown(occurrences []model.Occurrence, now time.Time, opts Options) string {
	if len(occurrences) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Events")

	for _, occ := range occurrences {
		b.WriteString("\n\n### ")
		b.WriteString(occ.Summary)

		if occ.Description != "" {
			b.WriteString("\n\n")
			b.WriteString(occ.Description)
		}

		if occ.AllDay {
			writeAllDay(&b, occ)
		} else {
			writeTimed(&b, occ, now, opts)
		}

		if occ.Location != "" {
			b.WriteString("\n\n[Directions](https://maps.apple.com/?q=")
			b.WriteString(strings.ReplaceAll(occ.Location, " ", "+"))
			b.WriteString(")")
		}
	}

	return b.String()
}

func writeAllDay(b *strings.Builder, occ model.Occurrence) {
	// The stored end date is exclusive; pull it back one day for display.
	displayEnd := occ.End.Time.AddDate(0, 0, -1)
	if displayEnd.After(occ.Start.Time) {
		fmt.Fprintf(b, "\n\nAll day event, ends %s", displayEnd.Format(longDate))
	} else {
		b.WriteString("\n\nAll day event")
	}
}

func writeTimed(b *strings.Builder, occ model.Occurrence, now time.Time, opts Options) {
	clock := clock24
	if opts.TwelveHour {
		clock = clock12
	}
	clockDate := clock + " on " + longDate

	start := occ.Start.Time
	end := occ.End.Time

	if sameDate(start, now) {
		fmt.Fprintf(b, "\n\nStarts at %s", start.Format(clock))
	} else {
		fmt.Fprintf(b, "\n\nStarts at %s", start.Format(clockDate))
	}

	if sameDate(end, now) {
		fmt.Fprintf(b, "\n\nEnds at %s", end.Format(clock))
	} else {
		fmt.Fprintf(b, "\n\nEnds at %s", end.Format(clockDate))
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
