package ics

import (
	"time"

	appLog "caldigest/internal/log"
	"caldigest/internal/model"
)

// instanceKey identifies one occurrence of a series for override
// matching: the UID plus the exact original start instant.
type instanceKey struct {
	uid  string
	unix int64
}

// Merge overlays override records onto the generated occurrences.
//
// An override replaces the start, end and descriptive fields of the
// occurrence whose (uid, start) matches its RECURRENCE-ID. Overrides
// that match nothing (e.g. they target an instant outside the expansion
// window) are dropped. The result never contains two occurrences with
// the same (uid, start).
func Merge(occurrences []model.Occurrence, overrides []RawEvent) []model.Occurrence {
	table := make(map[instanceKey]RawEvent, len(overrides))
	for _, ov := range overrides {
		if ov.RecurrenceID == nil {
			continue
		}
		key := instanceKey{uid: ov.UID, unix: ov.RecurrenceID.Time.Unix()}
		if _, dup := table[key]; dup {
			appLog.Warn("duplicate override for instance, last one wins",
				"uid", ov.UID, "instance", ov.RecurrenceID.Time.Format(time.RFC3339))
		}
		table[key] = ov
	}

	matched := make(map[instanceKey]bool, len(table))
	for i := range occurrences {
		key := instanceKey{uid: occurrences[i].UID, unix: occurrences[i].Start.Time.Unix()}
		ov, ok := table[key]
		if !ok {
			continue
		}
		matched[key] = true
		occurrences[i].Start = ov.Start
		occurrences[i].End = ov.End
		occurrences[i].Summary = ov.Summary
		occurrences[i].Description = ov.Description
		occurrences[i].Location = ov.Location
		occurrences[i].AllDay = ov.AllDay
	}

	for key, ov := range table {
		if !matched[key] {
			appLog.Debug("override matched no generated occurrence, dropped",
				"uid", key.uid, "instance", ov.RecurrenceID.Time.Format(time.RFC3339))
		}
	}

	return dedupe(occurrences)
}

// dedupe drops occurrences sharing an exact (uid, start) with an
// earlier one. Seeing any is a feed data-quality problem.
func dedupe(occurrences []model.Occurrence) []model.Occurrence {
	seen := make(map[instanceKey]bool, len(occurrences))
	out := occurrences[:0]
	for _, occ := range occurrences {
		key := instanceKey{uid: occ.UID, unix: occ.Start.Time.Unix()}
		if seen[key] {
			appLog.Warn("duplicate occurrence after merge, dropping",
				"uid", occ.UID, "start", occ.Start.Time.Format(time.RFC3339), "summary", occ.Summary)
			continue
		}
		seen[key] = true
		out = append(out, occ)
	}
	return out
}
