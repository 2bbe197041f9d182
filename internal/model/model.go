package model

import "time"

// TimeKind classifies how a start or end value was expressed in the
// source feed. The three forms need different timezone treatment, so the
// distinction is carried explicitly rather than re-derived from the
// clock value later.
type TimeKind int

const (
	// DateOnly is a calendar date with no time-of-day (VALUE=DATE).
	DateOnly TimeKind = iota
	// Floating is a wall-clock value with no zone offset attached.
	Floating
	// FixedInstant is a value with an explicit UTC marker or TZID.
	FixedInstant
)

// Stamp is a single start or end value together with its source form.
//
// Before normalization, DateOnly and Floating stamps hold their wall
// clock in a UTC container; ics.Normalize re-anchors them in the display
// zone. FixedInstant stamps always denote a real instant.
type Stamp struct {
	Kind TimeKind
	Time time.Time
}

// Occurrence is one concrete event instance after recurrence expansion.
type Occurrence struct {
	FeedID string // subscription source ID
	UID    string // iCalendar UID (shared across a recurring series)

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End begin in source form and are rewritten into the
	// display zone by ics.Normalize. No other stage mutates them.
	Start Stamp
	End   Stamp
}
