package ics

import "fmt"

// RetrievalError reports a feed that could not be fetched after all
// retry attempts. The feed contributes zero occurrences; other feeds
// proceed.
type RetrievalError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("fetch %s: giving up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ParseError reports a feed body that could not be parsed as an
// iCalendar document at all.
type ParseError struct {
	FeedID string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed %s: %v", e.FeedID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MalformedRecurrenceError reports a recurrence rule or override that
// could not be resolved. The affected series or exception is dropped;
// the rest of the feed proceeds.
type MalformedRecurrenceError struct {
	UID string
	Err error
}

func (e *MalformedRecurrenceError) Error() string {
	return fmt.Sprintf("recurrence for uid %s: %v", e.UID, e.Err)
}

func (e *MalformedRecurrenceError) Unwrap() error { return e.Err }
