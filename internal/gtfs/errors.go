package gtfs

import "fmt"

// FeedError reports a missing, unreadable, or malformed input table. File is
// the base name of the table, Line the 1-based line the problem was found on
// (0 when it concerns the whole file), Column the offending column name if
// one applies.
type FeedError struct {
	File   string
	Line   int
	Column string
	Reason string
	Err    error
}

func (e *FeedError) Error() string {
	msg := e.File
	if e.Line > 0 {
		msg = fmt.Sprintf("%s:%d", msg, e.Line)
	}
	if e.Column != "" {
		msg = fmt.Sprintf("%s: column %s", msg, e.Column)
	}
	return fmt.Sprintf("%s: %s", msg, e.Reason)
}

func (e *FeedError) Unwrap() error { return e.Err }
