package session

import "fmt"

// NotASessionError reports a directory that exists but lacks the files a
// session requires.
type NotASessionError struct {
	Root    string
	Missing string
}

func (e *NotASessionError) Error() string {
	return fmt.Sprintf("%s is not a session directory: missing %s", e.Root, e.Missing)
}

// TraceNotFoundError reports a token with no trace file in the session.
type TraceNotFoundError struct {
	Token int
	Path  string
}

func (e *TraceNotFoundError) Error() string {
	return fmt.Sprintf("no trace recorded for token %d (looked for %s)", e.Token, e.Path)
}
