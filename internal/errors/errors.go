// internal/errors/errors.go
package errors

import "fmt"

// ErrUpstream is returned when the listing source, the document store or the
// index sink answers with a non-success status. StatusCode is 0 when the
// request never produced a response.
type ErrUpstream struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ErrUpstream) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("upstream %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrPublishConflict is returned when the document store rejects a write
// because the version token no longer matches the stored document.
type ErrPublishConflict struct {
	Path   string
	Branch string
	Token  string
}

func (e *ErrPublishConflict) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("publish conflict on %s@%s: document was created concurrently", e.Path, e.Branch)
	}
	return fmt.Sprintf("publish conflict on %s@%s: version %s is stale", e.Path, e.Branch, e.Token)
}

// ErrConfiguration is returned when a required setting is missing at startup.
type ErrConfiguration struct {
	Field string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("%s is a required configuration field", e.Field)
}
