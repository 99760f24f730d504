package sheets

import (
	"errors"
	"time"
)

// TabularContext is one successful import of a shared spreadsheet. Rows may be
// ragged relative to Headers. A new value is produced on every import; callers
// replace it wholesale rather than mutating it.
type TabularContext struct {
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	RawText   string     `json:"raw_text"`
	FetchedAt time.Time  `json:"fetched_at"`
}

var (
	ErrInvalidReference = errors.New("invalid spreadsheet reference")
	ErrFetchFailure     = errors.New("spreadsheet fetch failed")
	ErrEmptyDocument    = errors.New("spreadsheet is empty")
)

// ImportError carries one of the sentinel kinds above plus a message meant to
// be shown verbatim to whoever is configuring the data source.
type ImportError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *ImportError) Is(target error) bool { return target == e.Kind }

func (e *ImportError) Unwrap() error { return e.Err }

// UserMessage returns the display text for the end user.
func (e *ImportError) UserMessage() string { return e.Message }

func invalidReference() error {
	return &ImportError{
		Kind:    ErrInvalidReference,
		Message: "Invalid Google Sheet URL. Please paste the full share link.",
	}
}

func fetchFailure(err error) error {
	return &ImportError{
		Kind:    ErrFetchFailure,
		Message: `Failed to fetch spreadsheet. Ensure the sheet is shared as "Anyone with the link can view".`,
		Err:     err,
	}
}

func emptyDocument() error {
	return &ImportError{
		Kind:    ErrEmptyDocument,
		Message: "The spreadsheet appears to be empty.",
	}
}
