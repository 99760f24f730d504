package session

import (
	"time"

	"github.com/MikeSquared-Agency/deskchat/internal/sheets"
	"github.com/MikeSquared-Agency/deskchat/internal/synth"
)

// ImportStatus drives the data-source affordance in the UI. The synthesizer
// only looks at whether a context is present.
type ImportStatus string

const (
	StatusIdle    ImportStatus = "idle"
	StatusLoading ImportStatus = "loading"
	StatusLoaded  ImportStatus = "loaded"
	StatusFailed  ImportStatus = "failed"
)

const (
	greetingText = "Support portal initialized. I'm ready to assist with system navigation or clinical data queries. How can I help you today?"
	failureText  = "I encountered an error connecting to the support knowledge base. Please try again."
)

// state is the mutable record kept per session. Guarded by Manager.mu.
type state struct {
	id          string
	log         []synth.Turn
	context     *sheets.TabularContext
	policy      string
	status      ImportStatus
	importError string
	busy        bool
	createdAt   time.Time

	// logEpoch changes on reset so an answer to a question asked before the
	// reset is not appended to the new log.
	logEpoch int
	// importSeq orders overlapping imports; only the latest one is applied.
	importSeq int
}

// SheetSummary describes the connected spreadsheet without its rows.
type SheetSummary struct {
	Headers   []string  `json:"headers"`
	RowCount  int       `json:"row_count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Snapshot is a copy of session state safe to hand to callers.
type Snapshot struct {
	ID           string        `json:"id"`
	Messages     []synth.Turn  `json:"messages"`
	Sheet        *SheetSummary `json:"sheet,omitempty"`
	ImportStatus ImportStatus  `json:"import_status"`
	ImportError  string        `json:"import_error,omitempty"`
	Policy       string        `json:"policy,omitempty"`
	Busy         bool          `json:"busy"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (s *state) snapshot() *Snapshot {
	snap := &Snapshot{
		ID:           s.id,
		Messages:     append([]synth.Turn(nil), s.log...),
		ImportStatus: s.status,
		ImportError:  s.importError,
		Policy:       s.policy,
		Busy:         s.busy,
		CreatedAt:    s.createdAt,
	}
	if s.context != nil {
		snap.Sheet = &SheetSummary{
			Headers:   append([]string(nil), s.context.Headers...),
			RowCount:  len(s.context.Rows),
			FetchedAt: s.context.FetchedAt,
		}
	}
	return snap
}
