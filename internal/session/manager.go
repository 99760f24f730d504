package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/deskchat/internal/hermes"
	"github.com/MikeSquared-Agency/deskchat/internal/metrics"
	"github.com/MikeSquared-Agency/deskchat/internal/sheets"
	"github.com/MikeSquared-Agency/deskchat/internal/synth"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrBusy       = errors.New("a question is already being answered")
	ErrEmptyQuery = errors.New("query is empty")
)

type Importer interface {
	Import(ctx context.Context, shareURL string) (*sheets.TabularContext, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, query string, history []synth.Turn, tc *sheets.TabularContext, policyOverride string) (*synth.Result, error)
}

// Publisher receives session events. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Manager owns every session's message log and tabular context in memory and
// drives the importer and synthesizer on their behalf.
type Manager struct {
	importer Importer
	synth    Synthesizer
	events   Publisher
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*state
}

// NewManager builds a manager. events may be nil.
func NewManager(im Importer, sy Synthesizer, events Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		importer: im,
		synth:    sy,
		events:   events,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*state),
	}
}

func (m *Manager) newTurn(speaker synth.Speaker, text string, citations []synth.Citation) synth.Turn {
	return synth.Turn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: m.now().UTC(),
		Citations: citations,
	}
}

// Create starts a session whose log holds only the greeting.
func (m *Manager) Create() *Snapshot {
	st := &state{
		id:        uuid.NewString(),
		status:    StatusIdle,
		createdAt: m.now().UTC(),
	}
	st.log = []synth.Turn{m.newTurn(synth.SpeakerAssistant, greetingText, nil)}

	m.mu.Lock()
	m.sessions[st.id] = st
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	m.logger.Info("session created", "session_id", st.id)
	return st.snapshot()
}

func (m *Manager) Get(id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st.snapshot(), nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	metrics.SessionsActive.Set(float64(n))
	m.logger.Info("session deleted", "session_id", id)
	return nil
}

// Reset replaces the whole log with a fresh greeting. The connected sheet and
// policy are kept.
func (m *Manager) Reset(id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	st.log = []synth.Turn{m.newTurn(synth.SpeakerAssistant, greetingText, nil)}
	st.logEpoch++
	st.busy = false
	return st.snapshot(), nil
}

// SetPolicy stores a policy override. An empty string restores the default.
func (m *Manager) SetPolicy(id, policy string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	st.policy = policy
	return st.snapshot(), nil
}

// DisconnectSheet drops the current context and returns the status to idle.
func (m *Manager) DisconnectSheet(id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	st.context = nil
	st.status = StatusIdle
	st.importError = ""
	st.importSeq++
	return st.snapshot(), nil
}

// ConnectSheet imports shareURL and, on success, replaces the session's
// context. On failure the previous context stays and the status becomes
// failed with a displayable message. When imports overlap only the most
// recently started one is applied.
func (m *Manager) ConnectSheet(ctx context.Context, id, shareURL string) (*Snapshot, error) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	st.importSeq++
	seq := st.importSeq
	st.status = StatusLoading
	st.importError = ""
	m.mu.Unlock()

	tc, err := m.importer.Import(ctx, shareURL)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] != st || st.importSeq != seq {
		m.logger.Info("discarding superseded import", "session_id", id)
		if err != nil {
			return st.snapshot(), err
		}
		return st.snapshot(), nil
	}

	if err != nil {
		kind := importErrorKind(err)
		st.status = StatusFailed
		st.importError = userMessage(err)
		metrics.SheetImports.WithLabelValues(kind).Inc()
		m.logger.Warn("sheet import failed", "session_id", id, "kind", kind, "error", err)
		m.publish(hermes.SubjectSheetFailed, hermes.SheetFailedEvent{
			SessionID: id,
			ErrorKind: kind,
			Timestamp: m.now().UTC(),
		})
		return st.snapshot(), err
	}

	st.context = tc
	st.status = StatusLoaded
	metrics.SheetImports.WithLabelValues("loaded").Inc()
	m.publish(hermes.SubjectSheetImported, hermes.SheetImportedEvent{
		SessionID: id,
		Headers:   len(tc.Headers),
		Rows:      len(tc.Rows),
		Timestamp: m.now().UTC(),
	})
	return st.snapshot(), nil
}

// Ask records query as a user turn and answers it. One question per session
// may be outstanding at a time. On provider failure a generic apology turn is
// appended and the raw error is returned for logging.
func (m *Manager) Ask(ctx context.Context, id, query string) (*synth.Turn, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	if st.busy {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	history := append([]synth.Turn(nil), st.log...)
	st.log = append(st.log, m.newTurn(synth.SpeakerUser, query, nil))
	st.busy = true
	epoch := st.logEpoch
	tc := st.context
	policy := st.policy
	m.mu.Unlock()

	start := m.now()
	res, err := m.synth.Synthesize(ctx, query, history, tc, policy)
	elapsed := m.now().Sub(start)
	metrics.SynthDuration.Observe(elapsed.Seconds())

	var turn synth.Turn
	if err != nil {
		turn = m.newTurn(synth.SpeakerAssistant, failureText, nil)
		metrics.SynthRequests.WithLabelValues("provider_failure").Inc()
		m.logger.Error("synthesis failed", "session_id", id, "error", err)
		m.publish(hermes.SubjectChatFailed, hermes.ChatEvent{
			SessionID:  id,
			TurnID:     turn.ID,
			HasContext: tc != nil,
			DurationMS: elapsed.Milliseconds(),
			Timestamp:  m.now().UTC(),
		})
	} else {
		var citations []synth.Citation
		if len(res.Citations) > 0 {
			citations = res.Citations
		}
		turn = m.newTurn(synth.SpeakerAssistant, res.Text, citations)
		metrics.SynthRequests.WithLabelValues("ok").Inc()
		metrics.CitationsReturned.Add(float64(len(res.Citations)))
		m.publish(hermes.SubjectChatAnswered, hermes.ChatEvent{
			SessionID:  id,
			TurnID:     turn.ID,
			HasContext: tc != nil,
			Citations:  len(res.Citations),
			DurationMS: elapsed.Milliseconds(),
			Timestamp:  m.now().UTC(),
		})
	}

	m.mu.Lock()
	if m.sessions[id] == st && st.logEpoch == epoch {
		st.log = append(st.log, turn)
		st.busy = false
	}
	m.mu.Unlock()

	return &turn, err
}

func (m *Manager) publish(subject string, evt any) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(subject, evt); err != nil {
		m.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func importErrorKind(err error) string {
	switch {
	case errors.Is(err, sheets.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, sheets.ErrFetchFailure):
		return "fetch_failure"
	case errors.Is(err, sheets.ErrEmptyDocument):
		return "empty_document"
	default:
		return "unknown"
	}
}

// userMessage picks the display text for an import error.
func userMessage(err error) string {
	var ie *sheets.ImportError
	if errors.As(err, &ie) {
		return ie.UserMessage()
	}
	return fmt.Sprintf("Connection failed: %v", err)
}
