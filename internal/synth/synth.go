package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/deskchat/internal/gemini"
	"github.com/MikeSquared-Agency/deskchat/internal/sheets"
)

// Temperature is fixed low so answers over the same records stay stable.
const Temperature = 0.3

// ErrProviderFailure wraps any error from the model provider. The provider's
// own error stays reachable with errors.Is/As.
var ErrProviderFailure = errors.New("provider failure")

// Provider is the narrow model contract the synthesizer needs.
type Provider interface {
	GenerateContent(ctx context.Context, req gemini.Request) (*gemini.Response, error)
}

// Synthesizer builds one grounded request per query and decodes the answer.
// It holds no per-call state and is safe for concurrent use.
type Synthesizer struct {
	provider      Provider
	defaultPolicy string
	logger        *slog.Logger
}

// New returns a synthesizer. basePolicy replaces the built-in default policy
// when non-empty; per-call overrides still take precedence over it.
func New(provider Provider, basePolicy string, logger *slog.Logger) *Synthesizer {
	if strings.TrimSpace(basePolicy) == "" {
		basePolicy = defaultPolicy
	}
	return &Synthesizer{provider: provider, defaultPolicy: basePolicy, logger: logger}
}

// Synthesize answers query using tc (may be nil) as private context. history is
// accepted but not sent: each request is single-turn, grounded on the context
// block and the current query only.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, history []Turn, tc *sheets.TabularContext, policyOverride string) (*Result, error) {
	req := s.BuildRequest(query, tc, policyOverride)

	s.logger.Debug("sending synthesis request",
		"query_len", len(query),
		"history_turns", len(history),
		"has_context", tc != nil,
		"policy_override", policyOverride != "",
	)

	resp, err := s.provider.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	res := Decode(resp)
	s.logger.Debug("grounding", "search_queries", resp.SearchQueries(), "citations", len(res.Citations))
	s.logger.Info("synthesis complete",
		"text_len", len(res.Text),
		"citations", len(res.Citations),
	)
	return res, nil
}

// BuildRequest assembles the provider request for one query.
func (s *Synthesizer) BuildRequest(query string, tc *sheets.TabularContext, policyOverride string) gemini.Request {
	temp := Temperature
	return gemini.Request{
		Contents:          []gemini.Content{gemini.UserText(ComposeMessage(query, tc))},
		SystemInstruction: gemini.SystemText(s.EffectivePolicy(policyOverride)),
		GenerationConfig:  &gemini.GenerationConfig{Temperature: &temp},
		Tools:             []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}},
	}
}

// EffectivePolicy returns override verbatim when it is non-empty, otherwise
// the synthesizer's default. The two are never merged.
func (s *Synthesizer) EffectivePolicy(override string) string {
	if override != "" {
		return override
	}
	return s.defaultPolicy
}

// ComposeMessage is the single user message sent to the provider.
func ComposeMessage(query string, tc *sheets.TabularContext) string {
	return "CONTEXT:\n" + RenderContext(tc) + "\n\nUSER QUERY: " + query
}

// RenderContext renders tc as headers joined by ", " followed by one line per
// row with cells joined by " | ". A nil tc renders the fixed no-database line.
func RenderContext(tc *sheets.TabularContext) string {
	if tc == nil {
		return noContextBlock
	}
	var b strings.Builder
	b.WriteString("DATABASE CONTEXT (Google Sheets):\n")
	b.WriteString("Columns: ")
	b.WriteString(strings.Join(tc.Headers, ", "))
	b.WriteString("\nData:")
	for _, row := range tc.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	return b.String()
}

// Decode extracts display text and citations from a provider response.
func Decode(resp *gemini.Response) *Result {
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		text = emptyAnswer
	}
	return &Result{Text: text, Citations: ExtractCitations(resp.GroundingChunks())}
}

// ExtractCitations keeps chunks that carry both a URL and a title, dropping
// later chunks whose URL was already seen. Order is preserved.
func ExtractCitations(chunks []gemini.GroundingChunk) []Citation {
	citations := []Citation{}
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		citations = append(citations, Citation{Title: chunk.Web.Title, URL: chunk.Web.URI})
	}
	return citations
}
