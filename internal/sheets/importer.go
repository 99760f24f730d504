package sheets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Importer resolves spreadsheet share links into TabularContext values.
type Importer struct {
	baseURL string
	client  *http.Client
	cache   Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewImporter returns an importer that reads exports from baseURL
// (normally https://docs.google.com). cache may be nil.
func NewImporter(baseURL string, cache Cache, logger *slog.Logger) *Importer {
	return &Importer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// ExportURL is the CSV export endpoint for a document id.
func (im *Importer) ExportURL(docID string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv", im.baseURL, url.PathEscape(docID))
}

// Import fetches the spreadsheet behind shareURL and parses it.
func (im *Importer) Import(ctx context.Context, shareURL string) (*TabularContext, error) {
	docID, ok := ExtractID(shareURL)
	if !ok {
		return nil, invalidReference()
	}

	exp, err := im.export(ctx, docID)
	if err != nil {
		return nil, err
	}

	tc, err := Parse(exp.RawText, exp.FetchedAt)
	if err != nil {
		return nil, err
	}

	im.logger.Info("spreadsheet imported",
		"doc_id", docID,
		"headers", len(tc.Headers),
		"rows", len(tc.Rows),
		"bytes", len(tc.RawText),
	)
	return tc, nil
}

func (im *Importer) export(ctx context.Context, docID string) (Export, error) {
	raw, err := im.fetch(ctx, docID)
	if err != nil {
		return Export{}, err
	}
	exp := Export{RawText: raw, FetchedAt: im.now()}

	if im.cache != nil {
		if err := im.cache.Put(ctx, docID, exp); err != nil {
			im.logger.Warn("sheet cache write failed", "doc_id", docID, "error", err)
		}
	}
	return exp, nil
}

func (im *Importer) fetch(ctx context.Context, docID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.ExportURL(docID), nil)
	if err != nil {
		return "", fetchFailure(fmt.Errorf("create request: %w", err))
	}

	resp, err := im.client.Do(req)
	if err != nil {
		return "", fetchFailure(fmt.Errorf("http get: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fetchFailure(fmt.Errorf("export returned %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fetchFailure(fmt.Errorf("read body: %w", err))
	}
	return string(body), nil
}
