package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSheetServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != "/spreadsheets/d/"+sampleID+"/gviz/tq" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("tqx") != "out:csv" {
			t.Errorf("expected tqx=out:csv, got %q", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func shareURL() string {
	return "https://docs.google.com/spreadsheets/d/" + sampleID + "/edit?usp=sharing"
}

func TestExportURL(t *testing.T) {
	im := NewImporter("https://docs.google.com/", nil, discardLogger())

	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/"+sampleID+"/gviz/tq?tqx=out:csv",
		im.ExportURL(sampleID))
}

func TestImport_Success(t *testing.T) {
	raw := "h1,h2\nv1,v2\n"
	srv := newSheetServer(t, http.StatusOK, raw, nil)
	im := NewImporter(srv.URL, nil, discardLogger())
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	im.now = func() time.Time { return fixed }

	tc, err := im.Import(context.Background(), shareURL())

	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, tc.Headers)
	assert.Equal(t, [][]string{{"v1", "v2"}}, tc.Rows)
	assert.Equal(t, raw, tc.RawText)
	assert.Equal(t, fixed, tc.FetchedAt)
}

func TestImport_InvalidReference(t *testing.T) {
	var hits int32
	srv := newSheetServer(t, http.StatusOK, "a,b", &hits)
	im := NewImporter(srv.URL, nil, discardLogger())

	_, err := im.Import(context.Background(), "https://docs.google.com/spreadsheets/d/nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidReference))
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits), "no request should be made")
}

func TestImport_AccessDenied(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		srv := newSheetServer(t, status, "<html>sign in</html>", nil)
		im := NewImporter(srv.URL, nil, discardLogger())

		_, err := im.Import(context.Background(), shareURL())

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFetchFailure), "status %d", status)
		var ie *ImportError
		require.True(t, errors.As(err, &ie))
		assert.Contains(t, ie.UserMessage(), "Anyone with the link can view")
	}
}

func TestImport_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()
	im := NewImporter(base, nil, discardLogger())

	_, err := im.Import(context.Background(), shareURL())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailure))
}

func TestImport_BlankDocument(t *testing.T) {
	srv := newSheetServer(t, http.StatusOK, "\n \r\n\t\n", nil)
	im := NewImporter(srv.URL, nil, discardLogger())

	_, err := im.Import(context.Background(), shareURL())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestImport_ReconnectSeesEdits(t *testing.T) {
	var hits int32
	var body atomic.Value
	body.Store("h\nold\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		io.WriteString(w, body.Load().(string))
	}))
	t.Cleanup(srv.Close)
	rdb := setupRedis(t)
	im := NewImporter(srv.URL, NewRedisCache(rdb, 2*time.Minute), discardLogger())
	clock := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	im.now = func() time.Time { return clock }

	first, err := im.Import(context.Background(), shareURL())
	require.NoError(t, err)

	body.Store("h\nnew\n")
	clock = clock.Add(time.Minute)
	second, err := im.Import(context.Background(), shareURL())
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
	assert.Equal(t, [][]string{{"old"}}, first.Rows)
	assert.Equal(t, [][]string{{"new"}}, second.Rows)
	assert.True(t, second.FetchedAt.After(first.FetchedAt))
}

func TestImport_WritesLatestExportToCache(t *testing.T) {
	raw := "Name,Dose\nAsp,50mg\n"
	srv := newSheetServer(t, http.StatusOK, raw, nil)
	rdb := setupRedis(t)
	im := NewImporter(srv.URL, NewRedisCache(rdb, time.Minute), discardLogger())
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	im.now = func() time.Time { return fixed }

	_, err := im.Import(context.Background(), shareURL())
	require.NoError(t, err)

	val, err := rdb.Get(context.Background(), cacheKeyPrefix+sampleID).Result()
	require.NoError(t, err)
	var exp Export
	require.NoError(t, json.Unmarshal([]byte(val), &exp))
	assert.Equal(t, raw, exp.RawText)
	assert.True(t, exp.FetchedAt.Equal(fixed))

	ttl, err := rdb.TTL(context.Background(), cacheKeyPrefix+sampleID).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
}

func TestImport_CacheWriteFailureIsIgnored(t *testing.T) {
	var hits int32
	srv := newSheetServer(t, http.StatusOK, "a,b\n1,2\n", &hits)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	im := NewImporter(srv.URL, NewRedisCache(rdb, time.Minute), discardLogger())

	tc, err := im.Import(context.Background(), shareURL())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tc.Headers)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}
