package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dasmlab/kashi/pkg/failure"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeProviders struct {
	primaryBody   string
	fallbackBody  string
	fallbackCode  int
	primaryQuery  Query
	fallbackQuery string
	fallbackCalls atomic.Int32
}

func (f *fakeProviders) start(t *testing.T) (*LRCHubClient, *LRCLIBClient) {
	t.Helper()
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/lyrics", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.primaryQuery))
		_, _ = io.WriteString(w, f.primaryBody)
	}))
	t.Cleanup(primary.Close)

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.fallbackCalls.Add(1)
		assert.Equal(t, "/api/search", r.URL.Path)
		f.fallbackQuery = r.URL.RawQuery
		if f.fallbackCode != 0 {
			w.WriteHeader(f.fallbackCode)
		}
		_, _ = io.WriteString(w, f.fallbackBody)
	}))
	t.Cleanup(fallback.Close)

	logger := quietLogger()
	return NewLRCHubClient(primary.URL, 0, logger), NewLRCLIBClient(fallback.URL, 0, logger)
}

func TestResolver_PrimarySynced(t *testing.T) {
	f := &fakeProviders{
		primaryBody: `{"response": {"synced_lyrics": "  [00:01.00] hi  ", "plain_lyrics": "hi",
			"dynamic_lyrics": {"lines": [{"startTimeMs": 1000, "text": "hi"}]}}}`,
	}
	hub, lib := f.start(t)

	q := Query{Track: "Perfect", Artist: "Ed Sheeran", VideoID: "abc123"}
	res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, SourceLRCHub, res.Source)
	assert.Equal(t, "[00:01.00] hi", res.Lyrics)
	assert.JSONEq(t, `[{"startTimeMs": 1000, "text": "hi"}]`, string(res.DynamicLines))
	assert.Equal(t, q, f.primaryQuery)
	assert.Zero(t, f.fallbackCalls.Load())
}

func TestResolver_PrimaryPlainWithoutWrapper(t *testing.T) {
	f := &fakeProviders{primaryBody: `{"synced_lyrics": "   ", "plain_lyrics": "just words"}`}
	hub, lib := f.start(t)

	res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), Query{Track: "x"})
	require.NoError(t, err)
	assert.Equal(t, "just words", res.Lyrics)
	assert.Nil(t, res.DynamicLines)
	assert.Zero(t, f.fallbackCalls.Load())
}

func TestResolver_PrimaryDynamicOnly(t *testing.T) {
	f := &fakeProviders{primaryBody: `{"response": {"dynamic_lyrics": {"lines": [
		{"startTimeMs": 65000, "text": "Hello"},
		{"text": "no time"},
		{"startTimeMs": "70000", "chars": [{"c": "W"}, {"c": "o"}]}
	]}}}`}
	hub, lib := f.start(t)

	res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), Query{Track: "x"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "[01:05.00] Hello\n[01:10.00] Wo", res.Lyrics)
	assert.NotNil(t, res.DynamicLines)
}

func TestResolver_FallbackWhenPrimaryEmpty(t *testing.T) {
	f := &fakeProviders{
		primaryBody: `{"response": {"synced_lyrics": "", "plain_lyrics": null, "dynamic_lyrics": {"lines": []}}}`,
		fallbackBody: `[
			{"artistName": "Someone", "syncedLyrics": "[00:01.00] wrong"},
			{"artistName": "Ed Sheeran", "plainLyrics": "  right  "}
		]`,
	}
	hub, lib := f.start(t)

	res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), Query{Track: "Perfect Song", Artist: "ed sheeran"})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, SourceLRCLIB, res.Source)
	assert.Equal(t, "right", res.Lyrics)
	assert.Nil(t, res.DynamicLines)
	assert.Equal(t, "track_name=Perfect+Song", f.fallbackQuery)
}

func TestResolver_PrimaryNotJSONFallsBack(t *testing.T) {
	f := &fakeProviders{
		primaryBody:  `<html>bad gateway</html>`,
		fallbackBody: `[{"syncedLyrics": "[00:02.00] ok"}]`,
	}
	hub, lib := f.start(t)

	res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), Query{Track: "t"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "[00:02.00] ok", res.Lyrics)
}

func TestResolver_FallbackFailuresMeanNoLyrics(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeProviders
	}{
		{name: "non-OK status", f: &fakeProviders{primaryBody: `{}`, fallbackCode: http.StatusInternalServerError, fallbackBody: `[{"syncedLyrics":"x"}]`}},
		{name: "not JSON", f: &fakeProviders{primaryBody: `{}`, fallbackBody: `oops`}},
		{name: "not a list", f: &fakeProviders{primaryBody: `{}`, fallbackBody: `{"syncedLyrics":"x"}`}},
		{name: "empty list", f: &fakeProviders{primaryBody: `{}`, fallbackBody: `[]`}},
		{name: "whitespace lyrics", f: &fakeProviders{primaryBody: `{}`, fallbackBody: `[{"plainLyrics":"   "}]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, lib := tt.f.start(t)
			res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), Query{Track: "t"})
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.Equal(t, SourceNone, res.Source)
			assert.Equal(t, "", res.Lyrics)
		})
	}
}

func TestResolver_NoTrackSkipsFallback(t *testing.T) {
	f := &fakeProviders{primaryBody: `{}`, fallbackBody: `[{"syncedLyrics":"x"}]`}
	hub, lib := f.start(t)

	res, err := NewResolver(hub, lib, quietLogger()).Resolve(context.Background(), Query{VideoID: "v"})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Zero(t, f.fallbackCalls.Load())
}

func TestResolver_PrimaryNetworkFailure(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	lib := &stubSearcher{}
	res, err := NewResolver(NewLRCHubClient(deadURL, 0, quietLogger()), lib, quietLogger()).
		Resolve(context.Background(), Query{Track: "t"})
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.KindNetwork))
	assert.Equal(t, Result{}, res)
	assert.False(t, lib.called)
}

type stubSearcher struct {
	called bool
	err    error
}

func (s *stubSearcher) Search(context.Context, string) ([]Candidate, error) {
	s.called = true
	return nil, s.err
}

type stubPrimary struct{}

func (stubPrimary) Lookup(context.Context, Query) (PrimaryResult, error) {
	return PrimaryResult{}, nil
}

func TestResolver_SearcherErrorIsSwallowed(t *testing.T) {
	lib := &stubSearcher{err: errors.New("boom")}
	res, err := NewResolver(stubPrimary{}, lib, quietLogger()).Resolve(context.Background(), Query{Track: "t"})
	require.NoError(t, err)
	assert.True(t, lib.called)
	assert.False(t, res.Found)
}
