package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
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

func TestClient_PostJSON(t *testing.T) {
	var gotBody map[string]string
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("test", 0, quietLogger())
	header := http.Header{}
	header.Set("Authorization", "Token abc")

	resp, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"hello": "world"}, header)
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "Accepted", resp.StatusText)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "world", gotBody["hello"])
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Token abc", gotHeader.Get("Authorization"))
}

func TestClient_GetNonOKStillReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	resp, err := NewClient("test", 0, quietLogger()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, "Forbidden", resp.StatusText)
	assert.Equal(t, "nope\n", string(resp.Body))
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient("test", 0, quietLogger()).Get(context.Background(), url)
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.KindNetwork))
}

func TestClient_BadURLIsInputError(t *testing.T) {
	_, err := NewClient("test", 0, nil).Get(context.Background(), "://bad")
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.KindInput))
}
