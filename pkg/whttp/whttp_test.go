package whttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHTTPRequestTitleAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-agent", r.UserAgent())
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><head><title>\n  Agenda Cultural \r</title></head><body>ok</body></html>")
	}))
	defer srv.Close()

	c, err := NewClient(Options{UserAgent: "custom-agent"})
	require.NoError(t, err)

	res, err := c.SendHTTPRequest(context.Background(), &WHTTPReq{
		URL:     srv.URL,
		Headers: []WHTTPHeader{{Name: "X-Test", Value: "yes"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Agenda Cultural", res.HTTPTitle)
	assert.Contains(t, res.BodyString, "ok")
}

func TestSendHTTPRequestDecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "São Paulo" with ã encoded as 0xE3.
		_, _ = w.Write([]byte("<p>S\xe3o Paulo</p>"))
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	require.NoError(t, err)

	res, err := c.SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, res.BodyString, "São Paulo")
}

func TestSendHTTPRequestPostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q":"museu"}`, string(b))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	require.NoError(t, err)

	res, err := c.SendHTTPRequest(context.Background(), &WHTTPReq{
		Method:  http.MethodPost,
		URL:     srv.URL,
		Headers: []WHTTPHeader{{Name: "Content-Type", Value: "application/json"}},
		Body:    []byte(`{"q":"museu"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, res.BodyString)
}

func TestSendHTTPRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "fine")
	}))
	defer srv.Close()

	c, err := NewClient(Options{RetryMax: 2})
	require.NoError(t, err)

	res, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "fine", res.BodyString)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchReportsStatusAfterRetriesRunOut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Options{RetryMax: 1})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "x")
	}))
	defer srv.Close()

	c, err := NewClient(Options{RequestsPerSecond: 0.01})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, srv.URL)
	assert.Error(t, err, "second request must wait for the bucket and hit the deadline")
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	_, err := NewClient(Options{Proxy: "://bad"})
	assert.Error(t, err)
}
