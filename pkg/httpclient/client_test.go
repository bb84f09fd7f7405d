package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(attempts int) *Client {
	c := New(Config{Timeout: time.Second, MaxAttempts: attempts, BackoffInitial: time.Millisecond, BackoffMax: 2 * time.Millisecond})
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	resp, err := newTestClient(3).Do(context.Background(), Request{URL: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(resp.Body))
	assert.Equal(t, 1, resp.Attempts)
}

func TestDo_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := newTestClient(3).Do(context.Background(), Request{URL: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, 3, resp.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDo_PermanentStatusIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := newTestClient(3).Do(context.Background(), Request{URL: srv.URL})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermanent))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 1, resp.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := newTestClient(2).Do(context.Background(), Request{URL: srv.URL})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPermanent))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 2, resp.Attempts)
}

func TestDo_TransportErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp, err := newTestClient(2).Do(context.Background(), Request{URL: url})

	require.Error(t, err)
	assert.Equal(t, 0, resp.StatusCode)
	assert.Equal(t, 2, resp.Attempts)
}

func TestDo_InvalidRequestIsNotRetried(t *testing.T) {
	slept := 0
	c := newTestClient(3)
	c.sleep = func(context.Context, time.Duration) error {
		slept++
		return nil
	}

	resp, err := c.Do(context.Background(), Request{URL: "http://example.com/a\nb"})

	require.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 0, resp.StatusCode)
	assert.Equal(t, 1, resp.Attempts)
	assert.Zero(t, slept)
}

func TestDo_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(1)
	c.cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := c.Do(context.Background(), Request{URL: srv.URL})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestDo_PostSendsBody(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	_, err := newTestClient(1).Do(context.Background(), Request{
		Method:      http.MethodPost,
		URL:         srv.URL,
		Body:        []byte("a=1"),
		ContentType: "application/x-www-form-urlencoded",
	})

	require.NoError(t, err)
	assert.Equal(t, "a=1", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
}
