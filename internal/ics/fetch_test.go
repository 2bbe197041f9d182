package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFeedURL(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("https://example.com/cal.ics", NormalizeFeedURL("webcal://example.com/cal.ics"))
	assert.Equal("https://example.com/cal.ics", NormalizeFeedURL("https://example.com/cal.ics"))
	assert.Equal("http://example.com/cal.ics", NormalizeFeedURL("http://example.com/cal.ics"))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	body, err := NewFetcher().Fetch(context.Background(), Feed{ID: "flaky", URL: srv.URL})

	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), Feed{ID: "down", URL: srv.URL})

	var rerr *RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 3, rerr.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), Feed{ID: "empty"})

	var rerr *RetrievalError
	assert.True(t, errors.As(err, &rerr))
}

func TestRedactURL(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("https://example.com/...(redacted)", redactURL("https://example.com/private/feed.ics?token=abcd"))
	assert.Equal("ics://...(redacted)", redactURL("no-scheme"))
}
