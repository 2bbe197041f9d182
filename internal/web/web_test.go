package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caldigest/internal/config"
	"caldigest/internal/digest"
)

// todayFeed serves an all-day event covering the real current date so
// the handlers, which use the wall clock, always see one occurrence.
func todayFeed(t *testing.T) *httptest.Server {
	t.Helper()

	today := time.Now().UTC()
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//caldigest//EN",
		"BEGIN:VEVENT",
		"UID:today@example.com",
		"DTSTART;VALUE=DATE:" + today.Format("20060102"),
		"DTEND;VALUE=DATE:" + today.AddDate(0, 0, 1).Format("20060102"),
		"SUMMARY:Standing item",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n") + "\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, auth *config.BasicAuthConfig) *Server {
	t.Helper()

	cfg := &config.Config{
		Listen:       "127.0.0.1:0",
		Feeds:        todayFeed(t).URL,
		Timezone:     "UTC",
		TimeFormat:   "24hr",
		HorizonYears: 5,
		BasicAuth:    auth,
	}
	engine, err := digest.New(cfg)
	require.NoError(t, err)
	return NewServer(cfg, engine)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsEndpoint(t *testing.T) {
	assert := assert.New(t)
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date        string `json:"date"`
		TimeZone    string `json:"timezone"`
		Occurrences []struct {
			Summary string `json:"summary"`
			AllDay  bool   `json:"all_day"`
		} `json:"occurrences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal("UTC", resp.TimeZone)
	require.Len(t, resp.Occurrences, 1)
	assert.Equal("Standing item", resp.Occurrences[0].Summary)
	assert.True(resp.Occurrences[0].AllDay)
}

func TestDigestEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/digest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "### Standing item")
	assert.Contains(t, rec.Body.String(), "All day event")
}

func TestBasicAuth(t *testing.T) {
	assert := assert.New(t)
	srv := newTestServer(t, &config.BasicAuthConfig{Username: "user", Password: "secret"})
	handler := srv.Handler()

	// /health stays open.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(http.StatusOK, rec.Code)

	// API without credentials is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(http.StatusUnauthorized, rec.Code)

	// Correct credentials pass.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("user", "secret")
	handler.ServeHTTP(rec, req)
	assert.Equal(http.StatusOK, rec.Code)
}

func TestEventsMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
