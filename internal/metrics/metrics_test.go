package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByPattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/quiz/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	for _, path := range []string{"/api/quiz/1", "/api/quiz/2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Contains(t, scrape(t, m), `http_requests_total{endpoint="GET /api/quiz/{id}",method="GET",status="404"} 2`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandlerExposesSubmissions(t *testing.T) {
	m := New()
	m.ObserveSubmission("saved")
	m.ActivePlays.Inc()

	body := scrape(t, m)
	assert.Contains(t, body, `quiz_submissions_total{outcome="saved"} 1`)
	assert.Contains(t, body, "quiz_active_plays 1")
}
