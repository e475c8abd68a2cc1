package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/metrics"
)

type settings struct {
	logger          *zap.Logger
	metrics         *metrics.Metrics
	identity        *Identity
	submitPerMinute int
	submitBurst     int
	questionTime    int
	tick            time.Duration
}

type Option func(*settings)

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithIdentity sets how callers are identified. Dev identity is the default.
func WithIdentity(i *Identity) Option {
	return func(s *settings) { s.identity = i }
}

// WithSubmitLimit caps result submissions per user. perMinute <= 0 disables the limit.
func WithSubmitLimit(perMinute, burst int) Option {
	return func(s *settings) {
		s.submitPerMinute = perMinute
		s.submitBurst = burst
	}
}

// WithQuestionTime sets the per-question countdown of live play, in seconds.
func WithQuestionTime(seconds int) Option {
	return func(s *settings) { s.questionTime = seconds }
}

// WithTick sets the length of one countdown second. Tests shorten or stretch it.
func WithTick(d time.Duration) Option {
	return func(s *settings) { s.tick = d }
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:       zap.NewNop(),
		identity:     DevIdentity(0),
		questionTime: 30,
		tick:         time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Handler serves the quiz REST API, the live play websocket and ops endpoints.
type Handler struct {
	settings
	service *app.QuizService
	submits *submissions
	ws      *WSHandler
}

func NewHandler(service *app.QuizService, opts ...Option) *Handler {
	s := newSettings(opts)
	submits := newSubmissions(service, s)
	return &Handler{
		settings: s,
		service:  service,
		submits:  submits,
		ws:       newWSHandler(service, submits, s),
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	api := func(fn http.HandlerFunc) http.Handler { return h.identity.Middleware(fn) }
	mux.Handle("GET /api/quizzes", api(h.listQuizzes))
	mux.Handle("GET /api/quiz/{id}", api(h.getQuiz))
	mux.Handle("POST /api/quiz/{id}/submit", api(h.submit))
	mux.Handle("POST /api/quiz/create", api(h.createQuiz))
	mux.Handle("GET /api/export", api(h.exportJSON))
	mux.Handle("GET /api/export.xlsx", api(h.exportXLSX))
	mux.HandleFunc("GET /ws/play", h.ws.ServeWS)

	var handler http.Handler = mux
	handler = h.logRequests(handler)
	if h.metrics != nil {
		handler = h.metrics.Middleware(handler)
	}
	return handler
}
