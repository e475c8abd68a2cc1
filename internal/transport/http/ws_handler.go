package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/report"
	"quiz-miniapp/internal/session"
)

// WSHandler runs live play sessions over websockets. The server owns the
// countdown and scoring; the client only sends interactions.
type WSHandler struct {
	settings
	service  *app.QuizService
	submits  *submissions
	upgrader websocket.Upgrader
}

func newWSHandler(service *app.QuizService, submits *submissions, s settings) *WSHandler {
	return &WSHandler{
		settings: s,
		service:  service,
		submits:  submits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type placePayload struct {
	Blank int    `json:"blank"`
	Text  string `json:"text"`
}

type clearPayload struct {
	Blank int `json:"blank"`
}

type advancePayload struct {
	Turn uint64 `json:"turn"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var errUnsupportedMessage = errors.New("unsupported message type")

func decodeEvent(msg inboundMessage) (session.Event, error) {
	switch msg.Type {
	case "select", "toggle":
		var p indexPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload", msg.Type)
		}
		if msg.Type == "select" {
			return session.Select{Index: p.Index}, nil
		}
		return session.Toggle{Index: p.Index}, nil
	case "place":
		var p placePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, errors.New("invalid place payload")
		}
		return session.Place{Blank: p.Blank, Text: p.Text}, nil
	case "clear":
		var p clearPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, errors.New("invalid clear payload")
		}
		return session.Clear{Blank: p.Blank}, nil
	case "advance":
		var p advancePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, errors.New("invalid advance payload")
		}
		return session.Next{Turn: p.Turn}, nil
	}
	return nil, errUnsupportedMessage
}

// ServeWS upgrades the request and plays the quiz named by quizId for the
// caller. Every change and countdown tick is pushed as a state message; the
// result report follows once the session finishes and the result is stored.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil || quizID <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid quizId")
		return
	}
	userID, err := h.identity.Resolve(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	attemptID := uuid.NewString()
	logger := h.logger.With(
		zap.String("attempt_id", attemptID),
		zap.Int64("quiz_id", quizID),
		zap.Int64("user_id", userID))

	quiz, release, err := h.service.BeginAttempt(r.Context(), userID, quizID, attemptID, time.Duration(h.questionTime)*h.tick)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer release()

	ctrl := session.NewController(h.questionTime)
	if err := ctrl.Load(quiz); err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	runner := session.NewRunner(ctrl,
		session.WithSubmitter(h.submits, userID),
		session.WithInterval(h.tick),
		session.WithLogger(logger))

	if h.metrics != nil {
		h.metrics.ActivePlays.Inc()
		defer h.metrics.ActivePlays.Dec()
	}
	logger.Info("play started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit := func(ctx context.Context, msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		case <-ctx.Done():
		}
	}

	go func() {
		_ = runner.Run(ctx)
	}()

	go func() {
		defer close(forwardDone)
		var last session.Snapshot
		for snap := range runner.Updates() {
			last = snap
			emit(ctx, outboundMessage{Type: "state", Payload: snap})
		}
		if last.Phase != session.Finished || last.Result == nil {
			return
		}
		runner.Wait()
		rep := report.Build(quiz.Questions, *last.Result)
		logger.Info("play finished", zap.Int("percentage", rep.Percentage))
		emit(ctx, outboundMessage{Type: "finished", Payload: rep})
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ev, err := decodeEvent(inbound)
		if err != nil {
			emit(ctx, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
			continue
		}
		if err := runner.Send(ctx, ev); err != nil {
			if errors.Is(err, session.ErrClosed) {
				err = session.ErrNotInProgress
			}
			emit(ctx, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	}

	cancel()
	<-forwardDone
	close(send)
	<-writerDone
}
