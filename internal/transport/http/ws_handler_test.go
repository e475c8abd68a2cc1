package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-miniapp/internal/session"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type stateView struct {
	Phase      string `json:"phase"`
	Index      int    `json:"index"`
	Turn       uint64 `json:"turn"`
	Remaining  int    `json:"remaining"`
	Selected   *int   `json:"selected"`
	CanAdvance bool   `json:"canAdvance"`
	Error      string `json:"error"`
}

func startPlayServer(t *testing.T, opts ...Option) (testEnv, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t, opts...)
	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)
	return env, server
}

func dialPlay(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/play?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func stateWhere(t *testing.T, pred func(stateView) bool) func(wsMessage) bool {
	return func(msg wsMessage) bool {
		if msg.Type != "state" {
			return false
		}
		var s stateView
		if err := json.Unmarshal(msg.Payload, &s); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return pred(s)
	}
}

func readState(t *testing.T, conn *websocket.Conn, pred func(stateView) bool) stateView {
	t.Helper()
	msg := readUntil(t, conn, stateWhere(t, pred))
	var s stateView
	_ = json.Unmarshal(msg.Payload, &s)
	return s
}

func ofType(typ string) func(wsMessage) bool {
	return func(msg wsMessage) bool { return msg.Type == typ }
}

func errorMessage(t *testing.T, msg wsMessage) string {
	t.Helper()
	var p errorPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return p.Message
}

func TestWebSocketPlayFlow(t *testing.T) {
	env, server := startPlayServer(t, WithTick(time.Hour))
	conn := dialPlay(t, server, "quizId=1&userId=7")

	first := readState(t, conn, func(s stateView) bool { return s.Phase == "in_progress" })
	if first.Index != 0 || first.Remaining != 30 || first.CanAdvance {
		t.Fatalf("unexpected first state %+v", first)
	}

	send(t, conn, "select", map[string]any{"index": 1})
	picked := readState(t, conn, func(s stateView) bool { return s.Selected != nil && *s.Selected == 1 })
	if !picked.CanAdvance {
		t.Fatalf("expected advance to be allowed after selecting, got %+v", picked)
	}

	send(t, conn, "advance", map[string]any{"turn": picked.Turn})
	second := readState(t, conn, func(s stateView) bool { return s.Index == 1 })

	send(t, conn, "place", map[string]any{"blank": 0, "text": "statically"})
	readState(t, conn, func(s stateView) bool { return s.CanAdvance })

	send(t, conn, "advance", map[string]any{"turn": second.Turn})
	msg := readUntil(t, conn, ofType("finished"))

	var rep struct {
		Percentage int    `json:"percentage"`
		Band       string `json:"band"`
		Questions  []struct {
			Correct bool `json:"correct"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(msg.Payload, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Percentage != 100 || rep.Band != "good" || len(rep.Questions) != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}

	stored, err := env.results.GetResult(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("result not stored: %v", err)
	}
	if stored.Score != 100 {
		t.Fatalf("expected stored score 100, got %v", stored.Score)
	}

	send(t, conn, "select", map[string]any{"index": 0})
	late := readUntil(t, conn, ofType("error"))
	if got := errorMessage(t, late); got != session.ErrNotInProgress.Error() {
		t.Fatalf("expected not-in-progress error, got %q", got)
	}
}

func TestWebSocketTimeoutFinishesWithZero(t *testing.T) {
	env, server := startPlayServer(t, WithTick(5*time.Millisecond), WithQuestionTime(1))
	conn := dialPlay(t, server, "quizId=1&userId=9")

	msg := readUntil(t, conn, ofType("finished"))
	var rep struct {
		Percentage int `json:"percentage"`
	}
	if err := json.Unmarshal(msg.Payload, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Percentage != 0 {
		t.Fatalf("expected 0%%, got %d", rep.Percentage)
	}

	stored, err := env.results.GetResult(context.Background(), 9, 1)
	if err != nil {
		t.Fatalf("result not stored: %v", err)
	}
	if string(stored.Answers) != `[-1,[""]]` {
		t.Fatalf("unexpected stored answers %s", stored.Answers)
	}
}

func TestWebSocketRejectedInteractions(t *testing.T) {
	_, server := startPlayServer(t, WithTick(time.Hour))
	conn := dialPlay(t, server, "quizId=1&userId=7")
	readState(t, conn, func(s stateView) bool { return s.Phase == "in_progress" })

	send(t, conn, "jump", nil)
	msg := readUntil(t, conn, ofType("error"))
	if got := errorMessage(t, msg); got != errUnsupportedMessage.Error() {
		t.Fatalf("expected unsupported message error, got %q", got)
	}

	send(t, conn, "toggle", map[string]any{"index": 0})
	state := readState(t, conn, func(s stateView) bool { return s.Error != "" })
	if state.Error != session.ErrWrongKind.Error() || state.Index != 0 {
		t.Fatalf("unexpected state %+v", state)
	}

	send(t, conn, "advance", map[string]any{"turn": state.Turn})
	state = readState(t, conn, func(s stateView) bool { return s.Error != "" && s.Error != session.ErrWrongKind.Error() })
	if state.Error != session.ErrIncomplete.Error() {
		t.Fatalf("expected incomplete error, got %+v", state)
	}
}

func TestWebSocketOneLiveAttemptPerUser(t *testing.T) {
	env, server := startPlayServer(t, WithTick(time.Hour))
	first := dialPlay(t, server, "quizId=1&userId=7")
	readState(t, first, func(s stateView) bool { return s.Phase == "in_progress" })

	second := dialPlay(t, server, "quizId=1&userId=7")
	msg := readUntil(t, second, ofType("error"))
	if got := errorMessage(t, msg); got != "attempt already in progress" {
		t.Fatalf("expected attempt conflict, got %q", got)
	}

	other := dialPlay(t, server, "quizId=1&userId=8")
	readState(t, other, func(s stateView) bool { return s.Phase == "in_progress" })

	first.Close()
	deadline := time.Now().Add(5 * time.Second)
	for env.attempts.Active(7, 1) {
		if time.Now().After(deadline) {
			t.Fatalf("attempt was not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketUnknownQuiz(t *testing.T) {
	_, server := startPlayServer(t)
	conn := dialPlay(t, server, "quizId=99&userId=7")
	msg := readUntil(t, conn, ofType("error"))
	if got := errorMessage(t, msg); got != "quiz not found" {
		t.Fatalf("expected quiz not found, got %q", got)
	}
}

func TestWebSocketRequiresQuizID(t *testing.T) {
	_, server := startPlayServer(t)
	resp, err := http.Get(server.URL + "/ws/play?userId=7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func metricsText(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestWebSocketSubmissionsShareLimitAndMetrics(t *testing.T) {
	env, server := startPlayServer(t, WithTick(5*time.Millisecond), WithQuestionTime(1), WithSubmitLimit(1, 1))

	rec := env.do(t, http.MethodPost, "/api/quiz/1/submit", submitBody(9, 40), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rest submit: %d %s", rec.Code, rec.Body.String())
	}

	limited := dialPlay(t, server, "quizId=1&userId=9")
	readUntil(t, limited, ofType("finished"))
	fresh := dialPlay(t, server, "quizId=1&userId=10")
	readUntil(t, fresh, ofType("finished"))

	if _, err := env.results.GetResult(context.Background(), 10, 1); err != nil {
		t.Fatalf("live play result not stored: %v", err)
	}
	body := metricsText(t, server)
	for _, want := range []string{
		`quiz_submissions_total{outcome="saved"} 2`,
		`quiz_submissions_total{outcome="rejected"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}
