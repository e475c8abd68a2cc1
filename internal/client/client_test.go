package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/session"
)

var _ session.Submitter = (*HTTPClient)(nil)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestDoJSONReturnsServiceUnavailable(t *testing.T) {
	client := NewHTTPClient("http://example.test", &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial error")
		}),
	})

	_, err := client.ListQuizzes(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.EqualError(t, DescribeError(err, "http://example.test"), "quiz service unavailable at http://example.test")
}

func TestDoJSONReturnsAPIErrorMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "quiz not found"})
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, server.Client()).GetQuiz(context.Background(), 9)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "quiz not found", apiErr.Message)
}

func TestListQuizzesSendsUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quizzes", r.URL.Path)
		assert.Equal(t, "12345", r.URL.Query().Get("user_id"))
		assert.Equal(t, "signed", r.Header.Get(InitDataHeader))
		_, _ = w.Write([]byte(`[{"id":1,"title":"JS","description":"d","userScore":67,"is_repassable":false}]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/api/", server.Client(), WithInitData("signed"))
	quizzes, err := client.ListQuizzes(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, []domain.QuizSummary{{ID: 1, Title: "JS", Description: "d", UserScore: 67}}, quizzes)
}

func TestGetQuizDecodesQuestionVariants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quiz/3", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":3,"title":"T","description":"","questions":[
			{"id":1,"type":"multiple-choice","question":"Q","options":["a","b"],"correctAnswer":1},
			{"id":2,"type":"drag-drop","question":"F","text":"[BLANK] x","options":["a"],"correctAnswers":["a"]}
		]}`))
	}))
	defer server.Close()

	quiz, err := NewHTTPClient(server.URL, server.Client()).GetQuiz(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.IsType(t, domain.MultipleChoice{}, quiz.Questions[0])
	assert.IsType(t, domain.FillBlank{}, quiz.Questions[1])
}

func TestSubmitPostsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/quiz/4/submit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var sub domain.Submission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, int64(8), sub.UserID)
		assert.Equal(t, 75, sub.Score)
		assert.JSONEq(t, `[0,[1,2],["a",""]]`, string(sub.Answers))

		_, _ = w.Write([]byte(`{"message":"Quiz result saved successfully","score":75,"is_repassable":true}`))
	}))
	defer server.Close()

	sub, err := domain.NewSubmission(8, 4, 75, []domain.Answer{
		domain.SingleAnswer{Index: 0},
		domain.MultiAnswer{Indices: []int{1, 2}},
		domain.BlankAnswer{Values: []string{"a", ""}},
	})
	require.NoError(t, err)

	client := NewHTTPClient(server.URL, server.Client())
	outcome, err := client.SubmitResult(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitOutcome{Message: "Quiz result saved successfully", Score: 75, IsRepassable: true}, outcome)
	assert.NoError(t, client.Submit(context.Background(), sub))
}
