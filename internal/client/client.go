// Package client talks to the quiz API the Mini App front-end consumes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/telegram"
)

// DefaultBaseURL matches the backend's default listen address.
const DefaultBaseURL = "http://localhost:5000/api"

// InitDataHeader carries signed Telegram init data to the backend.
const InitDataHeader = telegram.InitDataHeader

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

type errorResponse struct {
	Error string `json:"error"`
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	initData   string
}

type Option func(*HTTPClient)

// WithInitData attaches signed init data to every request.
func WithInitData(raw string) Option {
	return func(c *HTTPClient) { c.initData = raw }
}

func NewHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListQuizzes returns the carousel for userID.
func (c *HTTPClient) ListQuizzes(ctx context.Context, userID int64) ([]domain.QuizSummary, error) {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))

	var quizzes []domain.QuizSummary
	if err := c.doJSON(ctx, http.MethodGet, "/quizzes?"+query.Encode(), nil, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// GetQuiz fetches one quiz with its questions.
func (c *HTTPClient) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := c.doJSON(ctx, http.MethodGet, "/quiz/"+strconv.FormatInt(quizID, 10), nil, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// SubmitResult posts a finished session and returns the acknowledgement.
func (c *HTTPClient) SubmitResult(ctx context.Context, sub domain.Submission) (domain.SubmitOutcome, error) {
	var outcome domain.SubmitOutcome
	path := fmt.Sprintf("/quiz/%d/submit", sub.QuizID)
	if err := c.doJSON(ctx, http.MethodPost, path, sub, &outcome); err != nil {
		return domain.SubmitOutcome{}, err
	}
	return outcome, nil
}

// Submit makes HTTPClient a session submitter.
func (c *HTTPClient) Submit(ctx context.Context, sub domain.Submission) error {
	_, err := c.SubmitResult(ctx, sub)
	return err
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.initData != "" {
		request.Header.Set(InitDataHeader, c.initData)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}

// DescribeError turns transport failures into a message naming the server.
func DescribeError(err error, baseURL string) error {
	if errors.Is(err, ErrServiceUnavailable) {
		return fmt.Errorf("quiz service unavailable at %s", baseURL)
	}
	return err
}
