package domain

import (
	"encoding/json"
	"time"
)

// Quiz is an ordered set of questions.
type Quiz struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Questions    Questions `json:"questions"`
	IsRepassable bool      `json:"is_repassable"`
	CreatedAt    time.Time `json:"created_at"`
	// Layout names the presentation order of a shuffled attempt. Answers
	// recorded against it are submitted with it so the backend can store
	// them in stored question order. Empty means stored order.
	Layout       string    `json:"layout,omitempty"`
}

// QuizSummary is a carousel entry: a quiz plus the caller's stored score.
type QuizSummary struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	UserScore    float64 `json:"userScore"`
	IsRepassable bool    `json:"is_repassable"`
}

// Result is the stored outcome of a user's attempts at a quiz.
type Result struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	QuizID      int64           `json:"quiz_id"`
	Score       float64         `json:"score"`
	Answers     json.RawMessage `json:"answers"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Submission is the payload a finished session hands to the backend.
type Submission struct {
	UserID  int64           `json:"user_id"`
	QuizID  int64           `json:"quiz_id"`
	Score   int             `json:"score"`
	Answers json.RawMessage `json:"answers"`
	Layout  string          `json:"layout,omitempty"`
}

// NewSubmission encodes an answer log into a submission payload.
func NewSubmission(userID, quizID int64, score int, answers []Answer) (Submission, error) {
	if answers == nil {
		answers = []Answer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return Submission{}, err
	}
	return Submission{UserID: userID, QuizID: quizID, Score: score, Answers: raw}, nil
}

// SubmitStatus says what a submission did to the stored result.
type SubmitStatus string

const (
	SubmitSaved            SubmitStatus = "saved"
	SubmitImproved         SubmitStatus = "improved"
	SubmitKept             SubmitStatus = "kept"
	SubmitAlreadyCompleted SubmitStatus = "already_completed"
)

// SubmitOutcome acknowledges a submission.
type SubmitOutcome struct {
	Message      string       `json:"message"`
	Score        float64      `json:"score"`
	IsRepassable bool         `json:"is_repassable"`
	Status       SubmitStatus `json:"-"`
}

// Export is a full dump of quizzes and results.
type Export struct {
	Quizzes []Quiz   `json:"quizzes"`
	Results []Result `json:"results"`
}
