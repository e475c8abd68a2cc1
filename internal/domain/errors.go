package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound is returned when a user has no stored result for a quiz.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidQuestion indicates a malformed question or answer key.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrEmptyQuiz is returned when a quiz has no questions to play.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidInput indicates a request payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAttemptInProgress is returned when a user already has a live attempt at a quiz.
	ErrAttemptInProgress = errors.New("attempt already in progress")
)
