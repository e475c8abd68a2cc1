package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-miniapp/internal/domain"
)

// QuizStore loads and stores quizzes; questions live in a JSONB column.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

const quizColumns = `id, title, description, questions, is_repassable, created_at`

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("list quizzes: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) (int64, error) {
	raw, err := json.Marshal(quiz.Questions)
	if err != nil {
		return 0, fmt.Errorf("marshal questions: %w", err)
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, questions, is_repassable, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		quiz.Title, quiz.Description, string(raw), quiz.IsRepassable, quiz.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create quiz: %w", err)
	}
	return id, nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz        domain.Quiz
		description *string
		raw         []byte
	)
	if err := row.Scan(&quiz.ID, &quiz.Title, &description, &raw, &quiz.IsRepassable, &quiz.CreatedAt); err != nil {
		return domain.Quiz{}, err
	}
	if description != nil {
		quiz.Description = *description
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz %d: %w", quiz.ID, err)
	}
	return quiz, nil
}
