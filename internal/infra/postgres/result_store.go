package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-miniapp/internal/domain"
)

// ResultStore persists quiz results in quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

const resultColumns = `id, user_id, quiz_id, score, answers, completed_at`

func (s *ResultStore) GetResult(ctx context.Context, userID, quizID int64) (domain.Result, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM quiz_results
		 WHERE user_id=$1 AND quiz_id=$2
		 ORDER BY completed_at DESC LIMIT 1`, userID, quizID)
	result, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) InsertResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_results (user_id, quiz_id, score, answers, completed_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		result.UserID, result.QuizID, result.Score, answersParam(result.Answers), result.CompletedAt,
	).Scan(&result.ID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("insert result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) UpdateResult(ctx context.Context, result domain.Result) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quiz_results SET score=$2, answers=$3, completed_at=$4 WHERE id=$1`,
		result.ID, result.Score, answersParam(result.Answers), result.CompletedAt)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResultNotFound
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context) ([]domain.Result, error) {
	return s.list(ctx, `SELECT `+resultColumns+` FROM quiz_results ORDER BY id`)
}

func (s *ResultStore) ListUserResults(ctx context.Context, userID int64) ([]domain.Result, error) {
	return s.list(ctx, `SELECT `+resultColumns+` FROM quiz_results WHERE user_id=$1 ORDER BY id`, userID)
}

func (s *ResultStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (domain.Result, error) {
	var (
		r   domain.Result
		raw []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.QuizID, &r.Score, &raw, &r.CompletedAt); err != nil {
		return domain.Result{}, err
	}
	if raw != nil {
		r.Answers = raw
	}
	return r, nil
}

// answersParam passes stored answers as JSON text; an empty log is stored as NULL.
func answersParam(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
