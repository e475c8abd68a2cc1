package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createQuizResultsSQL = `
CREATE TABLE IF NOT EXISTS quiz_results (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	quiz_id      BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	score        DOUBLE PRECISION NOT NULL,
	answers      JSONB,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_quiz ON quiz_results (user_id, quiz_id)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuizResultsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quiz_results`)
			return err
		},
	)
}
