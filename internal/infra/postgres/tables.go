package postgres

import (
	"context"
	"errors"
	"fmt"

	"daily-riddle-bot/internal/domain"
	"daily-riddle-bot/internal/infra/codec"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	questionsTable = "questions"
	scoresTable    = "scores"
)

// documents reads and writes whole JSONB documents in bot_tables.
type documents struct {
	pool *pgxpool.Pool
}

func (d documents) load(ctx context.Context, name string) ([]byte, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx, `SELECT data FROM bot_tables WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return raw, nil
}

func (d documents) save(ctx context.Context, name string, data []byte) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO bot_tables (name, data, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (name) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		name, string(data))
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// QuestionRepository stores the questions table as one JSONB document.
type QuestionRepository struct {
	docs documents
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{docs: documents{pool: pool}}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	raw, err := r.docs.load(ctx, questionsTable)
	if err != nil {
		return nil, err
	}
	return codec.DecodeQuestions(raw)
}

func (r *QuestionRepository) SaveQuestions(ctx context.Context, questions []domain.QuestionRecord) error {
	data, err := codec.EncodeQuestions(questions)
	if err != nil {
		return err
	}
	return r.docs.save(ctx, questionsTable, data)
}

// ScoreRepository stores the scores table as one JSONB document.
type ScoreRepository struct {
	docs documents
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{docs: documents{pool: pool}}
}

func (r *ScoreRepository) LoadScores(ctx context.Context) (map[string]domain.UserScore, error) {
	raw, err := r.docs.load(ctx, scoresTable)
	if err != nil {
		return nil, err
	}
	return codec.DecodeScores(raw)
}

func (r *ScoreRepository) SaveScores(ctx context.Context, scores map[string]domain.UserScore) error {
	data, err := codec.EncodeScores(scores)
	if err != nil {
		return err
	}
	return r.docs.save(ctx, scoresTable, data)
}
