package redis

import (
	"context"
	"errors"
	"fmt"

	"daily-riddle-bot/internal/domain"
	"daily-riddle-bot/internal/infra/codec"
	"github.com/redis/go-redis/v9"
)

// QuestionRepository keeps the questions table as one JSON document:
//
//	SET {prefix}:questions <json array>
type QuestionRepository struct {
	client *redis.Client
	prefix string
}

func NewQuestionRepository(client *redis.Client, prefix string) *QuestionRepository {
	return &QuestionRepository{client: client, prefix: defaultPrefix(prefix)}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	data, err := r.client.Get(ctx, r.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key(), err)
	}
	return codec.DecodeQuestions(data)
}

func (r *QuestionRepository) SaveQuestions(ctx context.Context, questions []domain.QuestionRecord) error {
	data, err := codec.EncodeQuestions(questions)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(), data, 0).Err()
}

func (r *QuestionRepository) key() string {
	return r.prefix + ":questions"
}

// ScoreRepository keeps the scores table as a hash of per-user JSON:
//
//	HSET {prefix}:scores {userID} <json record | legacy integer>
type ScoreRepository struct {
	client *redis.Client
	prefix string
}

func NewScoreRepository(client *redis.Client, prefix string) *ScoreRepository {
	return &ScoreRepository{client: client, prefix: defaultPrefix(prefix)}
}

func (r *ScoreRepository) LoadScores(ctx context.Context) (map[string]domain.UserScore, error) {
	raw, err := r.client.HGetAll(ctx, r.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", r.key(), err)
	}
	out := make(map[string]domain.UserScore, len(raw))
	for userID, value := range raw {
		score, err := codec.DecodeScore([]byte(value))
		if err != nil {
			return nil, fmt.Errorf("decode score for %s: %w", userID, err)
		}
		out[userID] = score
	}
	return out, nil
}

// SaveScores replaces the whole hash atomically.
func (r *ScoreRepository) SaveScores(ctx context.Context, scores map[string]domain.UserScore) error {
	fields := make(map[string]interface{}, len(scores))
	for userID, s := range scores {
		data, err := codec.EncodeScore(s)
		if err != nil {
			return err
		}
		fields[userID] = string(data)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key())
	if len(fields) > 0 {
		pipe.HSet(ctx, r.key(), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save %s: %w", r.key(), err)
	}
	return nil
}

func (r *ScoreRepository) key() string {
	return r.prefix + ":scores"
}

func defaultPrefix(prefix string) string {
	if prefix == "" {
		return "riddle"
	}
	return prefix
}
