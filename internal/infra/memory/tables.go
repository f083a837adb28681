package memory

import (
	"context"
	"sync"

	"daily-riddle-bot/internal/domain"
)

// QuestionRepository keeps the questions table in process memory (tests, dry runs).
type QuestionRepository struct {
	mu        sync.RWMutex
	questions []domain.QuestionRecord
}

func NewQuestionRepository(seed ...domain.QuestionRecord) *QuestionRepository {
	return &QuestionRepository{questions: cloneQuestions(seed)}
}

func (r *QuestionRepository) LoadQuestions(_ context.Context) ([]domain.QuestionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneQuestions(r.questions), nil
}

func (r *QuestionRepository) SaveQuestions(_ context.Context, questions []domain.QuestionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = cloneQuestions(questions)
	return nil
}

// ScoreRepository keeps the scores table in process memory.
type ScoreRepository struct {
	mu     sync.RWMutex
	scores map[string]domain.UserScore
}

func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{scores: make(map[string]domain.UserScore)}
}

func (r *ScoreRepository) LoadScores(_ context.Context) (map[string]domain.UserScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneScores(r.scores), nil
}

func (r *ScoreRepository) SaveScores(_ context.Context, scores map[string]domain.UserScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = cloneScores(scores)
	return nil
}

func cloneQuestions(in []domain.QuestionRecord) []domain.QuestionRecord {
	if in == nil {
		return nil
	}
	out := make([]domain.QuestionRecord, len(in))
	for i, q := range in {
		q.Choices = append([]string(nil), q.Choices...)
		out[i] = q
	}
	return out
}

func cloneScores(in map[string]domain.UserScore) map[string]domain.UserScore {
	out := make(map[string]domain.UserScore, len(in))
	for id, s := range in {
		out[id] = s.Clone()
	}
	return out
}
