package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"daily-riddle-bot/internal/domain"
	"daily-riddle-bot/internal/infra/codec"
	"golang.org/x/sync/singleflight"
)

// table is one JSON document on disk. Concurrent reads of the same file are
// coalesced; writes go to a temp file that is renamed over the original.
type table struct {
	path string
	sf   singleflight.Group
}

func (t *table) read() ([]byte, error) {
	result, err, _ := t.sf.Do(t.path, func() (interface{}, error) {
		data, err := os.ReadFile(t.path)
		if errors.Is(err, fs.ErrNotExist) {
			return []byte(nil), nil
		}
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	return result.([]byte), nil
}

func (t *table) write(data []byte) error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", t.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		return fmt.Errorf("replace %s: %w", t.path, err)
	}
	// reads already in flight saw the old file; later callers must not join them
	t.sf.Forget(t.path)
	return nil
}

// QuestionRepository stores the questions table as a JSON array file.
type QuestionRepository struct {
	table table
}

func NewQuestionRepository(path string) *QuestionRepository {
	return &QuestionRepository{table: table{path: path}}
}

func (r *QuestionRepository) LoadQuestions(_ context.Context) ([]domain.QuestionRecord, error) {
	data, err := r.table.read()
	if err != nil {
		return nil, err
	}
	return codec.DecodeQuestions(data)
}

func (r *QuestionRepository) SaveQuestions(_ context.Context, questions []domain.QuestionRecord) error {
	data, err := codec.EncodeQuestions(questions)
	if err != nil {
		return err
	}
	return r.table.write(data)
}

// ScoreRepository stores the scores table as a JSON object file keyed by user ID.
type ScoreRepository struct {
	table table
}

func NewScoreRepository(path string) *ScoreRepository {
	return &ScoreRepository{table: table{path: path}}
}

func (r *ScoreRepository) LoadScores(_ context.Context) (map[string]domain.UserScore, error) {
	data, err := r.table.read()
	if err != nil {
		return nil, err
	}
	return codec.DecodeScores(data)
}

func (r *ScoreRepository) SaveScores(_ context.Context, scores map[string]domain.UserScore) error {
	data, err := codec.EncodeScores(scores)
	if err != nil {
		return err
	}
	return r.table.write(data)
}
