package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"daily-riddle-bot/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// QuestionRepository loads and saves the whole questions table.
type QuestionRepository interface {
	LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error)
	SaveQuestions(ctx context.Context, questions []domain.QuestionRecord) error
}

// UsedSet tracks question IDs already drawn by the random selection policy.
type UsedSet interface {
	Members(ctx context.Context) (map[string]struct{}, error)
	Add(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// QuestionStoreOptions tunes submission rules.
type QuestionStoreOptions struct {
	RejectDuplicates bool
}

// QuestionStore owns the ordered submission queue.
type QuestionStore struct {
	repo     QuestionRepository
	used     UsedSet
	log      *zap.Logger
	validate *validator.Validate
	opts     QuestionStoreOptions

	mu        sync.Mutex
	highWater int
	rnd       *rand.Rand
}

func NewQuestionStore(repo QuestionRepository, used UsedSet, logger *zap.Logger, opts QuestionStoreOptions) *QuestionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionStore{
		repo:     repo,
		used:     used,
		log:      logger.Named("questions"),
		validate: validator.New(),
		opts:     opts,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Submit validates, deduplicates, and appends a new question.
func (s *QuestionStore) Submit(ctx context.Context, req domain.SubmitRequest) (domain.QuestionRecord, error) {
	req.Text = cleanText(req.Text)
	req.Answer = strings.TrimSpace(req.Answer)
	for i := range req.Choices {
		req.Choices[i] = strings.TrimSpace(req.Choices[i])
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.QuestionRecord{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuestion, describeValidation(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.repo.LoadQuestions(ctx)
	if err != nil {
		return domain.QuestionRecord{}, fmt.Errorf("%w: load questions: %v", domain.ErrPersistence, err)
	}

	if s.opts.RejectDuplicates {
		key := normalizeQuestion(req.Text)
		for _, existing := range questions {
			if normalizeQuestion(existing.Text) == key {
				return domain.QuestionRecord{}, domain.ErrDuplicateQuestion
			}
		}
	}

	id := s.nextIDLocked(questions)
	record := domain.QuestionRecord{
		ID:            strconv.Itoa(id),
		Text:          req.Text,
		SubmitterID:   req.SubmitterID,
		SubmitterName: req.SubmitterName,
		Choices:       req.Choices,
		Answer:        req.Answer,
	}
	questions = append(questions, record)
	if err := s.repo.SaveQuestions(ctx, questions); err != nil {
		s.log.Error("save questions failed", zap.String("id", record.ID), zap.Error(err))
		return domain.QuestionRecord{}, fmt.Errorf("%w: save questions: %v", domain.ErrPersistence, err)
	}
	s.highWater = id
	s.log.Info("question submitted", zap.String("id", record.ID), zap.String("submitter", record.SubmitterID))
	return record, nil
}

// Remove deletes the question with the given ID and returns it.
func (s *QuestionStore) Remove(ctx context.Context, id string) (domain.QuestionRecord, error) {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.repo.LoadQuestions(ctx)
	if err != nil {
		return domain.QuestionRecord{}, fmt.Errorf("%w: load questions: %v", domain.ErrPersistence, err)
	}
	idx := -1
	for i := range questions {
		if questions[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.QuestionRecord{}, domain.ErrQuestionNotFound
	}

	// Keep the removed ID out of circulation for the rest of this process.
	if n, err := strconv.Atoi(id); err == nil && n > s.highWater {
		s.highWater = n
	}

	removed := questions[idx]
	questions = append(questions[:idx:idx], questions[idx+1:]...)
	if err := s.repo.SaveQuestions(ctx, questions); err != nil {
		s.log.Error("save questions failed", zap.String("removed", id), zap.Error(err))
		return domain.QuestionRecord{}, fmt.Errorf("%w: save questions: %v", domain.ErrPersistence, err)
	}
	s.log.Info("question removed", zap.String("id", id))
	return removed, nil
}

// List returns all questions in submission order.
func (s *QuestionStore) List(ctx context.Context) []domain.QuestionRecord {
	return s.load(ctx)
}

// Get returns the question with the given ID.
func (s *QuestionStore) Get(ctx context.Context, id string) (domain.QuestionRecord, error) {
	for _, q := range s.load(ctx) {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.QuestionRecord{}, domain.ErrQuestionNotFound
}

// SelectForDay resolves the question for date relative to the queue anchor start.
// The second return value is how many queued questions come after it.
func (s *QuestionStore) SelectForDay(ctx context.Context, date, start domain.Date) (domain.QuestionRecord, int, error) {
	questions := s.load(ctx)
	idx, err := DayIndex(len(questions), date, start)
	if err != nil {
		return domain.QuestionRecord{}, 0, err
	}
	return questions[idx], len(questions) - 1 - idx, nil
}

// DayIndex maps date to a queue index: whole days since start, clamped to [0, n-1].
func DayIndex(n int, date, start domain.Date) (int, error) {
	if n == 0 {
		return 0, domain.ErrEmptyQueue
	}
	offset := date.DaysSince(start)
	if offset < 0 {
		offset = 0
	}
	if offset > n-1 {
		offset = n - 1
	}
	return offset, nil
}

// SelectForDay is the pure form of QuestionStore.SelectForDay over a snapshot.
func SelectForDay(questions []domain.QuestionRecord, date, start domain.Date) (domain.QuestionRecord, error) {
	idx, err := DayIndex(len(questions), date, start)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	return questions[idx], nil
}

// PickNextUnused draws uniformly from questions not yet used, restarting the
// cycle when every question has been drawn. It returns the number still unused.
func (s *QuestionStore) PickNextUnused(ctx context.Context) (domain.QuestionRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := s.load(ctx)
	if len(questions) == 0 {
		return domain.QuestionRecord{}, 0, domain.ErrEmptyQueue
	}

	used, err := s.used.Members(ctx)
	if err != nil {
		return domain.QuestionRecord{}, 0, fmt.Errorf("%w: load used set: %v", domain.ErrPersistence, err)
	}
	unused := unusedQuestions(questions, used)
	if len(unused) == 0 {
		if err := s.used.Clear(ctx); err != nil {
			return domain.QuestionRecord{}, 0, fmt.Errorf("%w: clear used set: %v", domain.ErrPersistence, err)
		}
		s.log.Info("question cycle restarted", zap.Int("questions", len(questions)))
		unused = unusedQuestions(questions, nil)
		if len(unused) == 0 {
			// rows without an ID cannot be tracked in the used set
			return domain.QuestionRecord{}, 0, domain.ErrEmptyQueue
		}
	}

	picked := unused[s.rnd.Intn(len(unused))]
	if err := s.used.Add(ctx, picked.ID); err != nil {
		return domain.QuestionRecord{}, 0, fmt.Errorf("%w: mark used: %v", domain.ErrPersistence, err)
	}
	return picked, len(unused) - 1, nil
}

// CountUnused returns how many questions the random policy has not drawn yet.
func (s *QuestionStore) CountUnused(ctx context.Context) (int, error) {
	used, err := s.used.Members(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: load used set: %v", domain.ErrPersistence, err)
	}
	return len(unusedQuestions(s.load(ctx), used)), nil
}

// load reads the table and fails open to an empty queue.
func (s *QuestionStore) load(ctx context.Context) []domain.QuestionRecord {
	questions, err := s.repo.LoadQuestions(ctx)
	if err != nil {
		s.log.Warn("load questions failed, using empty queue", zap.Error(err))
		return nil
	}
	return questions
}

func (s *QuestionStore) nextIDLocked(questions []domain.QuestionRecord) int {
	highest := s.highWater
	for _, q := range questions {
		if n, err := strconv.Atoi(q.ID); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func unusedQuestions(questions []domain.QuestionRecord, used map[string]struct{}) []domain.QuestionRecord {
	out := make([]domain.QuestionRecord, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			continue
		}
		if _, ok := used[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

// cleanText trims and folds line breaks so a question posts as one line.
func cleanText(raw string) string {
	raw = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(raw)
	return strings.TrimSpace(raw)
}

// normalizeQuestion is the duplicate-detection key: lower case, no whitespace.
func normalizeQuestion(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), ""))
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch field := fe.StructField(); {
	case field == "Text":
		if fe.Tag() == "max" {
			return "question is too long"
		}
		return "question text is required"
	case strings.HasPrefix(field, "Choices"):
		return "multiple choice questions need 2 to 4 non-empty choices"
	case field == "Answer":
		return "answer is too long"
	}
	return err.Error()
}
