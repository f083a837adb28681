package app_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/domain"
	"daily-riddle-bot/internal/infra/memory"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu         sync.Mutex
	questions  []domain.QuestionRecord
	notes      []string
	reveals    []int
	announced  []string
	moderators []string
	direct     map[string][]string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{direct: make(map[string][]string)}
}

func (p *recordingPublisher) PublishQuestion(_ context.Context, q domain.QuestionRecord, note string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions = append(p.questions, q)
	p.notes = append(p.notes, note)
	return nil
}

func (p *recordingPublisher) PublishReveal(_ context.Context, _ domain.QuestionRecord, solvers int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reveals = append(p.reveals, solvers)
	return nil
}

func (p *recordingPublisher) Announce(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.announced = append(p.announced, text)
	return nil
}

func (p *recordingPublisher) NotifyModerators(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moderators = append(p.moderators, text)
	return nil
}

func (p *recordingPublisher) RespondEphemeral(_ context.Context, userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct[userID] = append(p.direct[userID], text)
	return nil
}

type fixture struct {
	service   *app.RiddleService
	questions *app.QuestionStore
	ledger    *app.PointLedger
	publisher *recordingPublisher
	now       time.Time
}

func newFixture(t *testing.T, policy app.SelectionPolicy, seed ...domain.QuestionRecord) *fixture {
	t.Helper()
	f := &fixture{
		publisher: newRecordingPublisher(),
		now:       time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	f.questions = app.NewQuestionStore(memory.NewQuestionRepository(seed...), memory.NewUsedSet(), nil, app.QuestionStoreOptions{RejectDuplicates: true})
	f.ledger = app.NewPointLedger(memory.NewScoreRepository(), nil)
	cfg := app.ServiceConfig{
		Policy:    policy,
		StartDate: mustDate(t, "2025-01-01"),
		RevealAt:  domain.TimeOfDay{Hour: 23},
	}
	f.service = app.NewRiddleServiceWithClock(cfg, f.questions, f.ledger, app.NewRiddleSession(), f.publisher, func() time.Time { return f.now })
	return f
}

func TestDailyTickPostsQuestionForDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex,
		domain.QuestionRecord{ID: "1", Text: "Q1", Answer: "a"},
		domain.QuestionRecord{ID: "2", Text: "Q2", Answer: "b"},
	)

	q, err := f.service.DailyTick(ctx)
	require.NoError(t, err)
	require.Equal(t, "Q2", q.Text)
	require.Len(t, f.publisher.questions, 1)
	require.Contains(t, f.publisher.notes[0], "submit a new riddle", "queue is low")
}

func TestDailyTickEmptyQueuePostsNothing(t *testing.T) {
	f := newFixture(t, app.PolicyDayIndex)
	_, err := f.service.DailyTick(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyQueue)
	require.Empty(t, f.publisher.questions)
}

func TestDailyTickRandomPolicy(t *testing.T) {
	f := newFixture(t, app.PolicyRandom, domain.QuestionRecord{ID: "1", Text: "Only"})
	for i := 0; i < 3; i++ {
		q, err := f.service.DailyTick(context.Background())
		require.NoError(t, err)
		require.Equal(t, "1", q.ID)
	}
}

func TestAnswerFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex, domain.QuestionRecord{ID: "1", Text: "Echo?", Answer: "echo", SubmitterID: "author"})
	_, err := f.service.DailyTick(ctx)
	require.NoError(t, err)

	res, err := f.service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "author", Text: "echo"})
	require.NoError(t, err)
	require.Equal(t, app.OutcomeOwnQuestion, res.Outcome)

	res, err = f.service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "u1", Text: "nope"})
	require.NoError(t, err)
	require.Equal(t, app.OutcomeIncorrect, res.Outcome)
	require.Contains(t, res.Message, "4 guesses left")
	require.Contains(t, res.Message, "840m 0s")

	res, err = f.service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "u1", Text: "ECHO"})
	require.NoError(t, err)
	require.Equal(t, app.OutcomeCorrect, res.Outcome)
	require.True(t, res.Award.Awarded)
	require.Equal(t, 1, res.Streak)
	require.Len(t, f.publisher.announced, 1)

	card, err := f.service.Score(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, card.Insight)

	require.NoError(t, f.service.Reveal(ctx))
	require.Equal(t, []int{1}, f.publisher.reveals)

	res, err = f.service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "u2", Text: "echo"})
	require.NoError(t, err)
	require.Equal(t, app.OutcomeClosed, res.Outcome)
}

func TestExhaustedGuessesDeductOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex, domain.QuestionRecord{ID: "1", Text: "Echo?", Answer: "echo"})
	_, err := f.ledger.Adjust(ctx, domain.AdjustRequest{UserID: "u1", Field: domain.FieldContribution, Delta: 3, Direction: domain.DirectionAdd})
	require.NoError(t, err)
	_, err = f.service.DailyTick(ctx)
	require.NoError(t, err)

	for i := 0; i < domain.MaxGuesses+2; i++ {
		_, err := f.service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "u1", Text: "wrong"})
		require.NoError(t, err)
	}
	card, err := f.service.Score(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, card.Contribution)
}

func TestSubmitQuestionAwardsContributionOncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex)

	first, err := f.service.SubmitQuestion(ctx, domain.SubmitRequest{Text: "First?", SubmitterID: "u1", SubmitterName: "Ann"})
	require.NoError(t, err)
	require.True(t, first.ContributionAwarded)
	require.Len(t, f.publisher.moderators, 1)
	require.Contains(t, f.publisher.moderators[0], "Ann")
	require.Contains(t, f.publisher.direct["u1"][0], "1 point")

	second, err := f.service.SubmitQuestion(ctx, domain.SubmitRequest{Text: "Second?", SubmitterID: "u1"})
	require.NoError(t, err)
	require.False(t, second.ContributionAwarded)

	f.now = f.now.Add(24 * time.Hour)
	third, err := f.service.SubmitQuestion(ctx, domain.SubmitRequest{Text: "Third?", SubmitterID: "u1"})
	require.NoError(t, err)
	require.True(t, third.ContributionAwarded)

	card, err := f.service.Score(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, card.Contribution)
}

func TestSubmitDuplicateDoesNotAward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex, domain.QuestionRecord{ID: "1", Text: "Same"})

	_, err := f.service.SubmitQuestion(ctx, domain.SubmitRequest{Text: "same", SubmitterID: "u1"})
	require.ErrorIs(t, err, domain.ErrDuplicateQuestion)

	card, err := f.service.Score(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, card.Total)
	require.Empty(t, f.publisher.moderators)
}

// flakyScores fails saves while down is set.
type flakyScores struct {
	*memory.ScoreRepository
	mu   sync.Mutex
	down bool
}

func (f *flakyScores) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyScores) SaveScores(ctx context.Context, scores map[string]domain.UserScore) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return errDisk
	}
	return f.ScoreRepository.SaveScores(ctx, scores)
}

func TestAnswerPersistenceFailureIsNotSuccess(t *testing.T) {
	ctx := context.Background()
	questions := app.NewQuestionStore(memory.NewQuestionRepository(domain.QuestionRecord{ID: "1", Text: "Q", Answer: "a"}), memory.NewUsedSet(), nil, app.QuestionStoreOptions{})
	pub := newRecordingPublisher()
	scores := &flakyScores{ScoreRepository: memory.NewScoreRepository(), down: true}
	ledger := app.NewPointLedger(scores, nil)
	service := app.NewRiddleService(app.ServiceConfig{StartDate: mustDate(t, "2025-01-01")}, questions, ledger, app.NewRiddleSession(), pub, nil)

	_, err := service.DailyTick(ctx)
	require.NoError(t, err)

	_, err = service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "u1", Text: "a"})
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.Empty(t, pub.announced)

	// once storage recovers the same answer is credited
	scores.setDown(false)
	res, err := service.AnswerAttempt(ctx, domain.AnswerRequest{UserID: "u1", Text: "a"})
	require.NoError(t, err)
	require.Equal(t, app.OutcomeCorrect, res.Outcome)
	require.True(t, res.Award.Awarded)
	require.Len(t, pub.announced, 1)

	card, err := service.Score(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, card.Insight)
}

func TestDailyTickSameDateAfterRestart(t *testing.T) {
	ctx := context.Background()
	seed := []domain.QuestionRecord{
		{ID: "1", Text: "Q1", Answer: "a"},
		{ID: "2", Text: "Q2", Answer: "b"},
		{ID: "3", Text: "Q3", Answer: "c"},
	}
	repo := memory.NewQuestionRepository(seed...)
	day5 := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

	tick := func() domain.QuestionRecord {
		questions := app.NewQuestionStore(repo, memory.NewUsedSet(), nil, app.QuestionStoreOptions{})
		cfg := app.ServiceConfig{Policy: app.PolicyDayIndex, StartDate: mustDate(t, "2025-01-01")}
		service := app.NewRiddleServiceWithClock(cfg, questions, app.NewPointLedger(memory.NewScoreRepository(), nil), app.NewRiddleSession(), newRecordingPublisher(), func() time.Time { return day5 })
		q, err := service.DailyTick(ctx)
		require.NoError(t, err)
		return q
	}

	first := tick()
	require.Equal(t, "2", first.ID)
	require.Equal(t, first.ID, tick().ID)
}

func TestListQuestionsPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex)
	for _, text := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
		_, err := f.questions.Submit(ctx, domain.SubmitRequest{Text: text})
		require.NoError(t, err)
	}

	page := f.service.ListQuestions(ctx, 5)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Questions, 1)

	text := app.FormatQuestionList(page)
	require.True(t, strings.HasPrefix(text, "📋 Total riddles: 11 (page 2/2)"))
	require.Contains(t, text, "11. k")
}

func TestAdminAdjustAndRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.PolicyDayIndex, domain.QuestionRecord{ID: "1", Text: "Q"})

	v, err := f.service.AdminAdjust(ctx, domain.AdjustRequest{UserID: "u1", Field: domain.FieldInsight, Delta: 2, Direction: domain.DirectionAdd})
	require.NoError(t, err)
	require.Equal(t, 2, v)

	lb, err := f.service.Leaderboard(ctx, domain.CategoryInsight, 0)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	require.Equal(t, f.now, lb.UpdatedAt)

	_, err = f.service.RemoveQuestion(ctx, "1")
	require.NoError(t, err)
	_, err = f.service.Question(ctx, "1")
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
}
