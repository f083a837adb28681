package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-riddle-bot/internal/domain"
	"go.uber.org/zap"
)

// Publisher is the outbound side of the chat integration.
type Publisher interface {
	PublishQuestion(ctx context.Context, q domain.QuestionRecord, note string) error
	PublishReveal(ctx context.Context, q domain.QuestionRecord, solvers int) error
	Announce(ctx context.Context, text string) error
	NotifyModerators(ctx context.Context, text string) error
	RespondEphemeral(ctx context.Context, userID, text string) error
}

// SelectionPolicy decides how the daily question is chosen.
type SelectionPolicy string

const (
	PolicyDayIndex SelectionPolicy = "day_index"
	PolicyRandom   SelectionPolicy = "random"
)

// LowQueueThreshold triggers a "submit more" note on the daily post.
const LowQueueThreshold = 5

// ServiceConfig holds the scheduling parameters the service needs at runtime.
type ServiceConfig struct {
	Policy    SelectionPolicy
	StartDate domain.Date
	RevealAt  domain.TimeOfDay
}

// RiddleService wires the question store, ledger and session behind the inbound operations.
type RiddleService struct {
	cfg         ServiceConfig
	questions   *QuestionStore
	ledger      *PointLedger
	leaderboard *Leaderboard
	session     *RiddleSession
	publisher   Publisher
	log         *zap.Logger
	now         func() time.Time
}

func NewRiddleService(cfg ServiceConfig, questions *QuestionStore, ledger *PointLedger, session *RiddleSession, publisher Publisher, logger *zap.Logger) *RiddleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyDayIndex
	}
	return &RiddleService{
		cfg:         cfg,
		questions:   questions,
		ledger:      ledger,
		leaderboard: NewLeaderboard(ledger),
		session:     session,
		publisher:   publisher,
		log:         logger.Named("service"),
		now:         time.Now,
	}
}

// NewRiddleServiceWithClock is test-only for deterministic timestamps.
func NewRiddleServiceWithClock(cfg ServiceConfig, questions *QuestionStore, ledger *PointLedger, session *RiddleSession, publisher Publisher, now func() time.Time) *RiddleService {
	s := NewRiddleService(cfg, questions, ledger, session, publisher, nil)
	s.now = now
	s.leaderboard.now = now
	return s
}

// AnswerResult is what the integration layer reports back after an attempt.
type AnswerResult struct {
	Outcome OutcomeKind
	Award   domain.Award
	Streak  int
	Message string
}

// SubmitResult is what the integration layer reports back after a submission.
type SubmitResult struct {
	Question            domain.QuestionRecord
	ContributionAwarded bool
}

// DailyTick selects today's question, opens a session for it and publishes it.
// ErrEmptyQueue is returned unchanged so the scheduler can log and skip.
func (s *RiddleService) DailyTick(ctx context.Context) (domain.QuestionRecord, error) {
	q, remaining, err := s.selectToday(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQueue) {
			s.log.Info("no question to post")
		}
		return domain.QuestionRecord{}, err
	}

	sessionID := s.session.Open(q)
	s.log.Info("question opened", zap.String("session", sessionID), zap.String("question", q.ID), zap.Int("remaining", remaining))

	note := ""
	if remaining < LowQueueThreshold {
		note = fmt.Sprintf("⚠️ Less than %d new riddles remain - submit a new riddle with /submitriddle to add it to the queue!", LowQueueThreshold)
	}
	if err := s.publisher.PublishQuestion(ctx, q, note); err != nil {
		return q, fmt.Errorf("publish question %s: %w", q.ID, err)
	}
	return q, nil
}

func (s *RiddleService) selectToday(ctx context.Context) (domain.QuestionRecord, int, error) {
	if s.cfg.Policy == PolicyRandom {
		return s.questions.PickNextUnused(ctx)
	}
	return s.questions.SelectForDay(ctx, domain.DateOf(s.now()), s.cfg.StartDate)
}

// Reveal closes the open session and publishes its answer.
func (s *RiddleService) Reveal(ctx context.Context) error {
	solvers := s.session.CorrectCount()
	q, ok := s.session.Reveal()
	if !ok {
		s.log.Info("nothing to reveal")
		return nil
	}
	s.log.Info("question revealed", zap.String("question", q.ID), zap.Int("solvers", solvers))
	return s.publisher.PublishReveal(ctx, q, solvers)
}

// SubmitQuestion queues a question, credits the daily contribution point and notifies moderators.
func (s *RiddleService) SubmitQuestion(ctx context.Context, req domain.SubmitRequest) (SubmitResult, error) {
	q, err := s.questions.Submit(ctx, req)
	if err != nil {
		return SubmitResult{}, err
	}
	result := SubmitResult{Question: q}

	if q.SubmitterID != "" {
		award, err := s.ledger.AwardContribution(ctx, q.SubmitterID, domain.DateOf(s.now()))
		if err != nil {
			return result, err
		}
		result.ContributionAwarded = award.Awarded
	}

	who := q.SubmitterName
	if who == "" {
		who = "Someone"
	}
	notice := fmt.Sprintf("🧠 %s has submitted a new Riddle of the Day (ID %s). Use /listquestions to view it and /removequestion if moderation is needed.", who, q.ID)
	if err := s.publisher.NotifyModerators(ctx, notice); err != nil {
		s.log.Warn("notify moderators failed", zap.String("question", q.ID), zap.Error(err))
	}

	if q.SubmitterID != "" {
		msg := "✅ Thanks for submitting a riddle! It is now in the queue.\n⚠️ You will **not** be able to answer your own riddle when it is posted."
		if result.ContributionAwarded {
			msg += "\n🏅 You've also been awarded **1 point** for your submission!"
		}
		if err := s.publisher.RespondEphemeral(ctx, q.SubmitterID, msg); err != nil {
			s.log.Debug("submitter not reachable", zap.String("user", q.SubmitterID), zap.Error(err))
		}
	}
	return result, nil
}

// AnswerAttempt judges an answer against the open session and credits the ledger.
func (s *RiddleService) AnswerAttempt(ctx context.Context, req domain.AnswerRequest) (AnswerResult, error) {
	outcome := s.session.Attempt(req.UserID, req.QuestionID, req.Text)
	result := AnswerResult{Outcome: outcome.Kind}

	switch outcome.Kind {
	case OutcomeClosed:
		result.Message = "⌛ This riddle is no longer accepting answers."
	case OutcomeOwnQuestion:
		result.Message = "⛔ You submitted this riddle and cannot answer it."
	case OutcomeAlreadyCorrect:
		result.Message = "✅ You already solved this riddle."
	case OutcomeNoGuessesLeft:
		result.Message = "⛔ You have no guesses left for this riddle."
	case OutcomeCorrect:
		award, streak, err := s.ledger.RecordCorrect(ctx, req.UserID, outcome.QuestionID)
		if err != nil {
			s.session.Unmark(req.UserID, outcome.QuestionID)
			return result, err
		}
		result.Award = award
		result.Streak = streak
		if award.Awarded {
			result.Message = fmt.Sprintf("🎉 <@%s> got it right! +1 point.\n🔥 Current streak: %d", req.UserID, streak)
			if err := s.publisher.Announce(ctx, result.Message); err != nil {
				s.log.Warn("announce failed", zap.Error(err))
			}
		} else {
			result.Message = "✅ Correct! You were already credited for this question."
		}
	case OutcomeIncorrect:
		if outcome.Deduct {
			if _, err := s.ledger.DeductOnFailure(ctx, req.UserID); err != nil {
				return result, err
			}
		}
		result.Message = fmt.Sprintf("❌ Not quite. %d guesses left, answer reveal in %s.",
			outcome.GuessesLeft, TimeToReveal(s.now(), s.cfg.RevealAt))
		if outcome.GuessesLeft == 0 {
			result.Message = fmt.Sprintf("❌ Out of guesses, 1 point deducted. Answer reveal in %s.", TimeToReveal(s.now(), s.cfg.RevealAt))
		}
	}
	return result, nil
}

// AdminAdjust applies a manual correction.
func (s *RiddleService) AdminAdjust(ctx context.Context, req domain.AdjustRequest) (int, error) {
	return s.ledger.Adjust(ctx, req)
}

// RemoveQuestion deletes a queued question.
func (s *RiddleService) RemoveQuestion(ctx context.Context, id string) (domain.QuestionRecord, error) {
	return s.questions.Remove(ctx, id)
}

// Question looks up a queued question by ID.
func (s *RiddleService) Question(ctx context.Context, id string) (domain.QuestionRecord, error) {
	return s.questions.Get(ctx, id)
}

// QuestionPage is one page of the moderation listing.
type QuestionPage struct {
	Page       int
	TotalPages int
	Total      int
	Questions  []domain.QuestionRecord
}

// ListQuestions returns one zero-indexed page of the queue.
func (s *RiddleService) ListQuestions(ctx context.Context, page int) QuestionPage {
	all := s.questions.List(ctx)
	totalPages := PageCount(len(all), DefaultPageSize)
	page = ClampPage(page, totalPages)
	start := page * DefaultPageSize
	end := start + DefaultPageSize
	if end > len(all) {
		end = len(all)
	}
	return QuestionPage{Page: page, TotalPages: totalPages, Total: len(all), Questions: all[start:end]}
}

// Leaderboard returns one page of the ranking for category.
func (s *RiddleService) Leaderboard(ctx context.Context, category domain.Category, page int) (domain.LeaderboardPage, error) {
	return s.leaderboard.Page(ctx, category, page, DefaultPageSize)
}

// Score returns the user's score card.
func (s *RiddleService) Score(ctx context.Context, userID string) (domain.ScoreCard, error) {
	return s.ledger.Score(ctx, userID)
}

// FormatQuestionList renders a question page as plain text.
func FormatQuestionList(p QuestionPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Total riddles: %d (page %d/%d)", p.Total, p.Page+1, p.TotalPages)
	for _, q := range p.Questions {
		fmt.Fprintf(&b, "\n%s. %s", q.ID, q.Text)
	}
	return b.String()
}
