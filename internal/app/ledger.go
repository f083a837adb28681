package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"daily-riddle-bot/internal/domain"
	"go.uber.org/zap"
)

// ScoreRepository loads and saves the whole scores table.
type ScoreRepository interface {
	LoadScores(ctx context.Context) (map[string]domain.UserScore, error)
	SaveScores(ctx context.Context, scores map[string]domain.UserScore) error
}

// PointLedger applies idempotent awards and manual corrections to user scores.
// Every mutation is a full load-mutate-save cycle under a single writer lock.
type PointLedger struct {
	repo ScoreRepository
	log  *zap.Logger
	feed *LeaderboardFeed

	mu sync.Mutex
}

func NewPointLedger(repo ScoreRepository, logger *zap.Logger) *PointLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointLedger{repo: repo, log: logger.Named("ledger")}
}

// WithFeed publishes a fresh ranking to feed after every saved mutation.
func (l *PointLedger) WithFeed(feed *LeaderboardFeed) *PointLedger {
	l.feed = feed
	return l
}

// AwardInsight credits one insight point for questionID unless the user already has it.
func (l *PointLedger) AwardInsight(ctx context.Context, userID, questionID string) (domain.Award, error) {
	awarded := false
	score, err := l.update(ctx, userID, func(s *domain.UserScore) bool {
		if s.HasAnswered(questionID) {
			return false
		}
		s.AnsweredQuestionIDs[questionID] = struct{}{}
		s.InsightPoints++
		awarded = true
		return true
	})
	if err != nil {
		return domain.Award{}, err
	}
	return domain.Award{Awarded: awarded, NewTotal: score.Total()}, nil
}

// RecordCorrect awards insight for a correct riddle answer and extends the streak when credited.
func (l *PointLedger) RecordCorrect(ctx context.Context, userID, questionID string) (domain.Award, int, error) {
	awarded := false
	score, err := l.update(ctx, userID, func(s *domain.UserScore) bool {
		if s.HasAnswered(questionID) {
			return false
		}
		s.AnsweredQuestionIDs[questionID] = struct{}{}
		s.InsightPoints++
		s.Streak++
		awarded = true
		return true
	})
	if err != nil {
		return domain.Award{}, 0, err
	}
	return domain.Award{Awarded: awarded, NewTotal: score.Total()}, score.Streak, nil
}

// AwardContribution credits one contribution point per user per UTC calendar day.
func (l *PointLedger) AwardContribution(ctx context.Context, userID string, today domain.Date) (domain.Award, error) {
	awarded := false
	score, err := l.update(ctx, userID, func(s *domain.UserScore) bool {
		if s.LastContributionAward != nil && *s.LastContributionAward == today {
			return false
		}
		s.ContributionPoints++
		d := today
		s.LastContributionAward = &d
		awarded = true
		return true
	})
	if err != nil {
		return domain.Award{}, err
	}
	return domain.Award{Awarded: awarded, NewTotal: score.Total()}, nil
}

// Adjust is the manual correction path. It bypasses the award rules; removals clamp at zero.
func (l *PointLedger) Adjust(ctx context.Context, req domain.AdjustRequest) (int, error) {
	if req.Delta <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if _, err := domain.ParsePointField(string(req.Field)); err != nil {
		return 0, err
	}
	if _, err := domain.ParseDirection(string(req.Direction)); err != nil {
		return 0, err
	}

	var value int
	_, err := l.update(ctx, req.UserID, func(s *domain.UserScore) bool {
		field := &s.InsightPoints
		if req.Field == domain.FieldContribution {
			field = &s.ContributionPoints
		}
		if req.Direction == domain.DirectionAdd {
			*field += req.Delta
		} else {
			*field = clampZero(*field - req.Delta)
		}
		value = *field
		return true
	})
	if err != nil {
		return 0, err
	}
	l.log.Info("points adjusted",
		zap.String("user", req.UserID),
		zap.String("field", string(req.Field)),
		zap.String("direction", string(req.Direction)),
		zap.Int("delta", req.Delta),
		zap.Int("value", value))
	return value, nil
}

// DeductOnFailure removes one contribution point (never below zero) and breaks the streak.
// The caller guarantees it runs at most once per riddle session.
func (l *PointLedger) DeductOnFailure(ctx context.Context, userID string) (int, error) {
	score, err := l.update(ctx, userID, func(s *domain.UserScore) bool {
		s.ContributionPoints = clampZero(s.ContributionPoints - 1)
		s.Streak = 0
		return true
	})
	if err != nil {
		return 0, err
	}
	return score.ContributionPoints, nil
}

// Total returns insight plus contribution points; unknown users have zero.
func (l *PointLedger) Total(ctx context.Context, userID string) (int, error) {
	scores, err := l.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return scores[userID].Total(), nil
}

// Score builds the display card for a user, including the rank tier.
func (l *PointLedger) Score(ctx context.Context, userID string) (domain.ScoreCard, error) {
	scores, err := l.Snapshot(ctx)
	if err != nil {
		return domain.ScoreCard{}, err
	}
	s := scores[userID]
	return domain.ScoreCard{
		UserID:       userID,
		Insight:      s.InsightPoints,
		Contribution: s.ContributionPoints,
		Total:        s.Total(),
		Streak:       s.Streak,
		Rank:         RankFor(s.Total(), s.Streak, MaxTotal(scores)),
	}, nil
}

// Snapshot returns the current scores table.
func (l *PointLedger) Snapshot(ctx context.Context) (map[string]domain.UserScore, error) {
	scores, err := l.repo.LoadScores(ctx)
	if err != nil {
		l.log.Error("load scores failed", zap.Error(err))
		return nil, fmt.Errorf("%w: load scores: %v", domain.ErrPersistence, err)
	}
	if scores == nil {
		scores = make(map[string]domain.UserScore)
	}
	return scores, nil
}

// update runs mutate against the user's record and saves the table when mutate reports a change.
func (l *PointLedger) update(ctx context.Context, userID string, mutate func(*domain.UserScore) bool) (domain.UserScore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	scores, err := l.Snapshot(ctx)
	if err != nil {
		return domain.UserScore{}, err
	}

	score, ok := scores[userID]
	if ok {
		score = score.Clone()
	} else {
		score = domain.NewUserScore()
	}
	if score.AnsweredQuestionIDs == nil {
		score.AnsweredQuestionIDs = make(map[string]struct{})
	}
	if !mutate(&score) {
		return score, nil
	}

	scores[userID] = score
	if err := l.repo.SaveScores(ctx, scores); err != nil {
		l.log.Error("save scores failed", zap.String("user", userID), zap.Error(err))
		return domain.UserScore{}, fmt.Errorf("%w: save scores: %v", domain.ErrPersistence, err)
	}
	if l.feed != nil {
		l.feed.Publish(scores)
	}
	return score, nil
}

// ParseQuantity turns free-text admin input into a positive delta.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	return n, nil
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
