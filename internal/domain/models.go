package domain

import (
	"strings"
	"time"
)

// DateLayout is the on-disk format for calendar dates.
const DateLayout = "2006-01-02"

// MaxGuesses caps incorrect attempts per user per riddle.
const MaxGuesses = 5

// QuestionRecord is a single queued question or riddle.
type QuestionRecord struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	SubmitterID   string   `json:"submitter,omitempty"`
	SubmitterName string   `json:"submitter_name,omitempty"`
	Choices       []string `json:"answers,omitempty"`
	Answer        string   `json:"answer,omitempty"`
}

// FreeAnswer reports whether any response counts as an answer.
func (q QuestionRecord) FreeAnswer() bool {
	return strings.TrimSpace(q.Answer) == ""
}

// Date is a UTC calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns the number of whole days from start to d (negative if d precedes start).
func (d Date) DaysSince(start Date) int {
	return int(d.Time().Sub(start.Time()).Hours() / 24)
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// UserScore is the ledger record of one user.
type UserScore struct {
	InsightPoints         int
	ContributionPoints    int
	AnsweredQuestionIDs   map[string]struct{}
	LastContributionAward *Date
	Streak                int
}

// NewUserScore returns an empty record with initialized sets.
func NewUserScore() UserScore {
	return UserScore{AnsweredQuestionIDs: make(map[string]struct{})}
}

// Total is insight plus contribution points.
func (s UserScore) Total() int {
	return s.InsightPoints + s.ContributionPoints
}

// HasAnswered reports whether questionID was already credited.
func (s UserScore) HasAnswered(questionID string) bool {
	_, ok := s.AnsweredQuestionIDs[questionID]
	return ok
}

// Clone deep-copies the record so callers can mutate it freely.
func (s UserScore) Clone() UserScore {
	out := s
	out.AnsweredQuestionIDs = make(map[string]struct{}, len(s.AnsweredQuestionIDs))
	for id := range s.AnsweredQuestionIDs {
		out.AnsweredQuestionIDs[id] = struct{}{}
	}
	if s.LastContributionAward != nil {
		d := *s.LastContributionAward
		out.LastContributionAward = &d
	}
	return out
}

// PointField selects which point counter an operation targets.
type PointField string

const (
	FieldInsight      PointField = "insight"
	FieldContribution PointField = "contribution"
)

// ParsePointField accepts "insight" or "contribution" in any case.
func ParsePointField(raw string) (PointField, error) {
	switch PointField(strings.ToLower(strings.TrimSpace(raw))) {
	case FieldInsight:
		return FieldInsight, nil
	case FieldContribution:
		return FieldContribution, nil
	}
	return "", ErrInvalidPointField
}

// Direction is the sign of an administrative adjustment.
type Direction string

const (
	DirectionAdd    Direction = "add"
	DirectionRemove Direction = "remove"
)

// ParseDirection accepts "add" or "remove" in any case.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case DirectionAdd:
		return DirectionAdd, nil
	case DirectionRemove:
		return DirectionRemove, nil
	}
	return "", ErrInvalidDirection
}

// Category selects the leaderboard metric.
type Category string

const (
	CategoryAll          Category = "all"
	CategoryInsight      Category = "insight"
	CategoryContribution Category = "contribution"
)

// ParseCategory accepts all, insight or contribution; empty means all.
func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryInsight:
		return CategoryInsight, nil
	case CategoryContribution:
		return CategoryContribution, nil
	}
	return "", ErrInvalidCategory
}

// Award is the outcome of an idempotent point award.
type Award struct {
	Awarded  bool `json:"awarded"`
	NewTotal int  `json:"newTotal"`
}

// RankTier is the cosmetic label derived from a user's total.
type RankTier struct {
	Level int    `json:"level"`
	Label string `json:"label"`
}

// ScoreCard summarizes a single user for display.
type ScoreCard struct {
	UserID       string   `json:"userId"`
	Insight      int      `json:"insight"`
	Contribution int      `json:"contribution"`
	Total        int      `json:"total"`
	Streak       int      `json:"streak"`
	Rank         RankTier `json:"rank"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Position     int    `json:"position"`
	UserID       string `json:"userId"`
	Insight      int    `json:"insight"`
	Contribution int    `json:"contribution"`
	Total        int    `json:"total"`
	Streak       int    `json:"streak"`
	Rank         string `json:"rank"`
}

// Metric returns the value the entry is ranked by for category c.
func (e LeaderboardEntry) Metric(c Category) int {
	switch c {
	case CategoryInsight:
		return e.Insight
	case CategoryContribution:
		return e.Contribution
	default:
		return e.Total
	}
}

// LeaderboardPage is one page of a ranking.
type LeaderboardPage struct {
	Category   Category           `json:"category"`
	Page       int                `json:"page"`
	TotalPages int                `json:"totalPages"`
	Entries    []LeaderboardEntry `json:"entries"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// SubmitRequest carries a new question from the integration layer.
type SubmitRequest struct {
	Text          string   `validate:"required,max=1000"`
	SubmitterID   string   `validate:"omitempty"`
	SubmitterName string   `validate:"omitempty"`
	Choices       []string `validate:"omitempty,min=2,max=4,dive,required"`
	Answer        string   `validate:"max=500"`
}

// AnswerRequest carries one answer attempt.
type AnswerRequest struct {
	UserID     string
	QuestionID string
	Text       string
}

// AdjustRequest carries an administrative point correction.
type AdjustRequest struct {
	UserID    string
	Field     PointField
	Delta     int
	Direction Direction
}
