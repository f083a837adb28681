// Package codec converts the questions and scores tables to and from their
// JSON document form. Every storage backend shares it, so the legacy score
// shape is handled in exactly one place.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"daily-riddle-bot/internal/domain"
)

// flexID accepts both "3" and 3.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type questionDoc struct {
	ID            flexID   `json:"id"`
	Question      string   `json:"question"`
	Submitter     string   `json:"submitter,omitempty"`
	LegacySubmit  string   `json:"submitter_id,omitempty"`
	SubmitterName string   `json:"submitter_name,omitempty"`
	Answers       []string `json:"answers,omitempty"`
	Answer        string   `json:"answer,omitempty"`
}

type scoreDoc struct {
	InsightPoints      int      `json:"insight_points"`
	ContributionPoints int      `json:"contribution_points"`
	AnsweredQuestions  []flexID `json:"answered_questions"`
	LastContribAward   string   `json:"last_contrib_award,omitempty"`
	Streak             int      `json:"streak,omitempty"`
}

// DecodeQuestions parses the questions table. Empty input is an empty table.
func DecodeQuestions(data []byte) ([]domain.QuestionRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var docs []questionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	out := make([]domain.QuestionRecord, 0, len(docs))
	for _, d := range docs {
		submitter := d.Submitter
		if submitter == "" {
			submitter = d.LegacySubmit
		}
		out = append(out, domain.QuestionRecord{
			ID:            string(d.ID),
			Text:          d.Question,
			SubmitterID:   submitter,
			SubmitterName: d.SubmitterName,
			Choices:       d.Answers,
			Answer:        d.Answer,
		})
	}
	return out, nil
}

// EncodeQuestions renders the questions table in submission order.
func EncodeQuestions(questions []domain.QuestionRecord) ([]byte, error) {
	docs := make([]questionDoc, 0, len(questions))
	for _, q := range questions {
		docs = append(docs, questionDoc{
			ID:            flexID(q.ID),
			Question:      q.Text,
			Submitter:     q.SubmitterID,
			SubmitterName: q.SubmitterName,
			Answers:       q.Choices,
			Answer:        q.Answer,
		})
	}
	return json.MarshalIndent(docs, "", "  ")
}

// DecodeScores parses the scores table, accepting the legacy bare-integer shape.
func DecodeScores(data []byte) (map[string]domain.UserScore, error) {
	out := make(map[string]domain.UserScore)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	for userID, value := range raw {
		score, err := DecodeScore(value)
		if err != nil {
			return nil, fmt.Errorf("decode score for %s: %w", userID, err)
		}
		out[userID] = score
	}
	return out, nil
}

// EncodeScores renders the scores table in structured form only.
func EncodeScores(scores map[string]domain.UserScore) ([]byte, error) {
	docs := make(map[string]scoreDoc, len(scores))
	for userID, s := range scores {
		docs[userID] = toScoreDoc(s)
	}
	return json.MarshalIndent(docs, "", "  ")
}

// DecodeScore parses one user's record. A bare integer is a legacy combined score
// and becomes contribution points.
func DecodeScore(value []byte) (domain.UserScore, error) {
	value = bytes.TrimSpace(value)
	score := domain.NewUserScore()
	if len(value) > 0 && value[0] != '{' {
		var legacy json.Number
		if err := json.Unmarshal(value, &legacy); err != nil {
			return score, err
		}
		n, err := strconv.Atoi(legacy.String())
		if err != nil {
			return score, fmt.Errorf("legacy score %q: %w", legacy.String(), err)
		}
		score.ContributionPoints = nonNegative(n)
		return score, nil
	}

	var doc scoreDoc
	if err := json.Unmarshal(value, &doc); err != nil {
		return score, err
	}
	score.InsightPoints = nonNegative(doc.InsightPoints)
	score.ContributionPoints = nonNegative(doc.ContributionPoints)
	score.Streak = nonNegative(doc.Streak)
	for _, id := range doc.AnsweredQuestions {
		score.AnsweredQuestionIDs[string(id)] = struct{}{}
	}
	if doc.LastContribAward != "" {
		d, err := domain.ParseDate(doc.LastContribAward)
		if err != nil {
			return score, fmt.Errorf("last_contrib_award: %w", err)
		}
		score.LastContributionAward = &d
	}
	return score, nil
}

// EncodeScore renders one user's record.
func EncodeScore(s domain.UserScore) ([]byte, error) {
	return json.Marshal(toScoreDoc(s))
}

func toScoreDoc(s domain.UserScore) scoreDoc {
	ids := make([]string, 0, len(s.AnsweredQuestionIDs))
	for id := range s.AnsweredQuestionIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
	answered := make([]flexID, len(ids))
	for i, id := range ids {
		answered[i] = flexID(id)
	}
	doc := scoreDoc{
		InsightPoints:      s.InsightPoints,
		ContributionPoints: s.ContributionPoints,
		AnsweredQuestions:  answered,
		Streak:             s.Streak,
	}
	if s.LastContributionAward != nil {
		doc.LastContribAward = s.LastContributionAward.String()
	}
	return doc
}

// idLess orders numeric IDs numerically and everything else lexically after them.
func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
