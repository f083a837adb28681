package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"daily-riddle-bot/internal/domain"
	"github.com/google/uuid"
)

// OutcomeKind classifies an answer attempt.
type OutcomeKind int

const (
	OutcomeClosed OutcomeKind = iota
	OutcomeOwnQuestion
	OutcomeAlreadyCorrect
	OutcomeNoGuessesLeft
	OutcomeCorrect
	OutcomeIncorrect
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClosed:
		return "closed"
	case OutcomeOwnQuestion:
		return "own_question"
	case OutcomeAlreadyCorrect:
		return "already_correct"
	case OutcomeNoGuessesLeft:
		return "no_guesses_left"
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	}
	return "unknown"
}

// Outcome is the session verdict for one attempt.
type Outcome struct {
	Kind        OutcomeKind
	QuestionID  string
	GuessesLeft int
	// Deduct is true exactly once per user per session, on the attempt that used the last guess.
	Deduct bool
}

// RiddleSession is the state of the currently open question. It lives for the
// process only and is reset whenever a new question is posted.
type RiddleSession struct {
	mu       sync.Mutex
	id       string
	question *domain.QuestionRecord
	revealed bool
	correct  map[string]struct{}
	guesses  map[string]int
	deducted map[string]struct{}
}

func NewRiddleSession() *RiddleSession {
	s := &RiddleSession{}
	s.resetLocked()
	return s
}

// Open starts a session for q and returns its ID.
func (s *RiddleSession) Open(q domain.QuestionRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.id = uuid.NewString()
	s.question = &q
	return s.id
}

// Reveal closes the session for answers and returns the question that was open.
func (s *RiddleSession) Reveal() (domain.QuestionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.question == nil || s.revealed {
		return domain.QuestionRecord{}, false
	}
	s.revealed = true
	return *s.question, true
}

// Active returns the open question, if any.
func (s *RiddleSession) Active() (domain.QuestionRecord, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.question == nil || s.revealed {
		return domain.QuestionRecord{}, "", false
	}
	return *s.question, s.id, true
}

// Attempt judges text as userID's answer to questionID. An empty questionID means the open question.
func (s *RiddleSession) Attempt(userID, questionID, text string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.question == nil || s.revealed || (questionID != "" && questionID != s.question.ID) {
		return Outcome{Kind: OutcomeClosed}
	}
	if s.question.SubmitterID != "" && s.question.SubmitterID == userID {
		return Outcome{Kind: OutcomeOwnQuestion}
	}
	if _, ok := s.correct[userID]; ok {
		return Outcome{Kind: OutcomeAlreadyCorrect}
	}
	used := s.guesses[userID]
	if used >= domain.MaxGuesses {
		return Outcome{Kind: OutcomeNoGuessesLeft}
	}

	if s.question.FreeAnswer() || matchesAnswer(text, s.question.Answer) {
		s.correct[userID] = struct{}{}
		return Outcome{Kind: OutcomeCorrect, QuestionID: s.question.ID, GuessesLeft: domain.MaxGuesses - used}
	}

	used++
	s.guesses[userID] = used
	out := Outcome{Kind: OutcomeIncorrect, QuestionID: s.question.ID, GuessesLeft: domain.MaxGuesses - used}
	if used >= domain.MaxGuesses {
		if _, done := s.deducted[userID]; !done {
			s.deducted[userID] = struct{}{}
			out.Deduct = true
		}
	}
	return out
}

// Unmark forgets a correct answer that could not be credited, so the user can retry.
func (s *RiddleSession) Unmark(userID, questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.question == nil || s.question.ID != questionID {
		return
	}
	delete(s.correct, userID)
}

// CorrectCount reports how many users solved the open question.
func (s *RiddleSession) CorrectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.correct)
}

func (s *RiddleSession) resetLocked() {
	s.id = ""
	s.question = nil
	s.revealed = false
	s.correct = make(map[string]struct{})
	s.guesses = make(map[string]int)
	s.deducted = make(map[string]struct{})
}

func matchesAnswer(text, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(answer))
}

// TimeToReveal renders the countdown until revealAt, never negative.
func TimeToReveal(now time.Time, reveal domain.TimeOfDay) string {
	d := reveal.On(now).Sub(now)
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
