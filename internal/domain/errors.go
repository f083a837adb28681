package domain

import "errors"

var (
	// ErrDuplicateQuestion is returned when a submission matches an existing question after normalization.
	ErrDuplicateQuestion = errors.New("question already submitted")
	// ErrQuestionNotFound indicates a question ID does not exist in the queue.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion indicates a submission failed validation (empty text, bad choices).
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrMissingUser is returned when an adjustment names no target user.
	ErrMissingUser = errors.New("target user is required")
	// ErrInvalidQuantity is returned for non-positive or non-integer point adjustments.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrInvalidPointField indicates an unknown point type.
	ErrInvalidPointField = errors.New("point type must be insight or contribution")
	// ErrInvalidDirection indicates an adjustment that is neither add nor remove.
	ErrInvalidDirection = errors.New("direction must be add or remove")
	// ErrInvalidCategory indicates an unknown leaderboard category.
	ErrInvalidCategory = errors.New("category must be all, insight or contribution")
	// ErrEmptyQueue is returned when no question is available. Callers treat it as a normal outcome.
	ErrEmptyQueue = errors.New("question queue is empty")
	// ErrPersistence wraps I/O failures while loading or saving a table.
	ErrPersistence = errors.New("persistence failure")
)

// UserMessage maps an error to the private rejection text shown to the acting user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateQuestion):
		return "⚠️ This riddle has already been submitted. Please try a different one."
	case errors.Is(err, ErrQuestionNotFound):
		return "⚠️ No riddle found with that ID."
	case errors.Is(err, ErrInvalidQuestion):
		return "❌ " + err.Error()
	case errors.Is(err, ErrMissingUser):
		return "❌ Please choose a user."
	case errors.Is(err, ErrInvalidQuantity):
		return "❌ Quantity must be a positive integer."
	case errors.Is(err, ErrInvalidPointField):
		return "❌ Invalid point type. Use 'insight' or 'contribution'."
	case errors.Is(err, ErrInvalidDirection):
		return "❌ Invalid action. Use 'add' or 'remove'."
	case errors.Is(err, ErrInvalidCategory):
		return "❌ Unknown leaderboard category. Use all, insight or contribution."
	case errors.Is(err, ErrEmptyQueue):
		return "📭 No riddles found in the queue."
	default:
		return "❌ Something went wrong, please try again later."
	}
}
