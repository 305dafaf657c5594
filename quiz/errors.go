package quiz

import "errors"

var (
	// ErrFinished is returned when applying an attempt to a finished session.
	ErrFinished = errors.New("quiz session finished")
	// ErrNotFinished is returned when summarizing an unfinished session.
	ErrNotFinished = errors.New("quiz session not finished")
	// ErrNotEnoughQuestions is returned by Sample when the pool is smaller
	// than the requested size.
	ErrNotEnoughQuestions = errors.New("not enough questions")
	// ErrInvalidQuiz is returned by Quiz.Validate.
	ErrInvalidQuiz = errors.New("invalid quiz")
)
