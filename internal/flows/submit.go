package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goQuiz/quiz"
)

// SubmitFailureKind classifies submission failures for root-level mapping.
type SubmitFailureKind int

const (
	SubmitFailureNone SubmitFailureKind = iota
	SubmitFailureSessionNotFound
	SubmitFailureForbidden
	SubmitFailureFinished
	SubmitFailureQuiz
	SubmitFailureConflict
	SubmitFailureRecord
)

// SubmitStore is the subset of the quiz store used by submission.
type SubmitStore interface {
	GetSession(ctx context.Context, id string) (*quiz.Session, error)
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
	RecordAttempt(ctx context.Context, sessionID string, expectedIndex int, a quiz.Attempt, rec quiz.AttemptRecord) error
}

// SubmitErrors carries host-level sentinels the store returns.
type SubmitErrors struct {
	SessionNotFound error
	InvalidSession  error
}

// SubmitDeps captures submission dependencies.
type SubmitDeps struct {
	Store        SubmitStore
	NewID        func() string
	Now          func() time.Time
	MaxTimeTaken int
	Errors       SubmitErrors
}

// SubmitResult carries the graded attempt and the session state after it
// was recorded.
type SubmitResult struct {
	Failure  SubmitFailureKind
	Err      error
	Session  *quiz.Session
	Attempt  quiz.Attempt
	Position int
}

// RunSubmit grades answer against the question at the session cursor and
// records it. Recording is conditional on the cursor observed when the
// session was loaded, so of two concurrent submissions for the same
// position exactly one succeeds and the other reports SubmitFailureConflict.
func RunSubmit(ctx context.Context, userID, sessionID string, answer quiz.Answer, timeTaken int, deps SubmitDeps) SubmitResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	sess, err := deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		if deps.Errors.SessionNotFound != nil && errors.Is(err, deps.Errors.SessionNotFound) {
			return SubmitResult{Failure: SubmitFailureSessionNotFound, Err: err}
		}
		return SubmitResult{Failure: SubmitFailureRecord, Err: err}
	}
	if sess.UserID != userID {
		return SubmitResult{Failure: SubmitFailureForbidden}
	}

	quizID, ok := sess.Current()
	if !ok {
		return SubmitResult{Failure: SubmitFailureFinished, Session: sess}
	}
	position := sess.CurrentIndex

	q, err := deps.Store.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmitResult{Failure: SubmitFailureQuiz, Err: err, Session: sess, Position: position}
	}

	correct, score := quiz.Grade(q, answer)
	attempt := quiz.Attempt{
		QuizID:    quizID,
		IsCorrect: correct,
		Score:     score,
		TimeTaken: clampTime(timeTaken, deps.MaxTimeTaken),
	}
	rec := quiz.AttemptRecord{
		ID:        deps.NewID(),
		UserID:    userID,
		QuizID:    quizID,
		SessionID: sess.ID,
		Position:  position,
		IsCorrect: correct,
		Score:     score,
		TimeTaken: attempt.TimeTaken,
		CreatedAt: deps.Now().UTC(),
	}

	if err := deps.Store.RecordAttempt(ctx, sess.ID, position, attempt, rec); err != nil {
		if deps.Errors.InvalidSession != nil && errors.Is(err, deps.Errors.InvalidSession) {
			return SubmitResult{Failure: SubmitFailureConflict, Err: err, Session: sess, Position: position}
		}
		return SubmitResult{Failure: SubmitFailureRecord, Err: err, Session: sess, Position: position}
	}

	if err := sess.Apply(attempt); err != nil {
		return SubmitResult{Failure: SubmitFailureFinished, Err: err, Session: sess, Position: position}
	}

	return SubmitResult{Session: sess, Attempt: attempt, Position: position}
}

func clampTime(t, max int) int {
	if t < 0 {
		return 0
	}
	if max > 0 && t > max {
		return max
	}
	return t
}
