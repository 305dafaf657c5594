package goQuiz

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goQuiz/internal/flows"
	"github.com/MrEthical07/goQuiz/quiz"
)

/*
====================================
CATALOG
====================================
*/

// CreateCategory adds a category. Names are unique, case-insensitively.
func (e *Engine) CreateCategory(ctx context.Context, name, description string) (*quiz.Category, error) {
	if e == nil || e.quizzes == nil {
		return nil, ErrEngineNotReady
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "required")
	}
	if len(name) > 100 {
		return nil, invalid("name", "at most 100 characters")
	}

	c := &quiz.Category{
		ID:          e.newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   e.now().UTC(),
	}
	if err := e.quizzes.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventCategoryCreated, true, "", "", nil, func() map[string]string {
		return map[string]string{"category_id": c.ID}
	})
	return c, nil
}

// ListCategories returns every category ordered by name.
func (e *Engine) ListCategories(ctx context.Context) ([]quiz.Category, error) {
	if e == nil || e.quizzes == nil {
		return nil, ErrEngineNotReady
	}
	return e.quizzes.ListCategories(ctx)
}

// CreateQuiz validates and stores one question.
func (e *Engine) CreateQuiz(ctx context.Context, in CreateQuizInput) (*quiz.Quiz, error) {
	if e == nil || e.quizzes == nil {
		return nil, ErrEngineNotReady
	}

	if _, err := e.quizzes.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	q := &quiz.Quiz{
		ID:         e.newID(),
		CategoryID: in.CategoryID,
		Type:       in.Type,
		Context:    strings.TrimSpace(in.Context),
		Answer:     strings.TrimSpace(in.Answer),
		MaxScore:   in.MaxScore,
		CreatedAt:  e.now().UTC(),
	}
	if q.MaxScore == 0 {
		q.MaxScore = quiz.DefaultMaxScore
	}
	if q.Type == quiz.TypeMultiple {
		q.Answer = ""
		q.Options = make([]quiz.Option, len(in.Options))
		for i, o := range in.Options {
			q.Options[i] = quiz.Option{
				ID:        e.newID(),
				Text:      strings.TrimSpace(o.Text),
				IsCorrect: o.IsCorrect,
			}
		}
	}

	if err := q.Validate(); err != nil {
		return nil, invalid("quiz", strings.TrimPrefix(err.Error(), quiz.ErrInvalidQuiz.Error()+": "))
	}
	if err := e.quizzes.CreateQuiz(ctx, q); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventQuizCreated, true, "", "", nil, func() map[string]string {
		return map[string]string{"quiz_id": q.ID, "category_id": q.CategoryID}
	})
	return q, nil
}

/*
====================================
SESSIONS
====================================
*/

// StartQuizSession samples Quiz.SessionSize distinct quizzes of categoryID
// in random order and opens a session at position zero.
//
// A category with fewer quizzes than the session size fails with
// ErrEmptyCategory unless Quiz.AllowShortSession is set, in which case the
// session uses every quiz. A category with no quizzes always fails.
func (e *Engine) StartQuizSession(ctx context.Context, userID, categoryID string) (*quiz.Session, error) {
	if e == nil || e.quizzes == nil {
		return nil, ErrEngineNotReady
	}

	if _, err := e.quizzes.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	pool, err := e.quizzes.QuizIDsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	size := e.config.Quiz.SessionSize
	if len(pool) < size && e.config.Quiz.AllowShortSession {
		size = len(pool)
	}
	ids, err := quiz.Sample(pool, size, e.intn)
	if err != nil {
		e.emitAudit(ctx, auditEventQuizSessionStarted, false, userID, "", ErrEmptyCategory, func() map[string]string {
			return map[string]string{"category_id": categoryID, "available": strconv.Itoa(len(pool))}
		})
		return nil, ErrEmptyCategory
	}

	s := &quiz.Session{
		ID:         e.newULID(),
		UserID:     userID,
		CategoryID: categoryID,
		QuizIDs:    ids,
		Attempts:   []quiz.Attempt{},
		CreatedAt:  e.now().UTC(),
	}
	if err := e.quizzes.CreateSession(ctx, s); err != nil {
		return nil, err
	}

	e.metricInc(MetricQuizSessionStarted)
	e.emitAudit(ctx, auditEventQuizSessionStarted, true, userID, s.ID, nil, func() map[string]string {
		return map[string]string{"category_id": categoryID}
	})
	return s, nil
}

// GetSession returns the session if userID owns it. Sessions of other
// users are reported as ErrSessionNotFound.
func (e *Engine) GetSession(ctx context.Context, sessionID, userID string) (*quiz.Session, error) {
	if e == nil || e.quizzes == nil {
		return nil, ErrEngineNotReady
	}
	s, err := e.quizzes.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// NextQuestion returns the question at the session cursor without grading
// data, or nil when the session is finished.
func (e *Engine) NextQuestion(ctx context.Context, sessionID, userID string) (*quiz.Question, error) {
	s, err := e.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	quizID, ok := s.Current()
	if !ok {
		return nil, nil
	}
	q, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return q.Question(s.CurrentIndex, len(s.QuizIDs)), nil
}

// SubmitAnswer grades answer against the question at the cursor and
// advances the session. Each position accepts exactly one answer: a
// resubmission or a concurrent duplicate fails with ErrInvalidSession, as
// does any submission to a finished or unknown session.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, userID string, answer quiz.Answer, timeTaken int) (*SubmitResult, error) {
	if e == nil || e.quizzes == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricSubmitLatency, start)

	res := flows.RunSubmit(ctx, userID, sessionID, answer, timeTaken, flows.SubmitDeps{
		Store:        e.quizzes,
		NewID:        e.newULID,
		Now:          e.now,
		MaxTimeTaken: e.config.Quiz.MaxTimeTaken,
		Errors: flows.SubmitErrors{
			SessionNotFound: ErrSessionNotFound,
			InvalidSession:  ErrInvalidSession,
		},
	})

	switch res.Failure {
	case flows.SubmitFailureNone:
	case flows.SubmitFailureSessionNotFound, flows.SubmitFailureForbidden, flows.SubmitFailureFinished:
		e.emitAudit(ctx, auditEventQuizSubmitRejected, false, userID, sessionID, ErrInvalidSession, func() map[string]string {
			return map[string]string{"reason": submitFailureReason(res.Failure)}
		})
		return nil, ErrInvalidSession
	case flows.SubmitFailureConflict:
		e.metricInc(MetricSubmitConflict)
		e.emitAudit(ctx, auditEventQuizSubmitRejected, false, userID, sessionID, ErrInvalidSession, func() map[string]string {
			return map[string]string{"reason": "conflict", "position": strconv.Itoa(res.Position)}
		})
		return nil, ErrInvalidSession
	default:
		e.logger.ErrorContext(ctx, "submit answer failed", "session_id", sessionID, "error", res.Err)
		return nil, res.Err
	}

	if res.Attempt.IsCorrect {
		e.metricInc(MetricAnswerCorrect)
	} else {
		e.metricInc(MetricAnswerIncorrect)
	}
	if res.Session.Finished {
		e.metricInc(MetricQuizSessionFinished)
		e.emitAudit(ctx, auditEventQuizSessionFinished, true, userID, sessionID, nil, nil)
	}

	return &SubmitResult{
		QuizID:       res.Attempt.QuizID,
		IsCorrect:    res.Attempt.IsCorrect,
		Score:        res.Attempt.Score,
		CurrentIndex: res.Session.CurrentIndex,
		Finished:     res.Session.Finished,
	}, nil
}

func submitFailureReason(kind flows.SubmitFailureKind) string {
	switch kind {
	case flows.SubmitFailureSessionNotFound, flows.SubmitFailureForbidden:
		return "not_found"
	case flows.SubmitFailureFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// GetResult summarizes a finished session from its attempt log.
func (e *Engine) GetResult(ctx context.Context, sessionID, userID string) (*quiz.Result, error) {
	s, err := e.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	r, err := quiz.Summarize(s)
	if errors.Is(err, quiz.ErrNotFinished) {
		return nil, ErrNotFinished
	}
	return r, err
}

// GetUserStats aggregates every durable attempt of userID.
func (e *Engine) GetUserStats(ctx context.Context, userID string) (quiz.Stats, error) {
	if e == nil || e.quizzes == nil {
		return quiz.Stats{}, ErrEngineNotReady
	}
	return e.quizzes.UserStats(ctx, userID)
}
