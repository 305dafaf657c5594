package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/quiz"
	"github.com/jmoiron/sqlx"
)

type sessionRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	CategoryID    string    `db:"category_id"`
	QuestionCount int       `db:"question_count"`
	CurrentIndex  int       `db:"current_index"`
	Finished      bool      `db:"finished"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// CreateSession stores a new session with its ordered quiz ids.
func (s *Store) CreateSession(ctx context.Context, sess *quiz.Session) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO quiz_sessions (id, user_id, category_id, question_count, current_index, finished, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			sess.ID, sess.UserID, sess.CategoryID, len(sess.QuizIDs), sess.CurrentIndex, sess.Finished,
			sess.CreatedAt, sess.CreatedAt); err != nil {
			return err
		}
		for i, id := range sess.QuizIDs {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO quiz_session_items (session_id, position, quiz_id) VALUES (?, ?, ?)`),
				sess.ID, i, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSession loads a session, its quiz order and its attempt log.
func (s *Store) GetSession(ctx context.Context, id string) (*quiz.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, user_id, category_id, question_count, current_index, finished, created_at, updated_at
		FROM quiz_sessions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goQuiz.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	sess := &quiz.Session{
		ID:           row.ID,
		UserID:       row.UserID,
		CategoryID:   row.CategoryID,
		CurrentIndex: row.CurrentIndex,
		Finished:     row.Finished,
		CreatedAt:    row.CreatedAt,
		QuizIDs:      make([]string, 0, row.QuestionCount),
		Attempts:     []quiz.Attempt{},
	}
	if err := s.db.SelectContext(ctx, &sess.QuizIDs, s.db.Rebind(`
		SELECT quiz_id FROM quiz_session_items WHERE session_id = ? ORDER BY position`), id); err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &sess.Attempts, s.db.Rebind(`
		SELECT quiz_id, is_correct, score, time_taken FROM session_attempts
		WHERE session_id = ? ORDER BY position`), id); err != nil {
		return nil, err
	}
	return sess, nil
}

// RecordAttempt advances the session from expected and writes both the
// session log entry and the durable attempt in one transaction. A finished
// session, a moved cursor or an already recorded position yields
// goQuiz.ErrInvalidSession.
func (s *Store) RecordAttempt(ctx context.Context, sessionID string, expected int, a quiz.Attempt, rec quiz.AttemptRecord) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE quiz_sessions
			SET current_index = current_index + 1,
				finished = (current_index + 1 >= question_count),
				updated_at = ?
			WHERE id = ? AND current_index = ? AND finished = ?`),
			rec.CreatedAt, sessionID, expected, false)
		if err != nil {
			return err
		}
		if err := requireRow(res, goQuiz.ErrInvalidSession); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO session_attempts (session_id, position, quiz_id, is_correct, score, time_taken)
			VALUES (?, ?, ?, ?, ?, ?)`),
			sessionID, expected, a.QuizID, a.IsCorrect, a.Score, a.TimeTaken); err != nil {
			if isUniqueViolation(err) {
				return goQuiz.ErrInvalidSession
			}
			return err
		}

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO quiz_attempts (id, user_id, quiz_id, session_id, position, is_correct, score, time_taken, created_at)
			VALUES (:id, :user_id, :quiz_id, :session_id, :position, :is_correct, :score, :time_taken, :created_at)`, rec); err != nil {
			if isUniqueViolation(err) {
				return goQuiz.ErrInvalidSession
			}
			return err
		}
		return nil
	})
}

// UserStats aggregates the durable attempts of userID.
func (s *Store) UserStats(ctx context.Context, userID string) (quiz.Stats, error) {
	var agg struct {
		Attempts int `db:"attempts"`
		Correct  int `db:"correct"`
		Score    int `db:"score"`
	}
	err := s.db.GetContext(ctx, &agg, s.db.Rebind(`
		SELECT COUNT(*) AS attempts,
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct,
			COALESCE(SUM(score), 0) AS score
		FROM quiz_attempts WHERE user_id = ?`), userID)
	if err != nil {
		return quiz.Stats{}, err
	}
	return quiz.NewStats(agg.Attempts, agg.Correct, agg.Score), nil
}

// PurgeStaleSessions deletes unfinished sessions created before cutoff,
// with their quiz order and attempt log. Durable attempts are kept.
func (s *Store) PurgeStaleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		const stale = `SELECT id FROM quiz_sessions WHERE finished = ? AND created_at < ?`
		for _, table := range []string{"session_attempts", "quiz_session_items"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE session_id IN (`+stale+`)`),
				false, cutoff); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM quiz_sessions WHERE finished = ? AND created_at < ?`),
			false, cutoff)
		if err != nil {
			return err
		}
		purged, err = res.RowsAffected()
		return err
	})
	return purged, err
}
