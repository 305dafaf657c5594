package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/quiz"
	"github.com/jmoiron/sqlx"
)

// CreateCategory inserts c. Names are unique regardless of case.
func (s *Store) CreateCategory(ctx context.Context, c *quiz.Category) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at)
		VALUES (:id, :name, :description, :created_at)`, c)
	if isUniqueViolation(err) {
		return goQuiz.ErrCategoryExists
	}
	return err
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]quiz.Category, error) {
	out := []quiz.Category{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, name, description, created_at FROM categories ORDER BY name`)
	return out, err
}

// GetCategory looks up a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (*quiz.Category, error) {
	var c quiz.Category
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`
		SELECT id, name, description, created_at FROM categories WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goQuiz.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCategoryByName looks up a category by name, ignoring case.
func (s *Store) FindCategoryByName(ctx context.Context, name string) (*quiz.Category, error) {
	var c quiz.Category
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`
		SELECT id, name, description, created_at FROM categories WHERE lower(name) = lower(?)`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goQuiz.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateQuiz inserts q and its options in one transaction.
func (s *Store) CreateQuiz(ctx context.Context, q *quiz.Quiz) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO quizzes (id, category_id, type, context, answer, max_score, created_at)
			VALUES (:id, :category_id, :type, :context, :answer, :max_score, :created_at)`, q); err != nil {
			return err
		}
		for i, o := range q.Options {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO quiz_options (id, quiz_id, position, text, is_correct)
				VALUES (?, ?, ?, ?, ?)`), o.ID, q.ID, i, o.Text, o.IsCorrect); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetQuiz loads a quiz with its options in authoring order.
func (s *Store) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	var q quiz.Quiz
	err := s.db.GetContext(ctx, &q, s.db.Rebind(`
		SELECT id, category_id, type, context, answer, max_score, created_at
		FROM quizzes WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goQuiz.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}

	if q.Type == quiz.TypeMultiple {
		if err := s.db.SelectContext(ctx, &q.Options, s.db.Rebind(`
			SELECT id, text, is_correct FROM quiz_options WHERE quiz_id = ? ORDER BY position`), id); err != nil {
			return nil, err
		}
	}
	return &q, nil
}

// QuizIDsByCategory returns the sampling pool of a category.
func (s *Store) QuizIDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(`
		SELECT id FROM quizzes WHERE category_id = ? ORDER BY id`), categoryID)
	return ids, err
}

// CountQuizzes reports how many quizzes a category holds.
func (s *Store) CountQuizzes(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`
		SELECT COUNT(*) FROM quizzes WHERE category_id = ?`), categoryID)
	return n, err
}
