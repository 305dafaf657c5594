package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password_hash, name, bio, avatar_url, role, created_at, updated_at`

// CreateUser inserts u. A taken email yields goQuiz.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u *goQuiz.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :email, :password_hash, :name, :bio, :avatar_url, :role, :created_at, :updated_at)`, u)
	if isUniqueViolation(err) {
		return goQuiz.ErrEmailTaken
	}
	return err
}

// GetUserByEmail looks up a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*goQuiz.User, error) {
	return s.getUser(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByID looks up a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*goQuiz.User, error) {
	return s.getUser(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, q sqlx.QueryerContext, query string, arg any) (*goQuiz.User, error) {
	var u goQuiz.User
	if err := sqlx.GetContext(ctx, q, &u, s.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goQuiz.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies the non-nil fields of p and returns the stored user.
func (s *Store) UpdateProfile(ctx context.Context, id string, p goQuiz.ProfileUpdate, at time.Time) (*goQuiz.User, error) {
	var out *goQuiz.User
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		u, err := s.getUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Bio != nil {
			u.Bio = *p.Bio
		}
		if p.AvatarURL != nil {
			u.AvatarURL = *p.AvatarURL
		}
		u.UpdatedAt = at

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET name = ?, bio = ?, avatar_url = ?, updated_at = ? WHERE id = ?`),
			u.Name, u.Bio, u.AvatarURL, u.UpdatedAt, u.ID); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// UpdatePasswordHash replaces the stored hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`), hash, at, id)
	if err != nil {
		return err
	}
	return requireRow(res, goQuiz.ErrUserNotFound)
}

// SetRole changes a user's role, for promoting catalog authors. email is
// matched after trimming and lowercasing, as stored by the engine.
func (s *Store) SetRole(ctx context.Context, email, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE users SET role = ?, updated_at = ? WHERE email = ?`), role, time.Now().UTC(), email)
	if err != nil {
		return err
	}
	return requireRow(res, goQuiz.ErrUserNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
