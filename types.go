package goQuiz

import (
	"context"
	"time"

	"github.com/MrEthical07/goQuiz/quiz"
)

// Roles understood by the engine. Only RoleAdmin may author catalog content.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the stored account. PasswordHash never leaves the engine; use
// Safe for anything returned to a client.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Bio          string    `db:"bio"`
	AvatarURL    string    `db:"avatar_url"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// SafeUser is the public projection of a User.
type SafeUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Safe drops the password hash.
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AuthResult is the identity extracted from a verified access token.
type AuthResult struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// IsAdmin reports whether the caller may author catalog content.
func (r *AuthResult) IsAdmin() bool { return r != nil && r.Role == RoleAdmin }

// LoginResult is returned by Login and Refresh. RefreshToken must only be
// delivered through the refresh side channel, never in a response body.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             SafeUser
}

// ProfileUpdate carries optional profile changes. Nil fields are left as is.
type ProfileUpdate struct {
	Name      *string
	Bio       *string
	AvatarURL *string
}

// CreateQuizInput is the authoring payload for a quiz.
type CreateQuizInput struct {
	CategoryID string
	Type       quiz.Type
	Context    string
	Answer     string
	Options    []OptionInput
	MaxScore   int
}

// OptionInput is one authored multiple-choice option.
type OptionInput struct {
	Text      string
	IsCorrect bool
}

// SubmitResult reports the outcome of one graded submission.
type SubmitResult struct {
	QuizID       string `json:"quizId"`
	IsCorrect    bool   `json:"isCorrect"`
	Score        int    `json:"score"`
	CurrentIndex int    `json:"currentIndex"`
	Finished     bool   `json:"finished"`
}

// UserStore persists accounts. Implementations return ErrEmailTaken on a
// duplicate email and ErrUserNotFound for unknown users.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate, at time.Time) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
}

// QuizStore persists the catalog, sessions and attempts.
//
// RecordAttempt is the durable half of a submission. It must, in one
// transaction, advance the session from expectedIndex, append the attempt
// to the session log and insert the durable attempt record. If the session
// is finished or its cursor is no longer expectedIndex it returns
// ErrInvalidSession and writes nothing.
type QuizStore interface {
	CreateCategory(ctx context.Context, c *quiz.Category) error
	ListCategories(ctx context.Context) ([]quiz.Category, error)
	GetCategory(ctx context.Context, id string) (*quiz.Category, error)
	CreateQuiz(ctx context.Context, q *quiz.Quiz) error
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
	QuizIDsByCategory(ctx context.Context, categoryID string) ([]string, error)
	CreateSession(ctx context.Context, s *quiz.Session) error
	GetSession(ctx context.Context, id string) (*quiz.Session, error)
	RecordAttempt(ctx context.Context, sessionID string, expectedIndex int, a quiz.Attempt, rec quiz.AttemptRecord) error
	UserStats(ctx context.Context, userID string) (quiz.Stats, error)
}
