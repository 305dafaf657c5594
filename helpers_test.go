package goQuiz

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goQuiz/quiz"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEnv struct {
	engine  *Engine
	mr      *miniredis.Miniredis
	users   *memUserStore
	quizzes *memQuizStore
	sink    *ChannelSink
}

func newTestEnv(t testing.TB, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = true
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	users := newMemUserStore()
	quizzes := newMemQuizStore()
	sink := NewChannelSink(256)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithQuizStore(quizzes).
		WithAuditSink(sink).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, users: users, quizzes: quizzes, sink: sink}
}

// drainEvents returns the audit events delivered so far.
func (env *testEnv) drainEvents(t *testing.T, want int) []AuditEvent {
	t.Helper()
	var out []AuditEvent
	deadline := time.After(2 * time.Second)
	for len(out) < want {
		select {
		case ev := <-env.sink.Events():
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d audit events, got %d", want, len(out))
		}
	}
	return out
}

func (env *testEnv) register(t testing.TB, email, pw, name string) *SafeUser {
	t.Helper()
	u, err := env.engine.Register(context.Background(), email, pw, name)
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return u
}

/*
====================================
IN-MEMORY STORES
====================================
*/

type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[string]*User{}, byEmail: map[string]string{}}
}

func (s *memUserStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *memUserStore) GetUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, id string, p ProfileUpdate, at time.Time) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
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
	cp := *u
	return &cp, nil
}

func (s *memUserStore) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

func (s *memUserStore) setRole(id, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id].Role = role
}

type memQuizStore struct {
	mu         sync.Mutex
	categories map[string]*quiz.Category
	quizzes    map[string]*quiz.Quiz
	sessions   map[string]*quiz.Session
	records    []quiz.AttemptRecord
}

func newMemQuizStore() *memQuizStore {
	return &memQuizStore{
		categories: map[string]*quiz.Category{},
		quizzes:    map[string]*quiz.Quiz{},
		sessions:   map[string]*quiz.Session{},
	}
}

func (s *memQuizStore) CreateCategory(_ context.Context, c *quiz.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return ErrCategoryExists
		}
	}
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *memQuizStore) ListCategories(context.Context) ([]quiz.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quiz.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memQuizStore) GetCategory(_ context.Context, id string) (*quiz.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memQuizStore) CreateQuiz(_ context.Context, q *quiz.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	cp.Options = append([]quiz.Option(nil), q.Options...)
	s.quizzes[q.ID] = &cp
	return nil
}

func (s *memQuizStore) GetQuiz(_ context.Context, id string) (*quiz.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, ErrQuizNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *memQuizStore) QuizIDsByCategory(_ context.Context, categoryID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, q := range s.quizzes {
		if q.CategoryID == categoryID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memQuizStore) CreateSession(_ context.Context, sess *quiz.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *memQuizStore) GetSession(_ context.Context, id string) (*quiz.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (s *memQuizStore) RecordAttempt(_ context.Context, sessionID string, expected int, a quiz.Attempt, rec quiz.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.Finished || sess.CurrentIndex != expected {
		return ErrInvalidSession
	}
	if err := sess.Apply(a); err != nil {
		return ErrInvalidSession
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memQuizStore) UserStats(_ context.Context, userID string) (quiz.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var attempts, correct, score int
	for _, r := range s.records {
		if r.UserID != userID {
			continue
		}
		attempts++
		score += r.Score
		if r.IsCorrect {
			correct++
		}
	}
	return quiz.NewStats(attempts, correct, score), nil
}

func copySession(s *quiz.Session) *quiz.Session {
	cp := *s
	cp.QuizIDs = append([]string(nil), s.QuizIDs...)
	cp.Attempts = append([]quiz.Attempt{}, s.Attempts...)
	return &cp
}

// flakyUserStore fails GetUserByID with err while err is set and counts
// lookups.
type flakyUserStore struct {
	UserStore
	mu     sync.Mutex
	err    error
	lookup int
}

func (s *flakyUserStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	s.lookup++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.UserStore.GetUserByID(ctx, id)
}
