package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/store/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	handler http.Handler
	store   *sqlstore.Store
	mr      *miniredis.Miniredis
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goQuiz.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := goQuiz.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithQuizStore(store).
		WithLogger(logger).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv, err := New(Options{Engine: engine, Store: store, Logger: logger})
	require.NoError(t, err)

	return &testAPI{handler: srv.Handler(), store: store, mr: mr}
}

type call struct {
	method string
	path   string
	body   any
	token  string
	cookie *http.Cookie
}

func (a *testAPI) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

type envelopeT[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelopeT[T] {
	t.Helper()
	var out envelopeT[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "rt" {
			return c
		}
	}
	t.Fatalf("no refresh cookie in response")
	return nil
}

type session struct {
	access string
	cookie *http.Cookie
	raw    string
}

func (a *testAPI) signup(t *testing.T, email string) session {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"email": email, "password": "correct-password-123", "name": "Quiz Taker",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.signin(t, email)
}

func (a *testAPI) signin(t *testing.T, email string) session {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": email, "password": "correct-password-123",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[sessionResponse](t, rec)
	return session{access: out.Data.AccessToken, cookie: refreshCookie(t, rec), raw: rec.Body.String()}
}

func TestLoginSetsCookieAndHidesRefreshToken(t *testing.T) {
	api := newTestAPI(t)
	s := api.signup(t, "ada@example.com")

	assert.NotEmpty(t, s.access)
	assert.True(t, s.cookie.HttpOnly)
	assert.True(t, s.cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, s.cookie.SameSite)
	assert.Equal(t, "/auth/session", s.cookie.Path)
	assert.Positive(t, s.cookie.MaxAge)

	assert.NotContains(t, s.raw, s.cookie.Value)
	assert.NotContains(t, strings.ToLower(s.raw), "refresh")
}

func TestAuthFailuresShareOneBody(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "ada@example.com")

	wrongPassword := api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "ada@example.com", "password": "wrong-password-123",
	}})
	unknownUser := api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "nobody@example.com", "password": "correct-password-123",
	}})
	badBearer := api.do(t, call{method: http.MethodGet, path: "/me", token: "not-a-token"})
	noCookie := api.do(t, call{method: http.MethodPost, path: "/auth/session/refresh"})

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownUser, badBearer, noCookie} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, wrongPassword.Body.String(), rec.Body.String())
	}
}

func TestRefreshRotatesAndRejectsReuse(t *testing.T) {
	api := newTestAPI(t)
	s := api.signup(t, "ada@example.com")

	rec := api.do(t, call{method: http.MethodPost, path: "/auth/session/refresh", cookie: s.cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := refreshCookie(t, rec)
	assert.NotEqual(t, s.cookie.Value, rotated.Value)
	assert.NotContains(t, rec.Body.String(), rotated.Value)

	out := decodeBody[sessionResponse](t, rec)
	assert.Equal(t, "ada@example.com", out.Data.User.Email)

	reuse := api.do(t, call{method: http.MethodPost, path: "/auth/session/refresh", cookie: s.cookie})
	assert.Equal(t, http.StatusUnauthorized, reuse.Code)
	cleared := refreshCookie(t, reuse)
	assert.Negative(t, cleared.MaxAge)
}

func TestRefreshKeepsCookieOnBackendFailure(t *testing.T) {
	api := newTestAPI(t)
	s := api.signup(t, "ada@example.com")

	require.NoError(t, api.store.Close())

	rec := api.do(t, call{method: http.MethodPost, path: "/auth/session/refresh", cookie: s.cookie})
	assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, "rt", c.Name, "backend failure must not clear the refresh cookie")
	}
	assert.NotContains(t, rec.Body.String(), "database is closed")
}

func TestLogoutRevokesCookieToken(t *testing.T) {
	api := newTestAPI(t)
	s := api.signup(t, "ada@example.com")

	rec := api.do(t, call{method: http.MethodPost, path: "/auth/session/logout", cookie: s.cookie})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Negative(t, refreshCookie(t, rec).MaxAge)

	again := api.do(t, call{method: http.MethodPost, path: "/auth/session/logout"})
	assert.Equal(t, http.StatusNoContent, again.Code)

	rec = api.do(t, call{method: http.MethodPost, path: "/auth/session/refresh", cookie: s.cookie})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListSessions(t *testing.T) {
	api := newTestAPI(t)
	first := api.signup(t, "ada@example.com")
	second := api.signin(t, "ada@example.com")

	rec := api.do(t, call{method: http.MethodGet, path: "/me/sessions", token: second.access})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[[]goQuiz.SessionInfo](t, rec)
	assert.Len(t, out.Data, 2)
	assert.NotContains(t, rec.Body.String(), first.cookie.Value)

	api.do(t, call{method: http.MethodPost, path: "/auth/session/logout", cookie: first.cookie})
	rec = api.do(t, call{method: http.MethodGet, path: "/me/sessions", token: second.access})
	out = decodeBody[[]goQuiz.SessionInfo](t, rec)
	assert.Len(t, out.Data, 1)

	rec = api.do(t, call{method: http.MethodGet, path: "/me/sessions"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"email": "not-an-email", "password": "correct-password-123",
	}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	out := decodeBody[any](t, rec)
	require.NotNil(t, out.Error)
	assert.Equal(t, "validation_error", out.Error.Code)
	assert.Contains(t, out.Error.Details, "email")
	assert.Contains(t, out.Error.Details, "name")

	rec = api.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"email": "ada@example.com", "password": "short", "name": "Ada",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.signup(t, "ada@example.com")
	rec = api.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"email": "ADA@example.com", "password": "correct-password-123", "name": "Ada",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProfileAndPasswordChange(t *testing.T) {
	api := newTestAPI(t)
	s := api.signup(t, "ada@example.com")

	rec := api.do(t, call{method: http.MethodPatch, path: "/me", token: s.access, body: map[string]string{
		"name": "Ada Lovelace", "bio": "Analyst",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeBody[goQuiz.SafeUser](t, rec)
	assert.Equal(t, "Ada Lovelace", me.Data.Name)
	assert.NotContains(t, rec.Body.String(), "argon2")

	rec = api.do(t, call{method: http.MethodPatch, path: "/me", token: s.access, body: map[string]string{
		"avatarUrl": "ftp://example.com/a.png",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, call{method: http.MethodPatch, path: "/me/password", token: s.access, body: map[string]string{
		"currentPassword": "wrong-password-123", "newPassword": "another-password-456",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, call{method: http.MethodPatch, path: "/me/password", token: s.access, body: map[string]string{
		"currentPassword": "correct-password-123", "newPassword": "another-password-456",
	}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, call{method: http.MethodPost, path: "/auth/session/refresh", cookie: s.cookie})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalogRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	user := api.signup(t, "user@example.com")

	rec := api.do(t, call{method: http.MethodPost, path: "/quiz/categories", token: user.access, body: map[string]string{"name": "Maths"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, call{method: http.MethodGet, path: "/quiz/categories"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, call{method: http.MethodGet, path: "/quiz/categories", token: user.access})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func (a *testAPI) admin(t *testing.T) session {
	t.Helper()
	a.signup(t, "admin@example.com")
	require.NoError(t, a.store.SetRole(context.Background(), "admin@example.com", goQuiz.RoleAdmin))
	return a.signin(t, "admin@example.com")
}

func (a *testAPI) seed(t *testing.T, admin session, n int) string {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/quiz/categories", token: admin.access, body: map[string]string{"name": "Maths"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	category := decodeBody[struct {
		ID string `json:"id"`
	}](t, rec).Data.ID

	for i := 0; i < n; i++ {
		rec := a.do(t, call{method: http.MethodPost, path: "/quiz/quizzes", token: admin.access, body: map[string]any{
			"categoryId": category,
			"type":       "subjective",
			"context":    fmt.Sprintf("What is %d+%d?", i, i),
			"answer":     fmt.Sprintf("%d", 2*i),
		}})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return category
}

func TestCreateQuizValidation(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin(t)
	category := api.seed(t, admin, 0)

	rec := api.do(t, call{method: http.MethodPost, path: "/quiz/quizzes", token: admin.access, body: map[string]any{
		"categoryId": category, "type": "essay", "context": "Why?",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, call{method: http.MethodPost, path: "/quiz/quizzes", token: admin.access, body: map[string]any{
		"categoryId": category, "type": "multiple", "context": "Pick one",
		"options": []map[string]any{{"text": "a"}, {"text": "b"}},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, call{method: http.MethodPost, path: "/quiz/quizzes", token: admin.access, body: map[string]any{
		"categoryId": "missing", "type": "subjective", "context": "1+1?", "answer": "2",
	}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuizSessionFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin(t)
	category := api.seed(t, admin, 12)
	player := api.signup(t, "player@example.com")

	rec := api.do(t, call{method: http.MethodPost, path: "/quiz/sessions", token: player.access, body: map[string]string{"categoryId": category}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decodeBody[sessionView](t, rec).Data
	assert.Equal(t, 10, sess.Total)
	assert.Equal(t, 0, sess.CurrentIndex)

	base := "/quiz/sessions/" + sess.ID

	rec = api.do(t, call{method: http.MethodGet, path: base + "/result", token: player.access})
	assert.Equal(t, http.StatusConflict, rec.Code)

	other := api.signup(t, "other@example.com")
	rec = api.do(t, call{method: http.MethodGet, path: base, token: other.access})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for i := 0; i < sess.Total; i++ {
		rec = api.do(t, call{method: http.MethodGet, path: base + "/question", token: player.access})
		require.Equal(t, http.StatusOK, rec.Code)
		q := decodeBody[questionResponse](t, rec).Data
		require.False(t, q.Finished)
		require.NotNil(t, q.Question)
		assert.Equal(t, i, q.Question.Position)
		assert.NotContains(t, rec.Body.String(), `"answer"`)

		var a, b int
		_, err := fmt.Sscanf(q.Question.Context, "What is %d+%d?", &a, &b)
		require.NoError(t, err)

		rec = api.do(t, call{method: http.MethodPost, path: base + "/answers", token: player.access, body: map[string]any{
			"text": fmt.Sprintf("%d", a+b), "timeTaken": 3,
		}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decodeBody[goQuiz.SubmitResult](t, rec).Data
		assert.True(t, res.IsCorrect)
		assert.Equal(t, i+1, res.CurrentIndex)
	}

	rec = api.do(t, call{method: http.MethodPost, path: base + "/answers", token: player.access, body: map[string]any{"text": "0"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, call{method: http.MethodGet, path: base + "/question", token: player.access})
	assert.JSONEq(t, `{"data":{"finished":true,"question":null}}`, rec.Body.String())

	rec = api.do(t, call{method: http.MethodGet, path: base + "/result", token: player.access})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[struct {
		TotalScore   int `json:"totalScore"`
		CorrectCount int `json:"correctCount"`
		TotalTime    int `json:"totalTime"`
	}](t, rec).Data
	assert.Equal(t, 100, result.TotalScore)
	assert.Equal(t, 10, result.CorrectCount)
	assert.Equal(t, 30, result.TotalTime)

	rec = api.do(t, call{method: http.MethodGet, path: "/quiz/stats", token: player.access})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"attempts":10,"correct":10,"totalScore":100,"avgCorrectRate":100}}`, rec.Body.String())
}

func TestStartSessionShortCategory(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin(t)
	category := api.seed(t, admin, 3)

	rec := api.do(t, call{method: http.MethodPost, path: "/quiz/sessions", token: admin.access, body: map[string]string{"categoryId": category}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "ada@example.com")

	rec := api.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "goquiz_login_success_total 1")
	assert.Contains(t, body, `goquiz_http_requests_total{method="POST",route="/auth/login",status="200"} 1`)

	api.mr.Close()
	rec = api.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownFieldsRejected(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "a@example.com", "password": "x", "refreshToken": "smuggled",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
