package httpapi

import (
	"net/http"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/middleware"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// sessionResponse never carries the refresh token; that travels in the
// cookie only.
type sessionResponse struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	User        goQuiz.SafeUser `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.engine.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeSession(w, res)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Refresh(r.Context(), s.cookie.Read(r))
	if err != nil {
		// Only an auth rejection ends the cookie session.
		if toAPIError(err).StatusCode == http.StatusUnauthorized {
			s.cookie.Clear(w)
		}
		s.fail(w, r, err)
		return
	}
	s.writeSession(w, res)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	_ = s.engine.Logout(r.Context(), s.cookie.Read(r))
	s.cookie.Clear(w)
	noContent(w)
}

func (s *Server) writeSession(w http.ResponseWriter, res *goQuiz.LoginResult) {
	s.cookie.Set(w, res.RefreshToken, res.RefreshExpiresAt)
	ok(w, sessionResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		User:        res.User,
	})
}

func caller(r *http.Request) *goQuiz.AuthResult {
	res, _ := middleware.AuthResultFromContext(r.Context())
	return res
}
