package httpapi

import (
	"net/http"

	goQuiz "github.com/MrEthical07/goQuiz"
)

type updateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=50"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.Me(r.Context(), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.engine.UpdateProfile(r.Context(), caller(r).UserID, goQuiz.ProfileUpdate{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, user)
}

// changePassword also ends every refresh session of the caller, including
// the one in this request's cookie.
func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.engine.ChangePassword(r.Context(), caller(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	s.cookie.Clear(w)
	noContent(w)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.engine.ListActiveSessions(r.Context(), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, sessions)
}
