package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Nickname    string     `json:"nickname"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func toAdminView(a *model.AdminUser) adminView {
	return adminView{
		ID:          a.ID,
		Username:    a.Username,
		Nickname:    a.Nickname,
		Email:       a.Email,
		LastLoginAt: a.LastLoginAt,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	token, admin, err := s.authUC.Login(r.Context(), req.Username, req.Password, clientIP(r), r.UserAgent())
	if errors.Is(err, domain.ErrInvalidCredentials) {
		writeUnauthorized(w, "invalid username or password")
		return
	}
	if err != nil {
		writeServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token string    `json:"token"`
		Admin adminView `json:"admin"`
	}{Token: token, Admin: toAdminView(admin)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authUC.Logout(r.Context(), bearerToken(r)); err != nil {
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	admin := adminFrom(r.Context())
	if admin == nil {
		writeUnauthorized(w, "no session")
		return
	}
	writeJSON(w, http.StatusOK, toAdminView(admin))
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	admin := adminFrom(r.Context())
	if admin == nil {
		writeUnauthorized(w, "no session")
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	err := s.authUC.ChangePassword(r.Context(), admin.ID, req.OldPassword, req.NewPassword)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeBadRequest(w, "new password too short")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeUnauthorized(w, "wrong password")
	case err != nil:
		writeServerError(w)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
