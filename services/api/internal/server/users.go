package server

import (
	"net/http"

	"elib/services/api/internal/app"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string      `json:"accessToken"`
	User        app.Profile `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "Too many sign-up attempts, try again later") {
		s.audit(r, "auth.register", "rate_limited")
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "auth.register", "invalid_request")
		s.writeAppError(w, r, err)
		return
	}
	token, profile, err := s.app.Register(r.Context(), app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.audit(r, "auth.register", "fail", "email", req.Email)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.register", "success", "user_id", profile.ID)
	writeJSON(w, http.StatusCreated, authResponse{AccessToken: token, User: profile})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "Too many login attempts, try again later") {
		s.audit(r, "auth.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "auth.login", "invalid_request")
		s.writeAppError(w, r, err)
		return
	}
	token, profile, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.login", "fail", "email", req.Email)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.login", "success", "user_id", profile.ID)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: token, User: profile})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, caller Caller) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if err := s.app.Logout(r.Context(), caller.Token); err != nil {
		s.audit(r, "auth.logout", "fail")
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.logout", "success")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
