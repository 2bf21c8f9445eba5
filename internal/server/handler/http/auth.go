// Package http provides the HTTP handlers and router of the report service:
// public report lookup, admin login and the bearer-protected admin API.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/ReportDesk/internal/service"
	"go.uber.org/zap"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Login checks the credentials and returns a signed token.
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

// AuthHandler handles admin login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// LoginRequest represents the JSON payload for admin login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Login handles POST /api/admin/login.
// Missing fields give 400; an unknown username and a wrong password both give
// the same 401 body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.Log, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: res.Token, Username: res.Username})
}
