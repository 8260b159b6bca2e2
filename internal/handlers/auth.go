package handlers

import (
	"net/http"

	"github.com/abrezinsky/jackpot/internal/auth"
	"github.com/abrezinsky/jackpot/internal/lottery"
)

// handleLogin exchanges the admin password for a session cookie
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	token, ok := h.Auth.Login(req.Password)
	if !ok {
		respondError(w, Unauthorized("Invalid password"))
		return
	}

	auth.SetSessionCookie(w, token)
	respondOK(w, LoginResponse{Admin: h.Auth.Admin()})
}

// handleLogout clears the session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}

	auth.ClearSessionCookie(w)
	respondSuccess(w, "Logged out")
}

// caller is the identity an authenticated admin request acts as
func caller(r *http.Request) lottery.Identity {
	id, _ := auth.Caller(r.Context())
	return id
}
