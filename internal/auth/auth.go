package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/jackpot/internal/lottery"
)

const (
	CookieName    = "jackpot_session"
	SessionExpiry = 12 * time.Hour
)

// Words used for generated admin passwords
var passwordWords = []string{
	"jackpot", "rollover", "ball", "odd", "even",
	"ticket", "draw", "slot", "seed", "pool",
	"minor", "crank", "lucky", "gold", "coin",
	"vault", "spin", "bonus", "streak",
}

type contextKey struct{}

// Auth handles admin authentication. Every session acts as the single
// admin identity it was created for.
type Auth struct {
	password string
	admin    lottery.Identity
	clock    clockwork.Clock
	sessions map[string]time.Time
	mu       sync.RWMutex
}

// New creates a new Auth instance for the given password and admin identity
func New(password string, admin lottery.Identity, clock clockwork.Clock) *Auth {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Auth{
		password: password,
		admin:    admin,
		clock:    clock,
		sessions: make(map[string]time.Time),
	}
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = passwordWords[randomInt(len(passwordWords))]
	}
	return strings.Join(words, "-")
}

// Admin returns the identity sessions act as
func (a *Auth) Admin() lottery.Identity {
	return a.admin
}

// Login validates the password and returns a session token if valid
func (a *Auth) Login(password string) (string, bool) {
	if a.password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return "", false
	}

	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = a.clock.Now().Add(SessionExpiry)
	a.mu.Unlock()

	return token, true
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession checks if a session token is valid
func (a *Auth) ValidateSession(token string) bool {
	a.mu.RLock()
	expiry, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return false
	}

	if a.clock.Now().After(expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return false
	}

	return true
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.ValidateSession(cookie.Value)
}

// RequireAuthAPI middleware for API endpoints (returns 401). Authenticated
// requests carry the admin identity in their context.
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.GetSessionFromRequest(r) {
			ctx := context.WithValue(r.Context(), contextKey{}, a.admin)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
	})
}

// Caller returns the identity attached by RequireAuthAPI
func Caller(ctx context.Context) (lottery.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(lottery.Identity)
	return id, ok
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	bytes := make([]byte, 1)
	rand.Read(bytes)
	return int(bytes[0]) % max
}
