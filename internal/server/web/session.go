package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/server/auth"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
)

// Session identifies the logged-in user of a request.
type Session struct {
	User *models.User
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}

func (s *Server) startSession(w http.ResponseWriter, userID string) error {
	token, err := auth.GenerateToken(userID, s.sessionSecret, s.sessionValidity)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.sessionValidity),
		MaxAge:   int(s.sessionValidity.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// revocations remembers logged-out session tokens until they would have
// expired on their own. Entries live in process memory only.
type revocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func (rv *revocations) revoke(token string, until, now time.Time) {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	if rv.tokens == nil {
		rv.tokens = make(map[string]time.Time)
	}
	for t, exp := range rv.tokens {
		if !exp.After(now) {
			delete(rv.tokens, t)
		}
	}
	rv.tokens[token] = until
}

func (rv *revocations) isRevoked(token string, now time.Time) bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	exp, ok := rv.tokens[token]
	return ok && exp.After(now)
}

// endSession revokes the request's session token and clears the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(common.SessionCookieName); err == nil && cookie.Value != "" {
		now := time.Now()
		s.revoked.revoke(cookie.Value, now.Add(s.sessionValidity), now)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// loadSession attaches a Session to the request context when the session
// cookie carries a valid token for an existing user. Anything else leaves
// the request anonymous.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(common.SessionCookieName)
		if err != nil || cookie.Value == "" || s.revoked.isRevoked(cookie.Value, time.Now()) {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := auth.GetUserIDFromToken(cookie.Value, s.sessionSecret)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.accounts.FindByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				s.logger.Error(r.Context(), "loading session user", "user_id", userID, "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, Session{User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// protected adapts a handler that needs a logged-in user. Anonymous
// requests are redirected to the login page.
func (s *Server) protected(h func(http.ResponseWriter, *http.Request, Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFrom(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h(w, r, sess)
	}
}
