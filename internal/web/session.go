package web

import (
	"context"
	"net/http"

	"deskbook/internal/booking"
)

type sessionKey struct{}

// withSession attaches the browser's session, issuing a new cookie when the old one is
// missing or expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.opts.CookieName); err == nil {
			id = c.Value
		}

		sess := s.sessions.GetOrCreate(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     s.opts.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *booking.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*booking.Session)
	return sess
}
