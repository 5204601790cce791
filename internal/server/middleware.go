package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"visitnotes/internal/model"
	"visitnotes/internal/visit"
)

const tokenCookie = "token"

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// requestToken returns the bearer token, a raw Authorization value, or the
// token cookie, in that order.
func requestToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return h
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, err := s.service.Authenticate(token)
		if err != nil {
			if errors.Is(err, visit.ErrUnauthorized) {
				writeMessage(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			s.logger.Error("authenticating request failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Server error")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the user set by authenticate.
func currentUser(r *http.Request) *model.User {
	u, _ := r.Context().Value(userKey).(*model.User)
	return u
}

func currentToken(r *http.Request) string {
	t, _ := r.Context().Value(tokenKey).(string)
	return t
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond).String(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= 500 {
			s.logger.Warn("request failed", args...)
		} else {
			s.logger.Debug("request", args...)
		}
	})
}
