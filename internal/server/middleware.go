package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bloodlink/internal"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyEmail  contextKey = "email"
	contextKeyUser   contextKey = "user"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		elapsed := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveEndpointLatency(endpointLabel(r), strconv.Itoa(rw.statusCode), elapsed.Seconds())
		}

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": elapsed.Milliseconds(),
		}).Info("http request")
	})
}

var staticSegments = map[string]bool{
	"confirm": true, "nearby": true, "donor": true, "donors": true,
	"notifications": true, "requests": true, "stats": true, "organizations": true,
}

// endpointLabel keeps metric cardinality bounded by dropping ids from the path.
func endpointLabel(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	label := "/" + parts[0]
	if len(parts) > 1 && staticSegments[parts[1]] {
		label += "/" + parts[1]
	}
	return r.Method + " " + label
}

// RequireAuth verifies the Cognito access token from the Authorization header
// or the session cookie and adds the user to the context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, err := s.accessToken(r)
		if err != nil {
			s.logger.WithError(err).Debug("no usable access token")
			s.writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		identity, err := s.verifier.Verify(r.Context(), accessToken)
		if err != nil {
			s.logger.WithError(err).Info("failed to verify access token")
			s.writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyUserID, identity.UserID)
		if identity.Email != "" {
			ctx = context.WithValue(ctx, contextKeyEmail, identity.Email)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"email":   identity.Email,
		}).Debug("authenticated user")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) accessToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errors.New("malformed authorization header")
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return "", fmt.Errorf("no access token cookie: %w", err)
	}

	var accessToken string
	err = s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}

	return accessToken, nil
}

// RequireAdmin must run after RequireAuth.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.userIDFromContext(r.Context())
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := s.users.User(r.Context(), userID)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				s.writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to load user for admin check")
			s.internalServerError(w)
			return
		}

		if !user.HasAdminAccess() {
			s.logger.WithField("user_id", userID).Warn("non-admin user hit admin route")
			s.writeError(w, http.StatusForbidden, "admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
