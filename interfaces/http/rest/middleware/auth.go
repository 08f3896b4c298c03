package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"orgmap/pkg/auth"
	"orgmap/pkg/common"
	pkgerrors "orgmap/pkg/errors"
)

// Authenticate validates the bearer token and stores the caller in the
// request context.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				errs.HandleStatus(w, r, http.StatusUnauthorized, "Missing authorization header")
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				errs.HandleStatus(w, r, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Rejected API token", zap.Error(err))
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errs.HandleStatus(w, r, http.StatusUnauthorized, "Token has expired")
				default:
					errs.HandleStatus(w, r, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			ctx := common.WithEditor(r.Context(), common.Editor{ID: claims.Subject, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit rejects clients over their per-minute budget with 429
func RateLimit(limiter *auth.IPRateLimiter, errs *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err == nil && !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				errs.Handle(w, r, pkgerrors.NewRateLimitError(limiter.Limit(), "minute"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on chi's RealIP having rewritten RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
