package middleware

import (
	"encoding/json"
	"net/http"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/logger"

	"go.uber.org/zap"
)

// Auth resolves the caller from the access token and stores it in the
// request context. Requests without a valid token continue anonymously so
// public routes such as login keep working; RequireRole turns them away
// from protected ones. A stale access_token cookie is cleared.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseJWT(secret, tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Info("ignoring invalid access token", zap.Error(err))
				if c, err := r.Cookie(auth.AccessTokenCookie); err == nil && c.Value == tokenStr {
					http.SetCookie(w, &http.Cookie{
						Name:     auth.AccessTokenCookie,
						Value:    "",
						Path:     "/",
						HttpOnly: true,
						MaxAge:   -1,
					})
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithCaller(r.Context(), auth.Caller{ID: claims.UserID, Email: claims.Email, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects anonymous callers with 401 and callers outside roles
// with 403.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CallerFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
				return
			}

			if _, ok := allowed[caller.Role]; len(allowed) > 0 && !ok {
				writeError(w, http.StatusForbidden, "role not permitted", "FORBIDDEN")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
