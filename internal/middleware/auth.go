package middleware

import (
	"context"
	"errors"
	"net/http"

	"tailor-be/internal/apperror"
	"tailor-be/internal/auth"
	"tailor-be/internal/logger"
	"tailor-be/internal/transport"
	"tailor-be/internal/user"
	"tailor-be/internal/utils"

	"go.uber.org/zap"
)

type TokenParser interface {
	ParseAccessToken(token string) (*auth.Claims, error)
}

type IdentityLookup interface {
	LookupIdentity(ctx context.Context, id int64) (utils.Identity, error)
}

// VerifyJWT authenticates the request from the access cookie or Bearer header.
// The identity attached to the context is re-read from storage, never taken from claims.
func VerifyJWT(tokens TokenParser, users IdentityLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := auth.ExtractAccessToken(r)
			if raw == "" {
				transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeTokenMissing, "access token missing"))
				return
			}

			claims, err := tokens.ParseAccessToken(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeTokenExpired, "access token expired"))
					return
				}
				transport.WriteError(w, r, apperror.Forbidden(apperror.CodeTokenInvalid, "invalid access token"))
				return
			}

			identity, err := users.LookupIdentity(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUserNotFound, "user no longer exists"))
					return
				}
				transport.WriteError(w, r, apperror.Internal("failed to load user", err))
				return
			}

			ctx := utils.SetIdentity(r.Context(), identity)
			ctx = logger.WithUserID(ctx, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after VerifyJWT.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := utils.IdentityFrom(r.Context())
		if !ok {
			transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
			return
		}
		if !identity.IsAdmin() {
			logger.FromCtx(r.Context()).Warn("admin route denied", zap.String("path", r.URL.Path))
			transport.WriteError(w, r, apperror.Forbidden(apperror.CodeForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
