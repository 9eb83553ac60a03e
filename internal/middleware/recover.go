package middleware

import (
	"net/http"
	"runtime/debug"

	"tailor-be/internal/apperror"
	"tailor-be/internal/logger"
	"tailor-be/internal/transport"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a generic 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil || rec == http.ErrAbortHandler {
				if rec != nil {
					panic(rec)
				}
				return
			}

			logger.FromCtx(r.Context()).Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()),
			)
			transport.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"message": "internal server error",
				"code":    apperror.CodeInternal,
			})
		}()

		next.ServeHTTP(w, r)
	})
}
