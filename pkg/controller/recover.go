package controller

import (
	"fmt"
	"net/http"
	"urlguard/pkg/logger"

	"go.uber.org/zap"
)

// WithRecover returns a middleware that turns a panic in next into a logged
// 500 response. http.ErrAbortHandler is re-panicked, as net/http expects.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler { //nolint: errorlint
				panic(v)
			}

			logger.Error(r.Context(), "handler panicked",
				zap.String("panic", fmt.Sprint(v)),
				zap.Stack("stack"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"INTERNAL","message":"internal error"}`))
		}()

		next.ServeHTTP(w, r)
	})
}
