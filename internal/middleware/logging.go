package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"linker/internal/common"
	"linker/internal/logging"
)

// Recoverer turns a panic in a handler into a logged 500 response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logging.WithRequest(RequestIDFromContext(r.Context()), r.Method, r.URL.Path).Errorw(
				"Handler panicked",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			common.RespondError(w, start, nil, "Internal Server Error", http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
