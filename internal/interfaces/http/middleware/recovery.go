package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

// Recovery turns a handler panic into a masked 500 and logs the stack.
// http.ErrAbortHandler is re-raised so the server aborts the response.
func Recovery(logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("http panic recovered",
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.String("request_id", common.RequestIDFromContext(r.Context())),
					logging.String("panic", fmt.Sprintf("%v", rec)),
					logging.String("stack", string(debug.Stack())))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(common.ErrorDetail{
					Code:    errors.ErrCodeInternal.String(),
					Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

//Personal.AI order the ending
