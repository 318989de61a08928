// Package middleware holds the HTTP middleware of the SessionSync API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/turtacn/SessionSync/pkg/types/common"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied IDs.
const maxRequestIDLength = 128

// RequestID propagates the caller's X-Request-ID or assigns a fresh UUID.
// The ID is echoed in the response and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), common.ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

//Personal.AI order the ending
