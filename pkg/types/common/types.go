// Package common holds small types shared by the HTTP and gRPC surfaces.
package common

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthUp   HealthStatus = "up"
	HealthDown HealthStatus = "down"
)

// HealthChecker is implemented by every dependency that gates readiness.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// ComponentHealth provides health information for a specific component.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message,omitempty"`
}

// Healthy reports whether the component is up.
func (c ComponentHealth) Healthy() bool { return c.Status == HealthUp }

// CheckAll runs every checker concurrently and returns the results ordered
// by name.  It never fails; a checker error is recorded as HealthDown.
func CheckAll(ctx context.Context, checkers ...HealthChecker) []ComponentHealth {
	results := make([]ComponentHealth, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		i, c := i, c
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			results[i] = ComponentHealth{Name: c.Name(), Status: HealthUp, Latency: time.Since(start)}
			if err != nil {
				results[i].Status = HealthDown
				results[i].Message = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].Name < results[b].Name })
	return results
}

// AllHealthy reports whether every component is up.  An empty set is healthy.
func AllHealthy(results []ComponentHealth) bool {
	for _, r := range results {
		if !r.Healthy() {
			return false
		}
	}
	return true
}

// ErrorDetail is the JSON body of every API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Context keys for request context
type ContextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID ContextKey = "request_id"
)

// RequestIDFromContext returns the request ID stored by the HTTP middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

//Personal.AI order the ending
