// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

type contextKey string

const requestInfoKey contextKey = "request_info"

// requestInfo is filled in as the request moves through the stack so that
// outer middleware can report what inner handlers learned.
type requestInfo struct {
	mu        sync.Mutex
	id        string
	sessionID string
	outcome   *Outcome
}

// Outcome is what a question-answering or ingest request did: the agent's
// decision path, if any, and how many chunks it retrieved or added.
type Outcome struct {
	DecisionPath string
	Chunks       int
}

// RequestID injects a request ID into context and response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestInfoKey, &requestInfo{id: requestID})
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from context.
func GetRequestID(ctx context.Context) string {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok {
		return ""
	}
	return info.id
}

// SetSessionID records the conversation session a request belongs to.
// It is a no-op outside RequestID.
func SetSessionID(ctx context.Context, sessionID string) {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok {
		return
	}
	info.mu.Lock()
	info.sessionID = sessionID
	info.mu.Unlock()
}

// GetSessionID returns the session recorded by SetSessionID.
func GetSessionID(ctx context.Context) string {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.sessionID
}

// SetOutcome records what the request did for the access log and trace.
// It is a no-op outside RequestID.
func SetOutcome(ctx context.Context, outcome Outcome) {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok {
		return
	}
	info.mu.Lock()
	info.outcome = &outcome
	info.mu.Unlock()
}

// GetOutcome returns the outcome recorded by SetOutcome.
func GetOutcome(ctx context.Context) (Outcome, bool) {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok {
		return Outcome{}, false
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	if info.outcome == nil {
		return Outcome{}, false
	}
	return *info.outcome, true
}
