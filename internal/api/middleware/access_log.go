package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// accessLogEntry is one JSON access log line. DecisionPath and Chunks are
// only present on requests that ran the agent or ingested documents.
type accessLogEntry struct {
	Timestamp    string `json:"ts"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	Status       int    `json:"status"`
	Bytes        int    `json:"bytes"`
	DurationMS   int64  `json:"duration_ms"`
	RequestID    string `json:"request_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	DecisionPath string `json:"decision_path,omitempty"`
	Chunks       *int   `json:"chunks,omitempty"`
	RemoteAddr   string `json:"remote_addr,omitempty"`
}

// AccessLog writes one JSON line per request once the handler returns, so
// the line carries the session and outcome the handler recorded.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		ctx := r.Context()
		entry := accessLogEntry{
			Timestamp:  start.UTC().Format(time.RFC3339Nano),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.code(),
			Bytes:      rec.bytes,
			DurationMS: time.Since(start).Milliseconds(),
			RequestID:  GetRequestID(ctx),
			SessionID:  GetSessionID(ctx),
			RemoteAddr: clientIP(r),
		}
		if outcome, ok := GetOutcome(ctx); ok {
			entry.DecisionPath = outcome.DecisionPath
			entry.Chunks = &outcome.Chunks
		}

		payload, err := json.Marshal(entry)
		if err != nil {
			log.Printf("access_log: failed to encode entry: %v", err)
			return
		}
		log.Println(string(payload))
	})
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
