package domain

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DecisionPath names the terminal state that produced a turn's answer.
type DecisionPath string

const (
	PathDirect     DecisionPath = "direct"
	PathRejected   DecisionPath = "rejected"
	PathNoContext  DecisionPath = "no_context"
	PathStructured DecisionPath = "structured"
	PathContext    DecisionPath = "context"
	PathFailed     DecisionPath = "failed"
)

// Turn is the outcome of one query through the agent. Every field is
// derived by the agent; none is independently settable by callers.
type Turn struct {
	Answer     string
	Sources    []string
	Chunks     []SearchResult
	Confidence *float64
	Path       DecisionPath
}

// ValidRole reports whether r may be stored in session history.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

// TurnRecord is a turn as stored in the turn log.
type TurnRecord struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id,omitempty"`
	Query      string       `json:"query"`
	Answer     string       `json:"answer"`
	Path       DecisionPath `json:"decision_path"`
	Sources    []string     `json:"sources"`
	Confidence *float64     `json:"confidence"`
	ChunkCount int          `json:"chunk_count"`
	DurationMs int64        `json:"duration_ms"`
	CreatedAt  time.Time    `json:"created_at"`
	// Distance is set only by similarity lookups.
	Distance float64 `json:"distance,omitempty"`
}
