package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// NotFoundAnswer is returned when retrieval finds nothing usable.
const NotFoundAnswer = "Not found in document."

const apologyFormat = "I apologize, but I encountered an error processing your request: %v"

const (
	initialTemperature    float32 = 0.3
	structuredTemperature float32 = 0.2
	contextTemperature    float32 = 0.5
)

// DefaultConfidenceThreshold is the minimum top confidence for retrieved
// context to be used.
const DefaultConfidenceThreshold = 0.35

// NoContextMode selects the answer given when retrieval returns nothing.
type NoContextMode string

const (
	// NoContextFixed answers with NotFoundAnswer.
	NoContextFixed NoContextMode = "fixed"
	// NoContextGenerate asks the model to answer honestly about the gap.
	NoContextGenerate NoContextMode = "generate"
)

// ParseNoContextMode validates a configured mode. Empty means fixed.
func ParseNoContextMode(s string) (NoContextMode, error) {
	switch NoContextMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", NoContextFixed:
		return NoContextFixed, nil
	case NoContextGenerate:
		return NoContextGenerate, nil
	}
	return "", domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("unknown no-context mode %q", s))
}

// DocumentSearcher is the retrieval surface the agent depends on.
type DocumentSearcher interface {
	Retrieve(ctx context.Context, query string, topK int) (*Retrieval, error)
	HasIndexData(ctx context.Context) bool
}

// AgentConfig holds the agent's guardrail settings.
type AgentConfig struct {
	ConfidenceThreshold float64
	TopK                int
	NoContextMode       NoContextMode
}

// Agent answers queries directly or from retrieved documents.
type Agent struct {
	llm      LanguageModelProvider
	searcher DocumentSearcher
	memory   *SessionMemory
	turnLog  TurnLogger
	cfg      AgentConfig
}

// NewAgent creates an Agent. turnLog may be nil.
func NewAgent(llm LanguageModelProvider, searcher DocumentSearcher, memory *SessionMemory, turnLog TurnLogger, cfg AgentConfig) *Agent {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.NoContextMode == "" {
		cfg.NoContextMode = NoContextFixed
	}
	if memory == nil {
		memory = NewSessionMemory(DefaultMaxHistory)
	}
	return &Agent{
		llm:      llm,
		searcher: searcher,
		memory:   memory,
		turnLog:  turnLog,
		cfg:      cfg,
	}
}

// Memory returns the agent's session store.
func (a *Agent) Memory() *SessionMemory {
	return a.memory
}

// ProcessQuery runs one turn. It never returns an error: failures become an
// apologetic answer with no sources, chunks or confidence.
func (a *Agent) ProcessQuery(ctx context.Context, query, sessionID string) domain.Turn {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "Agent.ProcessQuery", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "process_query",
	})
	defer span.End()

	turn, queryEmbedding, err := a.run(ctx, query, sessionID)
	if err != nil {
		log.Printf("agent: error processing query: %v", err)
		span.SetError(err)
		turn = domain.Turn{
			Answer:  fmt.Sprintf(apologyFormat, err),
			Sources: []string{},
			Chunks:  []domain.SearchResult{},
			Path:    domain.PathFailed,
		}
	}
	span.SetTag("decision_path", string(turn.Path))

	a.logTurn(ctx, TurnLogEntry{
		SessionID:      sessionID,
		Query:          query,
		QueryEmbedding: queryEmbedding,
		Answer:         turn.Answer,
		Path:           turn.Path,
		Sources:        turn.Sources,
		Confidence:     turn.Confidence,
		ChunkCount:     len(turn.Chunks),
		Duration:       time.Since(start),
	})
	return turn
}

func (a *Agent) run(ctx context.Context, query, sessionID string) (domain.Turn, []float32, error) {
	turn := domain.Turn{Sources: []string{}, Chunks: []domain.SearchResult{}}

	if strings.TrimSpace(query) == "" {
		return turn, nil, domain.ErrEmptyQuery
	}

	initial, err := a.complete(ctx, a.buildMessages(query, sessionID), initialTemperature)
	if err != nil {
		return turn, nil, err
	}

	// once anything is indexed every query goes through retrieval
	useRetrieval := a.searcher.HasIndexData(ctx) || strings.Contains(initial, toolCallSentinel)

	var queryEmbedding []float32
	if !useRetrieval {
		turn.Answer = initial
		turn.Path = domain.PathDirect
	} else {
		retrieval, err := a.searcher.Retrieve(ctx, query, a.cfg.TopK)
		if err != nil {
			return turn, nil, err
		}
		queryEmbedding = retrieval.QueryEmbedding

		if err := a.answerFromResults(ctx, &turn, query, retrieval.Results); err != nil {
			return turn, queryEmbedding, err
		}
	}

	if sessionID != "" {
		a.memory.Append(sessionID, domain.RoleUser, query)
		a.memory.Append(sessionID, domain.RoleAssistant, turn.Answer)
	}
	return turn, queryEmbedding, nil
}

func (a *Agent) answerFromResults(ctx context.Context, turn *domain.Turn, query string, results []domain.SearchResult) error {
	if len(results) == 0 {
		log.Printf("agent: no relevant documents found")
		answer, err := a.noContextAnswer(ctx, query)
		if err != nil {
			return err
		}
		turn.Answer = answer
		turn.Path = domain.PathNoContext
		return nil
	}

	turn.Chunks = results
	confidence := MaxConfidence(results)
	turn.Confidence = &confidence

	if confidence < a.cfg.ConfidenceThreshold {
		log.Printf("agent: confidence %.3f below threshold %.3f, rejecting context", confidence, a.cfg.ConfidenceThreshold)
		turn.Answer = NotFoundAnswer
		turn.Path = domain.PathRejected
		return nil
	}

	docContext := FormatContext(results)
	turn.Sources = UniqueSources(results)

	structured, err := a.complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: structuredPrompt(docContext, query)},
	}, structuredTemperature)
	if err != nil {
		return err
	}
	if doc, ok := ExtractJSONObject(structured); ok {
		if answer := FormatStructured(doc); answer != "" {
			turn.Answer = answer
			turn.Path = domain.PathStructured
			return nil
		}
	}

	answer, err := a.complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: contextPrompt(docContext, query)},
	}, contextTemperature)
	if err != nil {
		return err
	}
	turn.Answer = answer
	turn.Path = domain.PathContext
	return nil
}

func (a *Agent) noContextAnswer(ctx context.Context, query string) (string, error) {
	if a.cfg.NoContextMode != NoContextGenerate {
		return NotFoundAnswer, nil
	}
	return a.complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: noContextPrompt(query)},
	}, contextTemperature)
}

func (a *Agent) buildMessages(query, sessionID string) []domain.Message {
	messages := []domain.Message{{Role: domain.RoleSystem, Content: systemPrompt}}
	if sessionID != "" {
		messages = append(messages, a.memory.History(sessionID)...)
	}
	return append(messages, domain.Message{Role: domain.RoleUser, Content: query})
}

func (a *Agent) complete(ctx context.Context, messages []domain.Message, temperature float32) (string, error) {
	out, err := a.llm.Complete(ctx, messages, temperature)
	if err != nil {
		return "", domain.NewProviderError("language model", err)
	}
	return out, nil
}

func (a *Agent) logTurn(ctx context.Context, entry TurnLogEntry) {
	if a.turnLog == nil {
		return
	}
	if err := a.turnLog.LogTurn(ctx, entry); err != nil {
		log.Printf("agent: failed to record turn: %v", err)
	}
}
