package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ToolSchema is the declared shape of one registered tool: its name, a
// short description, and its parameter names. It is what prompt assembly
// serializes into the LLM's system message so the model knows what it can
// call and with what arguments.
type ToolSchema struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Parameters  []string `json:"parameters,omitempty"`
}

// ToolRegistry holds the opaque tool executors (C8) a DecisionEngine can
// invoke, and runs them through a bounded worker pool so a slow or wedged
// tool can't stall every concurrent call's turn.
type ToolRegistry struct {
	mu        sync.RWMutex
	executors map[string]ToolExecutor
	schemas   map[string]ToolSchema
	sem       chan struct{}
	timeout   time.Duration
}

// NewToolRegistry builds an empty registry with the given worker pool size
// and per-call timeout.
func NewToolRegistry(poolSize int, timeout time.Duration) *ToolRegistry {
	if poolSize <= 0 {
		poolSize = 8
	}
	return &ToolRegistry{
		executors: make(map[string]ToolExecutor),
		schemas:   make(map[string]ToolSchema),
		sem:       make(chan struct{}, poolSize),
		timeout:   timeout,
	}
}

// Register adds or replaces the executor for name with an empty schema
// (just the name). Prefer RegisterWithSchema when the LLM should see the
// tool's description and parameters.
func (r *ToolRegistry) Register(name string, exec ToolExecutor) {
	r.RegisterWithSchema(ToolSchema{Name: name}, exec)
}

// RegisterWithSchema adds or replaces the executor and schema for
// schema.Name.
func (r *ToolRegistry) RegisterWithSchema(schema ToolSchema, exec ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[schema.Name] = exec
	r.schemas[schema.Name] = schema
}

// Names returns the currently registered tool names, for prompt assembly.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for n := range r.executors {
		names = append(names, n)
	}
	return names
}

// Schemas returns the currently registered tool schemas sorted by name, for
// JSON serialization into the prompt.
func (r *ToolRegistry) Schemas() []ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]ToolSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		schemas = append(schemas, s)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

// Call runs the named tool, blocking until a worker slot is free, the tool
// returns, the per-call timeout elapses, or ctx is cancelled. An unknown
// tool name surfaces as an ErrTool KindedError and a timed-out call as an
// ErrTimeout KindedError.
func (r *ToolRegistry) Call(ctx context.Context, call ToolCall) (ToolResult, error) {
	r.mu.RLock()
	exec, known := r.executors[call.Name]
	r.mu.RUnlock()
	if !known {
		return nil, NewKindedError(ErrTool, fmt.Errorf("unknown tool %q", call.Name))
	}

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, NewKindedError(ErrTimeout, ctx.Err())
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultCh := make(chan ToolResult, 1)
	go func() {
		resultCh <- exec(callCtx, call.Arguments)
	}()

	select {
	case res := <-resultCh:
		return res, nil
	case <-callCtx.Done():
		return nil, NewKindedError(ErrTimeout, fmt.Errorf("tool %q timed out after %s", call.Name, r.timeout))
	}
}
