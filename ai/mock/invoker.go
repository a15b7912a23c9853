package mock

import (
	"context"
	"sync"

	"github.com/poiesic/enrichit/ai"
)

// Invoker is a test double for ai.StructuredInvoker.
// It is safe for concurrent use.
type Invoker struct {
	// InvokeFunc is called by InvokeStructured if set.
	// Its result is still validated against the request schema.
	InvokeFunc func(ctx context.Context, req ai.StructuredRequest) (map[string]any, error)

	mu        sync.Mutex
	responses map[string]map[string]any
	failures  map[string]error
	calls     map[string]int
	requests  []ai.StructuredRequest
}

var _ ai.StructuredInvoker = (*Invoker)(nil)

// NewInvoker creates a mock invoker with default behavior.
// Note: Returns concrete type to allow scripting and call assertions.
func NewInvoker() *Invoker {
	return &Invoker{
		responses: make(map[string]map[string]any),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

// Respond scripts the response for a tool name.
func (m *Invoker) Respond(tool string, out map[string]any) *Invoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[tool] = out
	delete(m.failures, tool)
	return m
}

// Fail scripts an error for a tool name.
func (m *Invoker) Fail(tool string, err error) *Invoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[tool] = err
	return m
}

// InvokeStructured returns the scripted response or error for req.ToolName.
func (m *Invoker) InvokeStructured(ctx context.Context, req ai.StructuredRequest) (map[string]any, error) {
	m.mu.Lock()
	m.calls[req.ToolName]++
	m.requests = append(m.requests, req)
	fn := m.InvokeFunc
	out, scripted := m.responses[req.ToolName]
	failure := m.failures[req.ToolName]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Schema == nil {
		return nil, ai.ErrInvalidRequest
	}

	switch {
	case fn != nil:
		var err error
		out, err = fn(ctx, req)
		if err != nil {
			return nil, err
		}
	case failure != nil:
		return nil, failure
	case !scripted:
		out = defaultResponse(req.Schema)
	}
	return req.Schema.Validate(out)
}

// CallCount returns the number of calls for a tool name, or all calls when tool is "".
func (m *Invoker) CallCount(tool string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tool != "" {
		return m.calls[tool]
	}
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Requests returns a copy of every request received.
func (m *Invoker) Requests() []ai.StructuredRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.StructuredRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears call counts, scripts and custom functions.
func (m *Invoker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvokeFunc = nil
	m.responses = make(map[string]map[string]any)
	m.failures = make(map[string]error)
	m.calls = make(map[string]int)
	m.requests = nil
}

func defaultResponse(s *ai.Schema) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case ai.KindString:
			if len(f.Enum) > 0 {
				out[f.Name] = f.Enum[0]
			} else {
				out[f.Name] = ""
			}
		case ai.KindNumber:
			if f.Min != nil {
				out[f.Name] = *f.Min
			} else {
				out[f.Name] = 0.0
			}
		case ai.KindBool:
			out[f.Name] = false
		case ai.KindStringList:
			out[f.Name] = []string{}
		}
	}
	return out
}
