package gemini

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/enrichit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
	last *modelSettings
}

func (f *fakeGenerator) generate(_ context.Context, m *modelSettings, _ string) (*genai.GenerateContentResponse, error) {
	f.last = m
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

var moderationSchema = &ai.Schema{
	Name: "content_moderation",
	Fields: []ai.Field{
		{Name: "is_safe", Kind: ai.KindBool, Required: true},
		{Name: "risk_level", Kind: ai.KindString, Enum: []string{"safe", "low", "medium", "high", "critical"}, Required: true},
		{Name: "flags", Kind: ai.KindStringList, Enum: []string{"spam", "violence"}},
		{Name: "confidence_score", Kind: ai.KindNumber, Min: ai.Bound(0), Max: ai.Bound(1)},
	},
}

func newTestInvoker(gen generator) *Invoker {
	return &Invoker{gen: gen, model: "gemini-test", logger: slog.Default()}
}

func request() ai.StructuredRequest {
	return ai.StructuredRequest{
		ToolName:     "content_moderation",
		SystemPrompt: "You are an expert content moderator.",
		UserPrompt:   "buy now!!!",
		Schema:       moderationSchema,
		Temperature:  0.1,
	}
}

func TestInvokeStructured(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"is_safe": false, "risk_level": "Low",`, ` "flags": ["spam"], "confidence_score": 0.8}`)}

	out, err := newTestInvoker(gen).InvokeStructured(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, false, out["is_safe"])
	assert.Equal(t, "low", out["risk_level"])
	assert.Equal(t, []string{"spam"}, out["flags"])
	assert.Equal(t, 0.8, out["confidence_score"])

	require.NotNil(t, gen.last)
	assert.Equal(t, "gemini-test", gen.last.name)
	assert.Equal(t, "You are an expert content moderator.", gen.last.system)
	assert.InDelta(t, 0.1, gen.last.temperature, 1e-6)
	require.NotNil(t, gen.last.schema)
	assert.Equal(t, genai.TypeObject, gen.last.schema.Type)
	assert.Equal(t, []string{"is_safe", "risk_level"}, gen.last.schema.Required)
}

func TestInvokeStructured_Empty(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		textResponse("  "),
	} {
		_, err := newTestInvoker(&fakeGenerator{resp: resp}).InvokeStructured(context.Background(), request())
		assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	}
}

func TestInvokeStructured_SchemaViolation(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"is_safe": true, "risk_level": "apocalyptic"}`)}

	_, err := newTestInvoker(gen).InvokeStructured(context.Background(), request())
	assert.ErrorIs(t, err, ai.ErrSchemaViolation)
}

func TestInvokeStructured_InvalidRequest(t *testing.T) {
	_, err := newTestInvoker(&fakeGenerator{}).InvokeStructured(context.Background(), ai.StructuredRequest{ToolName: "x"})
	assert.ErrorIs(t, err, ai.ErrInvalidRequest)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		empty     bool
	}{
		{"http rate limit", &googleapi.Error{Code: 429}, true, false},
		{"http unavailable", &googleapi.Error{Code: 503}, true, false},
		{"http bad request", &googleapi.Error{Code: 400}, false, false},
		{"http forbidden", &googleapi.Error{Code: 403}, false, false},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), true, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), true, false},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad"), false, false},
		{"blocked", &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}}, false, true},
		{"plain", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.transient, ai.Transient(got))
			assert.Equal(t, tt.empty, errors.Is(got, ai.ErrEmptyResponse))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestResponseSchema(t *testing.T) {
	s := responseSchema(moderationSchema)

	require.Len(t, s.Properties, 4)
	assert.Equal(t, genai.TypeBoolean, s.Properties["is_safe"].Type)

	risk := s.Properties["risk_level"]
	assert.Equal(t, genai.TypeString, risk.Type)
	assert.Equal(t, "enum", risk.Format)
	assert.Len(t, risk.Enum, 5)

	flags := s.Properties["flags"]
	assert.Equal(t, genai.TypeArray, flags.Type)
	require.NotNil(t, flags.Items)
	assert.Equal(t, []string{"spam", "violence"}, flags.Items.Enum)

	conf := s.Properties["confidence_score"]
	assert.Equal(t, genai.TypeNumber, conf.Type)
	assert.Contains(t, conf.Description, "between 0 and 1")
}

func TestNewProviderRejectsOtherBackends(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.NewConfig(ai.WithAPIKey("k")))
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)

	_, err = NewProvider(context.Background(), ai.NewConfig(ai.WithBackend(ai.BackendGemini)))
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}
