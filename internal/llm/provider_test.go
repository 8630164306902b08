package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Prompt: "first"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` || resp1.Usage.InputTokens != 10 || resp1.Model != "mock" {
		t.Fatalf("unexpected first response: %+v", resp1)
	}

	resp2, err := mock.Generate(context.Background(), Request{Prompt: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}
	if mock.CallCount() != 2 || mock.Calls[1].Prompt != "second" {
		t.Fatalf("calls not recorded: %+v", mock.Calls)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestMockProvider_CannedError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Status: 429, Err: errors.New("slow down")}})
	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) || unavail.Status != 429 {
		t.Fatalf("expected ErrProviderUnavailable with status 429, got %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ErrProviderUnavailable{}, "LLM provider unavailable"},
		{&ErrProviderUnavailable{Err: errors.New("dial tcp: refused")}, "LLM provider unavailable: dial tcp: refused"},
		{&ErrProviderUnavailable{Status: 503, Err: errors.New("overloaded")}, "LLM provider unavailable (HTTP 503): overloaded"},
		{truncated(json.RawMessage(`{"questions": [`)), "invalid LLM response: response truncated at max tokens"},
		{noContent("Gemini"), "invalid LLM response: no text content in Gemini response"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	if !errors.Is(truncated(nil), ErrTruncated) {
		t.Error("truncated reply does not match ErrTruncated")
	}
}

func TestDemoProvider_MatchesSchemas(t *testing.T) {
	demo := NewDemoProvider()
	ctx := context.Background()

	resp, err := demo.Generate(ctx, Request{Schema: QuestionSetSchema})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := validateResponse(QuestionSetSchema, resp.Content); err != nil {
		t.Errorf("demo questions do not match schema: %v", err)
	}

	resp, err = demo.Generate(ctx, Request{Schema: EvaluationSchema})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if err := validateResponse(EvaluationSchema, resp.Content); err != nil {
		t.Errorf("demo evaluation does not match schema: %v", err)
	}
}

func TestPurposeContext(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Errorf("PurposeFrom(empty) = %q", got)
	}
	ctx := WithPurpose(context.Background(), PurposeEvaluate)
	if got := PurposeFrom(ctx); got != PurposeEvaluate {
		t.Errorf("PurposeFrom = %q", got)
	}
}

func TestLoggingProviderPassesThrough(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
		MockResponse{Err: &ErrProviderUnavailable{}},
	)
	p := WithLogging(mock)
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}

	ctx := WithPurpose(context.Background(), PurposeGenerate)
	if _, err := p.Generate(ctx, Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	resp, err := p.Generate(ctx, Request{})
	if err == nil || resp != nil {
		t.Fatalf("second call = %v, %v", resp, err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("CallCount = %d", mock.CallCount())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini with key", Config{Provider: ProviderGemini, APIKey: "k"}, false},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"openai with base url only", Config{Provider: ProviderOpenAI, BaseURL: "http://localhost:11434/v1"}, false},
		{"openai with nothing", Config{Provider: ProviderOpenAI}, true},
		{"mock", Config{Provider: ProviderMock}, false},
		{"unknown", Config{Provider: "watson"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("NewProvider(mock): %v", err)
	}
	if _, ok := p.(*LoggingProvider); !ok {
		t.Errorf("provider not wrapped with logging: %T", p)
	}

	p, err = NewProvider(ctx, Config{Provider: ProviderOpenAI, BaseURL: "http://localhost:11434/v1", Model: "llama3.2"})
	if err != nil {
		t.Fatalf("NewProvider(openai): %v", err)
	}
	if p.ModelID() != "llama3.2" {
		t.Errorf("ModelID = %q", p.ModelID())
	}

	p, err = NewProvider(ctx, Config{Provider: ProviderAnthropic, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProvider(anthropic): %v", err)
	}
	if p.ModelID() != anthropicModels["claude-haiku"] {
		t.Errorf("default anthropic model = %q", p.ModelID())
	}

	if _, err := NewProvider(ctx, Config{Provider: ProviderGemini}); err == nil {
		t.Error("expected error for gemini without key")
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		input    string
		models   map[string]string
		expected string
	}{
		{"gemini-flash", geminiModels, "gemini-2.5-flash"},
		{"gemini-2.5-pro", geminiModels, "gemini-2.5-pro"},
		{"gpt-4o-mini", openaiModels, "gpt-4o-mini"},
		{"claude-sonnet", anthropicModels, "claude-sonnet-4-5"},
		{"qwen2.5:7b", openaiModels, "qwen2.5:7b"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, tt.models); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
