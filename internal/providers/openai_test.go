package providers

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/crumplecup/botticelli/internal/config"
	"github.com/crumplecup/botticelli/internal/resource"
)

func TestNewOpenAIProvider(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		cfg         config.OpenAIProviderConfig
		expectError bool
	}{
		{
			name:        "missing api_key_env",
			cfg:         config.OpenAIProviderConfig{},
			expectError: true,
		},
		{
			name:        "api_key_env set but unset in environment",
			cfg:         config.OpenAIProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_OPENAI_MISSING"},
			expectError: true,
		},
		{
			name: "valid config with defaults applied",
			env:  map[string]string{"BOTTICELLI_TEST_OPENAI_KEY": "test-key"},
			cfg:  config.OpenAIProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_OPENAI_KEY"},
		},
		{
			name: "custom base URL honored",
			env:  map[string]string{"BOTTICELLI_TEST_OPENAI_KEY": "test-key"},
			cfg:  config.OpenAIProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_OPENAI_KEY", BaseURL: "https://gateway.internal/v1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			provider, err := NewOpenAIProvider(tt.cfg)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.defaultModel == "" {
				t.Error("defaultModel should have a default value")
			}
			if provider.Name() != "openai" {
				t.Errorf("expected name openai, got %s", provider.Name())
			}
		})
	}
}

func newTestOpenAIProvider(t *testing.T) *OpenAIProvider {
	t.Helper()
	t.Setenv("BOTTICELLI_TEST_OPENAI_KEY", "test-key")
	provider, err := NewOpenAIProvider(config.OpenAIProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_OPENAI_KEY"})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return provider
}

func TestOpenAIConvertMessages(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	messages := []resource.Message{
		{Role: resource.RoleSystem, Content: []resource.Input{resource.NewTextInput("You are helpful.")}},
		{Role: resource.RoleUser, Content: []resource.Input{resource.NewTextInput("Hello!")}},
	}

	result, err := provider.convertMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("expected system role preserved, got %s", result[0].Role)
	}
	if result[1].Content != "Hello!" {
		t.Errorf("expected plain text content, got %q", result[1].Content)
	}
}

func TestOpenAIConvertContentWithImage(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	messages := []resource.Message{
		{Role: resource.RoleUser, Content: []resource.Input{
			resource.NewTextInput("what is this?"),
			resource.NewImageInput("image/png", resource.NewURLSource("https://example.com/cat.png")),
		}},
	}

	result, err := provider.convertMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result[0].MultiContent) != 2 {
		t.Fatalf("expected 2 multi-content parts, got %d", len(result[0].MultiContent))
	}
	if result[0].Content != "" {
		t.Error("Content should be empty when MultiContent is used")
	}
}

func TestOpenAIImageURL(t *testing.T) {
	tests := []struct {
		name    string
		in      resource.Input
		wantErr bool
	}{
		{"url source", resource.NewImageInput("image/png", resource.NewURLSource("https://example.com/cat.png")), false},
		{"base64 source", resource.NewImageInput("image/jpeg", resource.NewBase64Source("aGVsbG8=")), false},
		{"binary source unsupported", resource.NewImageInput("image/png", resource.NewBinarySource([]byte("x"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openAIImageURL(tt.in)
			if tt.wantErr && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestWrapOpenAIError(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	apiErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	wrapped := provider.wrapError(apiErr, "gpt-4o")

	providerErr, ok := GetProviderError(wrapped)
	if !ok {
		t.Fatalf("expected ProviderError, got %T", wrapped)
	}
	if providerErr.Status != 429 {
		t.Errorf("expected status 429, got %d", providerErr.Status)
	}
	if providerErr.Reason != FailoverRateLimit {
		t.Errorf("expected reason %v, got %v", FailoverRateLimit, providerErr.Reason)
	}
}

func TestOpenAIIsRetryableError(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	if !provider.isRetryableError(&openai.APIError{HTTPStatusCode: 503}) {
		t.Error("503 should be retryable")
	}
	if provider.isRetryableError(&openai.APIError{HTTPStatusCode: 401}) {
		t.Error("401 should not be retryable")
	}
	if !provider.isRetryableError(errors.New("request timeout")) {
		t.Error("timeout text should be retryable")
	}
}

func TestOpenAIConvertResponse(t *testing.T) {
	provider := newTestOpenAIProvider(t)

	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "hello there"}},
		},
		Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	out := provider.convertResponse(resp)
	if len(out.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(out.Outputs))
	}
	text, ok, err := out.Text(nil)
	if err != nil || !ok {
		t.Fatalf("expected text output, ok=%v err=%v", ok, err)
	}
	if text != "hello there" {
		t.Errorf("expected %q, got %q", "hello there", text)
	}
	if out.Usage.TotalTokens != 15 {
		t.Errorf("expected total tokens 15, got %d", out.Usage.TotalTokens)
	}
}
