package providers

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/crumplecup/botticelli/internal/config"
	"github.com/crumplecup/botticelli/internal/resource"
)

func TestNewAnthropicProvider(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		cfg         config.AnthropicProviderConfig
		expectError bool
	}{
		{
			name:        "missing api_key_env",
			cfg:         config.AnthropicProviderConfig{},
			expectError: true,
		},
		{
			name:        "api_key_env set but unset in environment",
			cfg:         config.AnthropicProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_ANTHROPIC_MISSING"},
			expectError: true,
		},
		{
			name: "valid config with defaults applied",
			env:  map[string]string{"BOTTICELLI_TEST_ANTHROPIC_KEY": "test-key"},
			cfg:  config.AnthropicProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_ANTHROPIC_KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			provider, err := NewAnthropicProvider(tt.cfg)
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
			if provider.Name() != "anthropic" {
				t.Errorf("expected name anthropic, got %s", provider.Name())
			}
		})
	}
}

func newTestAnthropicProvider(t *testing.T) *AnthropicProvider {
	t.Helper()
	t.Setenv("BOTTICELLI_TEST_ANTHROPIC_KEY", "test-key")
	provider, err := NewAnthropicProvider(config.AnthropicProviderConfig{APIKeyEnv: "BOTTICELLI_TEST_ANTHROPIC_KEY"})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return provider
}

func TestAnthropicConvertMessages(t *testing.T) {
	provider := newTestAnthropicProvider(t)

	messages := []resource.Message{
		{Role: resource.RoleSystem, Content: []resource.Input{resource.NewTextInput("You are helpful.")}},
		{Role: resource.RoleUser, Content: []resource.Input{resource.NewTextInput("Hello!")}},
		{Role: resource.RoleAssistant, Content: []resource.Input{resource.NewTextInput("Hi there!")}},
	}

	result, system, err := provider.convertMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "You are helpful." {
		t.Errorf("expected system prompt hoisted, got %q", system)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 messages (system hoisted out), got %d", len(result))
	}
}

func TestAnthropicConvertInput(t *testing.T) {
	provider := newTestAnthropicProvider(t)

	tests := []struct {
		name string
		in   resource.Input
	}{
		{"text", resource.NewTextInput("hello")},
		{"image url", resource.NewImageInput("image/png", resource.NewURLSource("https://example.com/cat.png"))},
		{"image base64", resource.NewImageInput("image/jpeg", resource.NewBase64Source("aGVsbG8="))},
		{"unsupported mime falls back to placeholder text", resource.NewImageInput("image/bmp", resource.NewURLSource("https://example.com/x.bmp"))},
		{"bot command becomes placeholder text", resource.NewBotCommandInput(resource.BotCommand{Platform: "slack", Command: "/status"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := provider.convertInput(tt.in); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAnthropicImageMediaType(t *testing.T) {
	tests := []struct {
		mime string
		ok   bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"image/jpg", true},
		{"image/gif", true},
		{"image/webp", true},
		{"image/bmp", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			_, ok := anthropicImageMediaType(tt.mime)
			if ok != tt.ok {
				t.Errorf("anthropicImageMediaType(%q) ok = %v, want %v", tt.mime, ok, tt.ok)
			}
		})
	}
}

func TestWrapAnthropicError(t *testing.T) {
	provider := newTestAnthropicProvider(t)

	apiErr := &anthropic.Error{StatusCode: 429}
	wrapped := provider.wrapError(apiErr, "claude-sonnet-4")

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

func TestWrapAnthropicErrorNonAPIError(t *testing.T) {
	provider := newTestAnthropicProvider(t)

	wrapped := provider.wrapError(errors.New("request timeout"), "claude-sonnet-4")
	if wrapped.Reason != FailoverTimeout {
		t.Errorf("expected reason %v, got %v", FailoverTimeout, wrapped.Reason)
	}
}

func TestAnthropicIsRetryableError(t *testing.T) {
	provider := newTestAnthropicProvider(t)

	if !provider.isRetryableError(errors.New("rate limit exceeded")) {
		t.Error("rate limit error should be retryable")
	}
	if provider.isRetryableError(errors.New("invalid api key")) {
		t.Error("auth error should not be retryable")
	}
	if provider.isRetryableError(nil) {
		t.Error("nil error should not be retryable")
	}
}

func TestAnthropicModelFor(t *testing.T) {
	provider := newTestAnthropicProvider(t)

	if got := provider.modelFor(resource.GenerateRequest{}); got != provider.defaultModel {
		t.Errorf("expected default model %q, got %q", provider.defaultModel, got)
	}
	if got := provider.modelFor(resource.GenerateRequest{Model: "claude-3-5-haiku-20241022"}); got != "claude-3-5-haiku-20241022" {
		t.Errorf("expected request model to override default, got %q", got)
	}
}
