package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailoverReasonIsRetryable(t *testing.T) {
	tests := []struct {
		reason   FailoverReason
		expected bool
	}{
		{FailoverRateLimit, true},
		{FailoverTimeout, true},
		{FailoverServerError, true},
		{FailoverBilling, false},
		{FailoverAuth, false},
		{FailoverInvalidRequest, false},
		{FailoverModelUnavailable, false},
		{FailoverContentFilter, false},
		{FailoverUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := tt.reason.IsRetryable(); got != tt.expected {
				t.Errorf("FailoverReason(%q).IsRetryable() = %v, want %v", tt.reason, got, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailoverReason
	}{
		{"nil error", nil, FailoverUnknown},
		{"timeout", errors.New("request timeout"), FailoverTimeout},
		{"deadline exceeded", errors.New("context deadline exceeded"), FailoverTimeout},
		{"rate limit", errors.New("rate limit exceeded"), FailoverRateLimit},
		{"too many requests", errors.New("too many requests"), FailoverRateLimit},
		{"429 status", errors.New("HTTP 429"), FailoverRateLimit},
		{"unauthorized", errors.New("unauthorized"), FailoverAuth},
		{"invalid api key", errors.New("invalid api key"), FailoverAuth},
		{"billing", errors.New("billing issue"), FailoverBilling},
		{"quota exceeded", errors.New("quota exceeded"), FailoverBilling},
		{"content filter", errors.New("content_filter triggered"), FailoverContentFilter},
		{"content blocked", errors.New("content blocked by safety"), FailoverContentFilter},
		{"model not found", errors.New("model not found"), FailoverModelUnavailable},
		{"server error", errors.New("internal server error"), FailoverServerError},
		{"500 status", errors.New("HTTP 500"), FailoverServerError},
		{"unknown", errors.New("something went wrong"), FailoverUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewProviderError("anthropic", "claude-3-opus", cause).
		WithStatus(429).
		WithCode("rate_limit_error").
		WithRequestID("req-123")

	if errStr := err.Error(); errStr == "" {
		t.Error("Error() returned empty string")
	}

	if err.Reason != FailoverRateLimit {
		t.Errorf("expected reason %v, got %v", FailoverRateLimit, err.Reason)
	}
	if err.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", err.Provider)
	}
	if err.Model != "claude-3-opus" {
		t.Errorf("expected model claude-3-opus, got %s", err.Model)
	}
	if err.Status != 429 {
		t.Errorf("expected status 429, got %d", err.Status)
	}
	if err.Code != "rate_limit_error" {
		t.Errorf("expected code rate_limit_error, got %s", err.Code)
	}
	if err.RequestID != "req-123" {
		t.Errorf("expected request ID req-123, got %s", err.RequestID)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return cause")
	}
	if !err.Reason.IsRetryable() {
		t.Error("rate limit should be retryable")
	}
}

func TestIsProviderError(t *testing.T) {
	providerErr := NewProviderError("openai", "gpt-4", errors.New("test"))
	regularErr := errors.New("regular error")

	if !IsProviderError(providerErr) {
		t.Error("IsProviderError should return true for ProviderError")
	}
	if IsProviderError(regularErr) {
		t.Error("IsProviderError should return false for regular error")
	}
}

func TestGetProviderError(t *testing.T) {
	providerErr := NewProviderError("openai", "gpt-4", errors.New("test"))

	got, ok := GetProviderError(providerErr)
	if !ok || got != providerErr {
		t.Error("GetProviderError should extract direct ProviderError")
	}

	_, ok = GetProviderError(errors.New("regular"))
	if ok {
		t.Error("GetProviderError should return false for regular error")
	}
}

func TestIsRetryable(t *testing.T) {
	rateLimitErr := NewProviderError("anthropic", "claude", nil).WithStatus(429)
	authErr := NewProviderError("openai", "gpt-4", nil).WithStatus(401)
	timeoutErr := errors.New("timeout exceeded")

	if !IsRetryable(rateLimitErr) {
		t.Error("rate limit error should be retryable")
	}
	if IsRetryable(authErr) {
		t.Error("auth error should not be retryable")
	}
	if !IsRetryable(timeoutErr) {
		t.Error("timeout error should be retryable")
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status   int
		expected FailoverReason
	}{
		{401, FailoverAuth},
		{403, FailoverAuth},
		{402, FailoverBilling},
		{429, FailoverRateLimit},
		{400, FailoverInvalidRequest},
		{404, FailoverModelUnavailable},
		{500, FailoverServerError},
		{502, FailoverServerError},
		{503, FailoverServerError},
		{200, FailoverUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			if got := classifyStatusCode(tt.status); got != tt.expected {
				t.Errorf("classifyStatusCode(%d) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestClassifyErrorCode(t *testing.T) {
	tests := []struct {
		code     string
		expected FailoverReason
	}{
		{"rate_limit_error", FailoverRateLimit},
		{"authentication_error", FailoverAuth},
		{"billing_error", FailoverBilling},
		{"model_not_found", FailoverModelUnavailable},
		{"content_policy_violation", FailoverContentFilter},
		{"server_error", FailoverServerError},
		{"invalid_request_error", FailoverInvalidRequest},
		{"something_else", FailoverUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := classifyErrorCode(tt.code); got != tt.expected {
				t.Errorf("classifyErrorCode(%q) = %v, want %v", tt.code, got, tt.expected)
			}
		})
	}
}
