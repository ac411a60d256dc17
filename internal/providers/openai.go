package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/crumplecup/botticelli/internal/config"
	"github.com/crumplecup/botticelli/internal/resource"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider implements resource.Provider and resource.StreamingProvider
// against OpenAI's chat completions API.
type OpenAIProvider struct {
	client       *openai.Client
	base         BaseProvider
	defaultModel string
}

// NewOpenAIProvider builds a provider from cfg, reading the API key from the
// environment variable cfg names.
func NewOpenAIProvider(cfg config.OpenAIProviderConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKeyEnv) == "" {
		return nil, errors.New("openai: api_key_env is required")
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: environment variable %q is not set", cfg.APIKeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientCfg),
		base:         NewBaseProvider("openai", cfg.MaxRetries, time.Second),
		defaultModel: model,
	}, nil
}

// Name returns the provider identifier used for narrative routing.
func (p *OpenAIProvider) Name() string { return "openai" }

// Generate sends req as a single (non-streaming) chat completion.
func (p *OpenAIProvider) Generate(ctx context.Context, req resource.GenerateRequest) (resource.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return resource.GenerateResponse{}, err
	}
	model := p.modelFor(req)
	chatReq, err := p.buildRequest(req, model)
	if err != nil {
		return resource.GenerateResponse{}, err
	}

	var resp openai.ChatCompletionResponse
	err = p.base.Retry(ctx, p.isRetryableError, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, chatReq)
		if callErr != nil {
			return p.wrapError(callErr, model)
		}
		return nil
	})
	if err != nil {
		return resource.GenerateResponse{}, err
	}

	return p.convertResponse(resp), nil
}

// GenerateStream streams req over SSE, emitting one GenerateResponse per
// content delta.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, req resource.GenerateRequest) (<-chan resource.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := p.modelFor(req)
	chatReq, err := p.buildRequest(req, model)
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, p.wrapError(err, model)
	}

	out := make(chan resource.GenerateResponse)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				out <- resource.GenerateResponse{Outputs: []resource.Output{
					resource.NewErrorOutput(p.wrapError(err, model).Error()),
				}}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				out <- resource.GenerateResponse{Outputs: []resource.Output{resource.NewTextOutput(content)}}
			}
		}
	}()
	return out, nil
}

func (p *OpenAIProvider) modelFor(req resource.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *OpenAIProvider) buildRequest(req resource.GenerateRequest, model string) (openai.ChatCompletionRequest, error) {
	messages, err := p.convertMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("openai: failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	return chatReq, nil
}

func (p *OpenAIProvider) convertMessages(messages []resource.Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case resource.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case resource.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case resource.RoleTool:
			role = openai.ChatMessageRoleTool
		}

		parts, hasMedia, err := p.convertContent(msg.Content)
		if err != nil {
			return nil, err
		}

		oaiMsg := openai.ChatCompletionMessage{Role: role}
		if hasMedia {
			oaiMsg.MultiContent = parts
		} else {
			oaiMsg.Content = msg.Text()
		}
		result = append(result, oaiMsg)
	}

	return result, nil
}

func (p *OpenAIProvider) convertContent(inputs []resource.Input) ([]openai.ChatMessagePart, bool, error) {
	hasMedia := false
	for _, in := range inputs {
		if in.Kind == resource.InputKindImage {
			hasMedia = true
			break
		}
	}
	if !hasMedia {
		return nil, false, nil
	}

	var parts []openai.ChatMessagePart
	for _, in := range inputs {
		switch in.Kind {
		case resource.InputKindText:
			if in.Text != "" {
				parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: in.Text})
			}
		case resource.InputKindImage:
			url, err := openAIImageURL(in)
			if err != nil {
				return nil, false, err
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto},
			})
		default:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("[%s input omitted: unsupported by this provider]", in.Kind),
			})
		}
	}
	return parts, true, nil
}

func openAIImageURL(in resource.Input) (string, error) {
	switch in.Source.Kind {
	case resource.MediaSourceKindURL:
		return in.Source.URL, nil
	case resource.MediaSourceKindBase64:
		return fmt.Sprintf("data:%s;base64,%s", in.MIME, in.Source.B64), nil
	default:
		return "", fmt.Errorf("openai: image input requires a url or base64 source")
	}
}

func (p *OpenAIProvider) convertResponse(resp openai.ChatCompletionResponse) resource.GenerateResponse {
	var outputs []resource.Output
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message.Content != "" {
			outputs = append(outputs, resource.NewTextOutput(choice.Message.Content))
		}
		for _, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			outputs = append(outputs, resource.NewToolCallOutput(tc.Function.Name, args))
		}
	}

	return resource.GenerateResponse{
		Outputs: outputs,
		Usage: &resource.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

func (p *OpenAIProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Reason.IsRetryable()
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatusCode(apiErr.HTTPStatusCode).IsRetryable()
	}
	return ClassifyError(err).IsRetryable()
}

func (p *OpenAIProvider) wrapError(err error, model string) *ProviderError {
	if err == nil {
		return nil
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		providerErr := (&ProviderError{Provider: "openai", Model: model, Cause: err, Reason: FailoverUnknown}).WithStatus(apiErr.HTTPStatusCode)
		if apiErr.Message != "" {
			providerErr = providerErr.WithMessage(apiErr.Message)
		}
		if apiErr.Code != nil {
			if code, ok := apiErr.Code.(string); ok {
				providerErr = providerErr.WithCode(code)
			}
		}
		return providerErr
	}

	return NewProviderError("openai", model, err)
}
