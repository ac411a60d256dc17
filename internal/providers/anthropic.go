package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/crumplecup/botticelli/internal/config"
	"github.com/crumplecup/botticelli/internal/resource"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider implements resource.Provider and resource.StreamingProvider
// against Anthropic's Messages API.
type AnthropicProvider struct {
	client       anthropic.Client
	base         BaseProvider
	defaultModel string
}

// NewAnthropicProvider builds a provider from cfg, reading the API key from
// the environment variable cfg names (never from the config file itself).
func NewAnthropicProvider(cfg config.AnthropicProviderConfig) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKeyEnv) == "" {
		return nil, errors.New("anthropic: api_key_env is required")
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic: environment variable %q is not set", cfg.APIKeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicProvider{
		client:       client,
		base:         NewBaseProvider("anthropic", cfg.MaxRetries, time.Second),
		defaultModel: model,
	}, nil
}

// Name returns the provider identifier used for narrative routing.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate sends req as a single (non-streaming) Messages call.
func (p *AnthropicProvider) Generate(ctx context.Context, req resource.GenerateRequest) (resource.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return resource.GenerateResponse{}, err
	}
	model := p.modelFor(req)
	params, err := p.buildParams(req, model)
	if err != nil {
		return resource.GenerateResponse{}, err
	}

	var message *anthropic.Message
	err = p.base.Retry(ctx, p.isRetryableError, func() error {
		var callErr error
		message, callErr = p.client.Messages.New(ctx, params)
		if callErr != nil {
			return p.wrapError(callErr, model)
		}
		return nil
	})
	if err != nil {
		return resource.GenerateResponse{}, err
	}

	return p.convertMessage(message), nil
}

// GenerateStream streams req via Server-Sent Events, emitting one
// GenerateResponse per text delta and a final response carrying usage.
func (p *AnthropicProvider) GenerateStream(ctx context.Context, req resource.GenerateRequest) (<-chan resource.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := p.modelFor(req)
	params, err := p.buildParams(req, model)
	if err != nil {
		return nil, err
	}

	out := make(chan resource.GenerateResponse)
	go func() {
		defer close(out)
		stream := p.client.Messages.NewStreaming(ctx, params)
		p.processStream(stream, out, model)
	}()
	return out, nil
}

func (p *AnthropicProvider) modelFor(req resource.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *AnthropicProvider) buildParams(req resource.GenerateRequest, model string) (anthropic.MessageNewParams, error) {
	messages, system, err := p.convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic: failed to convert messages: %w", err)
	}

	maxTokens := int64(4096)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params, nil
}

// convertMessages converts botticelli's Message/Input model to Anthropic's
// MessageParam array, hoisting any RoleSystem messages into a single system
// prompt string since Anthropic carries system text outside the transcript.
func (p *AnthropicProvider) convertMessages(messages []resource.Message) ([]anthropic.MessageParam, string, error) {
	var result []anthropic.MessageParam
	var system strings.Builder

	for _, msg := range messages {
		if msg.Role == resource.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Text())
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, in := range msg.Content {
			block, err := p.convertInput(in)
			if err != nil {
				return nil, "", err
			}
			blocks = append(blocks, block)
		}

		if msg.Role == resource.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		} else {
			// User and tool roles both map onto Anthropic's user turn.
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result, system.String(), nil
}

func (p *AnthropicProvider) convertInput(in resource.Input) (anthropic.ContentBlockParamUnion, error) {
	switch in.Kind {
	case resource.InputKindText:
		return anthropic.NewTextBlock(in.Text), nil
	case resource.InputKindImage:
		mediaType, ok := anthropicImageMediaType(in.MIME)
		if !ok {
			return anthropic.NewTextBlock(fmt.Sprintf("[unsupported image type %s]", in.MIME)), nil
		}
		switch in.Source.Kind {
		case resource.MediaSourceKindURL:
			return anthropic.ContentBlockParamUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{OfURL: &anthropic.URLImageSourceParam{URL: in.Source.URL}},
				},
			}, nil
		case resource.MediaSourceKindBase64:
			return anthropic.ContentBlockParamUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{OfBase64: &anthropic.Base64ImageSourceParam{Data: in.Source.B64, MediaType: mediaType}},
				},
			}, nil
		default:
			return anthropic.NewTextBlock("[image input requires a url or base64 source]"), nil
		}
	case resource.InputKindBotCommand, resource.InputKindAudio, resource.InputKindVideo, resource.InputKindDocument:
		return anthropic.NewTextBlock(fmt.Sprintf("[%s input omitted: unsupported by this provider]", in.Kind)), nil
	default:
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("anthropic: unsupported input kind %q", in.Kind)
	}
}

func anthropicImageMediaType(mime string) (anthropic.Base64ImageSourceMediaType, bool) {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return anthropic.Base64ImageSourceMediaTypeImageJPEG, true
	case "image/png":
		return anthropic.Base64ImageSourceMediaTypeImagePNG, true
	case "image/gif":
		return anthropic.Base64ImageSourceMediaTypeImageGIF, true
	case "image/webp":
		return anthropic.Base64ImageSourceMediaTypeImageWebP, true
	default:
		return "", false
	}
}

func (p *AnthropicProvider) convertMessage(message *anthropic.Message) resource.GenerateResponse {
	var outputs []resource.Output
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text := block.AsText()
			outputs = append(outputs, resource.NewTextOutput(text.Text))
		case "tool_use":
			toolUse := block.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal([]byte(toolUse.Input), &args); err != nil {
				args = map[string]any{}
			}
			outputs = append(outputs, resource.NewToolCallOutput(toolUse.Name, args))
		}
	}

	return resource.GenerateResponse{
		Outputs: outputs,
		Usage: &resource.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}
}

// maxEmptyStreamEvents bounds how many consecutive content-free SSE events
// processStream tolerates before treating the stream as malformed.
const maxEmptyStreamEvents = 300

func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- resource.GenerateResponse, model string) {
	var inputTokens, outputTokens int64
	emptyEvents := 0

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			if ms.Message.Usage.InputTokens > 0 {
				inputTokens = ms.Message.Usage.InputTokens
			}
			processed = true

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			if delta.Type == "text_delta" && delta.Text != "" {
				out <- resource.GenerateResponse{Outputs: []resource.Output{resource.NewTextOutput(delta.Text)}}
				processed = true
			}

		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				outputTokens = md.Usage.OutputTokens
			}
			processed = true

		case "message_stop":
			out <- resource.GenerateResponse{
				Usage: &resource.Usage{
					PromptTokens:     int(inputTokens),
					CompletionTokens: int(outputTokens),
					TotalTokens:      int(inputTokens + outputTokens),
				},
			}
			return

		case "error":
			out <- resource.GenerateResponse{Outputs: []resource.Output{
				resource.NewErrorOutput(p.wrapError(errors.New("anthropic stream error"), model).Error()),
			}}
			return
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents {
				out <- resource.GenerateResponse{Outputs: []resource.Output{
					resource.NewErrorOutput(fmt.Sprintf("anthropic: stream appears malformed after %d empty events", emptyEvents)),
				}}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		out <- resource.GenerateResponse{Outputs: []resource.Output{
			resource.NewErrorOutput(p.wrapError(err, model).Error()),
		}}
	}
}

func (p *AnthropicProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Reason.IsRetryable()
	}
	return ClassifyError(err).IsRetryable()
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *AnthropicProvider) wrapError(err error, model string) *ProviderError {
	if err == nil {
		return nil
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		providerErr := (&ProviderError{Provider: "anthropic", Model: model, Cause: err, Reason: FailoverUnknown}).WithStatus(apiErr.StatusCode)

		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				if payload.Error.Message != "" {
					providerErr = providerErr.WithMessage(payload.Error.Message)
				}
				if payload.Error.Type != "" {
					providerErr = providerErr.WithCode(payload.Error.Type)
				}
				if payload.RequestID != "" {
					providerErr = providerErr.WithRequestID(payload.RequestID)
				}
			}
		}
		if providerErr.Message == "" {
			providerErr.Message = "anthropic request failed"
		}
		return providerErr
	}

	return NewProviderError("anthropic", model, err)
}
