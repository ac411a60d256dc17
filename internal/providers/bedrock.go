package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/crumplecup/botticelli/internal/config"
	"github.com/crumplecup/botticelli/internal/resource"
)

const defaultBedrockModel = "anthropic.claude-3-sonnet-20240229-v1:0"

// BedrockProvider implements resource.Provider and resource.StreamingProvider
// against AWS Bedrock's Converse API, authenticating via the ambient AWS SDK
// credential chain (no key/secret ever lives in a config file).
type BedrockProvider struct {
	client       *bedrockruntime.Client
	base         BaseProvider
	defaultModel string
}

// NewBedrockProvider builds a provider for the Bedrock-hosted model cfg
// names, in cfg.Region (default us-east-1).
func NewBedrockProvider(ctx context.Context, cfg config.BedrockProviderConfig) (*BedrockProvider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	model := cfg.ModelID
	if model == "" {
		model = defaultBedrockModel
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		base:         NewBaseProvider("bedrock", cfg.MaxRetries, time.Second),
		defaultModel: model,
	}, nil
}

// Name returns the provider identifier used for narrative routing.
func (p *BedrockProvider) Name() string { return "bedrock" }

// Generate sends req as a single (non-streaming) Converse call.
func (p *BedrockProvider) Generate(ctx context.Context, req resource.GenerateRequest) (resource.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return resource.GenerateResponse{}, err
	}
	model := p.modelFor(req)
	converseReq, err := p.buildRequest(req, model)
	if err != nil {
		return resource.GenerateResponse{}, err
	}

	var resp *bedrockruntime.ConverseOutput
	err = p.base.Retry(ctx, p.isRetryableError, func() error {
		var callErr error
		resp, callErr = p.client.Converse(ctx, converseReq)
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

// GenerateStream streams req via Bedrock's ConverseStream API.
func (p *BedrockProvider) GenerateStream(ctx context.Context, req resource.GenerateRequest) (<-chan resource.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := p.modelFor(req)
	converseReq, err := p.buildRequest(req, model)
	if err != nil {
		return nil, err
	}

	streamInput := &bedrockruntime.ConverseStreamInput{
		ModelId:         converseReq.ModelId,
		Messages:        converseReq.Messages,
		System:          converseReq.System,
		InferenceConfig: converseReq.InferenceConfig,
	}
	stream, err := p.client.ConverseStream(ctx, streamInput)
	if err != nil {
		return nil, p.wrapError(err, model)
	}

	out := make(chan resource.GenerateResponse)
	go func() {
		defer close(out)
		p.processStream(stream, out, model)
	}()
	return out, nil
}

func (p *BedrockProvider) modelFor(req resource.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *BedrockProvider) buildRequest(req resource.GenerateRequest, model string) (*bedrockruntime.ConverseInput, error) {
	messages, system, err := p.convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to convert messages: %w", err)
	}

	converseReq := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if system != "" {
		converseReq.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	if req.MaxTokens != nil {
		// #nosec G115 -- MaxTokens is validated positive by GenerateRequest.Validate.
		converseReq.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(*req.MaxTokens))}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		if converseReq.InferenceConfig == nil {
			converseReq.InferenceConfig = &types.InferenceConfiguration{}
		}
		converseReq.InferenceConfig.Temperature = aws.Float32(temp)
	}
	return converseReq, nil
}

func (p *BedrockProvider) convertMessages(messages []resource.Message) ([]types.Message, string, error) {
	var result []types.Message
	var system strings.Builder

	for _, msg := range messages {
		if msg.Role == resource.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Text())
			continue
		}

		var content []types.ContentBlock
		for _, in := range msg.Content {
			block, err := p.convertInput(in)
			if err != nil {
				return nil, "", err
			}
			content = append(content, block)
		}
		if len(content) == 0 {
			continue
		}

		role := types.ConversationRoleUser
		if msg.Role == resource.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		result = append(result, types.Message{Role: role, Content: content})
	}

	return result, system.String(), nil
}

func (p *BedrockProvider) convertInput(in resource.Input) (types.ContentBlock, error) {
	switch in.Kind {
	case resource.InputKindText:
		return &types.ContentBlockMemberText{Value: in.Text}, nil
	case resource.InputKindImage:
		format, ok := bedrockImageFormat(in.MIME)
		if !ok {
			return &types.ContentBlockMemberText{Value: fmt.Sprintf("[unsupported image type %s]", in.MIME)}, nil
		}
		if in.Source.Kind != resource.MediaSourceKindBase64 && in.Source.Kind != resource.MediaSourceKindBinary {
			return &types.ContentBlockMemberText{Value: "[image input requires inline bytes for bedrock]"}, nil
		}
		data := in.Source.Binary
		if in.Source.Kind == resource.MediaSourceKindBase64 {
			data = []byte(in.Source.B64)
		}
		return &types.ContentBlockMemberImage{Value: types.ImageBlock{
			Format: format,
			Source: &types.ImageSourceMemberBytes{Value: data},
		}}, nil
	case resource.InputKindBotCommand, resource.InputKindAudio, resource.InputKindVideo, resource.InputKindDocument:
		return &types.ContentBlockMemberText{Value: fmt.Sprintf("[%s input omitted: unsupported by this provider]", in.Kind)}, nil
	default:
		return nil, fmt.Errorf("bedrock: unsupported input kind %q", in.Kind)
	}
}

func bedrockImageFormat(mime string) (types.ImageFormat, bool) {
	switch strings.ToLower(mime) {
	case "image/png":
		return types.ImageFormatPng, true
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg, true
	case "image/gif":
		return types.ImageFormatGif, true
	case "image/webp":
		return types.ImageFormatWebp, true
	default:
		return "", false
	}
}

func (p *BedrockProvider) convertResponse(resp *bedrockruntime.ConverseOutput) resource.GenerateResponse {
	var outputs []resource.Output

	if msgOutput, ok := resp.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msgOutput.Value.Content {
			switch b := block.(type) {
			case *types.ContentBlockMemberText:
				outputs = append(outputs, resource.NewTextOutput(b.Value))
			case *types.ContentBlockMemberToolUse:
				args := bedrockDocumentToMap(b.Value.Input)
				outputs = append(outputs, resource.NewToolCallOutput(aws.ToString(b.Value.Name), args))
			}
		}
	}

	usage := &resource.Usage{}
	if resp.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(resp.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(resp.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(resp.Usage.TotalTokens))
	}

	return resource.GenerateResponse{Outputs: outputs, Usage: usage}
}

func bedrockDocumentToMap(doc document.Interface) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	raw, err := doc.MarshalSmithyDocument()
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func (p *BedrockProvider) processStream(stream *bedrockruntime.ConverseStreamOutput, out chan<- resource.GenerateResponse, model string) {
	eventStream := stream.GetStream()
	defer eventStream.Close()

	var inputTokens, outputTokens int32

	for event := range eventStream.Events() {
		switch ev := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			if textDelta, ok := ev.Value.Delta.(*types.ContentBlockDeltaMemberText); ok && textDelta.Value != "" {
				out <- resource.GenerateResponse{Outputs: []resource.Output{resource.NewTextOutput(textDelta.Value)}}
			}
		case *types.ConverseStreamOutputMemberMetadata:
			if ev.Value.Usage != nil {
				inputTokens = aws.ToInt32(ev.Value.Usage.InputTokens)
				outputTokens = aws.ToInt32(ev.Value.Usage.OutputTokens)
			}
		case *types.ConverseStreamOutputMemberMessageStop:
			// Final usage, if any, arrives in a following metadata event.
		}
	}

	if err := eventStream.Err(); err != nil {
		out <- resource.GenerateResponse{Outputs: []resource.Output{
			resource.NewErrorOutput(p.wrapError(err, model).Error()),
		}}
		return
	}

	out <- resource.GenerateResponse{Usage: &resource.Usage{
		PromptTokens:     int(inputTokens),
		CompletionTokens: int(outputTokens),
		TotalTokens:      int(inputTokens + outputTokens),
	}}
}

func (p *BedrockProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Reason.IsRetryable()
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "ThrottlingException") ||
		strings.Contains(errMsg, "TooManyRequestsException") ||
		strings.Contains(errMsg, "ServiceUnavailableException") {
		return true
	}
	return ClassifyError(err).IsRetryable()
}

func (p *BedrockProvider) wrapError(err error, model string) *ProviderError {
	if err == nil {
		return nil
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr
	}
	return NewProviderError("bedrock", model, err)
}
