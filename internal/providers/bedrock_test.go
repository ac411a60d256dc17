package providers

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/crumplecup/botticelli/internal/resource"
)

func TestBedrockImageFormat(t *testing.T) {
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
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			_, ok := bedrockImageFormat(tt.mime)
			if ok != tt.ok {
				t.Errorf("bedrockImageFormat(%q) ok = %v, want %v", tt.mime, ok, tt.ok)
			}
		})
	}
}

func newTestBedrockProvider() *BedrockProvider {
	return &BedrockProvider{
		base:         NewBaseProvider("bedrock", 3, 0),
		defaultModel: defaultBedrockModel,
	}
}

func TestBedrockModelFor(t *testing.T) {
	provider := newTestBedrockProvider()

	if got := provider.modelFor(resource.GenerateRequest{}); got != defaultBedrockModel {
		t.Errorf("expected default model %q, got %q", defaultBedrockModel, got)
	}
	if got := provider.modelFor(resource.GenerateRequest{Model: "anthropic.claude-3-haiku-20240307-v1:0"}); got != "anthropic.claude-3-haiku-20240307-v1:0" {
		t.Errorf("expected request model to override default, got %q", got)
	}
}

func TestBedrockConvertMessages(t *testing.T) {
	provider := newTestBedrockProvider()

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
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[1].Role != types.ConversationRoleAssistant {
		t.Errorf("expected assistant role preserved, got %v", result[1].Role)
	}
}

func TestBedrockConvertInputImageRequiresInlineBytes(t *testing.T) {
	provider := newTestBedrockProvider()

	block, err := provider.convertInput(resource.NewImageInput("image/png", resource.NewURLSource("https://example.com/cat.png")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	textBlock, ok := block.(*types.ContentBlockMemberText)
	if !ok {
		t.Fatalf("expected a text placeholder for a URL image source, got %T", block)
	}
	if textBlock.Value == "" {
		t.Error("expected a non-empty placeholder message")
	}
}

func TestBedrockConvertInputImageWithInlineBytes(t *testing.T) {
	provider := newTestBedrockProvider()

	block, err := provider.convertInput(resource.NewImageInput("image/jpeg", resource.NewBase64Source("aGVsbG8=")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := block.(*types.ContentBlockMemberImage); !ok {
		t.Fatalf("expected an image block, got %T", block)
	}
}

func TestBedrockConvertInputUnsupportedKindPlaceholder(t *testing.T) {
	provider := newTestBedrockProvider()

	block, err := provider.convertInput(resource.NewBotCommandInput(resource.BotCommand{Platform: "slack", Command: "/status"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := block.(*types.ContentBlockMemberText); !ok {
		t.Fatalf("expected a text placeholder, got %T", block)
	}
}

func TestBedrockConvertResponse(t *testing.T) {
	provider := newTestBedrockProvider()

	out := provider.convertResponse(buildConverseOutput("hello there", 10, 5, 15))
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

func TestBedrockIsRetryableError(t *testing.T) {
	provider := newTestBedrockProvider()

	if !provider.isRetryableError(errors.New("ThrottlingException: rate exceeded")) {
		t.Error("ThrottlingException should be retryable")
	}
	if !provider.isRetryableError(errors.New("request timeout")) {
		t.Error("timeout text should be retryable")
	}
	if provider.isRetryableError(errors.New("ValidationException: bad input")) {
		t.Error("validation errors should not be retryable")
	}
}

func TestBedrockDocumentToMapNil(t *testing.T) {
	if got := bedrockDocumentToMap(nil); len(got) != 0 {
		t.Errorf("expected empty map for nil document, got %v", got)
	}
}

func buildConverseOutput(text string, promptTokens, completionTokens, totalTokens int32) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: text},
				},
			},
		},
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(promptTokens),
			OutputTokens: aws.Int32(completionTokens),
			TotalTokens:  aws.Int32(totalTokens),
		},
	}
}
