package resource

// OutputKind discriminates the Output sum type.
type OutputKind string

const (
	OutputKindText     OutputKind = "text"
	OutputKindToolCall OutputKind = "tool_call"
	OutputKindError    OutputKind = "error"
)

// ToolCall is the payload of an OutputKindToolCall output.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Output is one element of a GenerateResponse. Closed sum type over
// Text/ToolCall/Error, selected by Kind.
type Output struct {
	Kind     OutputKind
	Text     string
	ToolCall *ToolCall
	Error    string
}

func NewTextOutput(text string) Output { return Output{Kind: OutputKindText, Text: text} }

func NewToolCallOutput(name string, args map[string]any) Output {
	return Output{Kind: OutputKindToolCall, ToolCall: &ToolCall{Name: name, Arguments: args}}
}

func NewErrorOutput(msg string) Output { return Output{Kind: OutputKindError, Error: msg} }

// Usage carries token accounting for a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
