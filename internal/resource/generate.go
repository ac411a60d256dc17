package resource

import "fmt"

// Message is one turn of a conversation: a Role and an ordered sequence of
// Input content elements.
type Message struct {
	Role    Role
	Content []Input
}

// Text concatenates every InputKindText element of the message, the
// convention used to render a prior assistant turn back into history.
func (m Message) Text() string {
	out := ""
	for _, in := range m.Content {
		if in.Kind == InputKindText {
			out += in.Text
		}
	}
	return out
}

// GenerateRequest is what the executor hands to a Provider for a single act.
type GenerateRequest struct {
	Messages    []Message
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// Validate enforces the constraints from the data model: temperature in
// [0,2], max_tokens > 0 when set, and at least one message.
func (r GenerateRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("resource: generate request requires at least one message")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("resource: temperature %v out of range [0,2]", *r.Temperature)
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return fmt.Errorf("resource: max_tokens must be > 0, got %d", *r.MaxTokens)
	}
	return nil
}

// GenerateResponse is what a Provider returns for a single GenerateRequest.
type GenerateResponse struct {
	Outputs []Output
	Usage   *Usage
}

// Text concatenates all Text outputs and serializes any ToolCall output as
// JSON text, the convention the executor uses to render an act's response.
// The first Error output short-circuits with its message and ok=false.
func (r GenerateResponse) Text(serializeToolCall func(ToolCall) (string, error)) (string, bool, error) {
	out := ""
	for _, o := range r.Outputs {
		switch o.Kind {
		case OutputKindText:
			out += o.Text
		case OutputKindToolCall:
			if o.ToolCall == nil {
				continue
			}
			s, err := serializeToolCall(*o.ToolCall)
			if err != nil {
				return "", false, err
			}
			out += s
		case OutputKindError:
			return out, false, fmt.Errorf("resource: provider output error: %s", o.Error)
		}
	}
	return out, true, nil
}
