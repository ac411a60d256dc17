package resource

import "context"

// Provider is the generation capability the executor depends on. Concrete
// implementations (Anthropic, OpenAI, Bedrock) wrap a vendor SDK; the
// executor is oblivious to which one it holds.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// StreamingProvider is the optional streaming half of the Provider
// interface. A Provider that does not support streaming simply does not
// implement it; callers type-assert for it.
type StreamingProvider interface {
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan GenerateResponse, error)
}
