package llm

import "context"

// ChatRequest is one schema-constrained chat completion call.
type ChatRequest struct {
	System      string
	Prompt      string
	Format      map[string]any
	Temperature float64
}

// ChatResponse is the parsed completion.
type ChatResponse struct {
	Content         string
	Model           string
	TotalDurationNS int64
	PromptEvalCount int
	EvalCount       int
}

// TotalDurationMS returns the generation time in milliseconds.
func (r *ChatResponse) TotalDurationMS() float64 {
	return float64(r.TotalDurationNS) / 1e6
}

// ChatClient is the completion interface the extraction tier depends on.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
