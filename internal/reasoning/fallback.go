package reasoning

import (
	"context"

	"go.uber.org/zap"
)

// Result is the outcome of one reasoning invocation. Success reports
// whether any provider produced a completion; callers are expected to
// substitute conservative defaults when it is false rather than abort.
type Result struct {
	Provider   string
	Success    bool
	Text       string
	TokensUsed int
	Err        error
}

// Invoker is what the pipeline stages depend on. It never propagates
// provider errors as Go errors: degraded providers surface as a Result
// with Success=false.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, maxTokens int) Result
}

// FallbackClient tries each configured provider in order and returns the
// first completion. All providers failing yields a failed Result carrying
// the last error.
type FallbackClient struct {
	clients []Client
	logger  *zap.Logger
}

// NewFallbackClient builds a fallback chain over the given providers, in
// priority order.
func NewFallbackClient(logger *zap.Logger, clients ...Client) *FallbackClient {
	return &FallbackClient{
		clients: clients,
		logger:  logger,
	}
}

// Invoke runs the prompt through the provider chain.
func (f *FallbackClient) Invoke(ctx context.Context, prompt string, maxTokens int) Result {
	var lastErr error
	for _, client := range f.clients {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		text, tokens, err := client.Generate(ctx, prompt, maxTokens)
		if err != nil {
			f.logger.Warn("reasoning provider failed, trying next",
				zap.String("provider", client.Name()),
				zap.Error(err))
			lastErr = err
			continue
		}
		return Result{
			Provider:   client.Name(),
			Success:    true,
			Text:       text,
			TokensUsed: tokens,
		}
	}

	f.logger.Error("all reasoning providers failed", zap.Error(lastErr))
	return Result{Success: false, Err: lastErr}
}
