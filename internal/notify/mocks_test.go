package notify

import (
	"context"
	"fmt"

	"guardian/internal/reasoning"
)

type scriptedInvoker struct {
	responses []string
	failAll   bool
	calls     int
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string, maxTokens int) reasoning.Result {
	s.calls++
	if s.failAll || s.calls > len(s.responses) {
		return reasoning.Result{Success: false, Err: fmt.Errorf("provider down")}
	}
	return reasoning.Result{Provider: "scripted", Success: true, Text: s.responses[s.calls-1]}
}
