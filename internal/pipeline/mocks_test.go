package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"guardian/internal/reasoning"
	"guardian/internal/types"
)

// routedInvoker answers prompts by matching the opening line of each
// stage's prompt, so tests stay independent of call ordering.
type routedInvoker struct {
	mu     sync.Mutex
	routes map[string]string
	calls  int
	fail   bool
}

func (r *routedInvoker) Invoke(ctx context.Context, prompt string, maxTokens int) reasoning.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail {
		return reasoning.Result{Success: false, Err: errors.New("provider unavailable")}
	}
	for needle, text := range r.routes {
		if strings.Contains(prompt, needle) {
			return reasoning.Result{Provider: "routed", Success: true, Text: text, TokensUsed: 10}
		}
	}
	return reasoning.Result{Provider: "routed", Success: true, Text: "OK", TokensUsed: 1}
}

func (r *routedInvoker) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingPersister struct {
	mu          sync.Mutex
	assessments []types.ThreatAssessment
	events      []types.EmergencyEvent
	err         error
}

func (p *recordingPersister) PutAssessment(ctx context.Context, ta types.ThreatAssessment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.assessments = append(p.assessments, ta)
	return nil
}

func (p *recordingPersister) PutEvent(ctx context.Context, ev types.EmergencyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type failingDirectory struct{}

func (failingDirectory) ContactsFor(ctx context.Context, userID string) ([]types.TrustedContact, error) {
	return nil, errors.New("directory offline")
}
