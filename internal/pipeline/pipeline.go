// Package pipeline wires the full reasoning chain: assessment,
// confidence scoring, optional classification, emergency decision, and
// the parallel execution and notification-planning stages.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"guardian/internal/assessment"
	"guardian/internal/classifier"
	"guardian/internal/decision"
	"guardian/internal/executor"
	"guardian/internal/notify"
	"guardian/internal/types"
)

// ContactDirectory resolves a user's trusted contacts.
type ContactDirectory interface {
	ContactsFor(ctx context.Context, userID string) ([]types.TrustedContact, error)
}

// StaticDirectory is an in-memory ContactDirectory.
type StaticDirectory struct {
	mu       sync.RWMutex
	contacts map[string][]types.TrustedContact
}

// NewStaticDirectory creates an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{contacts: make(map[string][]types.TrustedContact)}
}

// Set replaces a user's contacts.
func (d *StaticDirectory) Set(userID string, contacts []types.TrustedContact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[userID] = contacts
}

// ContactsFor returns a user's contacts; unknown users have none.
func (d *StaticDirectory) ContactsFor(ctx context.Context, userID string) ([]types.TrustedContact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.contacts[userID], nil
}

// Persister stores pipeline outputs. Persistence is best-effort and
// never blocks or fails a run.
type Persister interface {
	PutAssessment(ctx context.Context, ta types.ThreatAssessment) error
	PutEvent(ctx context.Context, ev types.EmergencyEvent) error
}

// RunResult is everything one pipeline run produced.
type RunResult struct {
	Assessment     types.ThreatAssessment        `json:"assessment"`
	Confidence     assessment.ConfidenceAnalysis `json:"confidence"`
	Validation     assessment.Validation         `json:"validation"`
	Classification *classifier.Result            `json:"classification,omitempty"`
	Decision       types.EmergencyDecision       `json:"decision"`
	Event          types.EmergencyEvent          `json:"event"`
	Actions        []types.ActionRecord          `json:"actions"`
	Notifications  notify.PlanResult             `json:"notifications"`
	Elapsed        time.Duration                 `json:"elapsed"`
}

// Options configures a Runner.
type Options struct {
	// EnableClassifier inserts the five-pass classification chain
	// between confidence scoring and the decision.
	EnableClassifier bool
	TimeContext      string
	// MaxContacts is the hard cap on notification plans per run.
	MaxContacts int
}

// Runner drives the pipeline end to end.
type Runner struct {
	assessor   *assessment.Assessor
	scorer     *assessment.Scorer
	classifier *classifier.Classifier
	engine     *decision.Engine
	executor   *executor.Executor
	planner    *notify.Planner
	directory  ContactDirectory
	persister  Persister
	opts       Options
	logger     *zap.Logger

	persistWG sync.WaitGroup
}

// NewRunner assembles a Runner. persister may be nil to disable
// persistence.
func NewRunner(
	assessor *assessment.Assessor,
	scorer *assessment.Scorer,
	cls *classifier.Classifier,
	engine *decision.Engine,
	exec *executor.Executor,
	planner *notify.Planner,
	directory ContactDirectory,
	persister Persister,
	opts Options,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		assessor:   assessor,
		scorer:     scorer,
		classifier: cls,
		engine:     engine,
		executor:   exec,
		planner:    planner,
		directory:  directory,
		persister:  persister,
		opts:       opts,
		logger:     logger,
	}
}

// AssessAndDecide runs the whole chain for one sensor snapshot. The
// pipeline never errors out of degraded reasoning: every stage
// substitutes conservative values and the run always produces a
// decision, executed actions, and notification plans.
func (r *Runner) AssessAndDecide(ctx context.Context, sensor types.SensorContext) (RunResult, error) {
	start := time.Now()
	if sensor.Timestamp.IsZero() {
		sensor.Timestamp = start.UTC()
	}

	ta := r.assessor.Assess(ctx, sensor)

	conf := r.scorer.Score(ctx, ta)
	validation := r.scorer.Validate(ctx, conf.FinalScore, ta.Level)

	result := RunResult{
		Assessment: ta,
		Confidence: conf,
		Validation: validation,
	}

	level := ta.Level
	finalConfidence := conf.FinalScore
	if r.opts.EnableClassifier && r.classifier != nil && ta.Status == types.AssessmentCompleted {
		cls := r.classifier.Classify(ctx, classifier.Input{
			AssessmentID: ta.ID,
			Sensor:       sensor,
			TimeContext:  r.opts.TimeContext,
		})
		result.Classification = &cls
		level = cls.Level
		finalConfidence = cls.Confidence
	}

	decided := r.engine.Decide(ctx, decision.Input{
		Assessment:  withLevel(ta, level),
		Confidence:  finalConfidence,
		Sensor:      sensor,
		TimeContext: r.opts.TimeContext,
	})
	result.Decision = decided.Decision
	result.Event = decided.Event

	contacts, err := r.directory.ContactsFor(ctx, sensor.UserID)
	if err != nil {
		r.logger.Warn("contact lookup failed, planning with none",
			zap.String("user_id", sensor.UserID),
			zap.Error(err))
		contacts = nil
	}

	// Action execution and notification planning are independent; run
	// them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		event, records := r.executor.Execute(gctx, decided.Event, decided.Actions)
		result.Event = event
		result.Actions = records
		return nil
	})
	g.Go(func() error {
		result.Notifications = r.planner.Plan(gctx, notify.Input{
			UserID:        sensor.UserID,
			EmergencyType: emergencyType(result.Classification),
			Priority:      decided.Decision.Priority,
			Confidence:    finalConfidence,
			Location:      sensor.Location,
			TimeContext:   r.opts.TimeContext,
			Contacts:      contacts,
			MaxContacts:   r.opts.MaxContacts,
		})
		return nil
	})
	_ = g.Wait()

	r.persist(ta, result.Event)

	result.Elapsed = time.Since(start)
	r.logger.Info("pipeline run completed",
		zap.String("assessment_id", ta.ID),
		zap.String("threat_level", string(level)),
		zap.String("response_type", string(result.Decision.ResponseType)),
		zap.Int("actions", len(result.Actions)),
		zap.Int("notification_plans", len(result.Notifications.Plans)),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

// persist writes outputs in the background. Runs are latency-sensitive;
// storage never holds them up.
func (r *Runner) persist(ta types.ThreatAssessment, ev types.EmergencyEvent) {
	if r.persister == nil {
		return
	}
	r.persistWG.Add(1)
	go func() {
		defer r.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := r.persister.PutAssessment(ctx, ta); err != nil {
			r.logger.Error("failed to persist assessment",
				zap.String("assessment_id", ta.ID),
				zap.Error(err))
		}
		if err := r.persister.PutEvent(ctx, ev); err != nil {
			r.logger.Error("failed to persist event",
				zap.String("event_id", ev.ID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until background persistence has drained.
func (r *Runner) Wait() {
	r.persistWG.Wait()
}

func withLevel(ta types.ThreatAssessment, level types.ThreatLevel) types.ThreatAssessment {
	ta.Level = level
	return ta
}

func emergencyType(cls *classifier.Result) string {
	if cls != nil && cls.Integrated.ThreatType != "" {
		return cls.Integrated.ThreatType
	}
	return "GENERAL"
}
