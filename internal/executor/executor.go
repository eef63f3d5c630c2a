// Package executor carries out the actions an emergency decision calls
// for. Actions run independently: one failing never stops the others,
// and every attempt leaves an ActionRecord behind.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guardian/internal/types"
)

// Dispatcher is the outbound boundary: one operation per action type.
// Implementations talk to real services; SimulatedDispatcher stands in
// for them everywhere real integrations are out of reach.
type Dispatcher interface {
	ContactEmergencyServices(ctx context.Context, event types.EmergencyEvent) (string, error)
	NotifyTrustedContacts(ctx context.Context, event types.EmergencyEvent) (string, error)
	ActivateEmergencyProtocol(ctx context.Context, event types.EmergencyEvent) (string, error)
	AlertMedicalServices(ctx context.Context, event types.EmergencyEvent) (string, error)
	AlertSecurityServices(ctx context.Context, event types.EmergencyEvent) (string, error)
	IncreaseMonitoring(ctx context.Context, event types.EmergencyEvent) (string, error)
	ContinueNormalMonitoring(ctx context.Context, event types.EmergencyEvent) (string, error)
	ShareLocation(ctx context.Context, event types.EmergencyEvent) (string, error)
	TransmitContext(ctx context.Context, event types.EmergencyEvent) (string, error)
}

// Executor runs decision actions through a Dispatcher.
type Executor struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

// New creates an Executor.
func New(dispatcher Dispatcher, logger *zap.Logger) *Executor {
	return &Executor{dispatcher: dispatcher, logger: logger}
}

// Execute runs every action against the dispatcher and moves the event
// to IN_PROGRESS. The returned event has ServicesContacted set when the
// emergency-services action completed.
func (e *Executor) Execute(ctx context.Context, event types.EmergencyEvent, actions []types.ActionType) (types.EmergencyEvent, []types.ActionRecord) {
	actions = withStandingActions(actions)
	records := make([]types.ActionRecord, 0, len(actions))

	for _, action := range actions {
		records = append(records, e.run(ctx, event, action))
	}

	event.Status = types.EventInProgress
	event.UpdatedAt = time.Now().UTC()
	for _, rec := range records {
		if rec.Type == types.ActionContactEmergencyServices && rec.Status == types.ActionCompleted {
			event.ServicesContacted = true
		}
	}

	e.logger.Info("decision actions executed",
		zap.String("event_id", event.ID),
		zap.Int("actions", len(records)),
		zap.Bool("services_contacted", event.ServicesContacted))

	return event, records
}

// actionDescriptions gives each action type its human-readable record
// description.
var actionDescriptions = map[types.ActionType]string{
	types.ActionContactEmergencyServices:  "Contact 911/emergency services with location and threat details",
	types.ActionNotifyTrustedContacts:     "Notify trusted contacts via SMS and voice calls",
	types.ActionActivateEmergencyProtocol: "Activate the full emergency response protocol",
	types.ActionMedicalServicesAlert:      "Alert medical services for potential medical emergency",
	types.ActionSecurityServicesAlert:     "Alert security services for threat response",
	types.ActionIncreaseMonitoring:        "Increase sensor monitoring frequency for the user",
	types.ActionContinueNormalMonitoring:  "Continue normal monitoring cadence",
	types.ActionShareLocation:             "Share precise GPS location with emergency responders",
	types.ActionTransmitContext:           "Transmit threat assessment context and reasoning to responders",
}

func (e *Executor) run(ctx context.Context, event types.EmergencyEvent, action types.ActionType) types.ActionRecord {
	start := time.Now()
	result, err := e.dispatch(ctx, event, action)

	rec := types.ActionRecord{
		Type:        action,
		Description: actionDescriptions[action],
		Status:      types.ActionCompleted,
		Result:      result,
		Duration:    time.Since(start),
		Timestamp:   start.UTC(),
	}
	if err != nil {
		rec.Status = types.ActionFailed
		rec.Result = "Action failed: " + err.Error()
		e.logger.Error("action failed",
			zap.String("event_id", event.ID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
	return rec
}

func (e *Executor) dispatch(ctx context.Context, event types.EmergencyEvent, action types.ActionType) (string, error) {
	switch action {
	case types.ActionContactEmergencyServices:
		return e.dispatcher.ContactEmergencyServices(ctx, event)
	case types.ActionNotifyTrustedContacts:
		return e.dispatcher.NotifyTrustedContacts(ctx, event)
	case types.ActionActivateEmergencyProtocol:
		return e.dispatcher.ActivateEmergencyProtocol(ctx, event)
	case types.ActionMedicalServicesAlert:
		return e.dispatcher.AlertMedicalServices(ctx, event)
	case types.ActionSecurityServicesAlert:
		return e.dispatcher.AlertSecurityServices(ctx, event)
	case types.ActionIncreaseMonitoring:
		return e.dispatcher.IncreaseMonitoring(ctx, event)
	case types.ActionContinueNormalMonitoring:
		return e.dispatcher.ContinueNormalMonitoring(ctx, event)
	case types.ActionShareLocation:
		return e.dispatcher.ShareLocation(ctx, event)
	case types.ActionTransmitContext:
		return e.dispatcher.TransmitContext(ctx, event)
	default:
		return "", errUnknownAction(action)
	}
}

// withStandingActions appends location sharing and context transmission
// to every non-empty action set. Responders always get both.
func withStandingActions(actions []types.ActionType) []types.ActionType {
	if len(actions) == 0 {
		return actions
	}
	out := make([]types.ActionType, 0, len(actions)+2)
	out = append(out, actions...)
	return append(out, types.ActionShareLocation, types.ActionTransmitContext)
}

type errUnknownAction types.ActionType

func (e errUnknownAction) Error() string {
	return "unknown action type: " + string(e)
}
