package executor

import (
	"context"

	"guardian/internal/types"
)

// SimulatedDispatcher logs-only stand-in for real emergency integrations.
// Every operation succeeds and reports what the real one would have done.
type SimulatedDispatcher struct{}

// NewSimulatedDispatcher creates a SimulatedDispatcher.
func NewSimulatedDispatcher() *SimulatedDispatcher {
	return &SimulatedDispatcher{}
}

func (SimulatedDispatcher) ContactEmergencyServices(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Emergency services contact initiated (SIMULATED)", nil
}

func (SimulatedDispatcher) NotifyTrustedContacts(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Trusted contacts notified via SMS/call (SIMULATED)", nil
}

func (SimulatedDispatcher) ActivateEmergencyProtocol(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Emergency protocol activated - location shared, context transmitted", nil
}

func (SimulatedDispatcher) AlertMedicalServices(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Medical services alerted with biometric context (SIMULATED)", nil
}

func (SimulatedDispatcher) AlertSecurityServices(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Security services alerted for location (SIMULATED)", nil
}

func (SimulatedDispatcher) IncreaseMonitoring(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Monitoring frequency increased to high-sensitivity mode", nil
}

func (SimulatedDispatcher) ContinueNormalMonitoring(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Normal monitoring continued", nil
}

func (SimulatedDispatcher) ShareLocation(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Real-time location sharing activated (SIMULATED)", nil
}

func (SimulatedDispatcher) TransmitContext(ctx context.Context, event types.EmergencyEvent) (string, error) {
	return "Emergency context transmitted to responders (SIMULATED)", nil
}
