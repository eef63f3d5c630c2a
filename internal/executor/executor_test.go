package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guardian/internal/types"
)

// failingDispatcher wraps the simulated dispatcher and fails the listed
// action types.
type failingDispatcher struct {
	SimulatedDispatcher
	fail map[types.ActionType]bool
}

func (f *failingDispatcher) NotifyTrustedContacts(ctx context.Context, event types.EmergencyEvent) (string, error) {
	if f.fail[types.ActionNotifyTrustedContacts] {
		return "", fmt.Errorf("sms gateway unreachable")
	}
	return f.SimulatedDispatcher.NotifyTrustedContacts(ctx, event)
}

func (f *failingDispatcher) ContactEmergencyServices(ctx context.Context, event types.EmergencyEvent) (string, error) {
	if f.fail[types.ActionContactEmergencyServices] {
		return "", fmt.Errorf("dial failed")
	}
	return f.SimulatedDispatcher.ContactEmergencyServices(ctx, event)
}

func initiatedEvent() types.EmergencyEvent {
	return types.EmergencyEvent{
		ID:       "EV-1",
		UserID:   "user-1",
		Status:   types.EventInitiated,
		Priority: types.PriorityCritical,
	}
}

func emergencyActions() []types.ActionType {
	return []types.ActionType{
		types.ActionContactEmergencyServices,
		types.ActionNotifyTrustedContacts,
		types.ActionActivateEmergencyProtocol,
	}
}

func TestExecuteAllActionsSucceed(t *testing.T) {
	e := New(NewSimulatedDispatcher(), zap.NewNop())

	event, records := e.Execute(context.Background(), initiatedEvent(), emergencyActions())

	require.Len(t, records, 5)
	assert.Equal(t, types.ActionShareLocation, records[3].Type)
	assert.Equal(t, types.ActionTransmitContext, records[4].Type)
	for _, rec := range records {
		assert.Equal(t, types.ActionCompleted, rec.Status)
		assert.NotEmpty(t, rec.Result)
		assert.NotEmpty(t, rec.Description)
		assert.False(t, rec.Timestamp.IsZero())
	}
	assert.Equal(t, types.EventInProgress, event.Status)
	assert.True(t, event.ServicesContacted)
}

func TestExecuteOneFailureDoesNotStopOthers(t *testing.T) {
	d := &failingDispatcher{fail: map[types.ActionType]bool{
		types.ActionNotifyTrustedContacts: true,
	}}
	e := New(d, zap.NewNop())

	event, records := e.Execute(context.Background(), initiatedEvent(), emergencyActions())

	require.Len(t, records, 5)
	failed := 0
	for _, rec := range records {
		if rec.Status == types.ActionFailed {
			failed++
			assert.Equal(t, types.ActionNotifyTrustedContacts, rec.Type)
			assert.Contains(t, rec.Result, "sms gateway unreachable")
		}
	}
	assert.Equal(t, 1, failed)
	assert.True(t, event.ServicesContacted)
	assert.Equal(t, types.EventInProgress, event.Status)
}

func TestExecuteServicesContactedRequiresSuccess(t *testing.T) {
	d := &failingDispatcher{fail: map[types.ActionType]bool{
		types.ActionContactEmergencyServices: true,
	}}
	e := New(d, zap.NewNop())

	event, _ := e.Execute(context.Background(), initiatedEvent(), emergencyActions())

	assert.False(t, event.ServicesContacted)
}

func TestExecuteMonitoringOnlyDecision(t *testing.T) {
	e := New(NewSimulatedDispatcher(), zap.NewNop())

	event, records := e.Execute(context.Background(), initiatedEvent(),
		[]types.ActionType{types.ActionIncreaseMonitoring})

	require.Len(t, records, 3)
	assert.Equal(t, types.ActionCompleted, records[0].Status)
	assert.False(t, event.ServicesContacted)
	assert.Equal(t, types.EventInProgress, event.Status)
}

func TestExecuteNoActionsStaysEmpty(t *testing.T) {
	e := New(NewSimulatedDispatcher(), zap.NewNop())

	_, records := e.Execute(context.Background(), initiatedEvent(), nil)

	assert.Empty(t, records)
}

func TestExecuteRecordsCarryDescriptions(t *testing.T) {
	e := New(NewSimulatedDispatcher(), zap.NewNop())

	_, records := e.Execute(context.Background(), initiatedEvent(), emergencyActions())

	require.Len(t, records, 5)
	assert.Equal(t, "Contact 911/emergency services with location and threat details",
		records[0].Description)
	assert.Equal(t, "Notify trusted contacts via SMS and voice calls",
		records[1].Description)
	assert.Equal(t, "Share precise GPS location with emergency responders",
		records[3].Description)
}

func TestExecuteUnknownActionFails(t *testing.T) {
	e := New(NewSimulatedDispatcher(), zap.NewNop())

	_, records := e.Execute(context.Background(), initiatedEvent(),
		[]types.ActionType{types.ActionType("DANCE")})

	require.Len(t, records, 3)
	assert.Equal(t, types.ActionFailed, records[0].Status)
	assert.Contains(t, records[0].Result, "unknown action type")
}
