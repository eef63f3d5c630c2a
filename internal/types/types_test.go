package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreatLevelSeverityOrder(t *testing.T) {
	ordered := []ThreatLevel{ThreatNone, ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Severity(), ordered[i-1].Severity(),
			"%s must outrank %s", ordered[i], ordered[i-1])
	}
}

func TestThreatLevelUnknownRanksAsNone(t *testing.T) {
	assert.Equal(t, ThreatNone.Severity(), ThreatLevel("GARBAGE").Severity())
	assert.False(t, ThreatLevel("GARBAGE").Valid())
	assert.True(t, ThreatCritical.Valid())
}

func TestResponseTypeUrgencyOrder(t *testing.T) {
	ordered := []ResponseType{
		ResponseNoAction,
		ResponseMonitoringAlert,
		ResponsePriorityAlert,
		ResponseUrgentResponse,
		ResponseImmediateEmergency,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Urgency(), ordered[i-1].Urgency())
	}
}
