package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guardian/internal/types"
)

func sampleInput() Input {
	return Input{
		AssessmentID: "TA-42",
		Sensor: types.SensorContext{
			UserID:            "user-1",
			Location:          "parking garage, level 3",
			Audio:             "shouting, then silence",
			Motion:            "sudden fall detected",
			Biometric:         "heart rate spike",
			AdditionalContext: "late evening, user alone",
		},
		TimeContext:       "23:40 local",
		UserProfile:       "adult, no medical conditions",
		HistoricalContext: "no previous incidents",
		TrendData:         "escalating over last 2 minutes",
	}
}

func TestClassifyFullChain(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"PHYSICAL_THREAT: HIGH\nBEHAVIORAL_ANOMALY: MEDIUM\nENVIRONMENTAL_RISK: LOW\nMEDICAL_EMERGENCY: HIGH\nSECURITY_THREAT: MEDIUM\n",
		"CONTEXT_RISK_LEVEL: HIGH\nRISK_FACTORS: isolated location at night\nPROTECTIVE_FACTORS: phone active and reachable\n",
		"TEMPORAL_URGENCY: CRITICAL\nTIME_TO_ESCALATION: IMMEDIATE\nINTERVENTION_PRIORITY: CRITICAL\n",
		"FINAL_THREAT_LEVEL: HIGH\nFINAL_CONFIDENCE: 0.82\nPRIMARY_THREAT_TYPE: PHYSICAL\nCLASSIFICATION_REASONING: fall plus vitals spike in isolated location\n",
		"VALIDATION_RESULT: VALID\nVALIDATION_ISSUES: none\nCONFIDENCE_IN_VALIDATION: 0.9\n",
	}}
	c := New(inv, zap.NewNop())

	res := c.Classify(context.Background(), sampleInput())

	require.Equal(t, 5, inv.calls)
	assert.Equal(t, "TA-42", res.AssessmentID)
	assert.Equal(t, types.ThreatHigh, res.Level)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	assert.Equal(t, types.ThreatHigh, res.Dimensions.PhysicalThreat)
	assert.Equal(t, types.ThreatLow, res.Dimensions.EnvironmentalRisk)
	assert.Equal(t, "isolated location at night", res.Contextual.RiskFactors)
	assert.Equal(t, types.ThreatCritical, res.Temporal.Urgency)
	assert.Equal(t, "IMMEDIATE", res.Temporal.TimeToEscalation)
	assert.Equal(t, "PHYSICAL", res.Integrated.ThreatType)
	assert.Equal(t, "VALID", res.Validation.Verdict)
	assert.InDelta(t, 0.9, res.Validation.Confidence, 1e-9)
}

func TestClassifyIntegratedPromptCarriesEarlierPasses(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"PHYSICAL_THREAT: CRITICAL\n",
		"CONTEXT_RISK_LEVEL: HIGH\nRISK_FACTORS: dark alley\n",
		"TEMPORAL_URGENCY: HIGH\n",
		"FINAL_THREAT_LEVEL: CRITICAL\nFINAL_CONFIDENCE: 0.9\n",
		"VALIDATION_RESULT: VALID\n",
	}}
	c := New(inv, zap.NewNop())

	c.Classify(context.Background(), sampleInput())

	integrated := inv.prompts[3]
	assert.Contains(t, integrated, "Physical Threat: CRITICAL")
	assert.Contains(t, integrated, "Risk Factors: dark alley")
	assert.Contains(t, integrated, "Temporal Urgency: HIGH")
}

func TestClassifyDegradedPassFallsToDefaults(t *testing.T) {
	inv := &scriptedInvoker{
		responses: []string{
			"", // dimensional pass fails
			"CONTEXT_RISK_LEVEL: LOW\n",
			"TEMPORAL_URGENCY: LOW\n",
			"FINAL_THREAT_LEVEL: LOW\nFINAL_CONFIDENCE: 0.4\n",
			"VALIDATION_RESULT: VALID\n",
		},
		failPasses: map[int]bool{1: true},
	}
	c := New(inv, zap.NewNop())

	res := c.Classify(context.Background(), sampleInput())

	assert.Equal(t, types.ThreatMedium, res.Dimensions.PhysicalThreat)
	assert.Equal(t, types.ThreatLow, res.Dimensions.MedicalEmergency)
	assert.Equal(t, types.ThreatLow, res.Level)
}

func TestClassifyAllPassesDegraded(t *testing.T) {
	inv := &scriptedInvoker{
		failPasses: map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true},
	}
	c := New(inv, zap.NewNop())

	res := c.Classify(context.Background(), sampleInput())

	assert.Equal(t, types.ThreatMedium, res.Level)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
	assert.Equal(t, "GENERAL", res.Integrated.ThreatType)
	assert.Equal(t, "NEEDS_REVIEW", res.Validation.Verdict)
	assert.InDelta(t, 0.3, res.Validation.Confidence, 1e-9)
}

func TestNormalizeVerdict(t *testing.T) {
	assert.Equal(t, "VALID", normalizeVerdict("valid"))
	assert.Equal(t, "INVALID", normalizeVerdict("INVALID - contradictory evidence"))
	assert.Equal(t, "NEEDS_REVIEW", normalizeVerdict("needs review by operator"))
	assert.Equal(t, "NEEDS_REVIEW", normalizeVerdict("unsure"))
}
