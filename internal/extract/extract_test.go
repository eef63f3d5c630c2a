package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/types"
)

func TestExtractLabeledFields(t *testing.T) {
	text := "THREAT_LEVEL: HIGH\nCONFIDENCE: 0.85\nREASONING: raised voices and distress keywords\nESCALATE: YES\nCOUNT: up to 3 contacts"

	fields := Extract(text, []FieldSpec{
		{Name: "level", Label: "THREAT_LEVEL:", Kind: KindLevel, Default: types.ThreatNone},
		{Name: "confidence", Label: "CONFIDENCE:", Kind: KindConfidence, Default: 0.5},
		{Name: "reasoning", Label: "REASONING:", Kind: KindText, Default: "unavailable"},
		{Name: "escalate", Label: "ESCALATE:", Kind: KindBool, Default: false},
		{Name: "count", Label: "COUNT:", Kind: KindInt, Default: 1},
	})

	assert.Equal(t, types.ThreatHigh, fields.Level("level"))
	assert.InDelta(t, 0.85, fields.Float("confidence"), 1e-9)
	assert.Equal(t, "raised voices and distress keywords", fields.String("reasoning"))
	assert.True(t, fields.Bool("escalate"))
	assert.Equal(t, 3, fields.Int("count"))
}

func TestExtractDefaultsWhenAbsent(t *testing.T) {
	fields := Extract("the model rambled about nothing useful", []FieldSpec{
		{Name: "level", Label: "THREAT_LEVEL:", Kind: KindLevel, Default: types.ThreatMedium},
		{Name: "confidence", Label: "CONFIDENCE:", Kind: KindConfidence, Default: 0.6},
		{Name: "reasoning", Label: "REASONING:", Kind: KindText, Default: "unavailable"},
	})

	assert.Equal(t, types.ThreatMedium, fields.Level("level"))
	assert.InDelta(t, 0.6, fields.Float("confidence"), 1e-9)
	assert.Equal(t, "unavailable", fields.String("reasoning"))
}

func TestExtractBareIntegerConfidence(t *testing.T) {
	fields := Extract("THREAT_LEVEL: CRITICAL\nCONFIDENCE: 90\n", []FieldSpec{
		{Name: "level", Label: "THREAT_LEVEL:", Kind: KindLevel, Default: types.ThreatNone},
		{Name: "confidence", Label: "CONFIDENCE:", Kind: KindConfidence, Default: 0.5},
	})

	assert.Equal(t, types.ThreatCritical, fields.Level("level"))
	assert.InDelta(t, 0.9, fields.Float("confidence"), 1e-9)
}

func TestExtractMalformedValueFallsToDefault(t *testing.T) {
	fields := Extract("CONFIDENCE: quite sure\n", []FieldSpec{
		{Name: "confidence", Label: "CONFIDENCE:", Kind: KindConfidence, Default: 0.5},
	})
	assert.InDelta(t, 0.5, fields.Float("confidence"), 1e-9)
}

func TestLineTakesFirstOccurrence(t *testing.T) {
	v, ok := Line("LEVEL: HIGH\nLEVEL: LOW\n", "LEVEL:")
	require.True(t, ok)
	assert.Equal(t, "HIGH", v)
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want types.ThreatLevel
		ok   bool
	}{
		{"CRITICAL", types.ThreatCritical, true},
		{"high - several indicators", types.ThreatHigh, true},
		{"Moderate concern", types.ThreatMedium, true},
		{"minor anomaly", types.ThreatLow, true},
		{"NONE", types.ThreatNone, true},
		{"unsure", types.ThreatNone, false},
	}
	for _, tc := range cases {
		got, ok := ParseLevel(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestLevelFromKeywords(t *testing.T) {
	assert.Equal(t, types.ThreatCritical, LevelFromKeywords("this looks like IMMEDIATE DANGER to the user"))
	assert.Equal(t, types.ThreatHigh, LevelFromKeywords("an urgent situation is developing"))
	assert.Equal(t, types.ThreatMedium, LevelFromKeywords("moderate risk at most"))
	assert.Equal(t, types.ThreatLow, LevelFromKeywords("a minor irregularity"))
	assert.Equal(t, types.ThreatNone, LevelFromKeywords("everything appears calm"))
}

func TestParseConfidenceNotations(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"0.8", 0.8},
		{"85%", 0.85},
		{"8/10", 0.8},
		{"3/4", 0.75},
		{"1", 1.0},
		{"90", 0.9},
		{"85", 0.85},
	}
	for _, tc := range cases {
		got, ok := ParseConfidence(tc.in)
		require.True(t, ok, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}

	_, ok := ParseConfidence("no numbers here")
	assert.False(t, ok)
}

func TestConfidenceFromText(t *testing.T) {
	assert.InDelta(t, 0.75, ConfidenceFromText("my confidence in this call is 0.75 overall", 0.6), 1e-9)
	assert.InDelta(t, 0.9, ConfidenceFromText("I am CERTAIN this is a fall", 0.6), 1e-9)
	assert.InDelta(t, 0.7, ConfidenceFromText("it is likely a false trigger", 0.6), 1e-9)
	assert.InDelta(t, 0.5, ConfidenceFromText("possible distress, hard to say", 0.6), 1e-9)
	assert.InDelta(t, 0.6, ConfidenceFromText("nothing quantified", 0.6), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.7))
	assert.Equal(t, 0.4, Clamp(0.4))
}
