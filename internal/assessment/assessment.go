// Package assessment turns raw sensor context into a structured threat
// assessment by prompting a reasoning provider and extracting labeled
// fields from whatever text comes back.
package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guardian/internal/extract"
	"guardian/internal/reasoning"
	"guardian/internal/types"
)

const assessMaxTokens = 1000

// Assessor performs the initial threat assessment over sensor context.
type Assessor struct {
	invoker reasoning.Invoker
	logger  *zap.Logger
}

// NewAssessor creates an Assessor.
func NewAssessor(invoker reasoning.Invoker, logger *zap.Logger) *Assessor {
	return &Assessor{invoker: invoker, logger: logger}
}

// Assess prompts the reasoning chain with the sensor context and returns
// a populated assessment. Provider failure does not return an error: the
// pipeline must always have an assessment to act on, so total failure
// yields a FAILED record at threat NONE with zero confidence.
func (a *Assessor) Assess(ctx context.Context, sensor types.SensorContext) types.ThreatAssessment {
	prompt := buildAssessmentPrompt(sensor)
	res := a.invoker.Invoke(ctx, prompt, assessMaxTokens)

	if !res.Success {
		a.logger.Error("threat assessment degraded, no provider responded",
			zap.String("user_id", sensor.UserID),
			zap.Error(res.Err))
		return types.ThreatAssessment{
			ID:         newAssessmentID(),
			UserID:     sensor.UserID,
			Level:      types.ThreatNone,
			Confidence: 0.0,
			Reasoning:  "assessment unavailable: no reasoning provider responded",
			Status:     types.AssessmentFailed,
			CreatedAt:  time.Now().UTC(),
		}
	}

	assessment := parseAssessment(res.Text, sensor)
	assessment.Provider = res.Provider
	assessment.TokensUsed = res.TokensUsed

	a.logger.Info("threat assessment completed",
		zap.String("assessment_id", assessment.ID),
		zap.String("user_id", sensor.UserID),
		zap.String("threat_level", string(assessment.Level)),
		zap.Float64("confidence", assessment.Confidence))

	return assessment
}

// buildAssessmentPrompt renders the sensor readings into the reasoning
// request. Readings that were never captured are omitted rather than sent
// as empty lines.
func buildAssessmentPrompt(sensor types.SensorContext) string {
	var ctx strings.Builder
	ctx.WriteString("SENSOR DATA ANALYSIS REQUEST\n")
	fmt.Fprintf(&ctx, "Timestamp: %s\n", sensor.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&ctx, "Location: %s\n", sensor.Location)
	fmt.Fprintf(&ctx, "User ID: %s\n\n", sensor.UserID)

	ctx.WriteString("SENSOR READINGS:\n")
	if sensor.Audio != "" {
		fmt.Fprintf(&ctx, "- Audio: %s\n", sensor.Audio)
	}
	if sensor.Motion != "" {
		fmt.Fprintf(&ctx, "- Motion: %s\n", sensor.Motion)
	}
	if sensor.Environmental != "" {
		fmt.Fprintf(&ctx, "- Environmental: %s\n", sensor.Environmental)
	}
	if sensor.Biometric != "" {
		fmt.Fprintf(&ctx, "- Biometric: %s\n", sensor.Biometric)
	}
	fmt.Fprintf(&ctx, "\nCONTEXT: %s", sensor.AdditionalContext)

	return fmt.Sprintf(`You are an AI agent responsible for autonomous threat detection and emergency response reasoning.

Context: %s

Please analyze this situation and provide:
THREAT_LEVEL: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
CONFIDENCE: [0.0-1.0]
RECOMMENDED_ACTION: [What autonomous action should be taken]
REASONING: [Explain your decision-making process]

Respond in a structured format that can be parsed for autonomous decision-making.
Focus on safety and err on the side of caution for potential emergencies.`, ctx.String())
}

// parseAssessment extracts the structured fields, falling back to
// whole-response keyword scans when the labels are missing.
func parseAssessment(response string, sensor types.SensorContext) types.ThreatAssessment {
	level, ok := levelFromLabel(response)
	if !ok {
		level = extract.LevelFromKeywords(response)
	}

	confidence := confidenceFromResponse(response)
	action := actionFromResponse(response)
	reasoning := reasoningFromResponse(response)

	return types.ThreatAssessment{
		ID:                newAssessmentID(),
		UserID:            sensor.UserID,
		Level:             level,
		Confidence:        confidence,
		RecommendedAction: action,
		Reasoning:         reasoning,
		Status:            types.AssessmentCompleted,
		CreatedAt:         time.Now().UTC(),
	}
}

func levelFromLabel(response string) (types.ThreatLevel, bool) {
	raw, ok := extract.Line(response, "THREAT_LEVEL:")
	if !ok {
		return types.ThreatNone, false
	}
	return extract.ParseLevel(raw)
}

func confidenceFromResponse(response string) float64 {
	if raw, ok := extract.Line(response, "CONFIDENCE:"); ok {
		if v, ok := extract.ParseConfidence(raw); ok {
			return v
		}
	}
	return extract.ConfidenceFromText(response, 0.6)
}

func actionFromResponse(response string) string {
	if raw, ok := extract.Line(response, "RECOMMENDED_ACTION:"); ok {
		return raw
	}
	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, "EMERGENCY"), strings.Contains(upper, "911"):
		return "Contact emergency services immediately"
	case strings.Contains(upper, "ALERT"), strings.Contains(upper, "NOTIFY"):
		return "Alert trusted contacts and monitor situation"
	case strings.Contains(upper, "MONITOR"), strings.Contains(upper, "WATCH"):
		return "Continue monitoring for escalation"
	default:
		return "No immediate action required"
	}
}

func reasoningFromResponse(response string) string {
	if raw, ok := extract.Line(response, "REASONING:"); ok {
		return raw
	}
	return "Reasoning not provided in structured form"
}

func newAssessmentID() string {
	return "TA-" + uuid.NewString()
}
