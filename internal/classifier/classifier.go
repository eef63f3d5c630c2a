// Package classifier runs the optional multi-stage threat classification:
// five sequential reasoning passes that refine a raw assessment into a
// validated classification. Each pass degrades independently to
// conservative defaults so a single provider hiccup never aborts the
// chain.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"guardian/internal/extract"
	"guardian/internal/reasoning"
	"guardian/internal/types"
)

const passMaxTokens = 800

// DimensionalAnalysis holds the per-dimension threat levels from the
// first pass.
type DimensionalAnalysis struct {
	PhysicalThreat    types.ThreatLevel `json:"physical_threat"`
	BehavioralAnomaly types.ThreatLevel `json:"behavioral_anomaly"`
	EnvironmentalRisk types.ThreatLevel `json:"environmental_risk"`
	MedicalEmergency  types.ThreatLevel `json:"medical_emergency"`
	SecurityThreat    types.ThreatLevel `json:"security_threat"`
}

// ContextualEvaluation holds the situational risk read from the second
// pass.
type ContextualEvaluation struct {
	ContextRiskLevel  types.ThreatLevel `json:"context_risk_level"`
	RiskFactors       string            `json:"risk_factors"`
	ProtectiveFactors string            `json:"protective_factors"`
}

// TemporalAssessment holds the urgency read from the third pass.
type TemporalAssessment struct {
	Urgency              types.ThreatLevel `json:"urgency"`
	TimeToEscalation     string            `json:"time_to_escalation"`
	InterventionPriority string            `json:"intervention_priority"`
}

// Integrated is the fourth pass's combined classification.
type Integrated struct {
	Level      types.ThreatLevel `json:"level"`
	Confidence float64           `json:"confidence"`
	ThreatType string            `json:"threat_type"`
	Reasoning  string            `json:"reasoning"`
}

// Validation is the fifth pass's review of the integrated result.
type Validation struct {
	Verdict    string  `json:"verdict"`
	Issues     string  `json:"issues"`
	Confidence float64 `json:"confidence"`
}

// Result is the full classification output.
type Result struct {
	AssessmentID string               `json:"assessment_id"`
	Level        types.ThreatLevel    `json:"level"`
	Confidence   float64              `json:"confidence"`
	Dimensions   DimensionalAnalysis  `json:"dimensions"`
	Contextual   ContextualEvaluation `json:"contextual"`
	Temporal     TemporalAssessment   `json:"temporal"`
	Integrated   Integrated           `json:"integrated"`
	Validation   Validation           `json:"validation"`
	Reasoning    string               `json:"reasoning"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Input carries everything the classification passes reason over.
type Input struct {
	AssessmentID      string
	Sensor            types.SensorContext
	TimeContext       string
	UserProfile       string
	HistoricalContext string
	TrendData         string
}

// Classifier runs the five-pass chain.
type Classifier struct {
	invoker reasoning.Invoker
	logger  *zap.Logger
}

// New creates a Classifier.
func New(invoker reasoning.Invoker, logger *zap.Logger) *Classifier {
	return &Classifier{invoker: invoker, logger: logger}
}

// Classify runs all five passes in order. Passes feed forward: the
// integrated pass sees the first three results, the validation pass sees
// the integrated one.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	dims := c.dimensionalPass(ctx, in)
	ctxEval := c.contextualPass(ctx, in)
	temporal := c.temporalPass(ctx, in)
	integrated := c.integratedPass(ctx, dims, ctxEval, temporal)
	validation := c.validationPass(ctx, integrated)

	c.logger.Info("threat classification completed",
		zap.String("assessment_id", in.AssessmentID),
		zap.String("final_level", string(integrated.Level)),
		zap.Float64("final_confidence", integrated.Confidence),
		zap.String("validation", validation.Verdict))

	return Result{
		AssessmentID: in.AssessmentID,
		Level:        integrated.Level,
		Confidence:   integrated.Confidence,
		Dimensions:   dims,
		Contextual:   ctxEval,
		Temporal:     temporal,
		Integrated:   integrated,
		Validation:   validation,
		Reasoning:    integrated.Reasoning,
		CreatedAt:    time.Now().UTC(),
	}
}

func (c *Classifier) dimensionalPass(ctx context.Context, in Input) DimensionalAnalysis {
	fallback := DimensionalAnalysis{
		PhysicalThreat:    types.ThreatMedium,
		BehavioralAnomaly: types.ThreatMedium,
		EnvironmentalRisk: types.ThreatMedium,
		MedicalEmergency:  types.ThreatLow,
		SecurityThreat:    types.ThreatMedium,
	}

	res := c.invoker.Invoke(ctx, dimensionalPrompt(in), passMaxTokens)
	if !res.Success {
		c.degraded("dimensional", in.AssessmentID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "physical", Label: "PHYSICAL_THREAT:", Kind: extract.KindLevel, Default: fallback.PhysicalThreat},
		{Name: "behavioral", Label: "BEHAVIORAL_ANOMALY:", Kind: extract.KindLevel, Default: fallback.BehavioralAnomaly},
		{Name: "environmental", Label: "ENVIRONMENTAL_RISK:", Kind: extract.KindLevel, Default: fallback.EnvironmentalRisk},
		{Name: "medical", Label: "MEDICAL_EMERGENCY:", Kind: extract.KindLevel, Default: fallback.MedicalEmergency},
		{Name: "security", Label: "SECURITY_THREAT:", Kind: extract.KindLevel, Default: fallback.SecurityThreat},
	})
	return DimensionalAnalysis{
		PhysicalThreat:    fields.Level("physical"),
		BehavioralAnomaly: fields.Level("behavioral"),
		EnvironmentalRisk: fields.Level("environmental"),
		MedicalEmergency:  fields.Level("medical"),
		SecurityThreat:    fields.Level("security"),
	}
}

func (c *Classifier) contextualPass(ctx context.Context, in Input) ContextualEvaluation {
	fallback := ContextualEvaluation{
		ContextRiskLevel:  types.ThreatMedium,
		RiskFactors:       "Default risk assessment",
		ProtectiveFactors: "Standard protective factors",
	}

	res := c.invoker.Invoke(ctx, contextualPrompt(in), passMaxTokens)
	if !res.Success {
		c.degraded("contextual", in.AssessmentID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "risk_level", Label: "CONTEXT_RISK_LEVEL:", Kind: extract.KindLevel, Default: fallback.ContextRiskLevel},
		{Name: "risk_factors", Label: "RISK_FACTORS:", Kind: extract.KindText, Default: fallback.RiskFactors},
		{Name: "protective", Label: "PROTECTIVE_FACTORS:", Kind: extract.KindText, Default: fallback.ProtectiveFactors},
	})
	return ContextualEvaluation{
		ContextRiskLevel:  fields.Level("risk_level"),
		RiskFactors:       fields.String("risk_factors"),
		ProtectiveFactors: fields.String("protective"),
	}
}

func (c *Classifier) temporalPass(ctx context.Context, in Input) TemporalAssessment {
	fallback := TemporalAssessment{
		Urgency:              types.ThreatMedium,
		TimeToEscalation:     "MINUTES",
		InterventionPriority: "MEDIUM",
	}

	res := c.invoker.Invoke(ctx, temporalPrompt(in), passMaxTokens)
	if !res.Success {
		c.degraded("temporal", in.AssessmentID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "urgency", Label: "TEMPORAL_URGENCY:", Kind: extract.KindLevel, Default: fallback.Urgency},
		{Name: "escalation", Label: "TIME_TO_ESCALATION:", Kind: extract.KindText, Default: fallback.TimeToEscalation},
		{Name: "priority", Label: "INTERVENTION_PRIORITY:", Kind: extract.KindText, Default: fallback.InterventionPriority},
	})
	return TemporalAssessment{
		Urgency:              fields.Level("urgency"),
		TimeToEscalation:     fields.String("escalation"),
		InterventionPriority: fields.String("priority"),
	}
}

func (c *Classifier) integratedPass(ctx context.Context, dims DimensionalAnalysis, ctxEval ContextualEvaluation, temporal TemporalAssessment) Integrated {
	fallback := Integrated{
		Level:      types.ThreatMedium,
		Confidence: 0.6,
		ThreatType: "GENERAL",
		Reasoning:  "Default classification due to analysis failure",
	}

	res := c.invoker.Invoke(ctx, integratedPrompt(dims, ctxEval, temporal), passMaxTokens)
	if !res.Success {
		c.degraded("integrated", "", res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "level", Label: "FINAL_THREAT_LEVEL:", Kind: extract.KindLevel, Default: fallback.Level},
		{Name: "confidence", Label: "FINAL_CONFIDENCE:", Kind: extract.KindConfidence, Default: fallback.Confidence},
		{Name: "threat_type", Label: "PRIMARY_THREAT_TYPE:", Kind: extract.KindText, Default: fallback.ThreatType},
		{Name: "reasoning", Label: "CLASSIFICATION_REASONING:", Kind: extract.KindText, Default: fallback.Reasoning},
	})
	return Integrated{
		Level:      fields.Level("level"),
		Confidence: fields.Float("confidence"),
		ThreatType: fields.String("threat_type"),
		Reasoning:  fields.String("reasoning"),
	}
}

func (c *Classifier) validationPass(ctx context.Context, integrated Integrated) Validation {
	fallback := Validation{
		Verdict:    "NEEDS_REVIEW",
		Issues:     "Unable to validate due to analysis failure",
		Confidence: 0.3,
	}

	res := c.invoker.Invoke(ctx, validationPrompt(integrated), passMaxTokens)
	if !res.Success {
		c.degraded("validation", "", res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "verdict", Label: "VALIDATION_RESULT:", Kind: extract.KindText, Default: "VALID"},
		{Name: "issues", Label: "VALIDATION_ISSUES:", Kind: extract.KindText, Default: "No significant issues"},
		{Name: "confidence", Label: "CONFIDENCE_IN_VALIDATION:", Kind: extract.KindConfidence, Default: 0.8},
	})
	return Validation{
		Verdict:    normalizeVerdict(fields.String("verdict")),
		Issues:     fields.String("issues"),
		Confidence: fields.Float("confidence"),
	}
}

func normalizeVerdict(raw string) string {
	switch {
	case contains(raw, "NEEDS_REVIEW"), contains(raw, "NEEDS REVIEW"):
		return "NEEDS_REVIEW"
	case contains(raw, "INVALID"):
		return "INVALID"
	case contains(raw, "VALID"):
		return "VALID"
	default:
		return "NEEDS_REVIEW"
	}
}

func (c *Classifier) degraded(pass, assessmentID string, err error) {
	c.logger.Warn("classification pass degraded, using defaults",
		zap.String("pass", pass),
		zap.String("assessment_id", assessmentID),
		zap.Error(err))
}

func dimensionalPrompt(in Input) string {
	return fmt.Sprintf(`Perform multi-dimensional threat analysis for the following data:

SENSOR DATA:
- Audio: %s
- Motion: %s
- Environmental: %s
- Biometric: %s

CONTEXT:
- Location: %s
- Time Context: %s
- User Profile: %s

Analyze across these dimensions:
1. PHYSICAL_THREAT: Physical danger indicators
2. BEHAVIORAL_ANOMALY: Unusual behavior patterns
3. ENVIRONMENTAL_RISK: Environmental danger factors
4. MEDICAL_EMERGENCY: Health-related emergency indicators
5. SECURITY_THREAT: Security or safety concerns

For each dimension, provide:
DIMENSION_NAME: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
EVIDENCE: [Supporting evidence]
CONFIDENCE: [0.0-1.0]

Format your response with clear dimension labels.`,
		in.Sensor.Audio, in.Sensor.Motion, in.Sensor.Environmental,
		in.Sensor.Biometric, in.Sensor.Location, in.TimeContext, in.UserProfile)
}

func contextualPrompt(in Input) string {
	return fmt.Sprintf(`Evaluate threat context for comprehensive assessment:

LOCATION CONTEXT: %s
TIME CONTEXT: %s
USER CONTEXT: %s
HISTORICAL CONTEXT: %s

Evaluate these contextual factors:
1. LOCATION_RISK: Is this a high-risk location?
2. TIME_RISK: Is this a high-risk time period?
3. USER_VULNERABILITY: Is the user in a vulnerable state?
4. SITUATIONAL_FACTORS: What situational factors increase/decrease risk?
5. ESCALATION_POTENTIAL: How likely is the situation to escalate?

Provide:
CONTEXT_RISK_LEVEL: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
RISK_FACTORS: [List key risk factors]
PROTECTIVE_FACTORS: [List factors that reduce risk]
CONTEXT_CONFIDENCE: [0.0-1.0]`,
		in.Sensor.Location, in.TimeContext, in.UserProfile, in.HistoricalContext)
}

func temporalPrompt(in Input) string {
	return fmt.Sprintf(`Analyze temporal aspects of the threat:

CURRENT DATA: %s
HISTORICAL PATTERNS: %s
TREND ANALYSIS: %s

Assess:
1. IMMEDIACY: How immediate is the threat?
2. PERSISTENCE: Is this a persistent or transient threat?
3. ESCALATION_RATE: How quickly might this escalate?
4. INTERVENTION_WINDOW: How much time for intervention?
5. HISTORICAL_CORRELATION: Does this match known patterns?

Provide:
TEMPORAL_URGENCY: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
TIME_TO_ESCALATION: [IMMEDIATE/MINUTES/HOURS/DAYS]
INTERVENTION_PRIORITY: [LOW/MEDIUM/HIGH/CRITICAL]
TEMPORAL_CONFIDENCE: [0.0-1.0]`,
		in.Sensor.AdditionalContext, in.HistoricalContext, in.TrendData)
}

func integratedPrompt(dims DimensionalAnalysis, ctxEval ContextualEvaluation, temporal TemporalAssessment) string {
	return fmt.Sprintf(`Integrate all analyses to determine final threat classification:

MULTI-DIMENSIONAL ANALYSIS:
- Physical Threat: %s
- Behavioral Anomaly: %s
- Environmental Risk: %s
- Medical Emergency: %s
- Security Threat: %s

CONTEXTUAL EVALUATION:
- Context Risk Level: %s
- Risk Factors: %s
- Protective Factors: %s

TEMPORAL ASSESSMENT:
- Temporal Urgency: %s
- Time to Escalation: %s
- Intervention Priority: %s

Based on this comprehensive analysis, determine:
FINAL_THREAT_LEVEL: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
FINAL_CONFIDENCE: [0.0-1.0]
PRIMARY_THREAT_TYPE: [PHYSICAL/MEDICAL/SECURITY/BEHAVIORAL/ENVIRONMENTAL]
SECONDARY_FACTORS: [List secondary contributing factors]
RECOMMENDED_RESPONSE: [Specific response recommendation]
CLASSIFICATION_REASONING: [Detailed reasoning for the classification]`,
		dims.PhysicalThreat, dims.BehavioralAnomaly,
		dims.EnvironmentalRisk, dims.MedicalEmergency, dims.SecurityThreat,
		ctxEval.ContextRiskLevel, ctxEval.RiskFactors, ctxEval.ProtectiveFactors,
		temporal.Urgency, temporal.TimeToEscalation, temporal.InterventionPriority)
}

func validationPrompt(integrated Integrated) string {
	return fmt.Sprintf(`Validate the threat classification result:

CLASSIFICATION RESULT:
- Threat Level: %s
- Confidence: %.2f
- Primary Type: %s
- Reasoning: %s

VALIDATION CHECKS:
1. Is the threat level consistent with the evidence?
2. Is the confidence score appropriate?
3. Are there any contradictions in the analysis?
4. Does the classification match expected patterns?
5. Are there any missing considerations?

Provide:
VALIDATION_RESULT: [VALID/INVALID/NEEDS_REVIEW]
VALIDATION_ISSUES: [List any issues found]
CONFIDENCE_IN_VALIDATION: [0.0-1.0]
RECOMMENDED_ADJUSTMENTS: [Any recommended changes]`,
		integrated.Level, integrated.Confidence, integrated.ThreatType, integrated.Reasoning)
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToUpper(s), sub)
}
