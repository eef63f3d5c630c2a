package assessment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guardian/internal/extract"
	"guardian/internal/reasoning"
	"guardian/internal/types"
)

const confidenceMaxTokens = 800

// Factor weights for the blended confidence formula. The weighted factor
// score carries 70% of the outcome, the initial confidence the rest.
const (
	weightDataQuality = 0.3
	weightConsistency = 0.3
	weightContext     = 0.2
	weightRecommended = 0.2
	weightFactors     = 0.7
	weightInitial     = 0.3
)

// ConfidenceMetrics are the per-factor scores extracted from a scoring
// response. Absent factors default to 0.5.
type ConfidenceMetrics struct {
	DataQuality        float64 `json:"data_quality"`
	Consistency        float64 `json:"consistency"`
	Context            float64 `json:"context"`
	Recommended        float64 `json:"recommended"`
	UncertaintyFactors string  `json:"uncertainty_factors,omitempty"`
}

// ConfidenceAnalysis is the outcome of a scoring pass.
type ConfidenceAnalysis struct {
	AssessmentID    string            `json:"assessment_id"`
	InitialScore    float64           `json:"initial_score"`
	FinalScore      float64           `json:"final_score"`
	Metrics         ConfidenceMetrics `json:"metrics"`
	Analysis        string            `json:"analysis,omitempty"`
	Provider        string            `json:"provider,omitempty"`
	TokensUsed      int               `json:"tokens_used"`
	Success         bool              `json:"success"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Validation is the outcome of checking a final score against the
// per-level floor.
type Validation struct {
	IsValid            bool    `json:"is_valid"`
	Reason             string  `json:"reason"`
	AdjustedConfidence float64 `json:"adjusted_confidence"`
}

// Scorer refines an assessment's confidence with a second reasoning pass.
type Scorer struct {
	invoker reasoning.Invoker
	logger  *zap.Logger
}

// NewScorer creates a Scorer.
func NewScorer(invoker reasoning.Invoker, logger *zap.Logger) *Scorer {
	return &Scorer{invoker: invoker, logger: logger}
}

// Score blends the assessment's initial confidence with factor scores
// from a dedicated reasoning pass. When the pass fails the initial score
// is kept unchanged and Success is false.
func (s *Scorer) Score(ctx context.Context, ta types.ThreatAssessment) ConfidenceAnalysis {
	res := s.invoker.Invoke(ctx, buildScoringPrompt(ta), confidenceMaxTokens)
	if !res.Success {
		s.logger.Warn("confidence scoring degraded, keeping initial score",
			zap.String("assessment_id", ta.ID),
			zap.Error(res.Err))
		return ConfidenceAnalysis{
			AssessmentID:  ta.ID,
			InitialScore:  ta.Confidence,
			FinalScore:    ta.Confidence,
			FailureReason: "confidence analysis unavailable",
			CreatedAt:     time.Now().UTC(),
		}
	}

	metrics := parseMetrics(res.Text)
	final := BlendConfidence(ta.Confidence, metrics)

	s.logger.Info("confidence scoring completed",
		zap.String("assessment_id", ta.ID),
		zap.Float64("initial", ta.Confidence),
		zap.Float64("final", final))

	return ConfidenceAnalysis{
		AssessmentID: ta.ID,
		InitialScore: ta.Confidence,
		FinalScore:   final,
		Metrics:      metrics,
		Analysis:     extract.Section(res.Text, "CONFIDENCE_ANALYSIS:", ""),
		Provider:     res.Provider,
		TokensUsed:   res.TokensUsed,
		Success:      true,
		CreatedAt:    time.Now().UTC(),
	}
}

// Validate checks the final score against the per-level confidence floor.
// The verdict is decided deterministically; the reasoning pass only
// contributes the explanation and a suggested adjustment.
func (s *Scorer) Validate(ctx context.Context, score float64, level types.ThreatLevel) Validation {
	valid := MeetsFloor(score, level)

	v := Validation{
		IsValid:            valid,
		Reason:             floorReason(score, level, valid),
		AdjustedConfidence: score,
	}

	res := s.invoker.Invoke(ctx, buildValidationPrompt(score, level), confidenceMaxTokens)
	if !res.Success {
		return v
	}

	if reason, ok := extract.Line(res.Text, "VALIDATION_REASON:"); ok {
		v.Reason = reason
	}
	if raw, ok := extract.Line(res.Text, "ADJUSTED_CONFIDENCE:"); ok {
		if adj, ok := extract.ParseConfidence(raw); ok {
			v.AdjustedConfidence = adj
		}
	}
	return v
}

// BlendConfidence computes the final score from the initial confidence
// and the factor metrics, clamped to [0,1].
func BlendConfidence(initial float64, m ConfidenceMetrics) float64 {
	weighted := m.DataQuality*weightDataQuality +
		m.Consistency*weightConsistency +
		m.Context*weightContext +
		m.Recommended*weightRecommended
	return extract.Clamp(weighted*weightFactors + initial*weightInitial)
}

// MeetsFloor reports whether a confidence score clears the minimum for
// the given threat level. NONE has no floor.
func MeetsFloor(score float64, level types.ThreatLevel) bool {
	switch level {
	case types.ThreatCritical, types.ThreatHigh:
		return score >= 0.7
	case types.ThreatMedium:
		return score >= 0.5
	case types.ThreatLow:
		return score >= 0.3
	default:
		return true
	}
}

func floorReason(score float64, level types.ThreatLevel, valid bool) string {
	if valid {
		return fmt.Sprintf("confidence %.2f meets the floor for %s", score, level)
	}
	return fmt.Sprintf("confidence %.2f is below the floor for %s", score, level)
}

func buildScoringPrompt(ta types.ThreatAssessment) string {
	return fmt.Sprintf(`You are an AI agent responsible for autonomous confidence scoring in threat detection.

THREAT ASSESSMENT DATA:
- Assessment ID: %s
- User ID: %s
- Threat Level: %s
- Initial Confidence: %.2f
- Recommended Action: %s
- Assessment Reasoning: %s

TASK: Analyze the confidence level of this threat assessment.

Consider these factors:
1. Data Quality: How reliable is the sensor data?
2. Consistency: Are multiple data sources consistent?
3. Environmental Context: Do environmental factors support the assessment?
4. Historical Patterns: Does this match known threat patterns?
5. Uncertainty Factors: What could reduce confidence?

Provide your analysis in this format:
CONFIDENCE_ANALYSIS: [Your detailed analysis]
DATA_QUALITY_SCORE: [0.0-1.0]
CONSISTENCY_SCORE: [0.0-1.0]
CONTEXT_SCORE: [0.0-1.0]
UNCERTAINTY_FACTORS: [List key uncertainty factors]
RECOMMENDED_CONFIDENCE: [0.0-1.0]
REASONING: [Explain your confidence assessment]`,
		ta.ID, ta.UserID, ta.Level, ta.Confidence, ta.RecommendedAction, ta.Reasoning)
}

func buildValidationPrompt(score float64, level types.ThreatLevel) string {
	return fmt.Sprintf(`You are validating a confidence score for threat detection.

ASSESSMENT DETAILS:
- Confidence Score: %.2f
- Threat Level: %s

VALIDATION CRITERIA:
- HIGH/CRITICAL threats should have confidence >= 0.7
- MEDIUM threats should have confidence >= 0.5
- LOW threats should have confidence >= 0.3
- Confidence should match data quality and consistency

TASK: Validate if this confidence score is appropriate.

Respond with:
VALIDATION_RESULT: [VALID/INVALID]
VALIDATION_REASON: [Explain why valid or invalid]
ADJUSTED_CONFIDENCE: [Suggest adjusted score if needed, or same if valid]`,
		score, level)
}

func parseMetrics(response string) ConfidenceMetrics {
	fields := extract.Extract(response, []extract.FieldSpec{
		{Name: "data_quality", Label: "DATA_QUALITY_SCORE:", Kind: extract.KindConfidence, Default: 0.5},
		{Name: "consistency", Label: "CONSISTENCY_SCORE:", Kind: extract.KindConfidence, Default: 0.5},
		{Name: "context", Label: "CONTEXT_SCORE:", Kind: extract.KindConfidence, Default: 0.5},
		{Name: "recommended", Label: "RECOMMENDED_CONFIDENCE:", Kind: extract.KindConfidence, Default: 0.5},
		{Name: "uncertainty", Label: "UNCERTAINTY_FACTORS:", Kind: extract.KindText, Default: ""},
	})
	return ConfidenceMetrics{
		DataQuality:        fields.Float("data_quality"),
		Consistency:        fields.Float("consistency"),
		Context:            fields.Float("context"),
		Recommended:        fields.Float("recommended"),
		UncertaintyFactors: fields.String("uncertainty"),
	}
}
