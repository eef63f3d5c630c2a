package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guardian/internal/extract"
	"guardian/internal/reasoning"
	"guardian/internal/types"
)

const passMaxTokens = 800

// Input carries the assessment and context the engine decides over.
// Confidence is the refined score from confidence analysis, not the
// assessment's initial one.
type Input struct {
	Assessment  types.ThreatAssessment
	Confidence  float64
	Sensor      types.SensorContext
	TimeContext string
}

// SituationAnalysis is the first pass's read of the emergency.
type SituationAnalysis struct {
	OverallSeverity     types.ThreatLevel `json:"overall_severity"`
	PrimaryType         string            `json:"primary_type"`
	ImmediateDanger     types.ThreatLevel `json:"immediate_danger"`
	MedicalEmergency    types.ThreatLevel `json:"medical_emergency"`
	SecurityThreat      types.ThreatLevel `json:"security_threat"`
	EscalationPotential types.ThreatLevel `json:"escalation_potential"`
	Confidence          float64           `json:"confidence"`
}

// PriorityAssessment is the second pass's urgency read.
type PriorityAssessment struct {
	ResponsePriority   types.Priority `json:"response_priority"`
	ResponseTimeTarget int            `json:"response_time_target"`
	Justification      string         `json:"justification"`
	AutonomousAction   bool           `json:"autonomous_action"`
	HumanOversight     bool           `json:"human_oversight"`
}

// ResourceAllocation is the third pass's resource plan.
type ResourceAllocation struct {
	EmergencyServices bool   `json:"emergency_services"`
	TrustedContacts   bool   `json:"trusted_contacts"`
	MedicalServices   bool   `json:"medical_services"`
	SecurityServices  bool   `json:"security_services"`
	Simultaneous      bool   `json:"simultaneous"`
	PriorityOrder     string `json:"priority_order"`
}

// CommunicationStrategy is the fourth pass's channel plan.
type CommunicationStrategy struct {
	PrimaryMethod  string `json:"primary_method"`
	BackupMethod   string `json:"backup_method"`
	MessageUrgency string `json:"message_urgency"`
	RetryStrategy  string `json:"retry_strategy"`
	Escalation     bool   `json:"escalation"`
	ContextSharing string `json:"context_sharing"`
}

// Outcome is the engine's full output: the decision, the emergency event
// opened for it, and the supporting analyses.
type Outcome struct {
	Decision      types.EmergencyDecision `json:"decision"`
	Event         types.EmergencyEvent    `json:"event"`
	Actions       []types.ActionType      `json:"actions"`
	Situation     SituationAnalysis       `json:"situation"`
	Priority      PriorityAssessment      `json:"priority"`
	Resources     ResourceAllocation      `json:"resources"`
	Communication CommunicationStrategy   `json:"communication"`
}

// Engine makes emergency response decisions.
type Engine struct {
	invoker reasoning.Invoker
	logger  *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(invoker reasoning.Invoker, logger *zap.Logger) *Engine {
	return &Engine{invoker: invoker, logger: logger}
}

// Decide runs the analysis passes and applies the response policy. A
// FAILED assessment short-circuits to the conservative fallback without
// consulting any provider.
func (e *Engine) Decide(ctx context.Context, in Input) Outcome {
	if in.Assessment.Status == types.AssessmentFailed {
		verdict := FallbackVerdict("threat assessment unavailable")
		e.logger.Warn("deciding on failed assessment, applying conservative fallback",
			zap.String("assessment_id", in.Assessment.ID),
			zap.String("user_id", in.Assessment.UserID))
		return e.outcome(in, verdict, 0.5, "Escalate to human oversight", Outcome{})
	}

	situation := e.situationPass(ctx, in)
	priority := e.priorityPass(ctx, in, situation)
	resources := e.resourcePass(ctx, priority)
	communication := e.communicationPass(ctx, in, priority)

	verdict := Decide(in.Assessment.Level, in.Confidence)
	confidence := AdjustedConfidence(in.Confidence, in.Assessment.Level)
	fallbackPlan := e.integratedPass(ctx, in, situation, priority, resources, communication, verdict)

	supporting := Outcome{
		Situation:     situation,
		Priority:      priority,
		Resources:     resources,
		Communication: communication,
	}

	out := e.outcome(in, verdict, confidence, fallbackPlan, supporting)

	e.logger.Info("emergency decision completed",
		zap.String("decision_id", out.Decision.ID),
		zap.String("event_id", out.Event.ID),
		zap.String("response_type", string(verdict.ResponseType)),
		zap.String("priority", string(verdict.Priority)),
		zap.Float64("confidence", confidence))

	return out
}

func (e *Engine) outcome(in Input, verdict Verdict, confidence float64, fallbackPlan string, supporting Outcome) Outcome {
	now := time.Now().UTC()
	decision := types.EmergencyDecision{
		ID:                 "ED-" + uuid.NewString(),
		AssessmentID:       in.Assessment.ID,
		ResponseType:       verdict.ResponseType,
		Priority:           verdict.Priority,
		Execution:          verdict.Execution,
		TargetResponseSecs: verdict.TargetResponseSecs,
		Confidence:         confidence,
		Reasoning:          verdict.Reasoning,
		FallbackPlan:       fallbackPlan,
		CreatedAt:          now,
	}

	event := types.EmergencyEvent{
		ID:           "EV-" + uuid.NewString(),
		UserID:       in.Assessment.UserID,
		AssessmentID: in.Assessment.ID,
		Status:       types.EventInitiated,
		Priority:     verdict.Priority,
		Location:     in.Sensor.Location,
		Context: map[string]string{
			"threat_level":         string(in.Assessment.Level),
			"confidence_score":     fmt.Sprintf("%.2f", in.Confidence),
			"response_type":        string(verdict.ResponseType),
			"autonomous_execution": string(verdict.Execution),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	supporting.Decision = decision
	supporting.Event = event
	supporting.Actions = verdict.Actions
	return supporting
}

func (e *Engine) situationPass(ctx context.Context, in Input) SituationAnalysis {
	fallback := SituationAnalysis{
		OverallSeverity:     types.ThreatHigh,
		PrimaryType:         "PHYSICAL",
		ImmediateDanger:     types.ThreatHigh,
		MedicalEmergency:    types.ThreatMedium,
		SecurityThreat:      types.ThreatHigh,
		EscalationPotential: types.ThreatHigh,
		Confidence:          0.8,
	}

	res := e.invoker.Invoke(ctx, situationPrompt(in), passMaxTokens)
	if !res.Success {
		e.degraded("situation", in.Assessment.ID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "severity", Label: "OVERALL_SITUATION_SEVERITY:", Kind: extract.KindLevel, Default: fallback.OverallSeverity},
		{Name: "primary_type", Label: "PRIMARY_EMERGENCY_TYPE:", Kind: extract.KindText, Default: fallback.PrimaryType},
		{Name: "immediate", Label: "IMMEDIATE_DANGER:", Kind: extract.KindLevel, Default: fallback.ImmediateDanger},
		{Name: "medical", Label: "MEDICAL_EMERGENCY:", Kind: extract.KindLevel, Default: fallback.MedicalEmergency},
		{Name: "security", Label: "SECURITY_THREAT:", Kind: extract.KindLevel, Default: fallback.SecurityThreat},
		{Name: "escalation", Label: "ESCALATION_POTENTIAL:", Kind: extract.KindLevel, Default: fallback.EscalationPotential},
		{Name: "confidence", Label: "SITUATION_CONFIDENCE:", Kind: extract.KindConfidence, Default: fallback.Confidence},
	})
	return SituationAnalysis{
		OverallSeverity:     fields.Level("severity"),
		PrimaryType:         fields.String("primary_type"),
		ImmediateDanger:     fields.Level("immediate"),
		MedicalEmergency:    fields.Level("medical"),
		SecurityThreat:      fields.Level("security"),
		EscalationPotential: fields.Level("escalation"),
		Confidence:          fields.Float("confidence"),
	}
}

func (e *Engine) priorityPass(ctx context.Context, in Input, situation SituationAnalysis) PriorityAssessment {
	fallback := PriorityAssessment{
		ResponsePriority:   types.PriorityHigh,
		ResponseTimeTarget: 60,
		Justification:      "High priority emergency response required",
		AutonomousAction:   true,
	}

	res := e.invoker.Invoke(ctx, priorityPrompt(situation), passMaxTokens)
	if !res.Success {
		e.degraded("priority", in.Assessment.ID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "priority", Label: "RESPONSE_PRIORITY:", Kind: extract.KindText, Default: string(fallback.ResponsePriority)},
		{Name: "target", Label: "RESPONSE_TIME_TARGET:", Kind: extract.KindInt, Default: fallback.ResponseTimeTarget},
		{Name: "justification", Label: "JUSTIFICATION:", Kind: extract.KindText, Default: fallback.Justification},
		{Name: "autonomous", Label: "AUTONOMOUS_ACTION_REQUIRED:", Kind: extract.KindBool, Default: true},
		{Name: "oversight", Label: "HUMAN_OVERSIGHT_NEEDED:", Kind: extract.KindBool, Default: false},
	})
	return PriorityAssessment{
		ResponsePriority:   parsePriority(fields.String("priority"), fallback.ResponsePriority),
		ResponseTimeTarget: fields.Int("target"),
		Justification:      fields.String("justification"),
		AutonomousAction:   fields.Bool("autonomous"),
		HumanOversight:     fields.Bool("oversight"),
	}
}

func (e *Engine) resourcePass(ctx context.Context, priority PriorityAssessment) ResourceAllocation {
	fallback := ResourceAllocation{
		EmergencyServices: true,
		TrustedContacts:   true,
		SecurityServices:  true,
		Simultaneous:      true,
	}

	res := e.invoker.Invoke(ctx, resourcePrompt(priority), passMaxTokens)
	if !res.Success {
		e.degraded("resource", "", res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "emergency", Label: "EMERGENCY_SERVICES_CONTACT:", Kind: extract.KindBool, Default: true},
		{Name: "contacts", Label: "TRUSTED_CONTACTS_NOTIFY:", Kind: extract.KindBool, Default: true},
		{Name: "medical", Label: "MEDICAL_SERVICES_ALERT:", Kind: extract.KindBool, Default: false},
		{Name: "security", Label: "SECURITY_SERVICES_ALERT:", Kind: extract.KindBool, Default: true},
		{Name: "order", Label: "RESOURCE_PRIORITY_ORDER:", Kind: extract.KindText, Default: ""},
		{Name: "simultaneous", Label: "SIMULTANEOUS_CONTACT:", Kind: extract.KindBool, Default: true},
	})
	return ResourceAllocation{
		EmergencyServices: fields.Bool("emergency"),
		TrustedContacts:   fields.Bool("contacts"),
		MedicalServices:   fields.Bool("medical"),
		SecurityServices:  fields.Bool("security"),
		Simultaneous:      fields.Bool("simultaneous"),
		PriorityOrder:     fields.String("order"),
	}
}

func (e *Engine) communicationPass(ctx context.Context, in Input, priority PriorityAssessment) CommunicationStrategy {
	fallback := CommunicationStrategy{
		PrimaryMethod:  "VOICE",
		BackupMethod:   "SMS",
		MessageUrgency: "HIGH",
		RetryStrategy:  "IMMEDIATE",
		Escalation:     true,
		ContextSharing: "FULL",
	}

	res := e.invoker.Invoke(ctx, communicationPrompt(in, priority), passMaxTokens)
	if !res.Success {
		e.degraded("communication", in.Assessment.ID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "primary", Label: "PRIMARY_COMMUNICATION_METHOD:", Kind: extract.KindText, Default: fallback.PrimaryMethod},
		{Name: "backup", Label: "BACKUP_COMMUNICATION_METHOD:", Kind: extract.KindText, Default: fallback.BackupMethod},
		{Name: "urgency", Label: "MESSAGE_URGENCY_LEVEL:", Kind: extract.KindText, Default: fallback.MessageUrgency},
		{Name: "retry", Label: "RETRY_STRATEGY:", Kind: extract.KindText, Default: fallback.RetryStrategy},
		{Name: "escalation", Label: "ESCALATION_PROTOCOL:", Kind: extract.KindBool, Default: true},
		{Name: "sharing", Label: "CONTEXT_SHARING_LEVEL:", Kind: extract.KindText, Default: fallback.ContextSharing},
	})
	return CommunicationStrategy{
		PrimaryMethod:  fields.String("primary"),
		BackupMethod:   fields.String("backup"),
		MessageUrgency: fields.String("urgency"),
		RetryStrategy:  fields.String("retry"),
		Escalation:     fields.Bool("escalation"),
		ContextSharing: fields.String("sharing"),
	}
}

// integratedPass asks the provider to narrate a fallback plan around the
// policy verdict. Only the plan text is taken from the response.
func (e *Engine) integratedPass(ctx context.Context, in Input, situation SituationAnalysis, priority PriorityAssessment, resources ResourceAllocation, communication CommunicationStrategy, verdict Verdict) string {
	const defaultPlan = "Escalate to human oversight if primary response fails"

	res := e.invoker.Invoke(ctx, integratedPrompt(situation, priority, resources, communication, verdict), passMaxTokens)
	if !res.Success {
		e.degraded("integrated", in.Assessment.ID, res.Err)
		return defaultPlan
	}
	return extract.Section(res.Text, "FALLBACK_PLAN:", defaultPlan)
}

func (e *Engine) degraded(pass, assessmentID string, err error) {
	e.logger.Warn("decision pass degraded, using defaults",
		zap.String("pass", pass),
		zap.String("assessment_id", assessmentID),
		zap.Error(err))
}

func parsePriority(raw string, def types.Priority) types.Priority {
	if lvl, ok := extract.ParseLevel(raw); ok {
		switch lvl {
		case types.ThreatCritical:
			return types.PriorityCritical
		case types.ThreatHigh:
			return types.PriorityHigh
		case types.ThreatMedium:
			return types.PriorityMedium
		case types.ThreatLow:
			return types.PriorityLow
		}
	}
	return def
}

func situationPrompt(in Input) string {
	return fmt.Sprintf(`Analyze the emergency situation for autonomous response decision:

THREAT ASSESSMENT:
- Assessment ID: %s
- Threat Level: %s
- Confidence Score: %.2f
- LLM Reasoning: %s

CONTEXT INFORMATION:
- User ID: %s
- Location: %s
- Time Context: %s
- Environmental Factors: %s

SENSOR DATA:
- Audio Data: %s
- Motion Data: %s
- Biometric Data: %s

Analyze the situation across these dimensions:
1. IMMEDIATE_DANGER: Is there immediate physical danger?
2. MEDICAL_EMERGENCY: Are there medical emergency indicators?
3. SECURITY_THREAT: Is this a security or safety threat?
4. ENVIRONMENTAL_HAZARD: Are there environmental dangers?
5. ESCALATION_POTENTIAL: How likely is escalation?

For each dimension, provide:
DIMENSION_ASSESSMENT: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
EVIDENCE: [Supporting evidence from data]
URGENCY_LEVEL: [0-10 scale]

Also provide:
OVERALL_SITUATION_SEVERITY: [NONE/LOW/MEDIUM/HIGH/CRITICAL]
PRIMARY_EMERGENCY_TYPE: [MEDICAL/PHYSICAL/SECURITY/ENVIRONMENTAL/UNKNOWN]
SITUATION_CONFIDENCE: [0.0-1.0]`,
		in.Assessment.ID, in.Assessment.Level, in.Confidence, in.Assessment.Reasoning,
		in.Assessment.UserID, in.Sensor.Location, in.TimeContext, in.Sensor.Environmental,
		in.Sensor.Audio, in.Sensor.Motion, in.Sensor.Biometric)
}

func priorityPrompt(situation SituationAnalysis) string {
	return fmt.Sprintf(`Determine emergency response priority based on situation analysis:

SITUATION ANALYSIS RESULTS:
- Overall Severity: %s
- Primary Emergency Type: %s
- Immediate Danger: %s
- Medical Emergency: %s
- Security Threat: %s
- Escalation Potential: %s

PRIORITY FACTORS TO CONSIDER:
1. Life-threatening situations = CRITICAL priority
2. Immediate physical danger = HIGH priority
3. Medical emergencies = HIGH priority
4. Security threats = MEDIUM-HIGH priority
5. Environmental hazards = MEDIUM priority

RESPONSE TIME REQUIREMENTS:
- CRITICAL: Immediate response (0-30 seconds)
- HIGH: Urgent response (30 seconds - 2 minutes)
- MEDIUM: Prompt response (2-10 minutes)
- LOW: Routine response (10+ minutes)

Provide:
RESPONSE_PRIORITY: [CRITICAL/HIGH/MEDIUM/LOW]
RESPONSE_TIME_TARGET: [seconds]
JUSTIFICATION: [Reasoning for priority level]
AUTONOMOUS_ACTION_REQUIRED: [YES/NO]
HUMAN_OVERSIGHT_NEEDED: [YES/NO]`,
		situation.OverallSeverity, situation.PrimaryType, situation.ImmediateDanger,
		situation.MedicalEmergency, situation.SecurityThreat, situation.EscalationPotential)
}

func resourcePrompt(priority PriorityAssessment) string {
	return fmt.Sprintf(`Determine resource allocation for emergency response:

PRIORITY ASSESSMENT:
- Response Priority: %s
- Response Time Target: %d seconds
- Autonomous Action Required: %t
- Human Oversight Needed: %t

AVAILABLE RESOURCES:
1. Emergency Services (911/local emergency)
2. Trusted Contacts (family/friends)
3. Medical Services
4. Security Services
5. Environmental Response Teams

RESOURCE ALLOCATION CRITERIA:
- CRITICAL: All relevant resources immediately
- HIGH: Primary resources + backup notification
- MEDIUM: Primary resources only
- LOW: Monitoring + trusted contacts

Determine:
EMERGENCY_SERVICES_CONTACT: [YES/NO]
TRUSTED_CONTACTS_NOTIFY: [YES/NO]
MEDICAL_SERVICES_ALERT: [YES/NO]
SECURITY_SERVICES_ALERT: [YES/NO]
RESOURCE_PRIORITY_ORDER: [List in order of contact]
SIMULTANEOUS_CONTACT: [YES/NO]`,
		priority.ResponsePriority, priority.ResponseTimeTarget,
		priority.AutonomousAction, priority.HumanOversight)
}

func communicationPrompt(in Input, priority PriorityAssessment) string {
	return fmt.Sprintf(`Determine communication strategy for emergency response:

EMERGENCY CONTEXT:
- Priority Level: %s
- Response Time: %d seconds
- Location: %s
- User Profile: %s

COMMUNICATION CHANNELS:
1. Voice Call (immediate, high reliability)
2. SMS (fast, good reliability)
3. Push Notification (instant, medium reliability)
4. Email (delayed, high reliability)

COMMUNICATION STRATEGY FACTORS:
- CRITICAL: Multi-channel simultaneous
- HIGH: Primary + backup channel
- MEDIUM: Primary channel + confirmation
- LOW: Single channel notification

Determine:
PRIMARY_COMMUNICATION_METHOD: [VOICE/SMS/PUSH/EMAIL]
BACKUP_COMMUNICATION_METHOD: [VOICE/SMS/PUSH/EMAIL]
MESSAGE_URGENCY_LEVEL: [CRITICAL/HIGH/MEDIUM/LOW]
RETRY_STRATEGY: [IMMEDIATE/DELAYED/NONE]
ESCALATION_PROTOCOL: [YES/NO]
CONTEXT_SHARING_LEVEL: [FULL/PARTIAL/MINIMAL]`,
		priority.ResponsePriority, priority.ResponseTimeTarget,
		in.Sensor.Location, in.Assessment.UserID)
}

func integratedPrompt(situation SituationAnalysis, priority PriorityAssessment, resources ResourceAllocation, communication CommunicationStrategy, verdict Verdict) string {
	return fmt.Sprintf(`Make final integrated emergency response decision:

SITUATION ANALYSIS:
- Overall Severity: %s
- Primary Type: %s
- Situation Confidence: %.2f

PRIORITY ASSESSMENT:
- Response Priority: %s
- Time Target: %d seconds
- Autonomous Action: %t

RESOURCE ALLOCATION:
- Emergency Services: %t
- Trusted Contacts: %t
- Medical Services: %t

COMMUNICATION STRATEGY:
- Primary Method: %s
- Message Urgency: %s
- Escalation Protocol: %t

POLICY VERDICT (already decided):
- Response Type: %s
- Priority Level: %s
- Execution Mode: %s

Based on this comprehensive analysis, provide:
DECISION_REASONING: [Comprehensive reasoning for the decision]
FALLBACK_PLAN: [What to do if primary response fails]`,
		situation.OverallSeverity, situation.PrimaryType, situation.Confidence,
		priority.ResponsePriority, priority.ResponseTimeTarget, priority.AutonomousAction,
		resources.EmergencyServices, resources.TrustedContacts, resources.MedicalServices,
		communication.PrimaryMethod, communication.MessageUrgency, communication.Escalation,
		verdict.ResponseType, verdict.Priority, verdict.Execution)
}
