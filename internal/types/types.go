// Package types defines the domain model shared across the guardian
// pipeline: sensor context, threat assessments, emergency decisions,
// events, actions, and notification plans.
package types

import "time"

// ThreatLevel is the ordered severity classification of a detected threat.
type ThreatLevel string

const (
	ThreatNone     ThreatLevel = "NONE"
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// Severity returns the rank of the level in the total order
// NONE < LOW < MEDIUM < HIGH < CRITICAL. Unknown levels rank as NONE.
func (l ThreatLevel) Severity() int {
	switch l {
	case ThreatLow:
		return 1
	case ThreatMedium:
		return 2
	case ThreatHigh:
		return 3
	case ThreatCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether l is one of the five defined levels.
func (l ThreatLevel) Valid() bool {
	switch l {
	case ThreatNone, ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	}
	return false
}

// ResponseType is the emergency-response posture chosen from the policy table.
type ResponseType string

const (
	ResponseNoAction           ResponseType = "NO_ACTION"
	ResponseMonitoringAlert    ResponseType = "MONITORING_ALERT"
	ResponsePriorityAlert      ResponseType = "PRIORITY_ALERT"
	ResponseUrgentResponse     ResponseType = "URGENT_RESPONSE"
	ResponseImmediateEmergency ResponseType = "IMMEDIATE_EMERGENCY"
)

// Urgency returns the rank of the response type in the total order
// NO_ACTION < MONITORING_ALERT < PRIORITY_ALERT < URGENT_RESPONSE <
// IMMEDIATE_EMERGENCY.
func (r ResponseType) Urgency() int {
	switch r {
	case ResponseMonitoringAlert:
		return 1
	case ResponsePriorityAlert:
		return 2
	case ResponseUrgentResponse:
		return 3
	case ResponseImmediateEmergency:
		return 4
	default:
		return 0
	}
}

// ExecutionMode is the degree of human oversight applied to a decision.
type ExecutionMode string

const (
	ExecutionFull       ExecutionMode = "FULL"
	ExecutionSupervised ExecutionMode = "SUPERVISED"
	ExecutionManual     ExecutionMode = "MANUAL"
)

// Priority is the response priority band of a decision or event.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// AssessmentStatus marks whether a threat assessment completed or failed.
type AssessmentStatus string

const (
	AssessmentCompleted AssessmentStatus = "COMPLETED"
	AssessmentFailed    AssessmentStatus = "FAILED"
)

// EventStatus is the lifecycle state of an emergency event.
// INITIATED -> IN_PROGRESS -> RESOLVED | FALSE_ALARM. Terminal states are
// set by downstream review, not by the pipeline.
type EventStatus string

const (
	EventInitiated  EventStatus = "INITIATED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventResolved   EventStatus = "RESOLVED"
	EventFalseAlarm EventStatus = "FALSE_ALARM"
)

// ActionType identifies one autonomous action the executor can take.
type ActionType string

const (
	ActionContactEmergencyServices  ActionType = "CONTACT_EMERGENCY_SERVICES"
	ActionNotifyTrustedContacts     ActionType = "NOTIFY_TRUSTED_CONTACTS"
	ActionActivateEmergencyProtocol ActionType = "ACTIVATE_EMERGENCY_PROTOCOL"
	ActionMedicalServicesAlert      ActionType = "MEDICAL_SERVICES_ALERT"
	ActionSecurityServicesAlert     ActionType = "SECURITY_SERVICES_ALERT"
	ActionIncreaseMonitoring        ActionType = "INCREASE_MONITORING"
	ActionContinueNormalMonitoring  ActionType = "CONTINUE_NORMAL_MONITORING"
	ActionShareLocation             ActionType = "LOCATION_SHARING"
	ActionTransmitContext           ActionType = "CONTEXT_TRANSMISSION"
)

// ActionStatus marks the outcome of one executed action.
type ActionStatus string

const (
	ActionCompleted ActionStatus = "COMPLETED"
	ActionFailed    ActionStatus = "FAILED"
)

// SensorContext is the immutable input to one pipeline run. Per-modality
// readings are free-text descriptions produced by upstream sensor fusion;
// any of them may be empty.
type SensorContext struct {
	UserID            string    `json:"user_id"`
	Location          string    `json:"location"`
	Audio             string    `json:"audio,omitempty"`
	Motion            string    `json:"motion,omitempty"`
	Environmental     string    `json:"environmental,omitempty"`
	Biometric         string    `json:"biometric,omitempty"`
	AdditionalContext string    `json:"additional_context,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// ThreatAssessment is the structured outcome of the threat assessment stage.
// Later stages only read it.
type ThreatAssessment struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	Level             ThreatLevel      `json:"threat_level"`
	Confidence        float64          `json:"confidence"`
	RecommendedAction string           `json:"recommended_action"`
	Reasoning         string           `json:"reasoning"`
	Provider          string           `json:"provider"`
	TokensUsed        int              `json:"tokens_used,omitempty"`
	Status            AssessmentStatus `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
}

// EmergencyDecision is the integrated output of the decision engine.
type EmergencyDecision struct {
	ID                 string        `json:"id"`
	AssessmentID       string        `json:"assessment_id"`
	ResponseType       ResponseType  `json:"response_type"`
	Priority           Priority      `json:"priority"`
	Execution          ExecutionMode `json:"execution"`
	TargetResponseSecs int           `json:"target_response_secs"`
	Confidence         float64       `json:"confidence"`
	Reasoning          string        `json:"reasoning"`
	FallbackPlan       string        `json:"fallback_plan"`
	CreatedAt          time.Time     `json:"created_at"`
}

// EmergencyEvent is the durable record created for every decision.
type EmergencyEvent struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	AssessmentID      string            `json:"assessment_id"`
	Status            EventStatus       `json:"status"`
	Priority          Priority          `json:"priority"`
	Location          string            `json:"location"`
	Context           map[string]string `json:"context"`
	ServicesContacted bool              `json:"services_contacted"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ActionRecord captures one executed action. Records are append-only within
// an event's action list.
type ActionRecord struct {
	Type        ActionType    `json:"type"`
	Description string        `json:"description"`
	Status      ActionStatus  `json:"status"`
	Result      string        `json:"result"`
	Duration    time.Duration `json:"duration"`
	Timestamp   time.Time     `json:"timestamp"`
}

// TrustedContact is one entry in a user's emergency contact list.
type TrustedContact struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Relationship    string `json:"relationship"`
	PreferredMethod string `json:"preferred_method"`
	Primary         bool   `json:"primary"`
}

// NotificationPlan schedules one notification to one contact. Plans are
// produced fresh per decision and never reused.
type NotificationPlan struct {
	ID          string        `json:"id"`
	ContactID   string        `json:"contact_id"`
	ContactName string        `json:"contact_name"`
	Priority    Priority      `json:"priority"`
	Method      string        `json:"method"`
	Offset      time.Duration `json:"offset"`
	RetryPolicy string        `json:"retry_policy"`
	Message     string        `json:"message"`
}
