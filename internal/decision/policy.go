// Package decision turns a completed threat assessment into an emergency
// response decision. The response type, execution mode, and required
// actions are decided by a fixed policy table over threat level and
// confidence; reasoning passes contribute analysis, justification, and
// fallback planning around that verdict, never the verdict itself.
package decision

import (
	"fmt"

	"guardian/internal/types"
)

// Verdict is one row of the response policy.
type Verdict struct {
	ResponseType       types.ResponseType
	Priority           types.Priority
	Execution          types.ExecutionMode
	TargetResponseSecs int
	Actions            []types.ActionType
	HumanOversight     bool
	Reasoning          string
}

// Confidence gates for autonomous escalation.
const (
	criticalAutonomousFloor = 0.8
	highAutonomousFloor     = 0.7
)

// Decide maps a threat level and confidence onto the response policy.
// Escalation is monotonic: a higher level at the same confidence never
// yields a less urgent response.
func Decide(level types.ThreatLevel, confidence float64) Verdict {
	switch level {
	case types.ThreatCritical:
		if confidence >= criticalAutonomousFloor {
			return Verdict{
				ResponseType:       types.ResponseImmediateEmergency,
				Priority:           types.PriorityCritical,
				Execution:          types.ExecutionFull,
				TargetResponseSecs: 30,
				Actions: []types.ActionType{
					types.ActionContactEmergencyServices,
					types.ActionNotifyTrustedContacts,
					types.ActionActivateEmergencyProtocol,
				},
				Reasoning: "Critical threat detected with high confidence",
			}
		}
		return Verdict{
			ResponseType:       types.ResponseUrgentResponse,
			Priority:           types.PriorityCritical,
			Execution:          types.ExecutionSupervised,
			TargetResponseSecs: 30,
			Actions: []types.ActionType{
				types.ActionNotifyTrustedContacts,
				types.ActionIncreaseMonitoring,
			},
			HumanOversight: true,
			Reasoning:      "Critical threat detected with moderate confidence",
		}

	case types.ThreatHigh:
		if confidence >= highAutonomousFloor {
			return Verdict{
				ResponseType:       types.ResponsePriorityAlert,
				Priority:           types.PriorityHigh,
				Execution:          types.ExecutionFull,
				TargetResponseSecs: 120,
				Actions: []types.ActionType{
					types.ActionNotifyTrustedContacts,
					types.ActionIncreaseMonitoring,
				},
				Reasoning: "High threat level requires immediate attention and monitoring",
			}
		}
		return Verdict{
			ResponseType:       types.ResponseMonitoringAlert,
			Priority:           types.PriorityHigh,
			Execution:          types.ExecutionSupervised,
			TargetResponseSecs: 120,
			Actions: []types.ActionType{
				types.ActionIncreaseMonitoring,
			},
			HumanOversight: true,
			Reasoning:      "High threat level with low confidence, enhanced monitoring pending verification",
		}

	case types.ThreatMedium:
		return Verdict{
			ResponseType:       types.ResponseMonitoringAlert,
			Priority:           types.PriorityMedium,
			Execution:          types.ExecutionFull,
			TargetResponseSecs: 300,
			Actions: []types.ActionType{
				types.ActionIncreaseMonitoring,
			},
			Reasoning: "Medium threat level, enhanced monitoring activated",
		}

	case types.ThreatLow:
		return Verdict{
			ResponseType:       types.ResponseMonitoringAlert,
			Priority:           types.PriorityLow,
			Execution:          types.ExecutionFull,
			TargetResponseSecs: 900,
			Actions: []types.ActionType{
				types.ActionContinueNormalMonitoring,
			},
			Reasoning: "Low threat level, continue normal monitoring",
		}

	default:
		return Verdict{
			ResponseType:       types.ResponseNoAction,
			Priority:           types.PriorityLow,
			Execution:          types.ExecutionFull,
			TargetResponseSecs: 0,
			Actions: []types.ActionType{
				types.ActionContinueNormalMonitoring,
			},
			Reasoning: "No threat detected, normal operations",
		}
	}
}

// AdjustedConfidence nudges decision confidence by threat level clarity:
// the unambiguous ends of the scale (NONE, CRITICAL) gain 0.1, the
// ambiguous middle loses 0.1. Bounded to [0.1, 1.0].
func AdjustedConfidence(base float64, level types.ThreatLevel) float64 {
	if level == types.ThreatCritical || level == types.ThreatNone {
		if base+0.1 > 1.0 {
			return 1.0
		}
		return base + 0.1
	}
	if base-0.1 < 0.1 {
		return 0.1
	}
	return base - 0.1
}

// FallbackVerdict is the conservative decision taken when the assessment
// itself failed: supervised monitoring with a human in the loop.
func FallbackVerdict(reason string) Verdict {
	return Verdict{
		ResponseType:       types.ResponseMonitoringAlert,
		Priority:           types.PriorityMedium,
		Execution:          types.ExecutionSupervised,
		TargetResponseSecs: 300,
		Actions: []types.ActionType{
			types.ActionIncreaseMonitoring,
		},
		HumanOversight: true,
		Reasoning:      fmt.Sprintf("Conservative fallback decision: %s", reason),
	}
}
