// Package notify plans trusted contact notifications for an emergency
// event: three reasoning passes (context, prioritization, strategy)
// followed by deterministic plan construction.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guardian/internal/extract"
	"guardian/internal/reasoning"
	"guardian/internal/types"
)

const passMaxTokens = 600

// ContextAnalysis is the first pass's read of the notification context.
type ContextAnalysis struct {
	Urgency            string `json:"urgency"`
	PrivacyLevel       string `json:"privacy_level"`
	ContactTypes       string `json:"contact_types"`
	Communication      string `json:"communication"`
	EscalationRequired bool   `json:"escalation_required"`
	Reasoning          string `json:"reasoning"`
}

// Strategy is the third pass's notification plan shape.
type Strategy struct {
	Type        string `json:"type"`
	Timing      string `json:"timing"`
	RetryPolicy string `json:"retry_policy"`
	MaxContacts int    `json:"max_contacts"`
	Reasoning   string `json:"reasoning"`
}

// RankedContact pairs a contact with its notification rank.
type RankedContact struct {
	Contact      types.TrustedContact `json:"contact"`
	Rank         int                  `json:"rank"`
	HighPriority bool                 `json:"high_priority"`
}

// PlanResult is the planner's full output. An empty contact list is not
// an error: Success is true and Plans is empty.
type PlanResult struct {
	DecisionID string                   `json:"decision_id"`
	UserID     string                   `json:"user_id"`
	Analysis   ContextAnalysis          `json:"analysis"`
	Ranked     []RankedContact          `json:"ranked"`
	Strategy   Strategy                 `json:"strategy"`
	Plans      []types.NotificationPlan `json:"plans"`
	Success    bool                     `json:"success"`
	CreatedAt  time.Time                `json:"created_at"`
}

// Input describes the emergency the plans are for.
type Input struct {
	UserID        string
	EmergencyType string
	Priority      types.Priority
	Confidence    float64
	Location      string
	TimeContext   string
	Contacts      []types.TrustedContact
	// MaxContacts, when positive, caps plans below whatever the
	// strategy pass asks for.
	MaxContacts int
}

// Planner builds notification plans.
type Planner struct {
	invoker reasoning.Invoker
	logger  *zap.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(invoker reasoning.Invoker, logger *zap.Logger) *Planner {
	return &Planner{invoker: invoker, logger: logger}
}

// Plan runs the three passes and materializes per-contact plans. Every
// pass degrades to defaults independently.
func (p *Planner) Plan(ctx context.Context, in Input) PlanResult {
	result := PlanResult{
		DecisionID: "ND-" + uuid.NewString(),
		UserID:     in.UserID,
		Success:    true,
		CreatedAt:  time.Now().UTC(),
	}

	if len(in.Contacts) == 0 {
		p.logger.Info("no trusted contacts configured, nothing to plan",
			zap.String("user_id", in.UserID))
		result.Plans = []types.NotificationPlan{}
		return result
	}

	result.Analysis = p.contextPass(ctx, in)
	result.Ranked = p.prioritizationPass(ctx, in, result.Analysis)
	result.Strategy = p.strategyPass(ctx, result.Analysis, result.Ranked)
	result.Plans = buildPlans(in, result.Ranked, result.Strategy)

	p.logger.Info("contact notification plans created",
		zap.String("user_id", in.UserID),
		zap.String("strategy", result.Strategy.Type),
		zap.Int("plans", len(result.Plans)))

	return result
}

func (p *Planner) contextPass(ctx context.Context, in Input) ContextAnalysis {
	fallback := ContextAnalysis{
		Urgency:            "HIGH",
		PrivacyLevel:       "PRIVATE",
		ContactTypes:       "ALL",
		Communication:      "VOICE",
		EscalationRequired: true,
		Reasoning:          "Emergency context analysis",
	}

	res := p.invoker.Invoke(ctx, contextPrompt(in), passMaxTokens)
	if !res.Success {
		p.degraded("context", in.UserID, res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "urgency", Label: "URGENCY_ASSESSMENT:", Kind: extract.KindText, Default: fallback.Urgency},
		{Name: "privacy", Label: "PRIVACY_LEVEL:", Kind: extract.KindText, Default: fallback.PrivacyLevel},
		{Name: "types", Label: "APPROPRIATE_CONTACT_TYPES:", Kind: extract.KindText, Default: fallback.ContactTypes},
		{Name: "communication", Label: "RECOMMENDED_COMMUNICATION:", Kind: extract.KindText, Default: fallback.Communication},
		{Name: "escalation", Label: "ESCALATION_REQUIRED:", Kind: extract.KindBool, Default: true},
		{Name: "reasoning", Label: "CONTEXT_REASONING:", Kind: extract.KindText, Default: fallback.Reasoning},
	})
	return ContextAnalysis{
		Urgency:            fields.String("urgency"),
		PrivacyLevel:       fields.String("privacy"),
		ContactTypes:       fields.String("types"),
		Communication:      fields.String("communication"),
		EscalationRequired: fields.Bool("escalation"),
		Reasoning:          fields.String("reasoning"),
	}
}

func (p *Planner) prioritizationPass(ctx context.Context, in Input, analysis ContextAnalysis) []RankedContact {
	res := p.invoker.Invoke(ctx, prioritizationPrompt(in, analysis), passMaxTokens)
	order := "1,2,3"
	high := "1,2"
	if res.Success {
		order = extract.Section(res.Text, "CONTACT_PRIORITY_ORDER:", order)
		high = extract.Section(res.Text, "HIGH_PRIORITY_CONTACTS:", high)
	} else {
		p.degraded("prioritization", in.UserID, res.Err)
	}
	return RankContacts(in.Contacts, order, high)
}

func (p *Planner) strategyPass(ctx context.Context, analysis ContextAnalysis, ranked []RankedContact) Strategy {
	fallback := Strategy{
		Type:        "SELECTIVE",
		Timing:      "STAGGERED",
		RetryPolicy: "IMMEDIATE",
		MaxContacts: 3,
		Reasoning:   "Selective notification strategy",
	}

	highCount := 0
	for _, rc := range ranked {
		if rc.HighPriority {
			highCount++
		}
	}

	res := p.invoker.Invoke(ctx, strategyPrompt(analysis, highCount, len(ranked)), passMaxTokens)
	if !res.Success {
		p.degraded("strategy", "", res.Err)
		return fallback
	}

	fields := extract.Extract(res.Text, []extract.FieldSpec{
		{Name: "type", Label: "STRATEGY_TYPE:", Kind: extract.KindText, Default: fallback.Type},
		{Name: "timing", Label: "NOTIFICATION_TIMING:", Kind: extract.KindText, Default: fallback.Timing},
		{Name: "retry", Label: "RETRY_STRATEGY:", Kind: extract.KindText, Default: fallback.RetryPolicy},
		{Name: "max", Label: "MAX_CONTACTS_TO_NOTIFY:", Kind: extract.KindInt, Default: fallback.MaxContacts},
		{Name: "reasoning", Label: "STRATEGY_REASONING:", Kind: extract.KindText, Default: fallback.Reasoning},
	})
	s := Strategy{
		Type:        fields.String("type"),
		Timing:      fields.String("timing"),
		RetryPolicy: fields.String("retry"),
		MaxContacts: fields.Int("max"),
		Reasoning:   fields.String("reasoning"),
	}
	if s.MaxContacts < 1 {
		s.MaxContacts = fallback.MaxContacts
	}
	return s
}

// RankContacts orders contacts by a "1,2,3" priority string. Entries
// that are not numbers or are out of range are skipped; a contact number
// listed in highPriority gets the HIGH band.
func RankContacts(contacts []types.TrustedContact, order, highPriority string) []RankedContact {
	high := make(map[int]bool)
	for _, tok := range strings.Split(highPriority, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(tok)); err == nil {
			high[n] = true
		}
	}

	ranked := make([]RankedContact, 0, len(contacts))
	rank := 0
	for _, tok := range strings.Split(order, ",") {
		if rank >= len(contacts) {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || n < 1 || n > len(contacts) {
			continue
		}
		rank++
		ranked = append(ranked, RankedContact{
			Contact:      contacts[n-1],
			Rank:         rank,
			HighPriority: high[n],
		})
	}
	return ranked
}

// buildPlans materializes per-contact plans, capped by the strategy.
func buildPlans(in Input, ranked []RankedContact, strategy Strategy) []types.NotificationPlan {
	max := strategy.MaxContacts
	if in.MaxContacts > 0 && in.MaxContacts < max {
		max = in.MaxContacts
	}
	if max > len(ranked) {
		max = len(ranked)
	}

	plans := make([]types.NotificationPlan, 0, max)
	for i := 0; i < max; i++ {
		rc := ranked[i]
		priority := types.PriorityMedium
		if rc.HighPriority {
			priority = types.PriorityHigh
		}
		plans = append(plans, types.NotificationPlan{
			ID:          "NP-" + uuid.NewString(),
			ContactID:   rc.Contact.ID,
			ContactName: rc.Contact.Name,
			Priority:    priority,
			Method:      notificationMethod(rc.Contact),
			Offset:      NotificationOffset(i, strategy.Timing),
			RetryPolicy: strategy.RetryPolicy,
			Message:     MessageContent(in.EmergencyType, in.Priority, in.Location),
		})
	}
	return plans
}

// NotificationOffset computes the delay before notifying the contact at
// the given position. Simultaneous strategies fire everything at once,
// staggered ones at 30 second intervals, anything else at 60.
func NotificationOffset(position int, timing string) time.Duration {
	switch timing {
	case "SIMULTANEOUS":
		return 0
	case "STAGGERED":
		return time.Duration(position) * 30 * time.Second
	default:
		return time.Duration(position) * 60 * time.Second
	}
}

// MessageContent renders the alert message delivered to each contact.
func MessageContent(emergencyType string, priority types.Priority, location string) string {
	return fmt.Sprintf("EMERGENCY ALERT: %s emergency detected for your contact. "+
		"Priority: %s. Location: %s. Please respond immediately.",
		emergencyType, priority, location)
}

func notificationMethod(contact types.TrustedContact) string {
	if contact.PreferredMethod != "" {
		return contact.PreferredMethod
	}
	return "SMS"
}

func (p *Planner) degraded(pass, userID string, err error) {
	p.logger.Warn("notification pass degraded, using defaults",
		zap.String("pass", pass),
		zap.String("user_id", userID),
		zap.Error(err))
}

func contextPrompt(in Input) string {
	return fmt.Sprintf(`Analyze the emergency context for contact notification decisions:

EMERGENCY DETAILS:
- Emergency Type: %s
- Priority Level: %s
- Confidence Score: %.2f
- Location: %s
- Time Context: %s

CONTEXT FACTORS TO ANALYZE:
1. URGENCY_LEVEL: How urgent is immediate contact notification?
2. PRIVACY_SENSITIVITY: How sensitive is the emergency information?
3. CONTACT_APPROPRIATENESS: What types of contacts are most appropriate?
4. COMMUNICATION_URGENCY: What communication methods are most suitable?
5. ESCALATION_NEED: Is escalation to additional contacts needed?

Provide analysis:
URGENCY_ASSESSMENT: [LOW/MEDIUM/HIGH/CRITICAL]
PRIVACY_LEVEL: [PUBLIC/PRIVATE/CONFIDENTIAL/RESTRICTED]
APPROPRIATE_CONTACT_TYPES: [FAMILY/FRIENDS/MEDICAL/PROFESSIONAL/ALL]
RECOMMENDED_COMMUNICATION: [SMS/VOICE/EMAIL/ALL]
ESCALATION_REQUIRED: [YES/NO]
CONTEXT_REASONING: [Explain the analysis]`,
		in.EmergencyType, in.Priority, in.Confidence, in.Location, in.TimeContext)
}

func prioritizationPrompt(in Input, analysis ContextAnalysis) string {
	var contacts strings.Builder
	for i, c := range in.Contacts {
		fmt.Fprintf(&contacts, "Contact %d: %s (%s) - %s - Primary: %t\n",
			i+1, c.Name, c.Relationship, c.PreferredMethod, c.Primary)
	}

	return fmt.Sprintf(`Prioritize trusted contacts for emergency notification:

EMERGENCY CONTEXT:
- Type: %s
- Priority: %s
- Urgency: %s
- Privacy Level: %s

AVAILABLE CONTACTS:
%s
PRIORITIZATION CRITERIA:
1. Primary contacts get highest priority
2. Family members for medical emergencies
3. Close friends for security threats
4. Professional contacts for work-related incidents
5. Consider preferred communication methods
6. Consider relationship appropriateness for emergency type

Provide prioritization:
CONTACT_PRIORITY_ORDER: [List contact numbers in priority order: 1,2,3...]
HIGH_PRIORITY_CONTACTS: [Contact numbers that should be notified immediately]
MEDIUM_PRIORITY_CONTACTS: [Contact numbers for secondary notification]
NOTIFICATION_REASONING: [Explain prioritization decisions]`,
		in.EmergencyType, in.Priority, analysis.Urgency, analysis.PrivacyLevel,
		contacts.String())
}

func strategyPrompt(analysis ContextAnalysis, highCount, total int) string {
	return fmt.Sprintf(`Determine optimal notification strategy:

CONTEXT:
- Urgency: %s
- Privacy: %s
- High Priority Contacts: %d
- Total Contacts: %d

STRATEGY OPTIONS:
1. IMMEDIATE_ALL: Notify all contacts simultaneously
2. CASCADING: Notify in priority order with delays
3. SELECTIVE: Notify only highest priority contacts
4. ESCALATING: Start with few, escalate if no response

Determine:
STRATEGY_TYPE: [IMMEDIATE_ALL/CASCADING/SELECTIVE/ESCALATING]
NOTIFICATION_TIMING: [SIMULTANEOUS/STAGGERED/DELAYED]
RETRY_STRATEGY: [IMMEDIATE/DELAYED/ESCALATING]
MAX_CONTACTS_TO_NOTIFY: [Number]
STRATEGY_REASONING: [Explain strategy choice]`,
		analysis.Urgency, analysis.PrivacyLevel, highCount, total)
}
