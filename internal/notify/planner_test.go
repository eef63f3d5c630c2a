package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guardian/internal/types"
)

func threeContacts() []types.TrustedContact {
	return []types.TrustedContact{
		{ID: "c1", Name: "Ana", Relationship: "sister", PreferredMethod: "VOICE", Primary: true},
		{ID: "c2", Name: "Ben", Relationship: "friend", PreferredMethod: "SMS"},
		{ID: "c3", Name: "Cleo", Relationship: "neighbor"},
	}
}

func planInput(contacts []types.TrustedContact) Input {
	return Input{
		UserID:        "user-5",
		EmergencyType: "PHYSICAL_THREAT",
		Priority:      types.PriorityHigh,
		Confidence:    0.8,
		Location:      "Oak St 12",
		TimeContext:   "23:30",
		Contacts:      contacts,
	}
}

func TestPlanFullChain(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"URGENCY_ASSESSMENT: CRITICAL\nPRIVACY_LEVEL: PRIVATE\nAPPROPRIATE_CONTACT_TYPES: FAMILY\nRECOMMENDED_COMMUNICATION: VOICE\nESCALATION_REQUIRED: YES\nCONTEXT_REASONING: urgent physical threat\n",
		"CONTACT_PRIORITY_ORDER: 2,1,3\nHIGH_PRIORITY_CONTACTS: 2\nNOTIFICATION_REASONING: Ben is closest\n",
		"STRATEGY_TYPE: CASCADING\nNOTIFICATION_TIMING: STAGGERED\nRETRY_STRATEGY: IMMEDIATE\nMAX_CONTACTS_TO_NOTIFY: 2\nSTRATEGY_REASONING: cascade by proximity\n",
	}}
	p := NewPlanner(inv, zap.NewNop())

	res := p.Plan(context.Background(), planInput(threeContacts()))

	require.True(t, res.Success)
	require.Equal(t, 3, inv.calls)
	assert.Equal(t, "CRITICAL", res.Analysis.Urgency)

	require.Len(t, res.Ranked, 3)
	assert.Equal(t, "Ben", res.Ranked[0].Contact.Name)
	assert.True(t, res.Ranked[0].HighPriority)
	assert.Equal(t, "Ana", res.Ranked[1].Contact.Name)

	require.Len(t, res.Plans, 2)
	assert.Equal(t, "Ben", res.Plans[0].ContactName)
	assert.Equal(t, types.PriorityHigh, res.Plans[0].Priority)
	assert.Equal(t, "SMS", res.Plans[0].Method)
	assert.Equal(t, time.Duration(0), res.Plans[0].Offset)
	assert.Equal(t, "Ana", res.Plans[1].ContactName)
	assert.Equal(t, "VOICE", res.Plans[1].Method)
	assert.Equal(t, 30*time.Second, res.Plans[1].Offset)
	assert.Contains(t, res.Plans[0].Message, "EMERGENCY ALERT: PHYSICAL_THREAT emergency detected")
	assert.Contains(t, res.Plans[0].Message, "Location: Oak St 12")
}

func TestPlanEmptyContactsSucceedsWithNoPlans(t *testing.T) {
	inv := &scriptedInvoker{}
	p := NewPlanner(inv, zap.NewNop())

	res := p.Plan(context.Background(), planInput(nil))

	assert.True(t, res.Success)
	assert.Empty(t, res.Plans)
	assert.Zero(t, inv.calls)
}

func TestPlanAllPassesDegraded(t *testing.T) {
	p := NewPlanner(&scriptedInvoker{failAll: true}, zap.NewNop())

	res := p.Plan(context.Background(), planInput(threeContacts()))

	require.True(t, res.Success)
	assert.Equal(t, "SELECTIVE", res.Strategy.Type)
	assert.Equal(t, "STAGGERED", res.Strategy.Timing)
	// default order 1,2,3 with high priority 1,2
	require.Len(t, res.Plans, 3)
	assert.Equal(t, "Ana", res.Plans[0].ContactName)
	assert.Equal(t, types.PriorityHigh, res.Plans[0].Priority)
	assert.Equal(t, types.PriorityMedium, res.Plans[2].Priority)
	assert.Equal(t, 60*time.Second, res.Plans[2].Offset)
}

func TestPlanHardCapOverridesStrategy(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"URGENCY_ASSESSMENT: HIGH\n",
		"CONTACT_PRIORITY_ORDER: 1,2,3\nHIGH_PRIORITY_CONTACTS: 1\n",
		"STRATEGY_TYPE: IMMEDIATE_ALL\nNOTIFICATION_TIMING: SIMULTANEOUS\nMAX_CONTACTS_TO_NOTIFY: 3\n",
	}}
	p := NewPlanner(inv, zap.NewNop())

	in := planInput(threeContacts())
	in.MaxContacts = 1
	res := p.Plan(context.Background(), in)

	require.Len(t, res.Plans, 1)
	assert.Equal(t, "Ana", res.Plans[0].ContactName)
}

func TestRankContactsSkipsMalformedTokens(t *testing.T) {
	ranked := RankContacts(threeContacts(), "3, x, 9, 1", "3")

	require.Len(t, ranked, 2)
	assert.Equal(t, "Cleo", ranked[0].Contact.Name)
	assert.True(t, ranked[0].HighPriority)
	assert.Equal(t, "Ana", ranked[1].Contact.Name)
	assert.False(t, ranked[1].HighPriority)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestRankContactsHighPriorityMatchesWholeNumbers(t *testing.T) {
	contacts := make([]types.TrustedContact, 12)
	for i := range contacts {
		contacts[i] = types.TrustedContact{
			ID:   fmt.Sprintf("c%d", i+1),
			Name: fmt.Sprintf("Contact %d", i+1),
		}
	}

	ranked := RankContacts(contacts, "1, 2, 10, 12", "10, 12")

	require.Len(t, ranked, 4)
	assert.False(t, ranked[0].HighPriority, "contact 1 is not in the high list")
	assert.False(t, ranked[1].HighPriority, "contact 2 is not in the high list")
	assert.True(t, ranked[2].HighPriority)
	assert.True(t, ranked[3].HighPriority)
}

func TestNotificationOffset(t *testing.T) {
	assert.Equal(t, time.Duration(0), NotificationOffset(2, "SIMULTANEOUS"))
	assert.Equal(t, 60*time.Second, NotificationOffset(2, "STAGGERED"))
	assert.Equal(t, 2*time.Minute, NotificationOffset(2, "DELAYED"))
}

func TestMessageContent(t *testing.T) {
	msg := MessageContent("MEDICAL", types.PriorityCritical, "Home")
	assert.Equal(t,
		"EMERGENCY ALERT: MEDICAL emergency detected for your contact. Priority: CRITICAL. Location: Home. Please respond immediately.",
		msg)
}

func TestPlanContactWithoutPreferredMethodDefaultsToSMS(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"URGENCY_ASSESSMENT: HIGH\n",
		"CONTACT_PRIORITY_ORDER: 3\nHIGH_PRIORITY_CONTACTS: 3\n",
		"STRATEGY_TYPE: SELECTIVE\nNOTIFICATION_TIMING: SIMULTANEOUS\nMAX_CONTACTS_TO_NOTIFY: 1\n",
	}}
	p := NewPlanner(inv, zap.NewNop())

	res := p.Plan(context.Background(), planInput(threeContacts()))

	require.Len(t, res.Plans, 1)
	assert.Equal(t, "Cleo", res.Plans[0].ContactName)
	assert.Equal(t, "SMS", res.Plans[0].Method)
}
