package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "guardian.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAssessment(id, userID string) types.ThreatAssessment {
	return types.ThreatAssessment{
		ID:                id,
		UserID:            userID,
		Level:             types.ThreatHigh,
		Confidence:        0.82,
		RecommendedAction: "Alert trusted contacts",
		Reasoning:         "distress audio with biometric spike",
		Provider:          "anthropic",
		TokensUsed:        120,
		Status:            types.AssessmentCompleted,
		CreatedAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestPutAndGetAssessment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleAssessment("TA-1", "user-1")
	require.NoError(t, s.PutAssessment(ctx, in))

	out, err := s.GetAssessment(ctx, "TA-1")
	require.NoError(t, err)
	assert.Equal(t, in.Level, out.Level)
	assert.InDelta(t, in.Confidence, out.Confidence, 1e-9)
	assert.Equal(t, in.Provider, out.Provider)
	assert.Equal(t, in.Status, out.Status)
}

func TestGetAssessmentNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetAssessment(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAssessmentsForUserNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleAssessment("TA-old", "user-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := sampleAssessment("TA-new", "user-1")
	other := sampleAssessment("TA-other", "user-2")

	require.NoError(t, s.PutAssessment(ctx, older))
	require.NoError(t, s.PutAssessment(ctx, newer))
	require.NoError(t, s.PutAssessment(ctx, other))

	list, err := s.AssessmentsForUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "TA-new", list[0].ID)
	assert.Equal(t, "TA-old", list[1].ID)
}

func TestPutAndGetEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := types.EmergencyEvent{
		ID:           "EV-1",
		UserID:       "user-1",
		AssessmentID: "TA-1",
		Status:       types.EventInitiated,
		Priority:     types.PriorityCritical,
		Location:     "Main St",
		Context: map[string]string{
			"threat_level":  "CRITICAL",
			"response_type": "IMMEDIATE_EMERGENCY",
		},
		ServicesContacted: true,
		CreatedAt:         time.Now().UTC().Truncate(time.Second),
		UpdatedAt:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.PutEvent(ctx, in))

	out, err := s.GetEvent(ctx, "EV-1")
	require.NoError(t, err)
	assert.Equal(t, types.EventInitiated, out.Status)
	assert.Equal(t, types.PriorityCritical, out.Priority)
	assert.True(t, out.ServicesContacted)
	assert.Equal(t, "CRITICAL", out.Context["threat_level"])
}

func TestUpdateEventStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := types.EmergencyEvent{
		ID: "EV-2", UserID: "u", AssessmentID: "TA-2",
		Status: types.EventInitiated, Priority: types.PriorityMedium,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutEvent(ctx, ev))

	require.NoError(t, s.UpdateEventStatus(ctx, "EV-2", types.EventResolved))

	out, err := s.GetEvent(ctx, "EV-2")
	require.NoError(t, err)
	assert.Equal(t, types.EventResolved, out.Status)

	err = s.UpdateEventStatus(ctx, "missing", types.EventResolved)
	assert.True(t, errors.Is(err, ErrNotFound))
}
