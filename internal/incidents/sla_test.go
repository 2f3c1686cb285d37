package incidents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeSLA(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name      string
		status    Status
		due       *time.Time
		updatedAt time.Time
		want      SLAStatus
	}{
		{"no due date", StatusOpen, nil, now, SLAOk},
		{"comfortably ahead", StatusOpen, at(6 * time.Hour), now, SLAOk},
		{"inside risk window", StatusInvestigating, at(90 * time.Minute), now, SLARisk},
		{"exactly at threshold", StatusOpen, at(2 * time.Hour), now, SLARisk},
		{"past due", StatusOpen, at(-30 * time.Minute), now, SLABreached},
		{"resolved before due", StatusResolved, at(-time.Hour), now.Add(-2 * time.Hour), SLAOk},
		{"resolved after due", StatusClosed, at(-time.Hour), now.Add(-30 * time.Minute), SLABreached},
		{"resolved near due is not at risk", StatusResolved, at(time.Hour), now, SLAOk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeSLA(tt.status, tt.due, tt.updatedAt, now))
		})
	}
}

func TestComputeSLACustomThreshold(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(3 * time.Hour)
	assert.Equal(t, SLAOk, ComputeSLA(StatusOpen, &due, now, now))
	assert.Equal(t, SLARisk, ComputeSLAWithThreshold(StatusOpen, &due, now, now, 4*time.Hour))
}

func TestTransitionsGraph(t *testing.T) {
	assert.NoError(t, Transitions.Validate(StatusOpen, StatusInvestigating))
	assert.NoError(t, Transitions.Validate(StatusResolved, StatusClosed))
	assert.Error(t, Transitions.Validate(StatusClosed, StatusOpen))
	assert.True(t, Transitions.Terminal(StatusClosed))
}
