package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanApply(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   ApprovalStatus
		cooldown time.Time
		want     bool
	}{
		{"approved and cooldown passed", StatusApproved, now.Add(-time.Hour), true},
		{"approved exactly at cooldown", StatusApproved, now, true},
		{"approved but cooldown not passed", StatusApproved, now.Add(time.Hour), false},
		{"pending regardless of time", StatusPending, now.Add(-time.Hour), false},
		{"denied regardless of time", StatusDenied, now.Add(-time.Hour), false},
		{"approved with zero cooldown treated as never passed", StatusApproved, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &ApprovalRequest{Status: tt.status, CooldownUntil: tt.cooldown}
			assert.Equal(t, tt.want, app.CanApply(now))
		})
	}
}

func TestValidateResolution(t *testing.T) {
	assert.NoError(t, ValidateResolution(StatusApproved))
	assert.NoError(t, ValidateResolution(StatusDenied))

	for _, status := range []ApprovalStatus{StatusPending, "cancelled", "", "APPROVED"} {
		assert.ErrorIs(t, ValidateResolution(status), ErrInvalidStatus, "status %q", status)
	}
}
