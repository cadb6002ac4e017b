package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomRequestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    CustomRequestStatus
		to      CustomRequestStatus
		allowed bool
	}{
		{"pending to in review", CustomRequestPending, CustomRequestInReview, true},
		{"in review to accepted", CustomRequestInReview, CustomRequestAccepted, true},
		{"accepted to paid", CustomRequestAccepted, CustomRequestPaid, true},
		{"paid to processed", CustomRequestPaid, CustomRequestProcessed, true},
		{"processed to ongoing", CustomRequestProcessed, CustomRequestOngoing, true},
		{"ongoing to completed", CustomRequestOngoing, CustomRequestCompleted, true},
		{"pending straight to accepted", CustomRequestPending, CustomRequestAccepted, false},
		{"accepted back to in review", CustomRequestAccepted, CustomRequestInReview, false},
		{"completed is terminal", CustomRequestCompleted, CustomRequestOngoing, false},
		{"rejected is terminal", CustomRequestRejected, CustomRequestInReview, false},
		{"cancelled is terminal", CustomRequestCancelled, CustomRequestPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCustomRequestSideExitsFromEveryOpenState(t *testing.T) {
	open := []CustomRequestStatus{
		CustomRequestPending,
		CustomRequestInReview,
		CustomRequestAccepted,
		CustomRequestPaid,
		CustomRequestProcessed,
		CustomRequestOngoing,
	}
	for _, from := range open {
		assert.True(t, from.CanTransitionTo(CustomRequestRejected), "reject from %s", from)
		assert.True(t, from.CanTransitionTo(CustomRequestCancelled), "cancel from %s", from)
	}
}

func TestCustomRequestStatusValid(t *testing.T) {
	assert.True(t, CustomRequestPaid.Valid())
	assert.False(t, CustomRequestStatus("ARCHIVED").Valid())
}
