package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionExpiredAt(t *testing.T) {
	end := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{Status: SubscriptionStatusActive, EndDate: end}

	// Expiry is a read-time fact derived from end_date, not a stored state.
	assert.False(t, sub.ExpiredAt(end.Add(-time.Hour)))
	assert.False(t, sub.ExpiredAt(end))
	assert.True(t, sub.ExpiredAt(end.Add(time.Hour)))
}
