package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusValidated, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusExpired, true},
		{StatusValidated, StatusCancelled, true},
		{StatusValidated, StatusExpired, true},
		{StatusValidated, StatusRejected, false},
		{StatusValidated, StatusPending, false},
		{StatusUsed, StatusCancelled, false},
		{StatusExpired, StatusValidated, false},
		{StatusRejected, StatusExpired, false},
		{StatusCancelled, StatusExpired, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusValidated.Terminal())
	assert.True(t, StatusUsed.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestRemainingBalance(t *testing.T) {
	v := Voucher{MaxAmount: 15000, UsedAmount: 4000}
	assert.EqualValues(t, 11000, v.RemainingBalance())
}

func TestDaysUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	v := Voucher{ExpiresAt: now.AddDate(0, 0, 10)}
	assert.Equal(t, 10, v.DaysUntilExpiry(now))

	v = Voucher{ExpiresAt: now.Add(-time.Hour)}
	assert.Equal(t, 0, v.DaysUntilExpiry(now))
}
