package rules

import (
	"testing"
	"time"

	"github.com/santemut/vigie/internal/config"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func governance() config.Governance {
	return config.Governance{
		DebtCeiling:         1000,
		UnpaidThresholdDays: 30,
	}
}

func TestEvaluatorsNeutralWithoutHistory(t *testing.T) {
	builtins := Builtins(governance())
	facts := Facts{Now: time.Now().UTC()}

	for criterion, evaluate := range builtins {
		assert.Equal(t, Neutral, evaluate(facts), "criterion %s", criterion)
	}
}

func TestPaymentPunctuality(t *testing.T) {
	evaluate := Builtins(governance())[CriterionPaymentPunctuality]

	score := evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 5, OnTime: 4}})
	assert.InDelta(t, 0.8, score, 0.001)

	score = evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 3, OnTime: 0}})
	assert.Zero(t, score)
}

func TestArrearsTrend(t *testing.T) {
	evaluate := Builtins(governance())[CriterionArrearsTrend]

	score := evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 4, AvgOverdueDays: 15}})
	assert.InDelta(t, 0.5, score, 0.001)

	score = evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 4, AvgOverdueDays: 60}})
	assert.Zero(t, score)
}

func TestDebtLevel(t *testing.T) {
	evaluate := Builtins(governance())[CriterionDebtLevel]

	score := evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 2, TotalOwed: 250}})
	assert.InDelta(t, 0.75, score, 0.001)

	score = evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 2, TotalOwed: 5000}})
	assert.Zero(t, score)
}

func TestMembershipTenureStages(t *testing.T) {
	evaluate := Builtins(governance())[CriterionMembershipTenure]
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		daysAgo int
		want    float64
	}{
		{30, 0.4},
		{120, 0.6},
		{200, 0.8},
		{400, 1.0},
	}

	for _, tc := range cases {
		joined := now.AddDate(0, 0, -tc.daysAgo)
		score := evaluate(Facts{JoinedAt: &joined, Now: now})
		assert.InDelta(t, tc.want, score, 0.001, "%d days ago", tc.daysAgo)
	}
}

func TestVerificationFrequencySaturates(t *testing.T) {
	evaluate := Builtins(governance())[CriterionVerificationFrequency]

	score := evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 5}})
	assert.InDelta(t, 0.5, score, 0.001)

	score = evaluate(Facts{Stats: cotisationdomain.VerificationStats{Total: 25}})
	require.Equal(t, 1.0, score)
}
