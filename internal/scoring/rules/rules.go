// Package rules holds the built-in scoring rule evaluators. Every evaluator
// maps member facts to a raw score in [0,1] and degrades to the neutral
// default when the data it needs is absent.
package rules

import (
	"time"

	"github.com/santemut/vigie/internal/config"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
)

// Neutral is the raw score substituted when a rule has no data to judge.
// Missing data is never treated as best or worst case.
const Neutral = 0.5

// Facts are the member observations rules evaluate against.
type Facts struct {
	Stats    cotisationdomain.VerificationStats
	JoinedAt *time.Time
	Now      time.Time
}

// Evaluator computes one criterion's raw score from member facts.
type Evaluator func(Facts) float64

const (
	CriterionPaymentPunctuality    = "payment_punctuality"
	CriterionArrearsTrend          = "arrears_trend"
	CriterionDebtLevel             = "debt_level"
	CriterionMembershipTenure      = "membership_tenure"
	CriterionVerificationFrequency = "verification_frequency"
)

// Builtins returns the evaluator registry. Custom criteria can be layered
// on top; anything absent from the registry scores neutral.
func Builtins(cfg config.Governance) map[string]Evaluator {
	return map[string]Evaluator{
		CriterionPaymentPunctuality:    paymentPunctuality,
		CriterionArrearsTrend:          arrearsTrend(cfg.UnpaidThresholdDays),
		CriterionDebtLevel:             debtLevel(cfg.DebtCeiling),
		CriterionMembershipTenure:      membershipTenure,
		CriterionVerificationFrequency: verificationFrequency,
	}
}

// paymentPunctuality is the fraction of verifications with zero overdue
// days.
func paymentPunctuality(f Facts) float64 {
	if f.Stats.Total == 0 {
		return Neutral
	}
	return clamp01(float64(f.Stats.OnTime) / float64(f.Stats.Total))
}

// arrearsTrend rewards a low average overdue age, zeroing out once the
// average reaches the unpaid threshold.
func arrearsTrend(thresholdDays int) Evaluator {
	return func(f Facts) float64 {
		if f.Stats.Total == 0 {
			return Neutral
		}
		if thresholdDays <= 0 {
			thresholdDays = 30
		}
		return clamp01(1 - f.Stats.AvgOverdueDays/float64(thresholdDays))
	}
}

// debtLevel normalizes total arrears against the configured reference
// ceiling.
func debtLevel(ceiling int64) Evaluator {
	return func(f Facts) float64 {
		if f.Stats.Total == 0 {
			return Neutral
		}
		if ceiling <= 0 {
			ceiling = 1000
		}
		return clamp01(1 - float64(f.Stats.TotalOwed)/float64(ceiling))
	}
}

// membershipTenure is a staged score over membership age.
func membershipTenure(f Facts) float64 {
	if f.JoinedAt == nil || f.JoinedAt.IsZero() {
		return Neutral
	}
	days := int(f.Now.Sub(*f.JoinedAt).Hours() / 24)
	switch {
	case days > 365:
		return 1.0
	case days > 180:
		return 0.8
	case days > 90:
		return 0.6
	default:
		return 0.4
	}
}

// verificationFrequency saturates at ten verifications.
func verificationFrequency(f Facts) float64 {
	if f.Stats.Total == 0 {
		return Neutral
	}
	return clamp01(float64(f.Stats.Total) / 10)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
