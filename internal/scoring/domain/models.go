package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RiskTier is the discrete band derived from a continuous risk score.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierModerate RiskTier = "moderate"
	TierElevated RiskTier = "elevated"
	TierSevere   RiskTier = "severe"
)

// TierForScore maps a 0-100 score to its band. Boundaries are inclusive on
// the lower bound of each band.
func TierForScore(score float64) RiskTier {
	switch {
	case score >= 80:
		return TierLow
	case score >= 60:
		return TierModerate
	case score >= 40:
		return TierElevated
	default:
		return TierSevere
	}
}

// ScoringRule is a named weighted criterion. Editing a rule only affects
// future scoring runs; past records keep the weights they were computed
// with.
type ScoringRule struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Criterion string       `gorm:"type:text;not null;index" json:"criterion"`
	Weight    float64      `gorm:"not null" json:"weight"`
	Active    bool         `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ScoringRule) TableName() string { return "scoring_rules" }

// BreakdownItem is the audit trail of one rule inside one scoring run.
type BreakdownItem struct {
	RuleName string  `json:"rule_name"`
	RawScore float64 `json:"raw_score"`
	Weight   float64 `json:"weight"`
	Anomaly  string  `json:"anomaly,omitempty"`
}

// Breakdown maps criterion key to its evaluation result.
type Breakdown map[string]BreakdownItem

// ScoreRecord is an immutable snapshot of one scoring run. A member
// accumulates many records over time; none is ever updated or deleted.
type ScoreRecord struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	MemberID   snowflake.ID   `gorm:"not null;index:idx_scores_member_computed" json:"member_id"`
	Score      float64        `gorm:"not null" json:"score"`
	RiskTier   RiskTier       `gorm:"type:text;not null;index" json:"risk_tier"`
	Breakdown  datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"breakdown"`
	ComputedAt time.Time      `gorm:"not null;index:idx_scores_member_computed" json:"computed_at"`
}

// TableName sets the database table name.
func (ScoreRecord) TableName() string { return "score_records" }

// ParseBreakdown decodes the stored per-rule breakdown.
func (r ScoreRecord) ParseBreakdown() (Breakdown, error) {
	var breakdown Breakdown
	if len(r.Breakdown) == 0 {
		return Breakdown{}, nil
	}
	if err := json.Unmarshal(r.Breakdown, &breakdown); err != nil {
		return nil, err
	}
	return breakdown, nil
}
