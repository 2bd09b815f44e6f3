package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
	StatusUsed      Status = "used"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusUsed, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition enforces the voucher state machine: pending may be
// validated or rejected, any non-terminal state may expire or be cancelled,
// and only redemption moves a voucher to used.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusValidated, StatusRejected:
		return from == StatusPending
	case StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// Voucher ("bon de soin") is a pre-authorized spending instrument capped at
// MaxAmount. Vouchers are never deleted; they end up used, rejected,
// expired or cancelled.
type Voucher struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code       string            `gorm:"type:text;not null;uniqueIndex" json:"code"`
	MemberID   snowflake.ID      `gorm:"not null;index" json:"member_id"`
	AgentID    snowflake.ID      `gorm:"not null;index:idx_vouchers_agent_created" json:"agent_id"`
	MaxAmount  int64             `gorm:"not null" json:"max_amount"`
	UsedAmount int64             `gorm:"not null;default:0" json:"used_amount"`
	Status     Status            `gorm:"type:text;not null;index" json:"status"`
	CareType   string            `gorm:"type:text" json:"care_type,omitempty"`
	Reason     string            `gorm:"type:text" json:"reason,omitempty"`
	Urgency    Urgency           `gorm:"type:text;not null;default:'normal'" json:"urgency"`
	Facility   string            `gorm:"type:text" json:"facility,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_vouchers_agent_created" json:"created_at"`
	ExpiresAt  time.Time         `gorm:"not null;index" json:"expires_at"`
	UsedAt     *time.Time        `json:"used_at,omitempty"`
}

// TableName sets the database table name.
func (Voucher) TableName() string { return "vouchers" }

// RemainingBalance is the amount still spendable on the voucher.
func (v Voucher) RemainingBalance() int64 {
	return v.MaxAmount - v.UsedAmount
}

// DaysUntilExpiry returns whole days before expiry, 0 once expired.
func (v Voucher) DaysUntilExpiry(now time.Time) int {
	if !v.ExpiresAt.After(now) {
		return 0
	}
	return int(v.ExpiresAt.Sub(now).Hours() / 24)
}

// AgentDailyQuota is the per-agent per-day issuance counter. The guarded
// increment on this row is what makes the daily limit race-free.
type AgentDailyQuota struct {
	AgentID snowflake.ID `gorm:"primaryKey"`
	Day     string       `gorm:"type:text;primaryKey"`
	Issued  int          `gorm:"not null;default:0"`
}

// TableName sets the database table name.
func (AgentDailyQuota) TableName() string { return "agent_daily_quotas" }
