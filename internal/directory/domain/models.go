package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// Member is an insured person. Members are never deleted, only deactivated;
// identity fields are immutable after creation, contact fields are not.
type Member struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InsurerID snowflake.ID `gorm:"not null;index" json:"insurer_id"`
	MemberNo  string       `gorm:"type:text;not null;uniqueIndex" json:"member_no"`
	FirstName string       `gorm:"type:text;not null" json:"first_name"`
	LastName  string       `gorm:"type:text;not null" json:"last_name"`
	Phone     string       `gorm:"type:text" json:"phone,omitempty"`
	Email     string       `gorm:"type:text" json:"email,omitempty"`
	Status    MemberStatus `gorm:"type:text;not null;index" json:"status"`
	JoinedAt  time.Time    `gorm:"not null" json:"joined_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

func (m Member) Active() bool { return m.Status == MemberStatusActive }

// Agent is an operator entitled to verify cotisations and issue vouchers.
// Deactivation is terminal for new work; historical records keep the
// attribution.
type Agent struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	InsurerID         snowflake.ID `gorm:"not null;index" json:"insurer_id"`
	Badge             string       `gorm:"type:text;not null;uniqueIndex" json:"badge"`
	FullName          string       `gorm:"type:text;not null" json:"full_name"`
	Active            bool         `gorm:"not null;default:true" json:"active"`
	DailyVoucherLimit int          `gorm:"not null;default:20" json:"daily_voucher_limit"`
	HiredAt           *time.Time   `json:"hired_at,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Agent) TableName() string { return "agents" }
