package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the payment standing of a member's cotisation at verification
// time. Except for the exempt override it is always derived from the next
// due date, never trusted from caller input.
type Status string

const (
	StatusUpToDate Status = "up_to_date"
	StatusLate     Status = "late"
	StatusUnpaid   Status = "unpaid"
	StatusExempt   Status = "exempt"
)

// Verification is one cotisation check of one member by one agent.
// Verification history is append-only: a new check is a new row.
type Verification struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	MemberID          snowflake.ID `gorm:"not null;index:idx_cotisation_member_verified" json:"member_id"`
	AgentID           snowflake.ID `gorm:"not null;index" json:"agent_id"`
	Status            Status       `gorm:"type:text;not null;index" json:"status"`
	LastPaymentDate   *time.Time   `json:"last_payment_date,omitempty"`
	LastPaymentAmount *int64       `json:"last_payment_amount,omitempty"`
	NextDueDate       time.Time    `gorm:"not null" json:"next_due_date"`
	OverdueDays       int          `gorm:"not null;default:0" json:"overdue_days"`
	AmountOwed        int64        `gorm:"not null;default:0" json:"amount_owed"`
	Notes             string       `gorm:"type:text" json:"notes,omitempty"`
	DocumentRef       string       `gorm:"type:text" json:"document_ref,omitempty"`
	VerifiedAt        time.Time    `gorm:"not null;index:idx_cotisation_member_verified" json:"verified_at"`
}

// TableName sets the database table name.
func (Verification) TableName() string { return "cotisation_verifications" }

func (v Verification) UpToDate() bool { return v.Status == StatusUpToDate }

// VerificationStats aggregates a member's verification history. It feeds
// the scoring rules; zero values mean "no history yet".
type VerificationStats struct {
	Total          int64
	OnTime         int64
	AvgOverdueDays float64
	TotalOwed      int64
}

// Classify derives the cotisation status and overdue days from the next due
// date as of today. Overdue age past unpaidThresholdDays downgrades late to
// unpaid. Both inputs are compared at calendar-day precision.
func Classify(today, nextDueDate time.Time, unpaidThresholdDays int) (Status, int) {
	todayDay := truncateDay(today)
	dueDay := truncateDay(nextDueDate)

	if !todayDay.After(dueDay) {
		return StatusUpToDate, 0
	}

	overdueDays := int(todayDay.Sub(dueDay).Hours() / 24)
	if overdueDays > unpaidThresholdDays {
		return StatusUnpaid, overdueDays
	}
	return StatusLate, overdueDays
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
