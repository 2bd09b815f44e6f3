package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
)

// RecordVerificationRequest carries the agent-entered facts of one check.
// Status and overdue days are NOT part of the request: the ledger always
// recomputes them from NextDueDate at write time.
type RecordVerificationRequest struct {
	MemberID          snowflake.ID
	AgentID           snowflake.ID
	NextDueDate       time.Time
	LastPaymentDate   *time.Time
	LastPaymentAmount *int64
	// AmountOwed is an externally supplied hint (billing system or agent
	// entry). The ledger carries it through unchanged and never derives a
	// monetary amount from dates alone.
	AmountOwed *int64
	Notes       string
	DocumentRef string
	// ExemptOverride marks the member exempt by administrative decision,
	// bypassing the date-based computation entirely.
	ExemptOverride bool
}

type ListVerificationsRequest struct {
	MemberID  snowflake.ID
	PageToken string
	PageSize  int
}

type ListVerificationsResponse struct {
	pagination.PageInfo
	Verifications []Verification `json:"verifications"`
}

type Service interface {
	RecordVerification(ctx context.Context, req RecordVerificationRequest) (Verification, error)
	CurrentStatus(ctx context.Context, memberID snowflake.ID) (Verification, error)
	History(ctx context.Context, req ListVerificationsRequest) (ListVerificationsResponse, error)
	Stats(ctx context.Context, memberID snowflake.ID) (VerificationStats, error)
}

var (
	ErrInvalidMember  = errors.New("invalid_member")
	ErrInvalidAgent   = errors.New("invalid_agent")
	ErrInvalidDueDate = errors.New("invalid_due_date")
	ErrNegativeAmount = errors.New("negative_amount")
	ErrNotFound       = errors.New("verification_not_found")
)
