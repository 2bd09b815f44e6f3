package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
)

type IssueRequest struct {
	AgentID   snowflake.ID
	MemberID  snowflake.ID
	MaxAmount int64
	CareType  string
	Reason    string
	Urgency   Urgency
	Facility  string
	Metadata  map[string]any
	// ValidityDays overrides the default validity window when positive.
	ValidityDays int
}

type ListVouchersRequest struct {
	MemberID  snowflake.ID
	PageToken string
	PageSize  int
}

type ListVouchersResponse struct {
	pagination.PageInfo
	Vouchers []Voucher `json:"vouchers"`
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (Voucher, error)
	Redeem(ctx context.Context, code string, amount int64) (Voucher, error)
	SetStatus(ctx context.Context, code string, to Status) (Voucher, error)
	Get(ctx context.Context, code string) (Voucher, error)
	ListByMember(ctx context.Context, req ListVouchersRequest) (ListVouchersResponse, error)
	// ExpireOverdue flips non-terminal vouchers past their expiry to
	// expired, at most batchSize per call, and returns how many it flipped.
	ExpireOverdue(ctx context.Context, batchSize int) (int, error)
}

var (
	ErrInvalidMember       = errors.New("invalid_member")
	ErrInvalidAgent        = errors.New("invalid_agent")
	ErrAgentInactive       = errors.New("agent_inactive")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrQuotaExceeded       = errors.New("quota_exceeded")
	ErrNotFound            = errors.New("voucher_not_found")
	ErrNotRedeemable       = errors.New("voucher_not_redeemable")
	ErrExpired             = errors.New("voucher_expired")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
)
