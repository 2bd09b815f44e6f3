package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
)

type CreateMemberRequest struct {
	InsurerID snowflake.ID
	FirstName string
	LastName  string
	Phone     string
	Email     string
	JoinedAt  *time.Time
}

type UpdateMemberContactRequest struct {
	MemberID snowflake.ID
	Phone    *string
	Email    *string
}

type ListMembersRequest struct {
	InsurerID snowflake.ID
	Status    MemberStatus
	PageToken string
	PageSize  int
}

type ListMembersResponse struct {
	pagination.PageInfo
	Members []Member `json:"members"`
}

type CreateAgentRequest struct {
	InsurerID         snowflake.ID
	FullName          string
	DailyVoucherLimit int
	HiredAt           *time.Time
}

type Service interface {
	CreateMember(ctx context.Context, req CreateMemberRequest) (Member, error)
	GetMember(ctx context.Context, id snowflake.ID) (Member, error)
	ListMembers(ctx context.Context, req ListMembersRequest) (ListMembersResponse, error)
	UpdateMemberContact(ctx context.Context, req UpdateMemberContactRequest) (Member, error)
	DeactivateMember(ctx context.Context, id snowflake.ID) (Member, error)

	CreateAgent(ctx context.Context, req CreateAgentRequest) (Agent, error)
	GetAgent(ctx context.Context, id snowflake.ID) (Agent, error)
	SetAgentVoucherLimit(ctx context.Context, id snowflake.ID, limit int) (Agent, error)
	DeactivateAgent(ctx context.Context, id snowflake.ID) (Agent, error)
}

var (
	ErrInvalidInsurer      = errors.New("invalid_insurer")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidVoucherLimit = errors.New("invalid_voucher_limit")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrAgentNotFound       = errors.New("agent_not_found")
	ErrDuplicateReference  = errors.New("duplicate_reference")
)
