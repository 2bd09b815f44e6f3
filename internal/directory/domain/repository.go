package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListMembersFilter struct {
	InsurerID snowflake.ID
	Status    MemberStatus
}

type Repository interface {
	InsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	FindMemberByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, db *gorm.DB, filter ListMembersFilter, page pagination.Pagination) ([]*Member, error)
	UpdateMember(ctx context.Context, db *gorm.DB, member *Member) error

	InsertAgent(ctx context.Context, db *gorm.DB, agent *Agent) error
	FindAgentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Agent, error)
	UpdateAgent(ctx context.Context, db *gorm.DB, agent *Agent) error
}
