package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, verification *Verification) error
	FindLatestByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*Verification, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, page pagination.Pagination) ([]*Verification, error)
	StatsByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (VerificationStats, error)
}
