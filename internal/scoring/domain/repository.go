package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRule(ctx context.Context, db *gorm.DB, rule *ScoringRule) error
	UpdateRule(ctx context.Context, db *gorm.DB, rule *ScoringRule) error
	FindRuleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ScoringRule, error)
	ListRules(ctx context.Context, db *gorm.DB, onlyActive bool) ([]ScoringRule, error)

	InsertScore(ctx context.Context, db *gorm.DB, record *ScoreRecord) error
	FindLatestScoreByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*ScoreRecord, error)
	ListScoresByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, page pagination.Pagination) ([]*ScoreRecord, error)
}
