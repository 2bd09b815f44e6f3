package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/scoring/domain"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRule(ctx context.Context, db *gorm.DB, rule *domain.ScoringRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO scoring_rules (id, name, criterion, weight, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.Criterion,
		rule.Weight,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) UpdateRule(ctx context.Context, db *gorm.DB, rule *domain.ScoringRule) error {
	return db.WithContext(ctx).Exec(
		`UPDATE scoring_rules SET name = ?, weight = ?, active = ?, updated_at = ? WHERE id = ?`,
		rule.Name,
		rule.Weight,
		rule.Active,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repo) FindRuleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ScoringRule, error) {
	var rule domain.ScoringRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, criterion, weight, active, created_at, updated_at
		 FROM scoring_rules WHERE id = ?`,
		id,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB, onlyActive bool) ([]domain.ScoringRule, error) {
	var rules []domain.ScoringRule
	stmt := db.WithContext(ctx).Model(&domain.ScoringRule{})
	if onlyActive {
		stmt = stmt.Where("active = ?", true)
	}
	err := stmt.
		Order("weight desc, name asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) InsertScore(ctx context.Context, db *gorm.DB, record *domain.ScoreRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO score_records (id, member_id, score, risk_tier, breakdown, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.MemberID,
		record.Score,
		record.RiskTier,
		record.Breakdown,
		record.ComputedAt,
	).Error
}

func (r *repo) FindLatestScoreByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*domain.ScoreRecord, error) {
	var record domain.ScoreRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, score, risk_tier, breakdown, computed_at
		 FROM score_records
		 WHERE member_id = ?
		 ORDER BY computed_at DESC, id DESC
		 LIMIT 1`,
		memberID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListScoresByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, page pagination.Pagination) ([]*domain.ScoreRecord, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	stmt := db.WithContext(ctx).
		Model(&domain.ScoreRecord{}).
		Where("member_id = ?", memberID)
	if page.PageToken != "" {
		ts, id, err := pagination.DecodeTimeIDCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("computed_at < ? OR (computed_at = ? AND id < ?)", ts, ts, id)
	}

	var records []*domain.ScoreRecord
	err := stmt.
		Order("computed_at desc, id desc").
		Limit(limit + 1).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
