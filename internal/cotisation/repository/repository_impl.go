package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/cotisation/domain"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, verification *domain.Verification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cotisation_verifications (
			id, member_id, agent_id, status, last_payment_date, last_payment_amount,
			next_due_date, overdue_days, amount_owed, notes, document_ref, verified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		verification.ID,
		verification.MemberID,
		verification.AgentID,
		verification.Status,
		verification.LastPaymentDate,
		verification.LastPaymentAmount,
		verification.NextDueDate,
		verification.OverdueDays,
		verification.AmountOwed,
		verification.Notes,
		verification.DocumentRef,
		verification.VerifiedAt,
	).Error
}

func (r *repo) FindLatestByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*domain.Verification, error) {
	var verification domain.Verification
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, agent_id, status, last_payment_date, last_payment_amount,
		        next_due_date, overdue_days, amount_owed, notes, document_ref, verified_at
		 FROM cotisation_verifications
		 WHERE member_id = ?
		 ORDER BY verified_at DESC, id DESC
		 LIMIT 1`,
		memberID,
	).Scan(&verification).Error
	if err != nil {
		return nil, err
	}
	if verification.ID == 0 {
		return nil, nil
	}
	return &verification, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, page pagination.Pagination) ([]*domain.Verification, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	stmt := db.WithContext(ctx).
		Model(&domain.Verification{}).
		Where("member_id = ?", memberID)
	if page.PageToken != "" {
		ts, id, err := pagination.DecodeTimeIDCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("verified_at < ? OR (verified_at = ? AND id < ?)", ts, ts, id)
	}

	var verifications []*domain.Verification
	err := stmt.
		Order("verified_at desc, id desc").
		Limit(limit + 1).
		Find(&verifications).Error
	if err != nil {
		return nil, err
	}
	return verifications, nil
}

func (r *repo) StatsByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (domain.VerificationStats, error) {
	var stats domain.VerificationStats
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(CASE WHEN overdue_days = 0 THEN 1 ELSE 0 END), 0) AS on_time,
		        COALESCE(AVG(overdue_days), 0) AS avg_overdue_days,
		        COALESCE(SUM(amount_owed), 0) AS total_owed
		 FROM cotisation_verifications
		 WHERE member_id = ?`,
		memberID,
	).Scan(&stats).Error
	if err != nil {
		return domain.VerificationStats{}, err
	}
	return stats, nil
}
