package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/voucher/domain"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, voucher *domain.Voucher) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vouchers (
			id, code, member_id, agent_id, max_amount, used_amount, status,
			care_type, reason, urgency, facility, metadata, created_at, expires_at, used_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		voucher.ID,
		voucher.Code,
		voucher.MemberID,
		voucher.AgentID,
		voucher.MaxAmount,
		voucher.UsedAmount,
		voucher.Status,
		voucher.CareType,
		voucher.Reason,
		voucher.Urgency,
		voucher.Facility,
		voucher.Metadata,
		voucher.CreatedAt,
		voucher.ExpiresAt,
		voucher.UsedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Voucher, error) {
	var voucher domain.Voucher
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, member_id, agent_id, max_amount, used_amount, status,
		        care_type, reason, urgency, facility, metadata, created_at, expires_at, used_at
		 FROM vouchers WHERE code = ?`,
		code,
	).Scan(&voucher).Error
	if err != nil {
		return nil, err
	}
	if voucher.ID == 0 {
		return nil, nil
	}
	return &voucher, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, page pagination.Pagination) ([]*domain.Voucher, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	stmt := db.WithContext(ctx).
		Model(&domain.Voucher{}).
		Where("member_id = ?", memberID)
	if page.PageToken != "" {
		ts, id, err := pagination.DecodeTimeIDCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", ts, ts, id)
	}

	var vouchers []*domain.Voucher
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&vouchers).Error
	if err != nil {
		return nil, err
	}
	return vouchers, nil
}

// EnsureQuotaRow creates the agent's counter row for the day if it does not
// exist yet. The insert must never raise inside the issuance transaction, so
// the conflict is absorbed in SQL rather than by inspecting the error.
func (r *repo) EnsureQuotaRow(ctx context.Context, db *gorm.DB, agentID snowflake.ID, day string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}, {Name: "day"}},
			DoNothing: true,
		}).
		Create(&domain.AgentDailyQuota{
			AgentID: agentID,
			Day:     day,
			Issued:  0,
		}).Error
}

func (r *repo) IncrementQuota(ctx context.Context, db *gorm.DB, agentID snowflake.ID, day string, limit int) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE agent_daily_quotas
		 SET issued = issued + 1
		 WHERE agent_id = ? AND day = ? AND issued < ?`,
		agentID,
		day,
		limit,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Debit(ctx context.Context, db *gorm.DB, code string, amount int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET used_amount = used_amount + ?,
		     status = CASE WHEN used_amount + ? >= max_amount THEN ? ELSE status END,
		     used_at = CASE WHEN used_at IS NULL THEN ? ELSE used_at END
		 WHERE code = ?
		   AND status = ?
		   AND expires_at > ?
		   AND used_amount + ? <= max_amount`,
		amount,
		amount,
		domain.StatusUsed,
		now,
		code,
		domain.StatusValidated,
		now,
		amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, code string, from, to domain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE vouchers SET status = ? WHERE code = ? AND status = ?`,
		to,
		code,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindExpiredCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.Voucher, error) {
	if limit <= 0 {
		limit = 100
	}
	var vouchers []*domain.Voucher
	err := db.WithContext(ctx).
		Model(&domain.Voucher{}).
		Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusValidated}).
		Where("expires_at <= ?", now).
		Order("expires_at asc, id asc").
		Limit(limit).
		Find(&vouchers).Error
	if err != nil {
		return nil, err
	}
	return vouchers, nil
}
