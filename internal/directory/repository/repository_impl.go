package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/directory/domain"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (id, insurer_id, member_no, first_name, last_name, phone, email, status, joined_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.InsurerID,
		member.MemberNo,
		member.FirstName,
		member.LastName,
		member.Phone,
		member.Email,
		member.Status,
		member.JoinedAt,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) FindMemberByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, insurer_id, member_no, first_name, last_name, phone, email, status, joined_at, created_at, updated_at
		 FROM members WHERE id = ?`,
		id,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, filter domain.ListMembersFilter, page pagination.Pagination) ([]*domain.Member, error) {
	var members []*domain.Member
	stmt := db.WithContext(ctx).Model(&domain.Member{})
	if filter.InsurerID != 0 {
		stmt = stmt.Where("insurer_id = ?", filter.InsurerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if page.PageToken != "" {
		ts, id, err := pagination.DecodeTimeIDCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", ts, ts, id)
	}
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) UpdateMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`UPDATE members SET phone = ?, email = ?, status = ?, updated_at = ? WHERE id = ?`,
		member.Phone,
		member.Email,
		member.Status,
		member.UpdatedAt,
		member.ID,
	).Error
}

func (r *repo) InsertAgent(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO agents (id, insurer_id, badge, full_name, active, daily_voucher_limit, hired_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID,
		agent.InsurerID,
		agent.Badge,
		agent.FullName,
		agent.Active,
		agent.DailyVoucherLimit,
		agent.HiredAt,
		agent.CreatedAt,
		agent.UpdatedAt,
	).Error
}

func (r *repo) FindAgentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agent, error) {
	var agent domain.Agent
	err := db.WithContext(ctx).Raw(
		`SELECT id, insurer_id, badge, full_name, active, daily_voucher_limit, hired_at, created_at, updated_at
		 FROM agents WHERE id = ?`,
		id,
	).Scan(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == 0 {
		return nil, nil
	}
	return &agent, nil
}

func (r *repo) UpdateAgent(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).Exec(
		`UPDATE agents SET active = ?, daily_voucher_limit = ?, updated_at = ? WHERE id = ?`,
		agent.Active,
		agent.DailyVoucherLimit,
		agent.UpdatedAt,
		agent.ID,
	).Error
}
