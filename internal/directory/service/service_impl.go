package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/clock"
	"github.com/santemut/vigie/internal/directory/domain"
	pkgdb "github.com/santemut/vigie/pkg/db"
	"github.com/santemut/vigie/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("directory.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateMember(ctx context.Context, req domain.CreateMemberRequest) (domain.Member, error) {
	if req.InsurerID == 0 {
		return domain.Member{}, domain.ErrInvalidInsurer
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return domain.Member{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	joinedAt := now
	if req.JoinedAt != nil && !req.JoinedAt.IsZero() {
		joinedAt = req.JoinedAt.UTC()
	}

	id := s.genID.Generate()
	member := domain.Member{
		ID:        id,
		InsurerID: req.InsurerID,
		MemberNo:  fmt.Sprintf("MBR-%s-%04d", joinedAt.Format("20060102"), id%10000),
		FirstName: firstName,
		LastName:  lastName,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		Status:    domain.MemberStatusActive,
		JoinedAt:  joinedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertMember(ctx, s.db, &member); err != nil {
		// member_no derives from the generated id and can collide when
		// two members join the same day.
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Member{}, domain.ErrDuplicateReference
		}
		return domain.Member{}, err
	}
	return member, nil
}

func (s *Service) GetMember(ctx context.Context, id snowflake.ID) (domain.Member, error) {
	if id == 0 {
		return domain.Member{}, domain.ErrInvalidID
	}
	member, err := s.repo.FindMemberByID(ctx, s.db, id)
	if err != nil {
		return domain.Member{}, err
	}
	if member == nil {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	return *member, nil
}

func (s *Service) ListMembers(ctx context.Context, req domain.ListMembersRequest) (domain.ListMembersResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListMembers(ctx, s.db, domain.ListMembersFilter{
		InsurerID: req.InsurerID,
		Status:    req.Status,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListMembersResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(member *domain.Member) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        member.ID.String(),
			CreatedAt: member.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	members := make([]domain.Member, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}

	resp := domain.ListMembersResponse{Members: members}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) UpdateMemberContact(ctx context.Context, req domain.UpdateMemberContactRequest) (domain.Member, error) {
	member, err := s.GetMember(ctx, req.MemberID)
	if err != nil {
		return domain.Member{}, err
	}

	if req.Phone != nil {
		member.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		member.Email = strings.TrimSpace(*req.Email)
	}
	member.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateMember(ctx, s.db, &member); err != nil {
		return domain.Member{}, err
	}
	return member, nil
}

func (s *Service) DeactivateMember(ctx context.Context, id snowflake.ID) (domain.Member, error) {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if member.Status == domain.MemberStatusInactive {
		return member, nil
	}

	member.Status = domain.MemberStatusInactive
	member.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateMember(ctx, s.db, &member); err != nil {
		return domain.Member{}, err
	}

	s.log.Info("member deactivated", zap.String("member_id", member.ID.String()))
	return member, nil
}

func (s *Service) CreateAgent(ctx context.Context, req domain.CreateAgentRequest) (domain.Agent, error) {
	if req.InsurerID == 0 {
		return domain.Agent{}, domain.ErrInvalidInsurer
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.Agent{}, domain.ErrInvalidName
	}
	limit := req.DailyVoucherLimit
	if limit == 0 {
		limit = 20
	}
	if limit < 1 {
		return domain.Agent{}, domain.ErrInvalidVoucherLimit
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	agent := domain.Agent{
		ID:                id,
		InsurerID:         req.InsurerID,
		Badge:             fmt.Sprintf("AGT-%s-%04d", now.Format("20060102"), id%10000),
		FullName:          fullName,
		Active:            true,
		DailyVoucherLimit: limit,
		HiredAt:           req.HiredAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.InsertAgent(ctx, s.db, &agent); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Agent{}, domain.ErrDuplicateReference
		}
		return domain.Agent{}, err
	}
	return agent, nil
}

func (s *Service) GetAgent(ctx context.Context, id snowflake.ID) (domain.Agent, error) {
	if id == 0 {
		return domain.Agent{}, domain.ErrInvalidID
	}
	agent, err := s.repo.FindAgentByID(ctx, s.db, id)
	if err != nil {
		return domain.Agent{}, err
	}
	if agent == nil {
		return domain.Agent{}, domain.ErrAgentNotFound
	}
	return *agent, nil
}

func (s *Service) SetAgentVoucherLimit(ctx context.Context, id snowflake.ID, limit int) (domain.Agent, error) {
	if limit < 1 {
		return domain.Agent{}, domain.ErrInvalidVoucherLimit
	}
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return domain.Agent{}, err
	}

	agent.DailyVoucherLimit = limit
	agent.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateAgent(ctx, s.db, &agent); err != nil {
		return domain.Agent{}, err
	}
	return agent, nil
}

func (s *Service) DeactivateAgent(ctx context.Context, id snowflake.ID) (domain.Agent, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return domain.Agent{}, err
	}
	if !agent.Active {
		return agent, nil
	}

	agent.Active = false
	agent.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateAgent(ctx, s.db, &agent); err != nil {
		return domain.Agent{}, err
	}

	s.log.Info("agent deactivated", zap.String("agent_id", agent.ID.String()))
	return agent, nil
}
