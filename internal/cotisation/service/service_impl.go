package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/clock"
	"github.com/santemut/vigie/internal/config"
	"github.com/santemut/vigie/internal/cotisation/domain"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	"github.com/santemut/vigie/internal/events"
	obsmetrics "github.com/santemut/vigie/internal/observability/metrics"
	"github.com/santemut/vigie/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Directory  directorydomain.Service
	Dispatcher *events.Dispatcher
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg        config.Governance
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	directory  directorydomain.Service
	dispatcher *events.Dispatcher
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Config.Governance,
		db:         p.DB,
		log:        p.Log.Named("cotisation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		directory:  p.Directory,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

// RecordVerification appends one verification row. Status and overdue days
// are recomputed from NextDueDate on every write; the caller cannot supply
// them.
func (s *Service) RecordVerification(ctx context.Context, req domain.RecordVerificationRequest) (domain.Verification, error) {
	if req.MemberID == 0 {
		return domain.Verification{}, domain.ErrInvalidMember
	}
	if req.AgentID == 0 {
		return domain.Verification{}, domain.ErrInvalidAgent
	}
	if req.NextDueDate.IsZero() {
		return domain.Verification{}, domain.ErrInvalidDueDate
	}
	if req.LastPaymentAmount != nil && *req.LastPaymentAmount < 0 {
		return domain.Verification{}, domain.ErrNegativeAmount
	}
	if req.AmountOwed != nil && *req.AmountOwed < 0 {
		return domain.Verification{}, domain.ErrNegativeAmount
	}

	if _, err := s.directory.GetMember(ctx, req.MemberID); err != nil {
		return domain.Verification{}, err
	}
	if _, err := s.directory.GetAgent(ctx, req.AgentID); err != nil {
		return domain.Verification{}, err
	}

	now := s.clock.Now()
	status, overdueDays := domain.Classify(now, req.NextDueDate, s.cfg.UnpaidThresholdDays)
	if req.ExemptOverride {
		status = domain.StatusExempt
		overdueDays = 0
	}

	var amountOwed int64
	if req.AmountOwed != nil {
		amountOwed = *req.AmountOwed
	}

	verification := domain.Verification{
		ID:                s.genID.Generate(),
		MemberID:          req.MemberID,
		AgentID:           req.AgentID,
		Status:            status,
		LastPaymentDate:   req.LastPaymentDate,
		LastPaymentAmount: req.LastPaymentAmount,
		NextDueDate:       req.NextDueDate.UTC(),
		OverdueDays:       overdueDays,
		AmountOwed:        amountOwed,
		Notes:             strings.TrimSpace(req.Notes),
		DocumentRef:       strings.TrimSpace(req.DocumentRef),
		VerifiedAt:        now,
	}

	var pending events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &verification); err != nil {
			return err
		}
		ev, err := s.dispatcher.EmitTx(ctx, tx, events.VerificationRecordedTopic, verification.ID, map[string]any{
			"member_id":    verification.MemberID.String(),
			"agent_id":     verification.AgentID.String(),
			"status":       string(verification.Status),
			"overdue_days": verification.OverdueDays,
		})
		if err != nil {
			return err
		}
		pending = ev
		return nil
	})
	if err != nil {
		return domain.Verification{}, err
	}

	s.dispatcher.Dispatch(ctx, pending)
	if s.metrics != nil {
		s.metrics.RecordVerification(string(verification.Status))
	}
	s.log.Info("verification recorded",
		zap.String("member_id", verification.MemberID.String()),
		zap.String("status", string(verification.Status)),
		zap.Int("overdue_days", verification.OverdueDays),
	)
	return verification, nil
}

func (s *Service) CurrentStatus(ctx context.Context, memberID snowflake.ID) (domain.Verification, error) {
	if memberID == 0 {
		return domain.Verification{}, domain.ErrInvalidMember
	}
	latest, err := s.repo.FindLatestByMember(ctx, s.db, memberID)
	if err != nil {
		return domain.Verification{}, err
	}
	if latest == nil {
		return domain.Verification{}, domain.ErrNotFound
	}
	return *latest, nil
}

func (s *Service) History(ctx context.Context, req domain.ListVerificationsRequest) (domain.ListVerificationsResponse, error) {
	if req.MemberID == 0 {
		return domain.ListVerificationsResponse{}, domain.ErrInvalidMember
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListByMember(ctx, s.db, req.MemberID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListVerificationsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(verification *domain.Verification) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        verification.ID.String(),
			CreatedAt: verification.VerifiedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	verifications := make([]domain.Verification, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		verifications = append(verifications, *item)
	}

	resp := domain.ListVerificationsResponse{Verifications: verifications}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Stats(ctx context.Context, memberID snowflake.ID) (domain.VerificationStats, error) {
	if memberID == 0 {
		return domain.VerificationStats{}, domain.ErrInvalidMember
	}
	return s.repo.StatsByMember(ctx, s.db, memberID)
}
