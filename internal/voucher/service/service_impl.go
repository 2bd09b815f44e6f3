package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/santemut/vigie/internal/clock"
	"github.com/santemut/vigie/internal/config"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	"github.com/santemut/vigie/internal/events"
	obsmetrics "github.com/santemut/vigie/internal/observability/metrics"
	"github.com/santemut/vigie/internal/quotalock"
	"github.com/santemut/vigie/internal/voucher/domain"
	"github.com/santemut/vigie/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	lockTTL      = 5 * time.Second
	lockAttempts = 3
	lockBackoff  = 25 * time.Millisecond
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
	Locker     *quotalock.Locker   `optional:"true"`
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
	locker     *quotalock.Locker
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Config.Governance,
		db:         p.DB,
		log:        p.Log.Named("voucher.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		directory:  p.Directory,
		dispatcher: p.Dispatcher,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

// Issue creates a voucher subject to the agent's daily quota. The quota
// check and the voucher insert run in one transaction around a guarded
// counter increment, so concurrent issuances for the same agent can never
// jointly overshoot the limit.
func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (domain.Voucher, error) {
	if req.MemberID == 0 {
		return domain.Voucher{}, domain.ErrInvalidMember
	}
	if req.AgentID == 0 {
		return domain.Voucher{}, domain.ErrInvalidAgent
	}
	if req.MaxAmount <= 0 || req.MaxAmount > s.cfg.VoucherAmountCeiling {
		return domain.Voucher{}, domain.ErrInvalidAmount
	}

	agent, err := s.directory.GetAgent(ctx, req.AgentID)
	if err != nil {
		return domain.Voucher{}, err
	}
	if !agent.Active {
		return domain.Voucher{}, domain.ErrAgentInactive
	}
	if _, err := s.directory.GetMember(ctx, req.MemberID); err != nil {
		return domain.Voucher{}, err
	}

	now := s.clock.Now()
	day := now.Format("2006-01-02")

	if s.locker != nil {
		key := fmt.Sprintf("vigie:quota:%s:%s", req.AgentID, day)
		token, err := s.acquireLock(ctx, key)
		if err != nil {
			return domain.Voucher{}, err
		}
		if token != "" {
			defer func() { _ = s.locker.Release(ctx, key, token) }()
		}
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = domain.UrgencyNormal
	}
	validityDays := req.ValidityDays
	if validityDays <= 0 {
		validityDays = s.cfg.VoucherValidityDays
	}
	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	voucher := domain.Voucher{
		ID:        s.genID.Generate(),
		Code:      "BS-" + ulid.Make().String(),
		MemberID:  req.MemberID,
		AgentID:   req.AgentID,
		MaxAmount: req.MaxAmount,
		Status:    domain.StatusPending,
		CareType:  strings.TrimSpace(req.CareType),
		Reason:    strings.TrimSpace(req.Reason),
		Urgency:   urgency,
		Facility:  strings.TrimSpace(req.Facility),
		Metadata:  metadata,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(validityDays) * 24 * time.Hour),
	}

	var pending events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.EnsureQuotaRow(ctx, tx, agent.ID, day); err != nil {
			return err
		}
		granted, err := s.repo.IncrementQuota(ctx, tx, agent.ID, day, agent.DailyVoucherLimit)
		if err != nil {
			return err
		}
		if !granted {
			return domain.ErrQuotaExceeded
		}
		if err := s.repo.Insert(ctx, tx, &voucher); err != nil {
			return err
		}
		ev, err := s.dispatcher.EmitTx(ctx, tx, events.VoucherIssuedTopic, voucher.ID, map[string]any{
			"code":       voucher.Code,
			"member_id":  voucher.MemberID.String(),
			"agent_id":   voucher.AgentID.String(),
			"max_amount": voucher.MaxAmount,
		})
		if err != nil {
			return err
		}
		pending = ev
		return nil
	})
	if err != nil {
		if err == domain.ErrQuotaExceeded && s.metrics != nil {
			s.metrics.RecordQuotaRejection()
		}
		return domain.Voucher{}, err
	}

	s.dispatcher.Dispatch(ctx, pending)
	if s.metrics != nil {
		s.metrics.RecordVoucherIssued()
	}
	s.log.Info("voucher issued",
		zap.String("code", voucher.Code),
		zap.String("agent_id", voucher.AgentID.String()),
		zap.Int64("max_amount", voucher.MaxAmount),
	)
	return voucher, nil
}

func (s *Service) acquireLock(ctx context.Context, key string) (string, error) {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		token, ok, err := s.locker.TryLock(ctx, key, lockTTL)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	// The database guard stays authoritative; proceed without the lock.
	return "", nil
}

// Redeem debits the voucher balance. The debit is one conditional update
// carrying the status, expiry and balance predicates: either the whole
// amount is applied or nothing changes. The outbox row commits in the same
// transaction as the debit, so a failed event write rolls the debit back.
func (s *Service) Redeem(ctx context.Context, code string, amount int64) (domain.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Voucher{}, domain.ErrNotFound
	}
	if amount <= 0 {
		return domain.Voucher{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	var (
		voucher *domain.Voucher
		pending events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debited, err := s.repo.Debit(ctx, tx, code, amount, now)
		if err != nil {
			return err
		}
		if !debited {
			return s.classifyRedeemFailure(ctx, tx, code, amount, now)
		}
		voucher, err = s.repo.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if voucher == nil {
			return domain.ErrNotFound
		}
		pending, err = s.dispatcher.EmitTx(ctx, tx, events.VoucherRedeemedTopic, voucher.ID, map[string]any{
			"code":      voucher.Code,
			"amount":    amount,
			"remaining": voucher.RemainingBalance(),
			"status":    string(voucher.Status),
		})
		return err
	})
	if err != nil {
		return domain.Voucher{}, err
	}

	s.dispatcher.Dispatch(ctx, pending)
	if s.metrics != nil {
		s.metrics.RecordRedemption("accepted")
	}
	s.log.Info("voucher redeemed",
		zap.String("code", voucher.Code),
		zap.Int64("amount", amount),
		zap.Int64("remaining", voucher.RemainingBalance()),
	)
	return *voucher, nil
}

// classifyRedeemFailure distinguishes why the guarded debit matched no row.
// It reads through the caller's transaction so the diagnosis sees the same
// snapshot the debit did.
func (s *Service) classifyRedeemFailure(ctx context.Context, tx *gorm.DB, code string, amount int64, now time.Time) error {
	voucher, err := s.repo.FindByCode(ctx, tx, code)
	if err != nil {
		return err
	}

	outcome := "rejected"
	var failure error
	switch {
	case voucher == nil:
		outcome = "not_found"
		failure = domain.ErrNotFound
	case !voucher.ExpiresAt.After(now):
		outcome = "expired"
		failure = domain.ErrExpired
	case voucher.Status != domain.StatusValidated:
		outcome = "not_redeemable"
		failure = domain.ErrNotRedeemable
	case voucher.RemainingBalance() < amount:
		outcome = "insufficient_balance"
		failure = domain.ErrInsufficientBalance
	default:
		// Lost a race with a concurrent debit; the balance moved between
		// the update and this read.
		outcome = "insufficient_balance"
		failure = domain.ErrInsufficientBalance
	}

	if s.metrics != nil {
		s.metrics.RecordRedemption(outcome)
	}
	return failure
}

// SetStatus applies an administrative transition (validate, reject,
// cancel). Terminal states are absorbing.
func (s *Service) SetStatus(ctx context.Context, code string, to domain.Status) (domain.Voucher, error) {
	code = strings.TrimSpace(code)
	voucher, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Voucher{}, err
	}
	if voucher == nil {
		return domain.Voucher{}, domain.ErrNotFound
	}
	if !domain.CanTransition(voucher.Status, to) {
		return domain.Voucher{}, domain.ErrInvalidTransition
	}

	var pending events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := s.repo.UpdateStatus(ctx, tx, code, voucher.Status, to)
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrInvalidTransition
		}
		ev, err := s.dispatcher.EmitTx(ctx, tx, events.VoucherStatusChangedTopic, voucher.ID, map[string]any{
			"code": voucher.Code,
			"from": string(voucher.Status),
			"to":   string(to),
		})
		if err != nil {
			return err
		}
		pending = ev
		return nil
	})
	if err != nil {
		return domain.Voucher{}, err
	}

	s.dispatcher.Dispatch(ctx, pending)
	voucher.Status = to
	return *voucher, nil
}

func (s *Service) Get(ctx context.Context, code string) (domain.Voucher, error) {
	voucher, err := s.repo.FindByCode(ctx, s.db, strings.TrimSpace(code))
	if err != nil {
		return domain.Voucher{}, err
	}
	if voucher == nil {
		return domain.Voucher{}, domain.ErrNotFound
	}
	return *voucher, nil
}

func (s *Service) ListByMember(ctx context.Context, req domain.ListVouchersRequest) (domain.ListVouchersResponse, error) {
	if req.MemberID == 0 {
		return domain.ListVouchersResponse{}, domain.ErrInvalidMember
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
		return domain.ListVouchersResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(voucher *domain.Voucher) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        voucher.ID.String(),
			CreatedAt: voucher.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	vouchers := make([]domain.Voucher, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		vouchers = append(vouchers, *item)
	}

	resp := domain.ListVouchersResponse{Vouchers: vouchers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// ExpireOverdue is the sweeper entry point. Each flip is guarded by the
// voucher's observed status, so a concurrent redemption or cancellation
// simply wins the race.
func (s *Service) ExpireOverdue(ctx context.Context, batchSize int) (int, error) {
	now := s.clock.Now()
	candidates, err := s.repo.FindExpiredCandidates(ctx, s.db, now, batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, voucher := range candidates {
		var pending events.Event
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			moved, err := s.repo.UpdateStatus(ctx, tx, voucher.Code, voucher.Status, domain.StatusExpired)
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			ev, err := s.dispatcher.EmitTx(ctx, tx, events.VoucherExpiredTopic, voucher.ID, map[string]any{
				"code": voucher.Code,
				"from": string(voucher.Status),
			})
			if err != nil {
				return err
			}
			pending = ev
			return nil
		})
		if err != nil {
			return expired, err
		}
		if pending.ID != 0 {
			s.dispatcher.Dispatch(ctx, pending)
			expired++
		}
	}

	if expired > 0 {
		if s.metrics != nil {
			s.metrics.RecordVouchersExpired(expired)
		}
		s.log.Info("vouchers expired", zap.Int("count", expired))
	}
	return expired, nil
}
