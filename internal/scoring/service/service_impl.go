package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/clock"
	"github.com/santemut/vigie/internal/config"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	"github.com/santemut/vigie/internal/events"
	obsmetrics "github.com/santemut/vigie/internal/observability/metrics"
	"github.com/santemut/vigie/internal/scoring/domain"
	"github.com/santemut/vigie/internal/scoring/rules"
	"github.com/santemut/vigie/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
	Cotisation cotisationdomain.Service
	Directory  directorydomain.Service
	Dispatcher *events.Dispatcher
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	cotisation cotisationdomain.Service
	directory  directorydomain.Service
	dispatcher *events.Dispatcher
	metrics    *obsmetrics.Metrics
	evaluators map[string]rules.Evaluator
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("scoring.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		cotisation: p.Cotisation,
		directory:  p.Directory,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
		evaluators: rules.Builtins(p.Config.Governance),
	}
}

// ScoreMember runs every active rule against the member's facts and appends
// an immutable score record. Weights are applied as configured, without
// renormalization: an administrator can deliberately bias the scale by
// leaving the active weights summing above or below one.
func (s *Service) ScoreMember(ctx context.Context, memberID snowflake.ID) (domain.ScoreRecord, error) {
	if memberID == 0 {
		return domain.ScoreRecord{}, domain.ErrInvalidMember
	}
	member, err := s.directory.GetMember(ctx, memberID)
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	activeRules, err := s.repo.ListRules(ctx, s.db, true)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	if len(activeRules) == 0 {
		return domain.ScoreRecord{}, domain.ErrNoActiveRules
	}

	stats, err := s.cotisation.Stats(ctx, memberID)
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	now := s.clock.Now()
	joinedAt := member.JoinedAt
	facts := rules.Facts{
		Stats: stats,
		Now:   now,
	}
	if !joinedAt.IsZero() {
		facts.JoinedAt = &joinedAt
	}

	breakdown := domain.Breakdown{}
	weighted := 0.0
	for _, rule := range activeRules {
		raw, anomaly := s.evaluate(rule, facts)
		weighted += raw * rule.Weight
		breakdown[rule.Criterion] = domain.BreakdownItem{
			RuleName: rule.Name,
			RawScore: raw,
			Weight:   rule.Weight,
			Anomaly:  anomaly,
		}
		if anomaly != "" && s.metrics != nil {
			s.metrics.RecordRuleAnomaly()
		}
	}

	score := math.Round(clamp(weighted*100, 0, 100)*100) / 100
	tier := domain.TierForScore(score)

	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	record := domain.ScoreRecord{
		ID:         s.genID.Generate(),
		MemberID:   memberID,
		Score:      score,
		RiskTier:   tier,
		Breakdown:  datatypes.JSON(breakdownJSON),
		ComputedAt: now,
	}

	var pending events.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertScore(ctx, tx, &record); err != nil {
			return err
		}
		ev, err := s.dispatcher.EmitTx(ctx, tx, events.ScoreComputedTopic, record.ID, map[string]any{
			"member_id": memberID.String(),
			"score":     score,
			"risk_tier": string(tier),
		})
		if err != nil {
			return err
		}
		pending = ev
		return nil
	})
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	s.dispatcher.Dispatch(ctx, pending)
	if s.metrics != nil {
		s.metrics.RecordScore(string(tier))
	}
	s.log.Info("member scored",
		zap.String("member_id", memberID.String()),
		zap.Float64("score", score),
		zap.String("risk_tier", string(tier)),
	)
	return record, nil
}

// evaluate runs one rule, substituting the neutral default when the
// criterion is unknown or the evaluator fails. A single broken rule must
// never abort the whole run; the anomaly stays visible in the breakdown.
func (s *Service) evaluate(rule domain.ScoringRule, facts rules.Facts) (raw float64, anomaly string) {
	evaluator, ok := s.evaluators[rule.Criterion]
	if !ok {
		return rules.Neutral, fmt.Sprintf("unknown criterion %q", rule.Criterion)
	}

	defer func() {
		if r := recover(); r != nil {
			raw = rules.Neutral
			anomaly = fmt.Sprintf("evaluator panicked: %v", r)
			s.log.Warn("scoring rule failed",
				zap.String("criterion", rule.Criterion),
				zap.Any("panic", r),
			)
		}
	}()

	raw = clamp(evaluator(facts), 0, 1)
	return raw, ""
}

func (s *Service) ListScores(ctx context.Context, req domain.ListScoresRequest) (domain.ListScoresResponse, error) {
	if req.MemberID == 0 {
		return domain.ListScoresResponse{}, domain.ErrInvalidMember
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListScoresByMember(ctx, s.db, req.MemberID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListScoresResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *domain.ScoreRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.ComputedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	scores := make([]domain.ScoreRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		scores = append(scores, *item)
	}

	resp := domain.ListScoresResponse{Scores: scores}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) LatestScore(ctx context.Context, memberID snowflake.ID) (domain.ScoreRecord, error) {
	if memberID == 0 {
		return domain.ScoreRecord{}, domain.ErrInvalidMember
	}
	record, err := s.repo.FindLatestScoreByMember(ctx, s.db, memberID)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	if record == nil {
		return domain.ScoreRecord{}, domain.ErrScoreNotFound
	}
	return *record, nil
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (domain.ScoringRule, error) {
	name := strings.TrimSpace(req.Name)
	criterion := strings.TrimSpace(req.Criterion)
	if name == "" || criterion == "" {
		return domain.ScoringRule{}, domain.ErrInvalidRule
	}
	if req.Weight < 0 || req.Weight > 1 {
		return domain.ScoringRule{}, domain.ErrInvalidWeight
	}

	now := s.clock.Now()
	rule := domain.ScoringRule{
		ID:        s.genID.Generate(),
		Name:      name,
		Criterion: criterion,
		Weight:    req.Weight,
		Active:    req.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertRule(ctx, s.db, &rule); err != nil {
		return domain.ScoringRule{}, err
	}
	return rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, req domain.UpdateRuleRequest) (domain.ScoringRule, error) {
	if req.RuleID == 0 {
		return domain.ScoringRule{}, domain.ErrInvalidRule
	}
	rule, err := s.repo.FindRuleByID(ctx, s.db, req.RuleID)
	if err != nil {
		return domain.ScoringRule{}, err
	}
	if rule == nil {
		return domain.ScoringRule{}, domain.ErrRuleNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ScoringRule{}, domain.ErrInvalidRule
		}
		rule.Name = name
	}
	if req.Weight != nil {
		if *req.Weight < 0 || *req.Weight > 1 {
			return domain.ScoringRule{}, domain.ErrInvalidWeight
		}
		rule.Weight = *req.Weight
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	rule.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateRule(ctx, s.db, rule); err != nil {
		return domain.ScoringRule{}, err
	}
	return *rule, nil
}

func (s *Service) ListRules(ctx context.Context, includeInactive bool) ([]domain.ScoringRule, error) {
	return s.repo.ListRules(ctx, s.db, !includeInactive)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
