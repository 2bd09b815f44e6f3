package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/santemut/vigie/internal/clock"
	"github.com/santemut/vigie/internal/config"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
	cotisationrepo "github.com/santemut/vigie/internal/cotisation/repository"
	cotisationservice "github.com/santemut/vigie/internal/cotisation/service"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	directoryrepo "github.com/santemut/vigie/internal/directory/repository"
	directoryservice "github.com/santemut/vigie/internal/directory/service"
	"github.com/santemut/vigie/internal/events"
	"github.com/santemut/vigie/internal/migration"
	"github.com/santemut/vigie/internal/scoring/domain"
	scoringrepo "github.com/santemut/vigie/internal/scoring/repository"
	"github.com/santemut/vigie/internal/scoring/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc        domain.Service
	cotisation cotisationdomain.Service
	db         *gorm.DB
	clock      *clock.FakeClock
	member     directorydomain.Member
	agent      directorydomain.Agent
}

func testConfig() config.Config {
	return config.Config{
		Governance: config.Governance{
			DebtCeiling:          1000,
			VoucherAmountCeiling: 500000,
			VoucherValidityDays:  30,
			UnpaidThresholdDays:  30,
		},
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	dispatcher := events.NewDispatcher(log, node, fakeClock)
	cfg := testConfig()

	directorySvc := directoryservice.New(directoryservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  directoryrepo.Provide(),
	})

	cotisationSvc := cotisationservice.New(cotisationservice.Params{
		Config:     cfg,
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fakeClock,
		Repo:       cotisationrepo.Provide(),
		Directory:  directorySvc,
		Dispatcher: dispatcher,
	})

	svc := New(Params{
		Config:     cfg,
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fakeClock,
		Repo:       scoringrepo.Provide(),
		Cotisation: cotisationSvc,
		Directory:  directorySvc,
		Dispatcher: dispatcher,
	})

	ctx := context.Background()
	member, err := directorySvc.CreateMember(ctx, directorydomain.CreateMemberRequest{
		InsurerID: node.Generate(),
		FirstName: "Awa",
		LastName:  "Diallo",
	})
	require.NoError(t, err)

	agent, err := directorySvc.CreateAgent(ctx, directorydomain.CreateAgentRequest{
		InsurerID: member.InsurerID,
		FullName:  "Moussa Traore",
	})
	require.NoError(t, err)

	return &fixture{
		svc:        svc,
		cotisation: cotisationSvc,
		db:         db,
		clock:      fakeClock,
		member:     member,
		agent:      agent,
	}
}

func (f *fixture) recordVerifications(t *testing.T, overdueDays ...int) {
	t.Helper()
	ctx := context.Background()
	for _, days := range overdueDays {
		_, err := f.cotisation.RecordVerification(ctx, cotisationdomain.RecordVerificationRequest{
			MemberID:    f.member.ID,
			AgentID:     f.agent.ID,
			NextDueDate: f.clock.Now().AddDate(0, 0, -days),
		})
		require.NoError(t, err)
	}
}

func TestScoreMemberWithoutActiveRules(t *testing.T) {
	f := setup(t)

	_, err := f.svc.ScoreMember(context.Background(), f.member.ID)
	assert.ErrorIs(t, err, domain.ErrNoActiveRules)
}

func TestScoreMemberSingleRule(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Ponctualite",
		Criterion: rules.CriterionPaymentPunctuality,
		Weight:    1.0,
		Active:    true,
	})
	require.NoError(t, err)

	f.recordVerifications(t, -5, -5, -5, -5, 10)

	record, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, record.Score, 0.001)
	assert.Equal(t, domain.TierLow, record.RiskTier)

	breakdown, err := record.ParseBreakdown()
	require.NoError(t, err)
	item, ok := breakdown[rules.CriterionPaymentPunctuality]
	require.True(t, ok)
	assert.InDelta(t, 0.8, item.RawScore, 0.001)
	assert.Equal(t, 1.0, item.Weight)
	assert.Empty(t, item.Anomaly)
}

func TestScoreMemberUnknownCriterionScoresNeutral(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Regle inconnue",
		Criterion: "lunar_phase",
		Weight:    1.0,
		Active:    true,
	})
	require.NoError(t, err)

	record, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, record.Score, 0.001)

	breakdown, err := record.ParseBreakdown()
	require.NoError(t, err)
	item := breakdown["lunar_phase"]
	assert.NotEmpty(t, item.Anomaly)
	assert.InDelta(t, 0.5, item.RawScore, 0.001)
}

func TestScoreMemberSurvivesPanickingEvaluator(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.svc.(*Service).evaluators["audit_flag"] = func(rules.Facts) float64 {
		panic("corrupt fact set")
	}

	_, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Signal audit",
		Criterion: "audit_flag",
		Weight:    1.0,
		Active:    true,
	})
	require.NoError(t, err)

	record, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, record.Score, 0.001)

	breakdown, err := record.ParseBreakdown()
	require.NoError(t, err)
	item := breakdown["audit_flag"]
	assert.Contains(t, item.Anomaly, "panicked")
	assert.InDelta(t, 0.5, item.RawScore, 0.001)
}

func TestScoreMemberIsDeterministic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Ponctualite",
		Criterion: rules.CriterionPaymentPunctuality,
		Weight:    0.6,
		Active:    true,
	})
	require.NoError(t, err)
	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Endettement",
		Criterion: rules.CriterionDebtLevel,
		Weight:    0.4,
		Active:    true,
	})
	require.NoError(t, err)

	f.recordVerifications(t, -10, 5, 5)

	first, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	second, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.RiskTier, second.RiskTier)
	assert.NotEqual(t, first.ID, second.ID)

	resp, err := f.svc.ListScores(ctx, domain.ListScoresRequest{MemberID: f.member.ID})
	require.NoError(t, err)
	assert.Len(t, resp.Scores, 2)
}

func TestScoreMemberNeutralBaseline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for criterion, name := range map[string]string{
		rules.CriterionPaymentPunctuality: "Ponctualite",
		rules.CriterionDebtLevel:          "Endettement",
		rules.CriterionArrearsTrend:       "Retards",
	} {
		_, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
			Name:      name,
			Criterion: criterion,
			Weight:    0.3,
			Active:    true,
		})
		require.NoError(t, err)
	}

	record, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, record.Score, 0.001)
	assert.Equal(t, domain.TierElevated, record.RiskTier)
}

func TestLatestScore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.LatestScore(ctx, f.member.ID)
	assert.ErrorIs(t, err, domain.ErrScoreNotFound)

	_, err = f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Ponctualite",
		Criterion: rules.CriterionPaymentPunctuality,
		Weight:    1.0,
		Active:    true,
	})
	require.NoError(t, err)

	first, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	second, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	latest, err := f.svc.LatestScore(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestRuleWeightValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Hors bornes",
		Criterion: rules.CriterionDebtLevel,
		Weight:    1.5,
		Active:    true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidWeight)

	rule, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Endettement",
		Criterion: rules.CriterionDebtLevel,
		Weight:    0.5,
		Active:    true,
	})
	require.NoError(t, err)

	bad := -0.1
	_, err = f.svc.UpdateRule(ctx, domain.UpdateRuleRequest{RuleID: rule.ID, Weight: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidWeight)
}

func TestUpdateRuleOnlyAffectsFutureRuns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rule, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{
		Name:      "Ponctualite",
		Criterion: rules.CriterionPaymentPunctuality,
		Weight:    1.0,
		Active:    true,
	})
	require.NoError(t, err)

	f.recordVerifications(t, 5, 5, 5, 5, -5)

	before, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)

	half := 0.5
	_, err = f.svc.UpdateRule(ctx, domain.UpdateRuleRequest{RuleID: rule.ID, Weight: &half})
	require.NoError(t, err)

	after, err := f.svc.ScoreMember(ctx, f.member.ID)
	require.NoError(t, err)

	assert.InDelta(t, before.Score/2, after.Score, 0.001)

	reloaded, err := f.svc.LatestScore(ctx, f.member.ID)
	require.NoError(t, err)
	breakdown, err := reloaded.ParseBreakdown()
	require.NoError(t, err)
	assert.Equal(t, half, breakdown[rules.CriterionPaymentPunctuality].Weight)
}
