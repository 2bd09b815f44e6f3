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
	"github.com/santemut/vigie/internal/cotisation/domain"
	cotisationrepo "github.com/santemut/vigie/internal/cotisation/repository"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	directoryrepo "github.com/santemut/vigie/internal/directory/repository"
	directoryservice "github.com/santemut/vigie/internal/directory/service"
	"github.com/santemut/vigie/internal/events"
	"github.com/santemut/vigie/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       domain.Service
	directory directorydomain.Service
	db        *gorm.DB
	clock     *clock.FakeClock
	member    directorydomain.Member
	agent     directorydomain.Agent
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

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(db))
	return db
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := openTestDB(t)
	node := mustNode(t)
	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	directorySvc := directoryservice.New(directoryservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  directoryrepo.Provide(),
	})

	svc := New(Params{
		Config:     testConfig(),
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fakeClock,
		Repo:       cotisationrepo.Provide(),
		Directory:  directorySvc,
		Dispatcher: events.NewDispatcher(log, node, fakeClock),
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
		svc:       svc,
		directory: directorySvc,
		db:        db,
		clock:     fakeClock,
		member:    member,
		agent:     agent,
	}
}

func TestRecordVerificationComputesStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := f.clock.Now()

	cases := []struct {
		name        string
		due         time.Time
		wantStatus  domain.Status
		wantOverdue int
	}{
		{"future due date", now.AddDate(0, 0, 15), domain.StatusUpToDate, 0},
		{"ten days overdue", now.AddDate(0, 0, -10), domain.StatusLate, 10},
		{"thirty days overdue", now.AddDate(0, 0, -30), domain.StatusLate, 30},
		{"forty five days overdue", now.AddDate(0, 0, -45), domain.StatusUnpaid, 45},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verification, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
				MemberID:    f.member.ID,
				AgentID:     f.agent.ID,
				NextDueDate: tc.due,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, verification.Status)
			assert.Equal(t, tc.wantOverdue, verification.OverdueDays)
		})
	}
}

func TestRecordVerificationExemptOverride(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	verification, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:       f.member.ID,
		AgentID:        f.agent.ID,
		NextDueDate:    f.clock.Now().AddDate(0, 0, -45),
		ExemptOverride: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExempt, verification.Status)
	assert.Equal(t, 0, verification.OverdueDays)
}

func TestRecordVerificationCarriesAmountOwed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owed := int64(2500)

	verification, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, -5),
		AmountOwed:  &owed,
	})
	require.NoError(t, err)
	assert.Equal(t, owed, verification.AmountOwed)

	verification, err = f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, -5),
	})
	require.NoError(t, err)
	assert.Zero(t, verification.AmountOwed)
}

func TestRecordVerificationValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	negative := int64(-1)

	cases := []struct {
		name    string
		req     domain.RecordVerificationRequest
		wantErr error
	}{
		{"missing member", domain.RecordVerificationRequest{AgentID: f.agent.ID, NextDueDate: f.clock.Now()}, domain.ErrInvalidMember},
		{"missing agent", domain.RecordVerificationRequest{MemberID: f.member.ID, NextDueDate: f.clock.Now()}, domain.ErrInvalidAgent},
		{"missing due date", domain.RecordVerificationRequest{MemberID: f.member.ID, AgentID: f.agent.ID}, domain.ErrInvalidDueDate},
		{"negative amount owed", domain.RecordVerificationRequest{MemberID: f.member.ID, AgentID: f.agent.ID, NextDueDate: f.clock.Now(), AmountOwed: &negative}, domain.ErrNegativeAmount},
		{"negative payment amount", domain.RecordVerificationRequest{MemberID: f.member.ID, AgentID: f.agent.ID, NextDueDate: f.clock.Now(), LastPaymentAmount: &negative}, domain.ErrNegativeAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RecordVerification(ctx, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRecordVerificationUnknownMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID + 999,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now(),
	})
	assert.ErrorIs(t, err, directorydomain.ErrMemberNotFound)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
			MemberID:    f.member.ID,
			AgentID:     f.agent.ID,
			NextDueDate: f.clock.Now().AddDate(0, 0, -i),
		})
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}

	resp, err := f.svc.History(ctx, domain.ListVerificationsRequest{MemberID: f.member.ID})
	require.NoError(t, err)
	require.Len(t, resp.Verifications, 3)

	for i := 1; i < len(resp.Verifications); i++ {
		assert.False(t, resp.Verifications[i].VerifiedAt.After(resp.Verifications[i-1].VerifiedAt))
	}
}

func TestCurrentStatusReturnsLatest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, -45),
	})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, 15),
	})
	require.NoError(t, err)

	current, err := f.svc.CurrentStatus(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUpToDate, current.Status)
}

func TestCurrentStatusWithoutHistory(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CurrentStatus(context.Background(), f.member.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordVerificationWritesOutboxEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	verification, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, -5),
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&events.GovernanceEvent{}).
		Where("event_type = ? AND subject_id = ?", events.VerificationRecordedTopic, verification.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStatsAggregatesHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owed := int64(400)

	_, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, 10),
	})
	require.NoError(t, err)

	_, err = f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
		MemberID:    f.member.ID,
		AgentID:     f.agent.ID,
		NextDueDate: f.clock.Now().AddDate(0, 0, -10),
		AmountOwed:  &owed,
	})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, f.member.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.OnTime)
	assert.EqualValues(t, 400, stats.TotalOwed)
	assert.InDelta(t, 5.0, stats.AvgOverdueDays, 0.001)
}

func TestHistoryPagination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.RecordVerification(ctx, domain.RecordVerificationRequest{
			MemberID:    f.member.ID,
			AgentID:     f.agent.ID,
			NextDueDate: f.clock.Now().AddDate(0, 0, 15),
		})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}

	seen := map[snowflake.ID]bool{}
	token := ""
	pages := 0
	for {
		resp, err := f.svc.History(ctx, domain.ListVerificationsRequest{
			MemberID:  f.member.ID,
			PageToken: token,
			PageSize:  2,
		})
		require.NoError(t, err)
		for _, v := range resp.Verifications {
			assert.False(t, seen[v.ID], "duplicate row across pages")
			seen[v.ID] = true
		}
		pages++
		if !resp.HasMore {
			break
		}
		token = resp.NextPageToken
	}

	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
}
