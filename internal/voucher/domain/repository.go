package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, voucher *Voucher) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Voucher, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, page pagination.Pagination) ([]*Voucher, error)

	// EnsureQuotaRow creates the agent+day counter row if absent.
	EnsureQuotaRow(ctx context.Context, db *gorm.DB, agentID snowflake.ID, day string) error
	// IncrementQuota bumps the counter only while it is below limit and
	// reports whether the increment was applied.
	IncrementQuota(ctx context.Context, db *gorm.DB, agentID snowflake.ID, day string, limit int) (bool, error)

	// Debit applies a redemption as a single conditional update carrying
	// the status, expiry and balance predicates, flipping the voucher to
	// used when fully consumed. It reports whether a row was updated;
	// false means no mutation happened at all.
	Debit(ctx context.Context, db *gorm.DB, code string, amount int64, now time.Time) (bool, error)

	// UpdateStatus moves a voucher between states, guarded by the expected
	// current status.
	UpdateStatus(ctx context.Context, db *gorm.DB, code string, from, to Status) (bool, error)

	FindExpiredCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Voucher, error)
}
