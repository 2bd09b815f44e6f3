package events

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/clock"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	VerificationRecordedTopic = "cotisation.verification_recorded"
	ScoreComputedTopic        = "scoring.score_computed"
	VoucherIssuedTopic        = "voucher.issued"
	VoucherRedeemedTopic      = "voucher.redeemed"
	VoucherStatusChangedTopic = "voucher.status_changed"
	VoucherExpiredTopic       = "voucher.expired"
)

// Event is one governance fact emitted by a public operation. SubjectID is
// the entity the event is about (verification, score record or voucher).
type Event struct {
	ID        snowflake.ID
	Type      string
	SubjectID snowflake.ID
	Payload   map[string]any
	CreatedAt time.Time
}

// GovernanceEvent is the persisted outbox row, written in the same
// transaction as the state change it describes.
type GovernanceEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	EventType string            `gorm:"type:text;not null;index"`
	SubjectID snowflake.ID      `gorm:"not null;index"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (GovernanceEvent) TableName() string { return "governance_events" }

// Handler receives events after the owning transaction committed.
type Handler func(ctx context.Context, ev Event)

// Dispatcher persists events inside the caller's transaction and fans them
// out to an explicit observer list. There are no hidden persistence hooks:
// services call EmitTx themselves.
type Dispatcher struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	mu       sync.RWMutex
	handlers []Handler
}

func NewDispatcher(log *zap.Logger, genID *snowflake.Node, clk clock.Clock) *Dispatcher {
	return &Dispatcher{
		log:   log.Named("events.dispatcher"),
		genID: genID,
		clock: clk,
	}
}

// Subscribe registers an observer for all subsequent events.
func (d *Dispatcher) Subscribe(h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

// EmitTx writes the outbox row through tx and returns the pending event.
// The caller dispatches it with Dispatch once the transaction committed, so
// observers never see facts that were rolled back.
func (d *Dispatcher) EmitTx(ctx context.Context, tx *gorm.DB, eventType string, subjectID snowflake.ID, payload map[string]any) (Event, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	ev := Event{
		ID:        d.genID.Generate(),
		Type:      eventType,
		SubjectID: subjectID,
		Payload:   payload,
		CreatedAt: d.clock.Now(),
	}

	err := tx.WithContext(ctx).Exec(
		`INSERT INTO governance_events (id, event_type, subject_id, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.ID,
		ev.Type,
		ev.SubjectID,
		datatypes.JSONMap(ev.Payload),
		ev.CreatedAt,
	).Error
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Dispatch fans the event out to all observers.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	d.log.Debug("event dispatched",
		zap.String("type", ev.Type),
		zap.String("subject_id", ev.SubjectID.String()),
	)
}
