package payroll

import (
	"context"
	"database/sql"

	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/shared/contextutil"

	"go.uber.org/zap"
)

// EventDispatcher receives payroll events in-process when no outbox is
// configured. Implementations must not fail the caller.
//
//go:generate mockgen -source=payroll_events.go -destination=mock/payroll_events_mock.go -package=mock
type EventDispatcher interface {
	DispatchStatusChanged(ctx context.Context, evt events.PayrollStatusChanged)
	DispatchBatchCompleted(ctx context.Context, evt events.PayrollBatchCompleted)
}

// eventSink stages events in the outbox inside the caller's transaction, or
// holds them until flush when there is no outbox.
type eventSink struct {
	outbox     kafka.OutboxRepository
	dispatcher EventDispatcher
	logger     *zap.Logger
}

func (s eventSink) stageStatus(ctx context.Context, tx *sql.Tx, evts []events.PayrollStatusChanged) error {
	if s.outbox == nil {
		return nil
	}
	rid := contextutil.GetRequestID(ctx)
	repo := s.outbox.WithTx(tx)
	for _, evt := range evts {
		ev, err := kafka.NewOutboxEvent(
			events.PayrollStatusChangedTopic,
			evt.EventType,
			"payroll",
			evt.PayrollID,
			rid,
			evt,
		)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, ev); err != nil {
			s.logger.Error("payroll outbox persist failed",
				zap.String("payroll_id", evt.PayrollID),
				zap.String("new_status", evt.NewStatus),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

func (s eventSink) stageBatch(ctx context.Context, tx *sql.Tx, evt events.PayrollBatchCompleted) error {
	if s.outbox == nil {
		return nil
	}
	ev, err := kafka.NewOutboxEvent(
		events.PayrollBatchCompletedTopic,
		evt.EventType,
		"payroll_batch",
		evt.BatchID,
		contextutil.GetRequestID(ctx),
		evt,
	)
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, ev)
}

// flushStatus runs after commit.
func (s eventSink) flushStatus(ctx context.Context, evts []events.PayrollStatusChanged) {
	if s.outbox != nil || s.dispatcher == nil {
		return
	}
	for _, evt := range evts {
		s.dispatcher.DispatchStatusChanged(ctx, evt)
	}
}

func (s eventSink) flushBatch(ctx context.Context, evt events.PayrollBatchCompleted) {
	if s.outbox != nil || s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchBatchCompleted(ctx, evt)
}
