package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go-payroll/internal/events"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// EventHandler receives decoded payroll events. notification.Fanout
// satisfies it.
type EventHandler interface {
	DispatchStatusChanged(ctx context.Context, evt events.PayrollStatusChanged)
	DispatchBatchCompleted(ctx context.Context, evt events.PayrollBatchCompleted)
}

// Topics lists every topic ConsumePayrollEvents understands.
func Topics() []string {
	return []string{events.PayrollStatusChangedTopic, events.PayrollBatchCompletedTopic}
}

const (
	fetchRetryInitial = 100 * time.Millisecond
	fetchRetryMax     = 5 * time.Second
)

func newFetchBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = fetchRetryInitial
	b.MaxInterval = fetchRetryMax
	// retry until the context ends
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// ConsumePayrollEvents runs until ctx is cancelled. Fetch errors are retried
// with exponential backoff, reset after the next successful fetch.
func ConsumePayrollEvents(
	ctx context.Context,
	reader MessageReader,
	handler EventHandler,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.payroll_events")
	log.Info("payroll events consumer started")

	bo := newFetchBackOff()
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("payroll events consumer stopped")
				return
			}
			wait := bo.NextBackOff()
			log.Error("fetch payroll event failed", zap.Duration("retry_in", wait), zap.Error(err))
			select {
			case <-ctx.Done():
				log.Info("payroll events consumer stopped")
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()

		if err := handleMessage(ctx, msg, handler); err != nil {
			// undecodable messages are committed and dropped
			log.Error("decode payroll event failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit payroll event failed", zap.Error(err))
			continue
		}
	}
}

func handleMessage(ctx context.Context, msg kafkago.Message, handler EventHandler) error {
	switch eventType(msg) {
	case events.PayrollStatusChangedType:
		var evt events.PayrollStatusChanged
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return err
		}
		handler.DispatchStatusChanged(ctx, evt)
	case events.PayrollBatchCompletedType:
		var evt events.PayrollBatchCompleted
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return err
		}
		handler.DispatchBatchCompleted(ctx, evt)
	default:
		zap.L().Named("kafka.consumer.payroll_events").Warn("ignoring unknown payroll event",
			zap.String("topic", msg.Topic),
			zap.String("event_type", eventType(msg)),
		)
	}
	return nil
}

// eventType prefers the header written by the outbox relay and falls back
// to the topic.
func eventType(msg kafkago.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	switch msg.Topic {
	case events.PayrollStatusChangedTopic:
		return events.PayrollStatusChangedType
	case events.PayrollBatchCompletedTopic:
		return events.PayrollBatchCompletedType
	}
	return ""
}
