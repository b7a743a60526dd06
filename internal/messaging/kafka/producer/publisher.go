package producer

import (
	"context"
	"errors"

	"go-payroll/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafkago.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func toMessage(event kafka.OutboxEvent) kafkago.Message {
	headers := []kafkago.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		{Key: "outbox_id", Value: []byte(event.ID)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: "request_id", Value: []byte(event.RequestID)})
	}

	return kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}

// publishEvents writes the batch in one call and returns the error of each
// event by index. A nil entry means the event was delivered.
func publishEvents(ctx context.Context, writer MessageWriter, batch []kafka.OutboxEvent) []error {
	msgs := make([]kafkago.Message, len(batch))
	for i, event := range batch {
		msgs[i] = toMessage(event)
	}

	results := make([]error, len(batch))
	err := writer.WriteMessages(ctx, msgs...)
	if err == nil {
		return results
	}

	var writeErrs kafkago.WriteErrors
	if errors.As(err, &writeErrs) && len(writeErrs) == len(batch) {
		copy(results, writeErrs)
		return results
	}

	for i := range results {
		results[i] = err
	}
	return results
}
