package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeReader serves msgs in order, then cancels the consumer context.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	fetchErrs []error
	committed []kafkago.Message
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return kafkago.Message{}, err
	}
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

type recordingHandler struct {
	status  []events.PayrollStatusChanged
	batches []events.PayrollBatchCompleted
}

func (h *recordingHandler) DispatchStatusChanged(_ context.Context, evt events.PayrollStatusChanged) {
	h.status = append(h.status, evt)
}

func (h *recordingHandler) DispatchBatchCompleted(_ context.Context, evt events.PayrollBatchCompleted) {
	h.batches = append(h.batches, evt)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	assert.NoError(t, err)
	return b
}

func TestConsumePayrollEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status := events.PayrollStatusChanged{EventType: events.PayrollStatusChangedType, PayrollID: "p-1", NewStatus: "PAID", Amount: 296000}
	batch := events.PayrollBatchCompleted{EventType: events.PayrollBatchCompletedType, BatchID: "b-1", Processed: 3, Skipped: 2}

	reader := &fakeReader{
		cancel:    cancel,
		fetchErrs: []error{errors.New("broker unavailable")},
		msgs: []kafkago.Message{
			{
				Topic:   events.PayrollStatusChangedTopic,
				Value:   mustJSON(t, status),
				Headers: []kafkago.Header{{Key: "event_type", Value: []byte(events.PayrollStatusChangedType)}},
			},
			{Topic: events.PayrollBatchCompletedTopic, Value: mustJSON(t, batch)},
			{Topic: events.PayrollStatusChangedTopic, Value: []byte("{not json")},
			{Topic: "payroll.unknown.v1", Value: []byte("{}")},
		},
	}
	handler := &recordingHandler{}

	consumer.ConsumePayrollEvents(ctx, reader, handler, zap.NewNop())

	if assert.Len(t, handler.status, 1) {
		assert.Equal(t, "p-1", handler.status[0].PayrollID)
		assert.Equal(t, int64(296000), handler.status[0].Amount)
	}
	if assert.Len(t, handler.batches, 1) {
		assert.Equal(t, 2, handler.batches[0].Skipped)
	}
	assert.Len(t, reader.committed, 4)
}

func TestTopics(t *testing.T) {
	assert.ElementsMatch(t, []string{events.PayrollStatusChangedTopic, events.PayrollBatchCompletedTopic}, consumer.Topics())
}

type failingReader struct {
	mu      sync.Mutex
	fetches int
}

func (f *failingReader) FetchMessage(context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return kafkago.Message{}, errors.New("broker unavailable")
}

func (f *failingReader) CommitMessages(context.Context, ...kafkago.Message) error { return nil }

func TestConsumePayrollEvents_BacksOffOnFetchErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	reader := &failingReader{}
	done := make(chan struct{})
	go func() {
		consumer.ConsumePayrollEvents(ctx, reader, &recordingHandler{}, zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after the context ended")
	}

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.GreaterOrEqual(t, reader.fetches, 1)
	assert.Less(t, reader.fetches, 10)
}
