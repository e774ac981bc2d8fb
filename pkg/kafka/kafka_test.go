package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func encodedEvent(t *testing.T, id string) []byte {
	t.Helper()
	ev, err := NewEvent("product.deleted", "p-1", "product", "product-service", map[string]string{"id": "p-1"})
	require.NoError(t, err)
	ev.EventID = id
	b, err := ev.Marshal()
	require.NoError(t, err)
	return b
}

// --- Event ---

func TestNewEvent_Fields(t *testing.T) {
	ev, err := NewEvent("variant.committed", "prod-1", "product", "variant-service", map[string]int{"count": 4})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, 2*time.Second)

	var data map[string]int
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, 4, data["count"])
}

func TestNewEvent_UnserializableData(t *testing.T) {
	_, err := NewEvent("x", "a", "t", "s", make(chan int))
	assert.Error(t, err)
}

func TestEvent_WithMetadataInitializesMap(t *testing.T) {
	ev := &Event{}
	ev.WithMetadata("owner_id", "u-1").WithCorrelationID("c-1")
	assert.Equal(t, "u-1", ev.Metadata["owner_id"])
	assert.Equal(t, "c-1", ev.CorrelationID)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "ecommerce.variant.committed", Topic("variant", "committed"))
	assert.Equal(t, "ecommerce.dlq.ecommerce.product.deleted", DLQTopic(Topic("product", "deleted")))
}

// --- Producer ---

func TestProducer_PublishHeadersAndKey(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: discardLogger()}

	ev, err := NewEvent("variant.committed", "prod-9", "product", "variant-service", nil)
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1")

	require.NoError(t, p.Publish(context.Background(), "ecommerce.variant.committed", ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.variant.committed", msg.Topic)
	assert.Equal(t, "prod-9", string(msg.Key))
	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "variant.committed", carrier.Get("event_type"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, logger: discardLogger()}
	ev, _ := NewEvent("variant.committed", "prod-9", "product", "variant-service", nil)

	err := p.Publish(context.Background(), "t", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to t")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

// --- Trace propagation ---

func TestTraceContext_RoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xab},
		SpanID:     trace.SpanID{0xcd},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var msg kafka.Message
	InjectTraceContext(ctx, &msg)
	assert.Contains(t, NewHeaderCarrier(&msg.Headers).Keys(), "traceparent")

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.True(t, got.IsRemote())
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Equal(t, "", c.Get("missing"))
}

// --- DLQ ---

func TestDLQProducer_AddsOriginHeaders(t *testing.T) {
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, logger: discardLogger()}

	orig := kafka.Message{Topic: "ecommerce.product.deleted", Partition: 2, Offset: 41, Key: []byte("p-1"), Value: []byte("{}")}
	require.NoError(t, d.Publish(context.Background(), orig, errors.New("db down"), "variant-service"))

	require.Len(t, w.msgs, 1)
	out := w.msgs[0]
	assert.Equal(t, "ecommerce.dlq.ecommerce.product.deleted", out.Topic)
	c := NewHeaderCarrier(&out.Headers)
	assert.Equal(t, "2", c.Get("dlq.original_partition"))
	assert.Equal(t, "41", c.Get("dlq.original_offset"))
	assert.Equal(t, "db down", c.Get("dlq.error"))
	assert.Equal(t, "variant-service", c.Get("dlq.consumer_group"))
}

// --- Consumer ---

type recordingDLQ struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (d *recordingDLQ) Publish(_ context.Context, msg kafka.Message, _ error, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	return nil
}

func (d *recordingDLQ) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Topic: "ecommerce.product.deleted", Offset: 1, Value: encodedEvent(t, "e-1")},
	}}
	var handled []string
	var mu sync.Mutex
	h := func(_ context.Context, ev *Event) error {
		mu.Lock()
		handled = append(handled, ev.EventID)
		mu.Unlock()
		return nil
	}

	cfg := DefaultConsumerConfig(nil, "variant-service", "ecommerce.product.deleted")
	c := newConsumer(r, cfg, h, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	assert.Equal(t, []string{"e-1"}, handled)
	mu.Unlock()
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	r := &fakeReader{}
	dlq := &recordingDLQ{}
	attempts := 0
	h := func(context.Context, *Event) error {
		attempts++
		return errors.New("postgres unavailable")
	}

	cfg := DefaultConsumerConfig(nil, "variant-service", "ecommerce.product.deleted")
	cfg.RetryBackoff = time.Millisecond
	c := newConsumer(r, cfg, h, discardLogger()).WithDeadLetter(dlq)

	c.process(context.Background(), kafka.Message{Topic: cfg.Topic, Offset: 7, Value: encodedEvent(t, "e-2")})

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, dlq.count())
}

func TestConsumer_SucceedsOnSecondAttempt(t *testing.T) {
	dlq := &recordingDLQ{}
	attempts := 0
	h := func(context.Context, *Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}

	cfg := DefaultConsumerConfig(nil, "g", "t")
	cfg.RetryBackoff = time.Millisecond
	c := newConsumer(&fakeReader{}, cfg, h, discardLogger()).WithDeadLetter(dlq)

	c.process(context.Background(), kafka.Message{Topic: "t", Value: encodedEvent(t, "e-3")})

	assert.Equal(t, 2, attempts)
	assert.Equal(t, 0, dlq.count())
}

func TestConsumer_MalformedMessageGoesToDLQ(t *testing.T) {
	dlq := &recordingDLQ{}
	called := false
	c := newConsumer(&fakeReader{}, DefaultConsumerConfig(nil, "g", "t"), func(context.Context, *Event) error {
		called = true
		return nil
	}, discardLogger()).WithDeadLetter(dlq)

	c.process(context.Background(), kafka.Message{Topic: "t", Value: []byte("not json")})

	assert.False(t, called)
	assert.Equal(t, 1, dlq.count())
}

func TestConsumer_CloseIsIdempotent(t *testing.T) {
	r := &fakeReader{}
	c := newConsumer(r, DefaultConsumerConfig(nil, "g", "t"), nil, discardLogger())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}

// --- Idempotency ---

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "a"))
	require.NoError(t, s.Add(ctx, "b"))

	ok, _ := s.Contains(ctx, "a")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = s.Contains(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingStore) Add(context.Context, string) error              { return errors.New("down") }

func TestIdempotentHandler(t *testing.T) {
	calls := 0
	inner := func(context.Context, *Event) error { calls++; return nil }
	h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), inner, discardLogger())
	ctx := context.Background()

	require.NoError(t, h(ctx, &Event{EventID: "e-1"}))
	require.NoError(t, h(ctx, &Event{EventID: "e-1"}))
	require.NoError(t, h(ctx, &Event{}))
	require.NoError(t, h(ctx, &Event{}))

	assert.Equal(t, 3, calls)
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	calls := 0
	inner := func(context.Context, *Event) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}
	h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), inner, discardLogger())

	assert.Error(t, h(context.Background(), &Event{EventID: "e-1"}))
	assert.NoError(t, h(context.Background(), &Event{EventID: "e-1"}))
	assert.Equal(t, 2, calls)
}

func TestIdempotentHandler_StoreFailureFailsOpen(t *testing.T) {
	calls := 0
	h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error { calls++; return nil }, discardLogger())

	assert.NoError(t, h(context.Background(), &Event{EventID: "e-1"}))
	assert.NoError(t, h(context.Background(), &Event{EventID: "e-1"}))
	assert.Equal(t, 2, calls)
}
