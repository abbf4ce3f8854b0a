package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/dairy-oms/internal/messaging/kafka"
)

var occurredAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// dlqMessage собирает сообщение в том виде, в каком его пишет outbox-воркер.
func dlqMessage(t *testing.T, offset int64, eventType string) *sarama.ConsumerMessage {
	t.Helper()

	letter, err := json.Marshal(map[string]any{
		"outbox_id":      "outbox-1",
		"aggregate_type": "order",
		"aggregate_id":   "order-1",
		"event_type":     eventType,
		"occurred_at":    occurredAt.Format(time.RFC3339Nano),
		"payload":        map[string]any{"order_id": "order-1", "status": "CONFIRMED"},
		"publish_error":  "broker unavailable",
	})
	require.NoError(t, err)

	raw, err := json.Marshal(kafka.Envelope{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     eventType,
		Payload:       letter,
		OccurredAt:    occurredAt,
		PublishedAt:   occurredAt.Add(time.Minute),
	})
	require.NoError(t, err)

	return &sarama.ConsumerMessage{Offset: offset, Value: raw}
}

func TestExtractReplayMessage_RestoresOriginalEnvelope(t *testing.T) {
	got, ok, err := extractReplayMessage(dlqMessage(t, 0, "OrderStatusChanged"), kafka.TopicDomainEvents, "")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, kafka.TopicDomainEvents, got.topic)
	assert.Equal(t, "order-1", got.key)

	envelope, err := kafka.ParseEnvelope(got.value)
	require.NoError(t, err)
	assert.Equal(t, "outbox-1", envelope.ID)
	assert.Equal(t, "OrderStatusChanged", envelope.EventType)
	assert.True(t, envelope.OccurredAt.Equal(occurredAt))
	assert.JSONEq(t, `{"order_id":"order-1","status":"CONFIRMED"}`, string(envelope.Payload))

	require.Len(t, got.headers, 3)
	assert.Equal(t, kafka.HeaderEventType, string(got.headers[0].Key))
	assert.Equal(t, "OrderStatusChanged", string(got.headers[0].Value))
}

func TestExtractReplayMessage_EventTypeFilter(t *testing.T) {
	_, ok, err := extractReplayMessage(dlqMessage(t, 0, "OrderLineAdded"), kafka.TopicDomainEvents, "OrderStatusChanged")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = extractReplayMessage(dlqMessage(t, 0, "OrderStatusChanged"), kafka.TopicDomainEvents, "OrderStatusChanged")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtractReplayMessage_Invalid(t *testing.T) {
	noPayload, err := json.Marshal(kafka.Envelope{ID: "x", EventType: "OrderCreated", Payload: json.RawMessage(`{"outbox_id":"x"}`)})
	require.NoError(t, err)
	nestedNotObject, err := json.Marshal(kafka.Envelope{ID: "x", EventType: "OrderCreated", Payload: json.RawMessage(`"text"`)})
	require.NoError(t, err)

	tests := []struct {
		name  string
		value []byte
	}{
		{name: "not json", value: []byte("garbage")},
		{name: "no event type", value: []byte(`{"id":"x"}`)},
		{name: "nested payload missing", value: noPayload},
		{name: "nested payload not object", value: nestedNotObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: tt.value}, kafka.TopicDomainEvents, "")
			require.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestReadConfig_FromFlags(t *testing.T) {
	withFlagArgs(t, []string{
		"-brokers= kafka-1:9092, ,kafka-2:9092 ",
		"-event-type= OrderStatusChanged ",
		"-limit=5",
		"-execute",
		"-from-newest",
		"-idle-timeout=500ms",
	}, func() {
		cfg, err := readConfig()
		require.NoError(t, err)

		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.brokers)
		assert.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
		assert.Equal(t, kafka.TopicDomainEvents, cfg.targetTopic)
		assert.Equal(t, "OrderStatusChanged", cfg.eventType)
		assert.Equal(t, 5, cfg.limit)
		assert.True(t, cfg.execute)
		assert.True(t, cfg.fromNewest)
		assert.Equal(t, 500*time.Millisecond, cfg.idleTimeout)
	})
}

func TestReadConfig_BrokersFromEnv(t *testing.T) {
	t.Setenv(envKafkaBrokers, "env-kafka:9092")

	withFlagArgs(t, nil, func() {
		cfg, err := readConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"env-kafka:9092"}, cfg.brokers)
	})
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	t.Setenv(envKafkaBrokers, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no brokers", args: nil, want: "kafka brokers are required"},
		{name: "same topics", args: []string{"-brokers=k:9092", "-target-topic=" + kafka.TopicDeadLetterQueue}, want: "must differ"},
		{name: "zero limit", args: []string{"-brokers=k:9092", "-limit=0"}, want: "limit must be > 0"},
		{name: "zero idle", args: []string{"-brokers=k:9092", "-idle-timeout=0s"}, want: "idle-timeout must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFlagArgs(t, tt.args, func() {
				_, err := readConfig()
				require.ErrorContains(t, err, tt.want)
			})
		})
	}
}

func TestPublishReplay(t *testing.T) {
	require.Error(t, publishReplay(nil, replayMessage{}))

	producer := &stubReplayProducer{}
	msg := replayMessage{
		topic:   kafka.TopicDomainEvents,
		key:     "order-1",
		value:   []byte(`{}`),
		headers: []sarama.RecordHeader{{Key: []byte(kafka.HeaderOutboxID), Value: []byte("outbox-1")}},
	}
	require.NoError(t, publishReplay(producer, msg))
	require.NotNil(t, producer.lastMsg)
	assert.Equal(t, kafka.TopicDomainEvents, producer.lastMsg.Topic)
	assert.Equal(t, sarama.StringEncoder("order-1"), producer.lastMsg.Key)
	assert.Equal(t, msg.headers, producer.lastMsg.Headers)
}

func TestProcessPartition_DryRun(t *testing.T) {
	cfg := testConfig(false)
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 3}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{
			dlqMessage(t, 0, "OrderCreated"),
			{Offset: 1, Value: []byte("broken")},
			dlqMessage(t, 2, "OrderStatusChanged"),
		}),
	}}

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, replayStats{processed: 3, replayed: 2, skipped: 1}, stats)
}

func TestProcessPartition_ExecuteFromNewest(t *testing.T) {
	cfg := testConfig(true)
	cfg.fromNewest = true
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 10}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{
			dlqMessage(t, 8, "OrderCreated"),
			dlqMessage(t, 9, "OrderCreated"),
		}),
	}}
	producer := &stubReplayProducer{}

	stats, err := processPartition(context.Background(), consumer, client, producer, cfg, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.replayed)
	assert.Equal(t, 2, producer.calls)
	require.Len(t, consumer.calls, 1)
	assert.Equal(t, int64(8), consumer.calls[0].offset)
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(true)

	_, err := processPartition(ctx, &stubPartitionConsumerSource{}, &stubOffsetClient{
		offsetErr: map[int32]error{0: errors.New("offset down")},
	}, nil, cfg, 0, 1)
	require.ErrorContains(t, err, "offset down")

	_, err = processPartition(ctx, &stubPartitionConsumerSource{consumeErr: errors.New("consume down")}, &stubOffsetClient{
		offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}},
	}, nil, cfg, 0, 1)
	require.ErrorContains(t, err, "consume down")

	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(t, 0, "OrderCreated")}),
	}}
	_, err = processPartition(ctx, consumer, &stubOffsetClient{
		offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}},
	}, &stubReplayProducer{sendErr: errors.New("send down")}, cfg, 0, 1)
	require.ErrorContains(t, err, "send down")

	stats, err := processPartition(ctx, consumer, &stubOffsetClient{
		offsets: map[int32]offsetRange{0: {oldest: 5, newest: 5}},
	}, nil, cfg, 0, 1)
	require.NoError(t, err)
	assert.Zero(t, stats.processed)
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	cfg := testConfig(false)
	cfg.idleTimeout = 20 * time.Millisecond
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 5}}}
	idle := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}}

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 5)
	require.NoError(t, err)
	assert.Zero(t, stats.processed)
	assert.True(t, idle.closed)

	cfg.idleTimeout = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = processPartition(ctx, consumer, client, nil, cfg, 0, 5)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunReplay(t *testing.T) {
	_, err := runReplay(context.Background(), testConfig(false), nil, nil, nil)
	require.Error(t, err)

	_, err = runReplay(context.Background(), testConfig(true), &stubOffsetClient{}, &stubPartitionConsumerSource{}, nil)
	require.ErrorContains(t, err, "producer is required")

	_, err = runReplay(context.Background(), testConfig(false), &stubOffsetClient{partitionsErr: errors.New("meta down")}, &stubPartitionConsumerSource{}, nil)
	require.ErrorContains(t, err, "meta down")

	cfg := testConfig(true)
	cfg.limit = 2
	client := &stubOffsetClient{
		partitions: []int32{1, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 1},
			1: {oldest: 0, newest: 2},
		},
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(t, 0, "OrderCreated")}),
		1: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(t, 0, "OrderCreated"), dlqMessage(t, 1, "OrderCreated")}),
	}}
	producer := &stubReplayProducer{}

	stats, err := runReplay(context.Background(), cfg, client, consumer, producer)
	require.NoError(t, err)
	assert.Equal(t, replayStats{processed: 2, replayed: 2}, stats)
	require.Len(t, consumer.calls, 2)
	assert.Equal(t, int32(0), consumer.calls[0].partition)
}

func TestRun_UsesDependencies(t *testing.T) {
	client := &stubOffsetClient{}
	consumer := &stubPartitionConsumerSource{}
	producer := &stubReplayProducer{}

	original := newReplayDependencies
	t.Cleanup(func() { newReplayDependencies = original })
	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return client, consumer, producer, nil
	}

	require.NoError(t, run(context.Background(), testConfig(true)))
	assert.True(t, client.closed)
	assert.True(t, consumer.closed)
	assert.True(t, producer.closed)

	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return nil, nil, nil, errors.New("kafka down")
	}
	require.ErrorContains(t, run(context.Background(), testConfig(false)), "kafka down")
}

func TestFailExits(t *testing.T) {
	if os.Getenv("DLQ_TEST_FAIL_EXIT") == "1" {
		fail("forced failure %d", 7)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "DLQ_TEST_FAIL_EXIT=1")
	err := cmd.Run()

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected exit error, got %v", err)
	assert.NotZero(t, exitErr.ExitCode())
}

func testConfig(execute bool) config {
	return config{
		brokers:     []string{"kafka:9092"},
		sourceTopic: kafka.TopicDeadLetterQueue,
		targetTopic: kafka.TopicDomainEvents,
		limit:       10,
		execute:     execute,
		idleTimeout: time.Second,
	}
}

func withFlagArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"dlq-reprocess"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &stubPartitionConsumer{messages: msgCh, errors: errCh}
}

type stubReplayProducer struct {
	sendErr error
	calls   int
	closed  bool
	lastMsg *sarama.ProducerMessage
}

func (s *stubReplayProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	s.calls++
	s.lastMsg = msg
	if s.sendErr != nil {
		return 0, 0, s.sendErr
	}
	return 0, int64(s.calls), nil
}

func (s *stubReplayProducer) Close() error {
	s.closed = true
	return nil
}
