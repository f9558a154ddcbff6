package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	messages  []kafka.Message
	pos       int
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.pos >= len(r.messages) {
		// Queue drained; behave like a canceled poll.
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.pos]
	r.pos++
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func encodedMessage(t *testing.T, offset int64, event PaymentProcessedEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Topic: Topic, Offset: offset, Key: []byte(event.AthleteID), Value: value}
}

func TestConsumerAppliesAndCommits(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		encodedMessage(t, 1, sampleEvent()),
		encodedMessage(t, 2, sampleEvent()),
	}}

	var handled []PaymentProcessedEvent
	c := &Consumer{reader: reader, handler: func(_ context.Context, event PaymentProcessedEvent) error {
		handled = append(handled, event)
		return nil
	}}

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, handled, 2)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumerSkipsPoisonMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Topic: Topic, Offset: 1, Value: []byte("not json")},
		encodedMessage(t, 2, sampleEvent()),
	}}

	var handled []PaymentProcessedEvent
	c := &Consumer{reader: reader, handler: func(_ context.Context, event PaymentProcessedEvent) error {
		handled = append(handled, event)
		return nil
	}}

	require.NoError(t, c.Run(context.Background()))
	// The poison message is committed so it cannot wedge the partition.
	assert.Len(t, handled, 1)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumerRetriesHandlerBeforeCommitting(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		encodedMessage(t, 1, sampleEvent()),
	}}

	attempts := 0
	c := &Consumer{reader: reader, handler: func(_ context.Context, _ PaymentProcessedEvent) error {
		attempts++
		if attempts < 3 {
			return errors.New("db down")
		}
		return nil
	}}

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestConsumerStopsWithoutCommitWhenHandlerKeepsFailing(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		encodedMessage(t, 1, sampleEvent()),
	}}

	c := &Consumer{reader: reader, handler: func(_ context.Context, _ PaymentProcessedEvent) error {
		return errors.New("db down")
	}}

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, reader.committed)
}

func TestConsumerDoesNotCommitPastFailedEvent(t *testing.T) {
	// A failed message followed by a deliverable one on the same partition.
	// Committing the second would move the group position past the first and
	// lose it for good, so the loop must stop before ever reaching it.
	failing := sampleEvent()
	failing.PaymentID = "pay_broken"
	reader := &fakeReader{messages: []kafka.Message{
		encodedMessage(t, 1, failing),
		encodedMessage(t, 2, sampleEvent()),
	}}

	var applied []string
	c := &Consumer{reader: reader, handler: func(_ context.Context, event PaymentProcessedEvent) error {
		if event.PaymentID == "pay_broken" {
			return errors.New("db down")
		}
		applied = append(applied, event.PaymentID)
		return nil
	}}

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, applied, "later messages must not be applied past a failure")
	assert.Empty(t, reader.committed, "no offset may be committed past the failed message")
}

func TestConsumerCloseClosesReader(t *testing.T) {
	reader := &fakeReader{}
	c := &Consumer{reader: reader}
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
