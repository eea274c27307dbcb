package msg

import (
	"context"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Header keys set on dead-lettered records.
const (
	HeaderError        = "error"
	HeaderSourceTopic  = "source-topic"
	HeaderSourceOffset = "source-offset"
)

// DeadLetter republishes discarded payloads untouched so they can be replayed.
type DeadLetter struct {
	producer *Producer
	topic    string
}

// NewDeadLetter returns a publisher for topic.
func NewDeadLetter(producer *Producer, topic string) *DeadLetter {
	return &DeadLetter{producer: producer, topic: topic}
}

// Publish sends rec's original payload along with the reason it was dropped.
func (d *DeadLetter) Publish(ctx context.Context, rec Record, reason error) error {
	return d.producer.Produce(ctx, &kgo.Record{
		Topic: d.topic,
		Key:   rec.Key,
		Value: rec.Value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderError, Value: []byte(reason.Error())},
			{Key: HeaderSourceTopic, Value: []byte(rec.Topic)},
			{Key: HeaderSourceOffset, Value: []byte(strconv.FormatInt(rec.Offset, 10))},
		},
	})
}
