package msg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// FromStart positions a session at the earliest available record.
const FromStart int64 = -1

// PartitionSession reads one partition of one topic from an explicit
// position. It does not join a consumer group and never commits offsets.
type PartitionSession struct {
	client    *kgo.Client
	logger    *zap.Logger
	topic     string
	partition int32
	idle      time.Duration
	buf       []*kgo.Record
}

// OpenPartition assigns a new client to cfg.Topic/cfg.Partition starting at
// offset from, or at the earliest offset when from is FromStart.
func OpenPartition(cfg Config, from int64, logger *zap.Logger) (*PartitionSession, error) {
	start := kgo.NewOffset().AtStart()
	if from >= 0 {
		start = kgo.NewOffset().At(from)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.SeedBrokers()...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
			cfg.Topic: {cfg.Partition: start},
		}),
		// Out of range positions (retention) fall back to the earliest record.
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	logger.Info("partition session opened",
		zap.Strings("brokers", cfg.SeedBrokers()),
		zap.String("topic", cfg.Topic),
		zap.Int32("partition", cfg.Partition),
		zap.Int64("from_offset", from),
	)

	return &PartitionSession{
		client:    client,
		logger:    logger,
		topic:     cfg.Topic,
		partition: cfg.Partition,
		idle:      cfg.IdleTimeout,
	}, nil
}

// Next returns the next record. It blocks for at most the idle timeout and
// reports ok=false when no record arrived in that window.
func (s *PartitionSession) Next(ctx context.Context) (Record, bool, error) {
	if len(s.buf) > 0 {
		return s.pop(), true, nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.idle)
	defer cancel()

	for len(s.buf) == 0 {
		fetches := s.client.PollFetches(pollCtx)
		if fetches.IsClientClosed() {
			return Record{}, false, errors.New("kafka client closed")
		}

		for _, fe := range fetches.Errors() {
			switch {
			case ctx.Err() != nil:
				return Record{}, false, ctx.Err()
			case errors.Is(fe.Err, context.DeadlineExceeded), errors.Is(fe.Err, context.Canceled):
				return Record{}, false, nil
			case kerr.IsRetriable(fe.Err):
				s.logger.Warn("retriable fetch error",
					zap.String("topic", fe.Topic),
					zap.Int32("partition", fe.Partition),
					zap.Error(fe.Err),
				)
			default:
				return Record{}, false, fmt.Errorf("fetch %s/%d: %w", fe.Topic, fe.Partition, fe.Err)
			}
		}

		fetches.EachRecord(func(r *kgo.Record) {
			if r.Topic == s.topic && r.Partition == s.partition {
				s.buf = append(s.buf, r)
			}
		})

		if len(s.buf) == 0 && pollCtx.Err() != nil {
			if ctx.Err() != nil {
				return Record{}, false, ctx.Err()
			}
			return Record{}, false, nil
		}
	}

	return s.pop(), true, nil
}

func (s *PartitionSession) pop() Record {
	r := s.buf[0]
	s.buf[0] = nil
	s.buf = s.buf[1:]
	rec := Record{
		Topic:     r.Topic,
		Key:       r.Key,
		Value:     r.Value,
		Partition: r.Partition,
		Offset:    r.Offset,
		Timestamp: r.Timestamp,
	}
	if len(r.Headers) > 0 {
		rec.Headers = make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			rec.Headers[h.Key] = string(h.Value)
		}
	}
	return rec
}

// Close releases the client. Buffered records are dropped.
func (s *PartitionSession) Close() {
	s.buf = nil
	if s.client != nil {
		s.client.Close()
	}
}
