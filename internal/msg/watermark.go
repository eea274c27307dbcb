package msg

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// HighWatermark returns the offset the next produced record will get on
// topic/partition, i.e. one past the last available record.
func HighWatermark(ctx context.Context, cfg Config) (int64, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.SeedBrokers()...),
		kgo.ClientID(cfg.ClientID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create kafka client: %w", err)
	}
	defer client.Close()

	req := kmsg.NewPtrListOffsetsRequest()
	req.ReplicaID = -1
	topic := kmsg.NewListOffsetsRequestTopic()
	topic.Topic = cfg.Topic
	part := kmsg.NewListOffsetsRequestTopicPartition()
	part.Partition = cfg.Partition
	part.Timestamp = -1 // latest
	topic.Partitions = append(topic.Partitions, part)
	req.Topics = append(req.Topics, topic)

	resp, err := req.RequestWith(ctx, client)
	if err != nil {
		return 0, fmt.Errorf("list offsets: %w", err)
	}

	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			if p.Partition != cfg.Partition {
				continue
			}
			if err := kerr.ErrorForCode(p.ErrorCode); err != nil {
				return 0, fmt.Errorf("list offsets %s/%d: %w", t.Topic, p.Partition, err)
			}
			return p.Offset, nil
		}
	}
	return 0, fmt.Errorf("list offsets: partition %s/%d not in response", cfg.Topic, cfg.Partition)
}
