package msg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SeedBrokers(t *testing.T) {
	cfg := Config{Brokers: []string{" kafka-1:9092", "", "kafka-2:9092 ", "  "}}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.SeedBrokers())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Brokers: []string{"127.0.0.1:9092"}, Topic: TopicClassifieds, IdleTimeout: 5 * time.Second}
	assert.NoError(t, valid.Validate())

	err := Config{Brokers: []string{" "}, Partition: -1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one broker")
	assert.Contains(t, err.Error(), "topic is required")
	assert.Contains(t, err.Error(), "partition must be >= 0")
	assert.Contains(t, err.Error(), "idle_timeout")
}
