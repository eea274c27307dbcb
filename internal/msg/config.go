package msg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default topic names
const (
	TopicClassifieds = "data"
	TopicDeadLetter  = "data.dead-letter"
)

// Config holds Kafka configuration
type Config struct {
	Brokers   []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"127.0.0.1:9092"`
	ClientID  string   `yaml:"client_id" env:"KAFKA_CLIENT_ID" env-default:"classifieds-ingestor"`
	Topic     string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"data"`
	Partition int32    `yaml:"partition" env:"KAFKA_PARTITION" env-default:"0"`

	// IdleTimeout bounds how long a session waits for the next record
	// before it is considered drained.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"KAFKA_IDLE_TIMEOUT" env-default:"5s"`

	// DeadLetterTopic receives discarded payloads when set.
	DeadLetterTopic string `yaml:"dead_letter_topic" env:"KAFKA_DEAD_LETTER_TOPIC"`
}

// SeedBrokers returns the trimmed, non-empty broker addresses.
func (c Config) SeedBrokers() []string {
	brokers := make([]string, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Validate checks the Kafka section.
func (c Config) Validate() error {
	var errs []error
	if len(c.SeedBrokers()) == 0 {
		errs = append(errs, errors.New("kafka: at least one broker is required"))
	}
	if c.Topic == "" {
		errs = append(errs, errors.New("kafka: topic is required"))
	}
	if c.Partition < 0 {
		errs = append(errs, fmt.Errorf("kafka: partition must be >= 0, got %d", c.Partition))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("kafka: idle_timeout must be positive, got %s", c.IdleTimeout))
	}
	return errors.Join(errs...)
}
