package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/classifieds"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/logging"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/msg"
)

var (
	adTypes      = []string{"Premium", "Platinum", "Standard"}
	currencies   = []string{"EUR", "USD", "GBP"}
	paymentTypes = []string{"card", "paypal", "bank_transfer"}
	words        = []string{"bike", "apartment", "sofa", "car", "laptop", "garden", "sea view", "cheap", "new"}
)

func main() {
	var (
		count        = flag.Int("count", 100, "Number of classifieds to produce")
		dupPct       = flag.Int("dup-pct", 10, "Percentage of messages reusing an already produced id (0-100)")
		malformedPct = flag.Int("malformed-pct", 5, "Percentage of messages that are not valid JSON or miss fields (0-100)")
		freePct      = flag.Int("free-pct", 40, "Percentage of Free ads among well-formed messages (0-100)")
		seed         = flag.Int64("seed", 42, "Random seed for deterministic generation")
		brokers      = flag.String("brokers", "127.0.0.1:9092", "Kafka broker addresses")
		topic        = flag.String("topic", msg.TopicClassifieds, "Topic to produce to")
		partition    = flag.Int("partition", 0, "Partition to produce to")
	)
	flag.Parse()

	logger, err := logging.NewLogger("producer", "info", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := msg.Config{
		Brokers:  strings.Split(*brokers, ","),
		ClientID: "classifieds-producer",
		Topic:    *topic,
	}
	logger.Info("starting producer",
		zap.Int("count", *count),
		zap.Int("dup_pct", *dupPct),
		zap.Int("malformed_pct", *malformedPct),
		zap.Int("free_pct", *freePct),
		zap.Int64("seed", *seed),
		zap.Strings("brokers", cfg.SeedBrokers()),
		zap.String("topic", *topic),
	)

	producer, err := msg.NewProducer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create producer", zap.Error(err))
	}
	defer producer.Close()

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	part := int32(*partition)

	var ids []string
	produced, failed, dupCount, malformedCount, freeCount := 0, 0, 0, 0, 0

	for i := 0; i < *count; i++ {
		if rng.Intn(100) < *malformedPct {
			rec := &kgo.Record{Topic: *topic, Partition: part, Value: malformed(rng, i)}
			if err := producer.Produce(ctx, rec); err != nil {
				logger.Error("failed to produce malformed message", zap.Error(err))
				failed++
				continue
			}
			malformedCount++
			produced++
			continue
		}

		var id string
		if rng.Intn(100) < *dupPct && len(ids) > 0 {
			id = ids[rng.Intn(len(ids))]
			dupCount++
		} else {
			id = uuid.New().String()
			ids = append(ids, id)
		}

		ad := msg.ClassifiedMsg{
			ID:         id,
			CustomerID: fmt.Sprintf("cust-%d", rng.Intn(1000)),
			CreatedAt:  time.Now().UTC().Format("2006-01-02T15:04:05.000000-07:00"),
			Text:       words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))],
		}
		if rng.Intn(100) < *freePct {
			ad.AdType = classifieds.FreeAdType
			freeCount++
		} else {
			price := float64(rng.Intn(100000)) / 100
			cost := float64(rng.Intn(500)) / 100
			ad.AdType = adTypes[rng.Intn(len(adTypes))]
			ad.Price = &price
			ad.Currency = currencies[rng.Intn(len(currencies))]
			ad.PaymentType = paymentTypes[rng.Intn(len(paymentTypes))]
			ad.PaymentCost = &cost
		}

		if err := producer.ProduceJSON(ctx, *topic, part, ad.ID, ad); err != nil {
			logger.Error("failed to produce classified",
				zap.String("id", ad.ID),
				zap.Error(err),
			)
			failed++
			continue
		}
		produced++
		logger.Debug("produced classified", zap.String("id", ad.ID), zap.String("ad_type", ad.AdType))
	}

	logger.Info("producer completed",
		zap.Int("total", *count),
		zap.Int("produced", produced),
		zap.Int("failed", failed),
		zap.Int("unique_ids", len(ids)),
		zap.Int("duplicates", dupCount),
		zap.Int("malformed", malformedCount),
		zap.Int("free", freeCount),
	)

	fmt.Printf("\n=== Producer Summary ===\n")
	fmt.Printf("Total messages: %d\n", *count)
	fmt.Printf("Produced: %d\n", produced)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Printf("Unique ids: %d\n", len(ids))
	fmt.Printf("Duplicate ids: %d\n", dupCount)
	fmt.Printf("Malformed: %d\n", malformedCount)
	fmt.Printf("Topic: %s/%d\n", *topic, part)
	fmt.Printf("\n")

	if failed > 0 {
		os.Exit(1)
	}
}

// malformed alternates between broken JSON and documents missing a field.
func malformed(rng *rand.Rand, i int) []byte {
	if rng.Intn(2) == 0 {
		return []byte(fmt.Sprintf(`{"id": "broken-%d", "text": `, i))
	}
	return []byte(fmt.Sprintf(`{"id":"incomplete-%d","customer_id":"c","created_at":"2019-05-29T10:00:00","text":"t","ad_type":"Premium","price":10}`, i))
}
