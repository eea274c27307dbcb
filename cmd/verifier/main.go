package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/config"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/logging"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/msg"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/store"
)

func main() {
	var (
		timeout = flag.Duration("timeout", 30*time.Second, "Overall verification timeout")
		skipLag = flag.Bool("skip-lag", false, "Do not compare the stored offset with the partition high watermark")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger("verifier", cfg.LogLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting verifier",
		zap.String("db_driver", cfg.Store.Driver),
		zap.String("table", cfg.Store.Table),
		zap.String("topic", cfg.Kafka.Topic),
		zap.Int32("partition", cfg.Kafka.Partition),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn := store.NewConn(cfg.Store, logger)
	defer conn.Close()

	audit, err := store.AuditTable(ctx, conn)
	if err != nil {
		logger.Fatal("failed to audit table", zap.Error(err))
	}

	fmt.Println("\n=== Verification Results ===")
	fmt.Printf("Rows: %d\n", audit.Rows)
	fmt.Printf("Free rows: %d\n", audit.FreeRows)
	fmt.Printf("Priced rows: %d\n", audit.PricedRows)
	fmt.Printf("Free rows with payment fields: %d\n", audit.FreeWithPayment)
	fmt.Printf("Priced rows missing payment fields: %d\n", audit.PricedMissingPayment)
	fmt.Printf("Max stored offset: %d\n", audit.MaxOffset)

	failed := !audit.Consistent()

	if !*skipLag {
		hwm, err := msg.HighWatermark(ctx, cfg.Kafka)
		if err != nil {
			logger.Error("failed to read high watermark", zap.Error(err))
			failed = true
		} else {
			// The last record of the partition is hwm-1. Trailing discarded
			// records are never stored, so a gap is reported, not failed.
			fmt.Printf("Partition high watermark: %d\n", hwm)
			fmt.Printf("Records after max stored offset: %d\n", hwm-1-audit.MaxOffset)
			if audit.MaxOffset >= hwm {
				fmt.Println("Stored offset is beyond the partition end")
				failed = true
			}
		}
	}

	if failed {
		fmt.Println("\n❌ VERIFICATION FAILED")
		os.Exit(1)
	}
	fmt.Println("\n✅ VERIFICATION PASSED")
}
