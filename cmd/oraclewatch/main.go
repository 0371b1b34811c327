package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "oraclewatch",
		Short:        "Wait for substrate events and decode their payloads",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	waitCmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until a module event appears in the feed",
		RunE:  runWait,
	}

	waitCmd.Flags().String("schema", "", "event schema YAML/JSON path")
	waitCmd.Flags().String("module", "OracleModule", "module name to match")
	waitCmd.Flags().String("event", "OracleCreated", "event name to match")
	waitCmd.Flags().StringSlice("register", nil, "extra type sizes (comma-separated name=rule, rule is N, compact or bytes)")
	waitCmd.Flags().String("payload", "raw", "payload decoding (raw, oracle-created)")
	waitCmd.Flags().String("in", "", "hex blob feed file, one per line ('-' for stdin)")
	waitCmd.Flags().String("record", "", "copy every feed blob to this file for a later scan")
	waitCmd.Flags().String("rpc", "", "node RPC URL for polling and submission")
	waitCmd.Flags().String("xt", "", "signed extrinsic hex to submit before waiting")
	waitCmd.Flags().Duration("timeout", 0, "give up after this long, 0 waits forever")
	waitCmd.Flags().String("out", "", "append the confirmation to this JSONL file")
	waitCmd.Flags().String("pg-dsn", "", "Postgres DSN for confirmations and checkpoint")
	waitCmd.Flags().String("checkpoint", "", "poller checkpoint file path")
	waitCmd.Flags().String("checkpoint-name", "oraclewatch", "poller checkpoint row name in Postgres")
	waitCmd.Flags().Uint64("from", 0, "first block to poll, 0 means finalized head")
	waitCmd.Flags().Duration("poll-interval", 6*time.Second, "finalized head polling interval")
	waitCmd.Flags().Uint64("batch-size", 50, "blocks per checkpoint")
	waitCmd.Flags().Int("max-retries", 5, "maximum retry attempts for node reads")
	waitCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	waitCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(waitCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Decode files of hex event blobs into JSONL",
		RunE:  runScan,
	}

	scanCmd.Flags().String("schema", "", "event schema YAML/JSON path")
	scanCmd.Flags().StringSlice("in", nil, "hex blob files (comma-separated)")
	scanCmd.Flags().StringSlice("register", nil, "extra type sizes (comma-separated name=rule)")
	scanCmd.Flags().String("out", "./data/events.jsonl", "output event records JSONL")
	scanCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
