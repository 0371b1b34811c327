package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/config"
	"oracleWatch/internal/events"
	"oracleWatch/internal/metadata"
	"oracleWatch/internal/model"
	"oracleWatch/internal/registry"
)

type scanStats struct {
	blobs, records, failed int
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	index, err := metadata.Load(cfg.Schema)
	if err != nil {
		return err
	}
	regs, err := registry.ParseRegistrations(cfg.Register)
	if err != nil {
		return err
	}
	reg, err := registry.Build(regs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outWriter, err := newJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("scan start",
		zap.String("schema", cfg.Schema),
		zap.Strings("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("registrations", reg.Len()),
	)

	var stats scanStats
	for _, path := range cfg.In {
		if err := scanFile(ctx, path, index, reg, outWriter, errWriter, &stats); err != nil {
			return err
		}
	}

	logger.Info("scan complete",
		zap.Int("blobs", stats.blobs),
		zap.Int("records", stats.records),
		zap.Int("failed", stats.failed),
	)
	return nil
}

func scanFile(
	ctx context.Context,
	path string,
	index *metadata.Index,
	reg *registry.Registry,
	outWriter *jsonlWriter,
	errWriter *jsonlWriter,
	stats *scanStats,
) error {
	inputFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		stats.blobs++

		blob, err := codec.DecodeHex(text)
		if err != nil {
			stats.failed++
			writeDecodeError(errWriter, events.ToDecodeError(stats.blobs, line, 0, err))
			continue
		}

		records, decodeErr := events.Decode(blob, index, reg)
		for _, record := range records {
			if err := outWriter.Write(events.ToEventRecord(stats.blobs, record)); err != nil {
				return err
			}
		}
		stats.records += len(records)
		if decodeErr != nil {
			stats.failed++
			writeDecodeError(errWriter, events.ToDecodeError(stats.blobs, line, len(records), decodeErr))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return nil
}

func writeDecodeError(writer *jsonlWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
