package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oracleWatch/internal/chain"
	"oracleWatch/internal/config"
	"oracleWatch/internal/feed"
	"oracleWatch/internal/metadata"
	"oracleWatch/internal/model"
	"oracleWatch/internal/oracle"
	"oracleWatch/internal/registry"
	"oracleWatch/internal/storage"
	"oracleWatch/internal/storage/postgres"
	"oracleWatch/internal/waiter"
)

func runWait(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWait(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
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
	var created oracle.Created
	var target interface{}
	if cfg.Payload == "oracle-created" {
		oracleRegs, err := oracle.Registrations()
		if err != nil {
			return err
		}
		regs = append(oracleRegs, regs...)
		target = &created
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	inbound, err := openFeed(ctx, cfg, chainClient, store, logger)
	if err != nil {
		return err
	}
	if cfg.Record != "" {
		var recorded <-chan struct{}
		inbound, recorded, err = recordFeed(ctx, cfg.Record, inbound, logger)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			<-recorded
		}()
	}

	w := waiter.New(waiter.Config{Registrations: regs, Timeout: cfg.Timeout}, index, logger)

	logger.Info("wait start",
		zap.String("schema", cfg.Schema),
		zap.String("module", cfg.Module),
		zap.String("event", cfg.Event),
		zap.String("payload", cfg.Payload),
		zap.Int("registrations", len(regs)),
		zap.Bool("submit", cfg.Xt != ""),
		zap.Duration("timeout", cfg.Timeout),
	)

	var conf model.Confirmation
	if cfg.Xt != "" {
		conf, err = w.SubmitAndWait(ctx, chainClient, cfg.Xt, cfg.Module, cfg.Event, inbound, target)
	} else {
		conf, err = w.Confirm(ctx, "", cfg.Module, cfg.Event, inbound, target)
	}
	if err != nil {
		return err
	}

	var sinks storage.Fanout
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if store != nil {
		sinks = append(sinks, store)
	}
	if err := sinks.PutConfirmations(ctx, []model.Confirmation{conf}); err != nil {
		return fmt.Errorf("store confirmation: %w", err)
	}

	if target != nil {
		fmt.Fprintln(cmd.OutOrStdout(), created.String())
		return nil
	}
	line, err := json.Marshal(conf)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(line))
	return nil
}

// openFeed subscribes to the blob feed before anything is submitted.
func openFeed(ctx context.Context, cfg config.WaitConfig, chainClient *chain.Client, store *postgres.Store, logger *zap.Logger) (<-chan string, error) {
	if cfg.In != "" {
		var r io.Reader = os.Stdin
		if cfg.In != "-" {
			file, err := os.Open(cfg.In)
			if err != nil {
				return nil, fmt.Errorf("open input: %w", err)
			}
			go func() {
				<-ctx.Done()
				file.Close()
			}()
			r = file
		}
		return feed.Lines(ctx, r, logger), nil
	}

	var checkpoint feed.CheckpointStore
	switch {
	case store != nil:
		checkpoint = feed.NewDBCheckpoint(store, cfg.CheckpointName)
	case cfg.Checkpoint != "":
		checkpoint = feed.NewFileCheckpoint(cfg.Checkpoint)
	}

	poller := feed.NewPoller(feed.PollConfig{
		FromBlock:    cfg.FromBlock,
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, checkpoint, logger)

	out := make(chan string, 16)
	go func() {
		if err := poller.Run(ctx, out); err != nil && ctx.Err() == nil {
			logger.Error("poller stopped", zap.Error(err))
		}
	}()
	return out, nil
}

// recordFeed tees the feed through a broadcaster so every blob is also
// written to path, one per line. The returned channel closes once the
// recording is flushed, after ctx ends or the feed closes.
func recordFeed(ctx context.Context, path string, inbound <-chan string, logger *zap.Logger) (<-chan string, <-chan struct{}, error) {
	writer, err := newJSONLWriter(path, true)
	if err != nil {
		return nil, nil, err
	}

	b := feed.NewBroadcaster(16)
	waitCh, _ := b.Subscribe()
	recordCh, detach := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("close recording", zap.String("path", path), zap.Error(err))
			}
		}()
		for blob := range recordCh {
			if err := writer.WriteLine(blob); err != nil {
				logger.Error("record blob", zap.String("path", path), zap.Error(err))
				detach()
				return
			}
		}
	}()
	go func() {
		if err := b.Run(ctx, inbound); err != nil && ctx.Err() == nil {
			logger.Error("broadcast stopped", zap.Error(err))
		}
	}()

	return waitCh, done, nil
}
