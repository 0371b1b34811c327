package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Chain is the node surface the poller reads from. *chain.Client implements it.
type Chain interface {
	FinalizedNumber(ctx context.Context) (uint64, error)
	BlockHash(ctx context.Context, number uint64) (common.Hash, error)
	EventsAt(ctx context.Context, hash common.Hash) (string, error)
}

// PollConfig holds runtime settings for the poller.
type PollConfig struct {
	// FromBlock is the first block to publish. Zero starts at the finalized head.
	FromBlock uint64
	// ToBlock stops the poller after publishing it. Zero follows the chain forever.
	ToBlock      uint64
	BatchSize    uint64
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Poller follows the finalized chain and publishes each block's System.Events
// value as a hex blob. It is a pull-based stand-in for a subscription.
type Poller struct {
	cfg        PollConfig
	chain      Chain
	checkpoint CheckpointStore
	logger     *zap.Logger
}

// NewPoller builds a Poller. checkpoint may be nil.
func NewPoller(cfg PollConfig, chainClient Chain, checkpoint CheckpointStore, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 6 * time.Second
	}
	return &Poller{
		cfg:        cfg,
		chain:      chainClient,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Run publishes blobs to out until ctx ends, ToBlock is reached, or a read
// fails after retries. out is closed on return.
func (p *Poller) Run(ctx context.Context, out chan<- string) error {
	defer close(out)

	if p.chain == nil {
		return fmt.Errorf("chain client is nil")
	}

	next, err := p.startBlock(ctx)
	if err != nil {
		return err
	}

	for {
		if p.cfg.ToBlock > 0 && next > p.cfg.ToBlock {
			p.logger.Info("poller reached end block", zap.Uint64("to", p.cfg.ToBlock))
			return nil
		}

		head, err := p.finalizedWithRetry(ctx)
		if err != nil {
			return fmt.Errorf("finalized head: %w", err)
		}
		if p.cfg.ToBlock > 0 && head > p.cfg.ToBlock {
			head = p.cfg.ToBlock
		}

		if next <= head {
			if err := p.publishRange(ctx, next, head, out); err != nil {
				return err
			}
			next = head + 1
			continue
		}

		timer := time.NewTimer(p.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) startBlock(ctx context.Context) (uint64, error) {
	from := p.cfg.FromBlock
	if from == 0 {
		head, err := p.finalizedWithRetry(ctx)
		if err != nil {
			return 0, fmt.Errorf("finalized head: %w", err)
		}
		from = head
	}

	if p.checkpoint != nil {
		last, ok, err := p.checkpoint.Load(ctx)
		if err != nil {
			return 0, err
		}
		if ok && last >= from {
			from = last + 1
			p.logger.Info("resume from checkpoint", zap.Uint64("last_published", last), zap.Uint64("from", from))
		}
	}
	return from, nil
}

func (p *Poller) publishRange(ctx context.Context, from, to uint64, out chan<- string) error {
	ranges, err := SplitRange(from, to, p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		for number := blockRange.From; number <= blockRange.To; number++ {
			blob, err := p.eventsWithRetry(ctx, number)
			if err != nil {
				return fmt.Errorf("events at %d: %w", number, err)
			}
			select {
			case out <- blob:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if p.checkpoint != nil {
			if err := p.checkpoint.Save(ctx, blockRange.To); err != nil {
				return err
			}
		}
		p.logger.Debug("published blocks", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return nil
}

func (p *Poller) finalizedWithRetry(ctx context.Context) (uint64, error) {
	var head uint64
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		head, err = p.chain.FinalizedNumber(ctx)
		if err != nil {
			p.logger.Warn("finalized head fetch failed", zap.Error(err))
		}
		return err
	})
	return head, err
}

func (p *Poller) eventsWithRetry(ctx context.Context, number uint64) (string, error) {
	var blob string
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		hash, err := p.chain.BlockHash(ctx, number)
		if err != nil {
			p.logger.Warn("block hash fetch failed", zap.Error(err), zap.Uint64("block_number", number))
			return err
		}
		blob, err = p.chain.EventsAt(ctx, hash)
		if err != nil {
			p.logger.Warn("events fetch failed", zap.Error(err), zap.Uint64("block_number", number))
		}
		return err
	})
	return blob, err
}
