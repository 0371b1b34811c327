package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const maxLineSize = 16 << 20

// LineSource reads one hex-encoded event blob per line.
// Blank lines and lines starting with '#' are ignored.
type LineSource struct {
	r      io.Reader
	logger *zap.Logger
}

func NewLineSource(r io.Reader, logger *zap.Logger) *LineSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineSource{r: r, logger: logger}
}

// Run sends every blob to out and closes out when the input ends or ctx is done.
func (s *LineSource) Run(ctx context.Context, out chan<- string) error {
	defer close(out)

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lines, sent := 0, 0
	for scanner.Scan() {
		lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		select {
		case out <- line:
			sent++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", lines+1, err)
	}

	s.logger.Debug("line source drained", zap.Int("lines", lines), zap.Int("blobs", sent))
	return nil
}

// Lines returns a channel fed by a LineSource running in the background.
// Read errors are logged.
func Lines(ctx context.Context, r io.Reader, logger *zap.Logger) <-chan string {
	out := make(chan string)
	src := NewLineSource(r, logger)
	go func() {
		if err := src.Run(ctx, out); err != nil && ctx.Err() == nil {
			src.logger.Error("line source failed", zap.Error(err))
		}
	}()
	return out
}
