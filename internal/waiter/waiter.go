package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/events"
	"oracleWatch/internal/metadata"
	"oracleWatch/internal/registry"
)

var (
	// ErrSourceClosed is returned when the inbound channel closes before a match.
	ErrSourceClosed = errors.New("event source closed")
	// ErrMalformed marks a blob that is not valid hex. It is logged, never returned.
	ErrMalformed = codec.ErrMalformedHex
	// ErrPayloadMismatch is returned when a matched event's bytes do not fit the target type.
	ErrPayloadMismatch = errors.New("payload mismatch")
)

// Config controls waiter behavior.
type Config struct {
	// Registrations seed a fresh type registry for every wait call.
	Registrations []registry.Registration
	// Timeout bounds a wait call. Zero waits until the source closes or the context ends.
	Timeout time.Duration
}

// Waiter blocks on a feed of hex-encoded event blobs until a target event appears.
type Waiter struct {
	cfg    Config
	index  *metadata.Index
	logger *zap.Logger
}

// New builds a Waiter over a read-only schema index.
func New(cfg Config, index *metadata.Index, logger *zap.Logger) *Waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{
		cfg:    cfg,
		index:  index,
		logger: logger,
	}
}

// WaitForRaw consumes blobs from inbound until an event with exactly the given
// module and event name is decoded, and returns it with its arguments undecoded.
//
// Blobs that are malformed or cannot be fully decoded are logged and skipped;
// records decoded before a failure are still considered.
func (w *Waiter) WaitForRaw(ctx context.Context, module, event string, inbound <-chan string) (events.RawEvent, error) {
	if w.index == nil {
		return events.RawEvent{}, fmt.Errorf("metadata index is nil")
	}
	if _, ok := w.index.Event(module, event); !ok {
		w.logger.Warn("target event not in schema", zap.String("module", module), zap.String("event", event))
	}

	reg, err := registry.Build(w.cfg.Registrations)
	if err != nil {
		return events.RawEvent{}, fmt.Errorf("build registry: %w", err)
	}

	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	logger := w.logger.With(
		zap.String("wait_id", uuid.NewString()),
		zap.String("module", module),
		zap.String("event", event),
	)
	logger.Debug("wait start", zap.Int("registrations", reg.Len()))

	var blobs, skipped int
	for {
		var blob string
		var ok bool
		select {
		case <-ctx.Done():
			return events.RawEvent{}, fmt.Errorf("wait for %s.%s: %w", module, event, ctx.Err())
		case blob, ok = <-inbound:
		}
		if !ok {
			logger.Info("source closed", zap.Int("blobs", blobs), zap.Int("skipped", skipped))
			return events.RawEvent{}, fmt.Errorf("wait for %s.%s: %w", module, event, ErrSourceClosed)
		}
		blobs++

		data, err := codec.DecodeHex(blob)
		if err != nil {
			skipped++
			logger.Warn("skip malformed blob", zap.Int("blob", blobs), zap.Error(err))
			continue
		}

		records, decodeErr := events.Decode(data, w.index, reg)
		if raw, ok := match(records, module, event); ok {
			logger.Info("event matched",
				zap.Int("blob", blobs),
				zap.Int("position", raw.position),
				zap.Int("data_len", len(raw.event.Data)),
			)
			return raw.event, nil
		}
		if decodeErr != nil {
			skipped++
			logDecodeError(logger, blobs, len(records), decodeErr)
			continue
		}

		for _, record := range records {
			logger.Debug("ignore event",
				zap.String("record_module", record.Event.Module),
				zap.String("record_event", record.Event.Event),
			)
		}
	}
}

// WaitForInto waits like WaitForRaw and strictly decodes the matched arguments into target.
func (w *Waiter) WaitForInto(ctx context.Context, module, event string, inbound <-chan string, target interface{}) error {
	raw, err := w.WaitForRaw(ctx, module, event, inbound)
	if err != nil {
		return err
	}
	return DecodePayload(raw, target)
}

// WaitFor waits like WaitForRaw and strictly decodes the matched arguments into a T.
// On a payload mismatch the zero value is returned.
func WaitFor[T any](ctx context.Context, w *Waiter, module, event string, inbound <-chan string) (T, error) {
	var out T
	if err := w.WaitForInto(ctx, module, event, inbound, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DecodePayload decodes a raw event's arguments into target, requiring every byte to be used.
func DecodePayload(raw events.RawEvent, target interface{}) error {
	if err := codec.DecodeStrict(raw.Data, target); err != nil {
		return fmt.Errorf("%w: %s.%s into %T: %v", ErrPayloadMismatch, raw.Module, raw.Event, target, err)
	}
	return nil
}

type matched struct {
	position int
	event    events.RawEvent
}

func match(records []events.Record, module, event string) (matched, bool) {
	for _, record := range records {
		if record.Event.Module == module && record.Event.Event == event {
			return matched{position: record.Position, event: record.Event}, true
		}
	}
	return matched{}, false
}

func logDecodeError(logger *zap.Logger, blob, decoded int, err error) {
	fields := []zap.Field{zap.Int("blob", blob), zap.Int("decoded", decoded), zap.Error(err)}

	var unknown *events.UnknownTypeError
	switch {
	case errors.As(err, &unknown):
		logger.Warn("skip blob: unsized type, register it", append(fields, zap.String("type", unknown.Name))...)
	case errors.Is(err, events.ErrUnknownVariant):
		logger.Debug("skip blob: unknown event variant", fields...)
	case errors.Is(err, events.ErrTruncated), errors.Is(err, events.ErrTrailingData),
		errors.Is(err, events.ErrInvalidPhase):
		logger.Warn("skip blob: corrupt event records", fields...)
	default:
		logger.Error("skip blob: decode failed", fields...)
	}
}
