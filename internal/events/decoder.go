package events

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/metadata"
	"oracleWatch/internal/registry"
)

var (
	// ErrTruncated is returned when a blob ends inside a record.
	ErrTruncated = codec.ErrTruncated
	// ErrUnknownVariant is returned when a record's discriminators are not in the schema.
	ErrUnknownVariant = metadata.ErrUnknownVariant
	// ErrTrailingData is returned when bytes remain after the last record.
	ErrTrailingData = errors.New("trailing data after event records")
	// ErrInvalidPhase is returned for a phase tag other than 0, 1 or 2.
	ErrInvalidPhase = errors.New("invalid phase")
)

// RawArg is one argument's undecoded bytes.
type RawArg struct {
	Type string
	Data []byte
}

// RawEvent is an event tagged with its module and name whose arguments are left undecoded.
type RawEvent struct {
	ModuleIndex uint8
	EventIndex  uint8
	Module      string
	Event       string
	// Data covers every argument in order; Args holds the per-argument sub-slices.
	Data []byte
	Args []RawArg
}

// Record is one entry of a block's event list.
type Record struct {
	Position int
	Phase    types.Phase
	Event    RawEvent
	Topics   []types.Hash
}

// Decode splits a block's SCALE-encoded event record list into raw events.
//
// Record boundaries depend on sizing every argument, so the first failure
// abandons the rest of the blob; records decoded before it are returned along
// with the error.
func Decode(blob []byte, index *metadata.Index, reg *registry.Registry) ([]Record, error) {
	if index == nil {
		return nil, fmt.Errorf("metadata index is nil")
	}

	r := codec.NewReader(blob)
	count, err := r.ReadCompact()
	if err != nil {
		return nil, fmt.Errorf("record count: %w", err)
	}
	// Each record needs at least a phase byte and two discriminators.
	if count > uint64(r.Remaining()/3) {
		return nil, fmt.Errorf("%w: %d records declared, %d bytes remain", ErrTruncated, count, r.Remaining())
	}

	records := make([]Record, 0, count)
	for i := 0; i < int(count); i++ {
		record, err := decodeRecord(r, index, reg)
		if err != nil {
			return records, fmt.Errorf("record %d at offset %d: %w", i, r.Offset(), err)
		}
		record.Position = i
		records = append(records, record)
	}

	if r.Remaining() != 0 {
		return records, fmt.Errorf("%w: %d bytes", ErrTrailingData, r.Remaining())
	}
	return records, nil
}

func decodeRecord(r *codec.Reader, index *metadata.Index, reg *registry.Registry) (Record, error) {
	var record Record
	phase, err := readPhase(r)
	if err != nil {
		return Record{}, fmt.Errorf("phase: %w", err)
	}
	record.Phase = phase

	moduleIdx, err := r.ReadByte()
	if err != nil {
		return Record{}, err
	}
	eventIdx, err := r.ReadByte()
	if err != nil {
		return Record{}, err
	}
	meta, err := index.Lookup(moduleIdx, eventIdx)
	if err != nil {
		return Record{}, err
	}

	start := r.Offset()
	args := make([]RawArg, 0, len(meta.ArgTypes))
	for i, expr := range meta.ArgTypes {
		argStart := r.Offset()
		if err := skipType(r, expr, reg); err != nil {
			return Record{}, fmt.Errorf("%s.%s arg %d (%s): %w", meta.Module, meta.Name, i, meta.Args[i], err)
		}
		data, err := slice(r, argStart)
		if err != nil {
			return Record{}, err
		}
		args = append(args, RawArg{Type: meta.Args[i], Data: data})
	}
	data, err := slice(r, start)
	if err != nil {
		return Record{}, err
	}

	record.Event = RawEvent{
		ModuleIndex: moduleIdx,
		EventIndex:  eventIdx,
		Module:      meta.Module,
		Event:       meta.Name,
		Data:        data,
		Args:        args,
	}

	if index.Topics() {
		n, err := r.ReadCompact()
		if err != nil {
			return Record{}, fmt.Errorf("topics: %w", err)
		}
		if n > uint64(r.Remaining()/32) {
			return Record{}, fmt.Errorf("%w: %d topics, %d bytes remain", ErrTruncated, n, r.Remaining())
		}
		record.Topics = make([]types.Hash, 0, n)
		for j := uint64(0); j < n; j++ {
			raw, err := r.ReadBytes(32)
			if err != nil {
				return Record{}, fmt.Errorf("topic %d: %w", j, err)
			}
			var topic types.Hash
			copy(topic[:], raw)
			record.Topics = append(record.Topics, topic)
		}
	}

	return record, nil
}

const (
	phaseApplyExtrinsic byte = iota
	phaseFinalization
	phaseInitialization
)

func readPhase(r *codec.Reader) (types.Phase, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return types.Phase{}, err
	}
	switch tag {
	case phaseApplyExtrinsic:
		idx, err := r.ReadBytes(4)
		if err != nil {
			return types.Phase{}, err
		}
		return ApplyExtrinsic(binary.LittleEndian.Uint32(idx)), nil
	case phaseFinalization:
		return types.Phase{IsFinalization: true}, nil
	case phaseInitialization:
		return types.Phase{IsInitialization: true}, nil
	default:
		return types.Phase{}, fmt.Errorf("%w: tag %d at %d", ErrInvalidPhase, tag, r.Offset()-1)
	}
}

// slice returns the bytes consumed since start as a view of the blob.
func slice(r *codec.Reader, start int) ([]byte, error) {
	end := r.Offset()
	if end < start {
		return nil, fmt.Errorf("cursor moved backwards: %d < %d", end, start)
	}
	return r.Span(start, end), nil
}
