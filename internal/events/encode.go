package events

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"oracleWatch/internal/metadata"
)

// Encode builds a block's event record list from records whose argument bytes
// are already encoded. Discriminators are taken from the index by name.
func Encode(index *metadata.Index, records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)

	if err := enc.EncodeUintCompact(*new(big.Int).SetUint64(uint64(len(records)))); err != nil {
		return nil, fmt.Errorf("encode count: %w", err)
	}
	for i, record := range records {
		meta, ok := index.Event(record.Event.Module, record.Event.Event)
		if !ok {
			return nil, fmt.Errorf("record %d: %w: %s.%s", i, ErrUnknownVariant, record.Event.Module, record.Event.Event)
		}
		phase, err := phaseBytes(record.Phase)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := enc.Write(phase); err != nil {
			return nil, fmt.Errorf("record %d phase: %w", i, err)
		}
		if err := enc.Write([]byte{meta.ModuleIndex, meta.EventIndex}); err != nil {
			return nil, fmt.Errorf("record %d discriminators: %w", i, err)
		}
		if err := enc.Write(record.Event.Data); err != nil {
			return nil, fmt.Errorf("record %d data: %w", i, err)
		}
		if !index.Topics() {
			continue
		}
		if err := enc.EncodeUintCompact(*new(big.Int).SetUint64(uint64(len(record.Topics)))); err != nil {
			return nil, fmt.Errorf("record %d topics: %w", i, err)
		}
		for _, topic := range record.Topics {
			if err := enc.Write(topic[:]); err != nil {
				return nil, fmt.Errorf("record %d topic: %w", i, err)
			}
		}
	}
	return buf.Bytes(), nil
}

// phaseBytes encodes p, which must have exactly one variant set.
func phaseBytes(p types.Phase) ([]byte, error) {
	set := 0
	for _, flag := range []bool{p.IsApplyExtrinsic, p.IsFinalization, p.IsInitialization} {
		if flag {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %d variants set", ErrInvalidPhase, set)
	}
	switch {
	case p.IsApplyExtrinsic:
		return binary.LittleEndian.AppendUint32([]byte{phaseApplyExtrinsic}, p.AsApplyExtrinsic), nil
	case p.IsFinalization:
		return []byte{phaseFinalization}, nil
	default:
		return []byte{phaseInitialization}, nil
	}
}

// ApplyExtrinsic returns the phase of an event emitted by the extrinsic at position idx.
func ApplyExtrinsic(idx uint32) types.Phase {
	return types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: idx}
}

// PhaseString renders a phase for logs and JSON output.
func PhaseString(p types.Phase) string {
	switch {
	case p.IsApplyExtrinsic:
		return fmt.Sprintf("apply_extrinsic:%d", p.AsApplyExtrinsic)
	case p.IsFinalization:
		return "finalization"
	case p.IsInitialization:
		return "initialization"
	default:
		return "unknown"
	}
}
