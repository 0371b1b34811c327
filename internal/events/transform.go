package events

import (
	"errors"
	"time"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/model"
)

// ToEventRecord converts a decoded record into its JSON row.
func ToEventRecord(blob int, record Record) model.EventRecord {
	topics := make([]string, 0, len(record.Topics))
	for _, topic := range record.Topics {
		topics = append(topics, codec.EncodeHex(topic[:]))
	}

	return model.EventRecord{
		Blob:     blob,
		Position: record.Position,
		Phase:    PhaseString(record.Phase),
		Module:   record.Event.Module,
		Event:    record.Event.Event,
		Data:     codec.EncodeHex(record.Event.Data),
		Args:     ArgRecords(record.Event),
		Topics:   topics,
	}
}

// ArgRecords renders each argument of raw as hex.
func ArgRecords(raw RawEvent) []model.ArgRecord {
	out := make([]model.ArgRecord, 0, len(raw.Args))
	for _, arg := range raw.Args {
		out = append(out, model.ArgRecord{Type: arg.Type, Data: codec.EncodeHex(arg.Data)})
	}
	return out
}

// ToConfirmation builds the confirmation row for a matched event.
func ToConfirmation(txHash string, raw RawEvent, matchedAt time.Time) model.Confirmation {
	return model.Confirmation{
		TxHash:    txHash,
		Module:    raw.Module,
		Event:     raw.Event,
		Data:      codec.EncodeHex(raw.Data),
		Args:      ArgRecords(raw),
		MatchedAt: matchedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ErrorKind classifies a decode failure for reports.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, codec.ErrMalformedHex):
		return "malformed_hex"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrUnknownVariant):
		return "unknown_variant"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrTrailingData):
		return "trailing_data"
	case errors.Is(err, ErrInvalidPhase):
		return "invalid_phase"
	default:
		return "decode"
	}
}

// ToDecodeError builds the report row for a blob that failed after decoded records.
func ToDecodeError(blob, line, decoded int, err error) model.DecodeError {
	return model.DecodeError{
		Blob:    blob,
		Line:    line,
		Decoded: decoded,
		Kind:    ErrorKind(err),
		Error:   err.Error(),
	}
}
