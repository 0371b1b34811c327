package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"oracleWatch/internal/codec"
)

func TestErrorKind(t *testing.T) {
	cases := map[error]string{
		nil: "",
		fmt.Errorf("line 3: %w", codec.ErrMalformedHex):          "malformed_hex",
		fmt.Errorf("record 1: %w", &UnknownTypeError{Name: "X"}): "unknown_type",
		fmt.Errorf("record 0: %w", ErrUnknownVariant):            "unknown_variant",
		fmt.Errorf("record 2: %w", ErrTruncated):                 "truncated",
		ErrTrailingData:                                          "trailing_data",
		fmt.Errorf("record 0: phase: %w", ErrInvalidPhase):       "invalid_phase",
		fmt.Errorf("boom"):                                       "decode",
	}
	for err, want := range cases {
		assert.Equal(t, want, ErrorKind(err), "%v", err)
	}
}

func TestToConfirmationRendersHex(t *testing.T) {
	raw := RawEvent{
		Module: "OracleModule",
		Event:  "OracleCreated",
		Data:   []byte{7, 0, 0, 0, 0xaa},
		Args: []RawArg{
			{Type: "OracleId", Data: []byte{7, 0, 0, 0}},
			{Type: "u8", Data: []byte{0xaa}},
		},
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	conf := ToConfirmation("0xabc", raw, at)
	assert.Equal(t, "0xabc", conf.TxHash)
	assert.Equal(t, "0x07000000aa", conf.Data)
	assert.Equal(t, "0x07000000", conf.Args[0].Data)
	assert.Equal(t, "OracleId", conf.Args[0].Type)
	assert.Equal(t, "2024-05-01T12:00:00Z", conf.MatchedAt)
}
