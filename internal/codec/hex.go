package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrMalformedHex is returned for input that is not a valid hex string.
var ErrMalformedHex = errors.New("malformed hex")

// DecodeHex decodes a hex string with or without the 0x prefix.
func DecodeHex(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformedHex)
	}
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		input = "0x" + input
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return data, nil
}

// EncodeHex encodes data with the 0x prefix.
func EncodeHex(data []byte) string {
	return hexutil.Encode(data)
}
