package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func collect(ch <-chan string) []string {
	var out []string
	for blob := range ch {
		out = append(out, blob)
	}
	return out
}

func TestLineSourceSkipsBlankAndComments(t *testing.T) {
	input := "0x00\n\n# block 12\n  0x0400  \r\n0x08"
	out := make(chan string, 8)

	err := NewLineSource(strings.NewReader(input), zaptest.NewLogger(t)).Run(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x00", "0x0400", "0x08"}, collect(out))
}

func TestLinesClosesAtEOF(t *testing.T) {
	ch := Lines(context.Background(), strings.NewReader("0x00\n0x00\n"), zaptest.NewLogger(t))
	assert.Len(t, collect(ch), 2)
}

func TestLineSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan string)
	err := NewLineSource(strings.NewReader("0x00\n"), nil).Run(ctx, out)
	assert.True(t, errors.Is(err, context.Canceled))

	_, open := <-out
	assert.False(t, open)
}
