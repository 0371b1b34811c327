package waiter

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/events"
	"oracleWatch/internal/metadata"
	"oracleWatch/internal/oracle"
	"oracleWatch/internal/registry"
)

const testSchema = `
modules:
  - name: System
    events:
      - name: ExtrinsicSuccess
        args: [u32]
  - name: Balances
    events:
      - name: Transfer
        args: [AccountId, AccountId, Balance]
  - name: OracleModule
    index: 5
    events:
      - name: OracleCreated
        args: [OracleId, T::AccountId]
`

func testWaiter(t *testing.T, regs []registry.Registration) *Waiter {
	t.Helper()
	idx, err := metadata.Parse([]byte(testSchema))
	require.NoError(t, err)
	return New(Config{Registrations: regs}, idx, zaptest.NewLogger(t))
}

func oracleRegs(t *testing.T) []registry.Registration {
	t.Helper()
	regs, err := oracle.Registrations()
	require.NoError(t, err)
	return regs
}

func creator() []byte {
	return bytes.Repeat([]byte{0x5a}, 32)
}

func oracleCreatedData(id uint32) []byte {
	return append(binary.LittleEndian.AppendUint32(nil, id), creator()...)
}

func successRecord() events.Record {
	return events.Record{
		Phase: events.ApplyExtrinsic(0),
		Event: events.RawEvent{Module: "System", Event: "ExtrinsicSuccess", Data: binary.LittleEndian.AppendUint32(nil, 10)},
	}
}

func transferRecord() events.Record {
	data := append(bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32)...)
	data = append(data, make([]byte, 16)...)
	return events.Record{
		Phase: events.ApplyExtrinsic(1),
		Event: events.RawEvent{Module: "Balances", Event: "Transfer", Data: data},
	}
}

func oracleRecord(id uint32) events.Record {
	return events.Record{
		Phase:  events.ApplyExtrinsic(1),
		Event:  events.RawEvent{Module: oracle.Module, Event: oracle.CreatedEvent, Data: oracleCreatedData(id)},
		Topics: []types.Hash{types.NewHash(creator())},
	}
}

func blobHex(t *testing.T, w *Waiter, records ...events.Record) string {
	t.Helper()
	blob, err := events.Encode(w.index, records)
	require.NoError(t, err)
	return codec.EncodeHex(blob)
}

func feed(blobs ...string) <-chan string {
	ch := make(chan string, len(blobs))
	for _, blob := range blobs {
		ch <- blob
	}
	close(ch)
	return ch
}

func TestWaitForTypedOracleCreated(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := feed(blobHex(t, w, successRecord(), oracleRecord(7)))

	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracle.ID(7), got.Oracle)
	assert.Equal(t, creator(), got.Creater[:])
}

func TestWaitForRawReturnsArgumentsUnchanged(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := feed(blobHex(t, w, transferRecord(), oracleRecord(42), successRecord()))

	raw, err := w.WaitForRaw(context.Background(), oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracleCreatedData(42), raw.Data)
	assert.Equal(t, uint8(5), raw.ModuleIndex)
}

func TestWaitAdvancesPastBlobsWithoutMatch(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	blobs := []string{
		blobHex(t, w, successRecord()),
		blobHex(t, w, transferRecord(), successRecord()),
		blobHex(t, w, oracleRecord(3)),
	}
	inbound := make(chan string)
	go func() {
		for _, blob := range blobs {
			inbound <- blob
		}
		close(inbound)
	}()

	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracle.ID(3), got.Oracle)
}

func TestWaitFirstMatchWins(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := feed(blobHex(t, w, oracleRecord(1), oracleRecord(2)), blobHex(t, w, oracleRecord(3)))

	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracle.ID(1), got.Oracle)
}

func TestWaitMatchIsCaseSensitive(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := feed(blobHex(t, w, oracleRecord(1)))

	_, err := w.WaitForRaw(context.Background(), "oraclemodule", "oraclecreated", inbound)
	assert.True(t, errors.Is(err, ErrSourceClosed))
}

func TestWaitSkipsMalformedHex(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := feed("0xnothex", "", "0x123", blobHex(t, w, oracleRecord(9)))

	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracle.ID(9), got.Oracle)
}

func TestWaitSkipsCorruptBlobs(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	bad := blobHex(t, w, oracleRecord(99))
	inbound := feed(
		bad[:len(bad)-8], // truncated
		"0x04020900",     // unknown variant
		blobHex(t, w, oracleRecord(4)),
	)

	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracle.ID(4), got.Oracle)
}

func TestWaitWithoutRegistrationSkipsUnsizedEvents(t *testing.T) {
	w := testWaiter(t, nil)
	inbound := feed(blobHex(t, w, successRecord(), oracleRecord(1)))

	_, err := w.WaitForRaw(context.Background(), oracle.Module, oracle.CreatedEvent, inbound)
	assert.True(t, errors.Is(err, ErrSourceClosed))

	// Records decoded before the unsized one remain matchable.
	inbound = feed(blobHex(t, w, successRecord(), oracleRecord(1)))
	raw, err := w.WaitForRaw(context.Background(), "System", "ExtrinsicSuccess", inbound)
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian.AppendUint32(nil, 10), raw.Data)
}

const genericSchema = `
modules:
  - name: Assets
    events:
      - name: MetadataSet
        args: [AssetId, "BoundedVec<u8, T::StringLimit>"]
      - name: Executed
        args: ["Result<(), DispatchError>"]
  - name: OracleModule
    events:
      - name: OracleCreated
        args: [OracleId, T::AccountId]
`

func TestWaitWithOpaqueGenericsInSchema(t *testing.T) {
	idx, err := metadata.Parse([]byte(genericSchema))
	require.NoError(t, err)
	w := New(Config{Registrations: oracleRegs(t)}, idx, zaptest.NewLogger(t))

	executed := events.Record{
		Phase: events.ApplyExtrinsic(0),
		Event: events.RawEvent{Module: "Assets", Event: "Executed", Data: []byte{0x00}},
	}
	inbound := feed(
		blobHex(t, w, executed, oracleRecord(1)), // Result<...> is unsized, blob abandoned
		blobHex(t, w, oracleRecord(2)),
	)
	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	require.NoError(t, err)
	assert.Equal(t, oracle.ID(2), got.Oracle)

	// Registering the asset id makes the bounded vec decodable.
	regs := append(oracleRegs(t), registry.Registration{Name: "AssetId", Rule: registry.Compact()})
	w = New(Config{Registrations: regs}, idx, zaptest.NewLogger(t))
	metadataSet := events.Record{
		Phase: events.ApplyExtrinsic(0),
		Event: events.RawEvent{Module: "Assets", Event: "MetadataSet", Data: []byte{0x04, 0x08, 'o', 'k'}},
	}
	raw, err := w.WaitForRaw(context.Background(), "Assets", "MetadataSet", feed(blobHex(t, w, metadataSet, oracleRecord(3))))
	require.NoError(t, err)
	require.Len(t, raw.Args, 2)
	assert.Equal(t, []byte{0x08, 'o', 'k'}, raw.Args[1].Data)
}

func TestWaitSourceClosed(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := make(chan string)
	close(inbound)

	got, err := WaitFor[oracle.Created](context.Background(), w, oracle.Module, oracle.CreatedEvent, inbound)
	assert.True(t, errors.Is(err, ErrSourceClosed))
	assert.Equal(t, oracle.Created{}, got)
}

func TestWaitPayloadMismatch(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))

	type tooShort struct {
		Oracle uint32
	}
	_, err := WaitFor[tooShort](context.Background(), w, oracle.Module, oracle.CreatedEvent, feed(blobHex(t, w, oracleRecord(7))))
	assert.True(t, errors.Is(err, ErrPayloadMismatch))

	type tooLong struct {
		Oracle  uint32
		Creater [32]byte
		Extra   uint64
	}
	got, err := WaitFor[tooLong](context.Background(), w, oracle.Module, oracle.CreatedEvent, feed(blobHex(t, w, oracleRecord(7))))
	assert.True(t, errors.Is(err, ErrPayloadMismatch))
	assert.Equal(t, tooLong{}, got)
}

func TestWaitContextCancel(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	inbound := make(chan string)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForRaw(ctx, oracle.Module, oracle.CreatedEvent, inbound)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after cancel")
	}
}

func TestWaitTimeout(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	w.cfg.Timeout = 20 * time.Millisecond

	_, err := w.WaitForRaw(context.Background(), oracle.Module, oracle.CreatedEvent, make(chan string))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitRejectsConflictingRegistrations(t *testing.T) {
	w := testWaiter(t, []registry.Registration{
		{Name: "OracleId", Rule: registry.Fixed(4)},
		{Name: "OracleId", Rule: registry.Fixed(8)},
	})

	_, err := w.WaitForRaw(context.Background(), oracle.Module, oracle.CreatedEvent, make(chan string))
	assert.True(t, errors.Is(err, registry.ErrConflictingRule))
}

type fakeSubmitter struct {
	hash common.Hash
	err  error
	got  string
}

func (f *fakeSubmitter) SubmitExtrinsic(_ context.Context, xtHex string) (common.Hash, error) {
	f.got = xtHex
	return f.hash, f.err
}

func TestSubmitAndWait(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	sub := &fakeSubmitter{hash: common.HexToHash("0xabcd")}

	var created oracle.Created
	conf, err := w.SubmitAndWait(context.Background(), sub, "0x1234", oracle.Module, oracle.CreatedEvent,
		feed(blobHex(t, w, oracleRecord(11))), &created)
	require.NoError(t, err)

	assert.Equal(t, "0x1234", sub.got)
	assert.Equal(t, sub.hash.Hex(), conf.TxHash)
	assert.Equal(t, oracle.ID(11), created.Oracle)
	assert.Equal(t, codec.EncodeHex(oracleCreatedData(11)), conf.Data)
	require.Len(t, conf.Args, 2)
	assert.Equal(t, "OracleId", conf.Args[0].Type)
	assert.JSONEq(t, `{"oracle":11,"creater":"`+codec.EncodeHex(creator())+`"}`, string(conf.Decoded))
}

func TestSubmitAndWaitSubmitError(t *testing.T) {
	w := testWaiter(t, oracleRegs(t))
	sub := &fakeSubmitter{err: errors.New("pool full")}

	_, err := w.SubmitAndWait(context.Background(), sub, "0x1234", oracle.Module, oracle.CreatedEvent, feed(), nil)
	assert.True(t, errors.Is(err, ErrSubmit))

	_, err = w.SubmitAndWait(context.Background(), nil, "0x1234", oracle.Module, oracle.CreatedEvent, feed(), nil)
	assert.True(t, errors.Is(err, ErrSubmit))
}
