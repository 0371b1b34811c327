package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// SystemEventsKey is the storage key of the System.Events value
// (twox128("System") ++ twox128("Events")).
const SystemEventsKey = "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"

// Caller is the subset of *rpc.Client used by Client.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Client wraps a JSON-RPC connection to a substrate node.
type Client struct {
	rpcClient Caller

	mu        sync.RWMutex
	hashCache map[uint64]common.Hash
}

type header struct {
	ParentHash common.Hash    `json:"parentHash"`
	Number     hexutil.Uint64 `json:"number"`
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewClientWithCaller(rpcClient), nil
}

// NewClientWithCaller builds a Client over an existing connection.
func NewClientWithCaller(caller Caller) *Client {
	return &Client{
		rpcClient: caller,
		hashCache: make(map[uint64]common.Hash),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// SubmitExtrinsic sends a signed, hex-encoded extrinsic and returns its hash.
func (c *Client) SubmitExtrinsic(ctx context.Context, xtHex string) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "author_submitExtrinsic", xtHex); err != nil {
		return common.Hash{}, fmt.Errorf("author_submitExtrinsic: %w", err)
	}
	return hash, nil
}

// FinalizedHead returns the hash of the latest finalized block.
func (c *Client) FinalizedHead(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "chain_getFinalizedHead"); err != nil {
		return common.Hash{}, fmt.Errorf("chain_getFinalizedHead: %w", err)
	}
	return hash, nil
}

// HeaderNumber returns the block number of the given block hash.
func (c *Client) HeaderNumber(ctx context.Context, hash common.Hash) (uint64, error) {
	var h *header
	if err := c.rpcClient.CallContext(ctx, &h, "chain_getHeader", hash); err != nil {
		return 0, fmt.Errorf("chain_getHeader: %w", err)
	}
	if h == nil {
		return 0, fmt.Errorf("chain_getHeader: header %s not found", hash.Hex())
	}
	return uint64(h.Number), nil
}

// FinalizedNumber returns the number of the latest finalized block.
func (c *Client) FinalizedNumber(ctx context.Context) (uint64, error) {
	hash, err := c.FinalizedHead(ctx)
	if err != nil {
		return 0, err
	}
	return c.HeaderNumber(ctx, hash)
}

// BlockHash returns the hash of the block at number, using an in-memory cache.
func (c *Client) BlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	c.mu.RLock()
	hash, ok := c.hashCache[number]
	c.mu.RUnlock()
	if ok {
		return hash, nil
	}

	var out *common.Hash
	if err := c.rpcClient.CallContext(ctx, &out, "chain_getBlockHash", hexutil.Uint64(number)); err != nil {
		return common.Hash{}, fmt.Errorf("chain_getBlockHash: %w", err)
	}
	if out == nil {
		return common.Hash{}, fmt.Errorf("chain_getBlockHash: block %d not found", number)
	}

	c.mu.Lock()
	c.hashCache[number] = *out
	c.mu.Unlock()

	return *out, nil
}

// EventsAt returns the hex-encoded System.Events value at a block.
// A block without events yields the empty list "0x00".
func (c *Client) EventsAt(ctx context.Context, hash common.Hash) (string, error) {
	var raw *string
	if err := c.rpcClient.CallContext(ctx, &raw, "state_getStorage", SystemEventsKey, hash); err != nil {
		return "", fmt.Errorf("state_getStorage: %w", err)
	}
	if raw == nil {
		return "0x00", nil
	}
	return *raw, nil
}
