package waiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oracleWatch/internal/events"
	"oracleWatch/internal/model"
)

// ErrSubmit wraps failures returned by a Submitter. Submissions are never retried here.
var ErrSubmit = errors.New("submit extrinsic")

// Submitter sends an already signed and serialized extrinsic to the node.
type Submitter interface {
	SubmitExtrinsic(ctx context.Context, xtHex string) (common.Hash, error)
}

// SubmitAndWait submits xtHex and then waits on inbound for module.event.
// The inbound feed must already be subscribed so the event cannot be missed.
// When target is non-nil the matched arguments are strictly decoded into it and
// included in the confirmation as JSON.
func (w *Waiter) SubmitAndWait(
	ctx context.Context,
	sub Submitter,
	xtHex string,
	module string,
	event string,
	inbound <-chan string,
	target interface{},
) (model.Confirmation, error) {
	if sub == nil {
		return model.Confirmation{}, fmt.Errorf("%w: submitter is nil", ErrSubmit)
	}

	hash, err := sub.SubmitExtrinsic(ctx, xtHex)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	w.logger.Info("extrinsic submitted", zap.String("tx_hash", hash.Hex()))

	return w.Confirm(ctx, hash.Hex(), module, event, inbound, target)
}

// Confirm waits for module.event and builds a confirmation tagged with txHash.
func (w *Waiter) Confirm(ctx context.Context, txHash, module, event string, inbound <-chan string, target interface{}) (model.Confirmation, error) {
	raw, err := w.WaitForRaw(ctx, module, event, inbound)
	if err != nil {
		return model.Confirmation{}, err
	}

	conf := events.ToConfirmation(txHash, raw, time.Now())
	if target == nil {
		return conf, nil
	}
	if err := DecodePayload(raw, target); err != nil {
		return model.Confirmation{}, err
	}
	decoded, err := json.Marshal(target)
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("marshal decoded payload: %w", err)
	}
	conf.Decoded = decoded
	return conf, nil
}
