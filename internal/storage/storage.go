package storage

import (
	"context"

	"oracleWatch/internal/model"
)

// Sink defines a destination for matched events.
type Sink interface {
	PutConfirmations(ctx context.Context, confirmations []model.Confirmation) error
}

// Fanout writes to every sink in order and stops at the first failure.
type Fanout []Sink

func (f Fanout) PutConfirmations(ctx context.Context, confirmations []model.Confirmation) error {
	for _, sink := range f {
		if err := sink.PutConfirmations(ctx, confirmations); err != nil {
			return err
		}
	}
	return nil
}
