// Package publish delivers engine results to the rendering layer.
package publish

import (
	"context"
	"errors"

	"github.com/rustyeddy/cycles/engine"
)

// Publisher receives each result the pipeline publishes.
type Publisher interface {
	Publish(ctx context.Context, r *engine.Result) error
}

var _ engine.Sink = Publisher(nil)

// Multi fans a result out to every publisher, joining their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, r *engine.Result) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
