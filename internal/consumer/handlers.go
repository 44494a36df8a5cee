package consumer

import (
	"context"
	"errors"
)

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Fanout invokes every handler for each message and joins their errors. A failing handler does
// not prevent the others from running.
type Fanout []Handler

// Handle implements Handler.
func (f Fanout) Handle(ctx context.Context, msg Message) error {
	var errs error
	for _, h := range f {
		if err := h.Handle(ctx, msg); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
