// Package runctx holds the channel helpers the front-end pumps share.
package runctx

import (
	"context"

	"wechat-desktop/internal/logging"
)

func RecvOrDone[T any](ctx context.Context, name string, logger *logging.Logger, in <-chan T) (T, bool) {
	if logger == nil {
		panic("runctx.RecvOrDone: logger must not be nil")
	}
	select {
	case <-ctx.Done():
		logger.Debug("stopping "+name+": context canceled", logging.Field("error", ctx.Err()))
		var zero T
		return zero, false
	case v, ok := <-in:
		if !ok {
			logger.Debug("stopping " + name + ": input channel closed")
		}
		return v, ok
	}
}

// SendLatest never blocks: when out is full the oldest queued value is
// dropped to make room for value.
func SendLatest[T any](out chan T, value T) {
	for {
		select {
		case out <- value:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

// Pump forwards values from in to deliver until ctx ends or in closes.
func Pump[T any](ctx context.Context, name string, logger *logging.Logger, in <-chan T, deliver func(T)) {
	for {
		v, ok := RecvOrDone(ctx, name, logger, in)
		if !ok {
			return
		}
		deliver(v)
	}
}
