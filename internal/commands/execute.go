package commands

import (
	"context"
	"fmt"
)

// Handler executes one intent.
type Handler[R any] func(ctx context.Context, cmd Command) (R, error)

// Handlers maps intents to their handler.
type Handlers[R any] map[Intent]Handler[R]

func Execute[R any](ctx context.Context, cmd Command, handlers Handlers[R]) (R, error) {
	var zero R
	if cmd.Intent == "" {
		return zero, &CommandError{Code: ErrCodeUnknownAction, Message: "command has no intent"}
	}
	h, ok := handlers[cmd.Intent]
	if !ok {
		return zero, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", cmd.Intent)}
	}
	if h == nil {
		return zero, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler is nil", cmd.Intent)}
	}
	return h(ctx, cmd)
}
