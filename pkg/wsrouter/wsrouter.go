package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc handles a message whose payload was decoded into T. C is the connection type.
type HandlerFunc[C, T any] func(ctx context.Context, conn C, payload T) error

type Middleware[C any] func(next HandlerFunc[C, any]) HandlerFunc[C, any]

type route[C any] func(ctx context.Context, conn C, payload json.RawMessage) error

type WSRouter[C any] struct {
	routes      map[string]route[C]
	middlewares []Middleware[C]
}

func New[C any]() *WSRouter[C] {
	return &WSRouter[C]{routes: make(map[string]route[C])}
}

// Use appends middlewares, the first one added runs outermost.
func (r *WSRouter[C]) Use(middlewares ...Middleware[C]) {
	r.middlewares = append(r.middlewares, middlewares...)
}

func (r *WSRouter[C]) chain(handler HandlerFunc[C, any]) HandlerFunc[C, any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	return handler
}

// Handle registers handler for messageType. It is a function because methods cannot have type parameters.
func Handle[C, T any](r *WSRouter[C], messageType string, handler HandlerFunc[C, T]) {
	r.routes[messageType] = func(ctx context.Context, conn C, raw json.RawMessage) error {
		var payload T
		if len(raw) != 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
		}

		return r.chain(func(ctx context.Context, conn C, payload any) error {
			return handler(ctx, conn, payload.(T))
		})(ctx, conn, payload)
	}
}

// Serve decodes one frame and dispatches it to the handler registered for its type.
func (r *WSRouter[C]) Serve(ctx context.Context, conn C, data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if msg.Type == "" {
		return fmt.Errorf("%w: type is empty", ErrInvalidMessage)
	}

	handler, ok := r.routes[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
	}

	return handler(context.WithValue(ctx, messageTypeKey, msg.Type), conn, msg.Payload)
}
