package wsrouter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Seq int `json:"seq"`
}

func TestServe(t *testing.T) {
	r := New[string]()

	var calls []string
	r.Use(func(next HandlerFunc[string, any]) HandlerFunc[string, any] {
		return func(ctx context.Context, conn string, payload any) error {
			calls = append(calls, "mw:"+GetMessageTypeFromCtx(ctx))
			return next(ctx, conn, payload)
		}
	})

	var got ping
	Handle(r, "ping", func(_ context.Context, conn string, payload ping) error {
		calls = append(calls, "handler:"+conn)
		got = payload
		return nil
	})

	require.NoError(t, r.Serve(context.Background(), "c1", []byte(`{"type":"ping","payload":{"seq":3}}`)))
	assert.Equal(t, ping{Seq: 3}, got)
	assert.Equal(t, []string{"mw:ping", "handler:c1"}, calls)
}

func TestServeErrors(t *testing.T) {
	r := New[string]()
	Handle(r, "ping", func(_ context.Context, _ string, _ ping) error { return nil })
	ctx := context.Background()

	assert.ErrorIs(t, r.Serve(ctx, "c", []byte(`not json`)), ErrInvalidMessage)
	assert.ErrorIs(t, r.Serve(ctx, "c", []byte(`{"payload":{}}`)), ErrInvalidMessage)
	assert.ErrorIs(t, r.Serve(ctx, "c", []byte(`{"type":"pong"}`)), ErrUnknownType)
	assert.ErrorIs(t, r.Serve(ctx, "c", []byte(`{"type":"ping","payload":{"seq":"x"}}`)), ErrInvalidPayload)
}
