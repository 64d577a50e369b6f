package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) wsRequestIdWSMw() wsrouter.Middleware[*client] {
	return func(next wsrouter.HandlerFunc[*client, any]) wsrouter.HandlerFunc[*client, any] {
		return func(ctx context.Context, cl *client, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, cl, payload)
		}
	}
}

func (c controller) loggerWSMw() wsrouter.Middleware[*client] {
	return func(next wsrouter.HandlerFunc[*client, any]) wsrouter.HandlerFunc[*client, any] {
		return func(ctx context.Context, cl *client, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.DebugContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()
			err := next(ctx, cl, payload)

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
			)

			return err
		}
	}
}
