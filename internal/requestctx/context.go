package requestctx

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type contextKey string

const fiberLocalsKey = "requestctx"

// Key is the typed context key used for storing the Context.
var Key contextKey = "model-pricing-extractor/requestctx"

// Context describes the caller of one pricing action.
type Context struct {
	RequestID string
	ClientIP  string
	Action    string
	Started   time.Time
}

// LimitKey scopes rate limits to one client and action.
func (c *Context) LimitKey() string {
	if c == nil {
		return ""
	}
	return c.Action + ":" + c.ClientIP
}

// WithContext embeds the request context into the parent context.
func WithContext(parent context.Context, rc *Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, Key, rc)
}

// FromContext retrieves the request context if present.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(Key).(*Context)
	return rc, ok && rc != nil
}

// LogFields returns zap fields identifying the request, or nil outside one.
func LogFields(ctx context.Context) []zap.Field {
	rc, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	fields := make([]zap.Field, 0, 3)
	if rc.RequestID != "" {
		fields = append(fields, zap.String("request_id", rc.RequestID))
	}
	if rc.Action != "" {
		fields = append(fields, zap.String("action", rc.Action))
	}
	if rc.ClientIP != "" {
		fields = append(fields, zap.String("client_ip", rc.ClientIP))
	}
	return fields
}

// FiberLocalsKey returns the key used in fiber.Locals for request context storage.
func FiberLocalsKey() string {
	return fiberLocalsKey
}
