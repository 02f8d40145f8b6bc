// Package runid mints and threads a correlation id through one
// translate→execute cycle so a rejected translation and the command it
// eventually produced (if any) can be tied together in the audit log.
package runid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New mints a fresh v4 run id.
func New() string {
	return uuid.NewString()
}

// WithContext returns a context carrying id, retrievable with FromContext.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the run id carried by ctx, or "" if none was set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
