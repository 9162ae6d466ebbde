package plugin

import (
	"context"

	"firestige.xyz/meshmon/internal/format"
)

// Reporter delivers classified packets. Report is called from a single
// goroutine, in arrival order.
type Reporter interface {
	Plugin
	Report(ctx context.Context, rec *format.Record) error
	Flush(ctx context.Context) error
}
