package bus

import (
  "context"
  "github.com/campusfind/backend/internal/sse"
)

// Bus carries notification messages between instances. Publish is
// fire-and-forget from the caller's point of view; delivery is single
// attempt, best effort.
type Bus interface {
  Publish(ctx context.Context, msg sse.SSEMessage) error
  StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error
  Close() error
}
