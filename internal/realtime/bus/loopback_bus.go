package bus

import (
  "context"
  "sync"

  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/sse"
)

// loopbackBus delivers messages in-process. Used when REDIS_ADDR is unset,
// i.e. a single-instance deployment or tests.
type loopbackBus struct {
  log *logger.Logger

  mu    sync.RWMutex
  onMsg func(m sse.SSEMessage)
}

func NewLoopbackBus(log *logger.Logger) Bus {
  return &loopbackBus{log: log.With("service", "LoopbackNotificationBus")}
}

func (b *loopbackBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
  b.mu.RLock()
  onMsg := b.onMsg
  b.mu.RUnlock()

  if onMsg == nil {
    b.log.Debug("No forwarder attached, dropping message", "channel", msg.Channel, "event", msg.Event)
    return nil
  }
  onMsg(msg)
  return nil
}

func (b *loopbackBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
  b.mu.Lock()
  b.onMsg = onMsg
  b.mu.Unlock()
  return nil
}

func (b *loopbackBus) Close() error {
  b.mu.Lock()
  b.onMsg = nil
  b.mu.Unlock()
  return nil
}
