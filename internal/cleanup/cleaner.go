package cleanup

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/sgbot/internal/bot"
	"github.com/iamwavecut/sgbot/internal/observability"
)

// Cleaner deletes chat messages after a fixed delay. Each scheduled deletion
// is an independent fire-once timer: there is no ordering across deletions,
// no retry, and no way to cancel one short of stopping the whole component.
// Delete failures are logged and swallowed.
type Cleaner struct {
	gateway bot.Gateway

	runtimeCtx context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
}

func NewCleaner(gateway bot.Gateway) *Cleaner {
	return &Cleaner{gateway: gateway}
}

func (c *Cleaner) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.runtimeCtx, c.cancel = context.WithCancel(ctx)
	c.started = true
	return nil
}

func (c *Cleaner) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// DeleteAfter schedules the message for deletion and returns immediately.
func (c *Cleaner) DeleteAfter(chatID int64, messageID int, delay time.Duration) {
	runCtx := c.getRuntimeContext()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
			if err := c.gateway.DeleteMessage(runCtx, chatID, messageID); err != nil {
				c.getLogEntry().WithFields(log.Fields{
					"chat_id":    chatID,
					"message_id": messageID,
					"error":      err.Error(),
				}).Warn("failed to delete scheduled message")
				observability.RecordScheduledDeletion("failed")
				return
			}
			observability.RecordScheduledDeletion("deleted")
		}
	}()
}

func (c *Cleaner) getRuntimeContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runtimeCtx != nil {
		return c.runtimeCtx
	}
	return context.Background()
}

func (c *Cleaner) getLogEntry() *log.Entry {
	return log.WithField("object", "Cleaner")
}
