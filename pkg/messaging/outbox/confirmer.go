package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const confirmFlushTimeout = 5 * time.Second

// confirmer marks relayed entries as sent in batches.
type confirmer struct {
	store     store
	confirmed <-chan string
	cfg       Config
	log       *zap.Logger
}

func newConfirmer(s store, confirmed <-chan string, cfg Config, log *zap.Logger) *confirmer {
	return &confirmer{store: s, confirmed: confirmed, cfg: cfg, log: log}
}

func (c *confirmer) Run(ctx context.Context) error {
	ids := make([]string, 0, c.cfg.ConfirmBatch)

	ticker := time.NewTicker(c.cfg.ConfirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.drain(&ids)
			// stop is under way: confirm what was relayed on a fresh deadline
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), confirmFlushTimeout)
			c.flush(flushCtx, ids)
			cancel()
			return nil
		case id := <-c.confirmed:
			ids = append(ids, id)
			if len(ids) >= c.cfg.ConfirmBatch {
				c.flush(ctx, ids)
				ids = ids[:0]
			}
		case <-ticker.C:
			c.flush(ctx, ids)
			ids = ids[:0]
		}
	}
}

func (c *confirmer) drain(ids *[]string) {
	for {
		select {
		case id := <-c.confirmed:
			*ids = append(*ids, id)
		default:
			return
		}
	}
}

func (c *confirmer) flush(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := c.store.UpdateAsSentByIds(ctx, ids); err != nil {
		// relayed again later under the same message id
		c.log.Error("failed to confirm outbox entries", zap.Int("count", len(ids)), zap.Error(err))
		return
	}
	c.log.Debug("outbox entries confirmed", zap.Int("count", len(ids)))
}
