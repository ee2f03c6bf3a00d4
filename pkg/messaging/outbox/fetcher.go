package outbox

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// fetcher picks up entries whose SendFunc never ran or whose relay failed.
type fetcher struct {
	store   store
	entries chan<- *entry
	cfg     Config
	log     *zap.Logger
}

func newFetcher(s store, entries chan<- *entry, cfg Config, log *zap.Logger) *fetcher {
	return &fetcher{store: s, entries: entries, cfg: cfg, log: log}
}

func (f *fetcher) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		e, err := f.store.FetchAndLock(ctx)
		if err != nil {
			wait := f.cfg.PollInterval
			if !errors.Is(err, errEntryNotFound) {
				if ctx.Err() != nil {
					return nil
				}
				f.log.Error("failed to fetch outbox entry", zap.Error(err))
				wait = f.cfg.ErrorInterval
			}
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}

		if e.AttemptsToSend > 1 {
			f.log.Info("retrying outbox entry",
				zap.String("id", e.ID),
				zap.String("event", e.Event),
				zap.Int32("attempt", e.AttemptsToSend))
		}

		select {
		case <-ctx.Done():
			return nil
		case f.entries <- e:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
