package expiry

import (
	"context"
	"time"

	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

type Producer struct {
	interval    time.Duration
	expireAfter time.Duration
	batchSize   int

	topups topupService
	logger logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Topup) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval, "expire_after", p.expireAfter, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				stale, err := p.topups.ListStale(ctx, p.expireAfter, p.batchSize)
				if err != nil {
					p.logger.Error("Failed to list stale topups", "error", err)
					continue
				}

				for _, topup := range stale {
					select {
					case <-ctx.Done():
						p.logger.Debug("Producer stopped by context while sending topups")
						return
					case out <- topup:
					}
				}
			}
		}
	}()

	return idleStopped
}
