package expiry

import (
	"context"
	"errors"
	"sync"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

type Consumer struct {
	countWorkers int

	topups topupService
	logger logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Topup) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.Topup) {
	for {
		select {
		case <-ctx.Done():
			return

		case topup, ok := <-in:
			if !ok {
				return
			}

			current, err := c.topups.Expire(ctx, topup.ID)
			switch {
			case err == nil:
				c.logger.Info("Topup expired", "topup_id", topup.ID, "created_at", topup.CreatedAt)
			case errors.Is(err, apperrors.ErrTopupNotPending):
				// Settled by callback while waiting in the queue
				c.logger.Debug("Topup settled meanwhile, skipped", "topup_id", topup.ID, "status", current.Status)
			default:
				c.logger.Error("Failed to expire topup", "topup_id", topup.ID, "error", err)
			}
		}
	}
}
