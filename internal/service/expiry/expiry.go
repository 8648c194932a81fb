// Package expiry marks topups abandoned by users (never redirected back) as EXPIRED.
package expiry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

const (
	defaultCountWorkers = 4
	defaultInterval     = time.Minute
	defaultExpireAfter  = time.Hour
	defaultBatchSize    = 100
)

type topupService interface {
	ListStale(ctx context.Context, age time.Duration, limit int) ([]models.Topup, error)
	Expire(ctx context.Context, id uuid.UUID) (models.Topup, error)
}

type Config struct {
	// How often stale topups are looked up
	Interval time.Duration

	// Age of PENDING topup to be expired
	ExpireAfter time.Duration

	CountWorkers int
	BatchSize    int
}

type Processor struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func New(cfg Config, topups topupService, l logger.Logger) *Processor {
	setDefault := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefault(&cfg.Interval, defaultInterval)
	setDefault(&cfg.ExpireAfter, defaultExpireAfter)
	if cfg.CountWorkers == 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}

	l = l.WithGroup("expiry")

	return &Processor{
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			topups:       topups,
			logger:       l,
		},
		producer: &Producer{
			interval:    cfg.Interval,
			expireAfter: cfg.ExpireAfter,
			batchSize:   cfg.BatchSize,
			topups:      topups,
			logger:      l,
		},
		logger: l,
	}
}

// Process runs until ctx is done. Returned channel is closed when all workers stopped
func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	topupChan := make(chan models.Topup)

	producerStopped := p.producer.Produce(ctx, topupChan)
	consumerStopped := p.consumer.Consume(ctx, topupChan)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(topupChan)
		<-consumerStopped
		p.logger.Debug("Expiry processor stopped")
	}()

	return idleStopped
}
