package expiry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

// In-memory topups, ListStale returns every pending topup
type fakeTopups struct {
	mu     sync.Mutex
	topups map[uuid.UUID]models.Topup
	ages   []time.Duration
}

func newFakeTopups(statuses ...models.TopupStatus) *fakeTopups {
	f := &fakeTopups{topups: make(map[uuid.UUID]models.Topup)}
	for _, status := range statuses {
		id := uuid.New()
		f.topups[id] = models.Topup{ID: id, Status: status}
	}
	return f
}

func (f *fakeTopups) ListStale(_ context.Context, age time.Duration, limit int) ([]models.Topup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ages = append(f.ages, age)

	var stale []models.Topup
	for _, t := range f.topups {
		if t.Status == models.TopupPending && len(stale) < limit {
			stale = append(stale, t)
		}
	}
	return stale, nil
}

func (f *fakeTopups) Expire(_ context.Context, id uuid.UUID) (models.Topup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.topups[id]
	if t.Status != models.TopupPending {
		return t, apperrors.ErrTopupNotPending
	}
	t.Status = models.TopupExpired
	f.topups[id] = t
	return t, nil
}

func (f *fakeTopups) count(status models.TopupStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.topups {
		if t.Status == status {
			n++
		}
	}
	return n
}

func TestProcessor(t *testing.T) {
	t.Run("expire pending topups", func(t *testing.T) {
		topups := newFakeTopups(models.TopupPending, models.TopupPending, models.TopupPending, models.TopupPaid, models.TopupFailed)
		p := New(Config{Interval: 5 * time.Millisecond, ExpireAfter: 30 * time.Minute, BatchSize: 2}, topups, logger.NewNoOpLogger())
		ctx, cancel := context.WithCancel(t.Context())
		stopped := p.Process(ctx)

		require.Eventually(t, func() bool {
			return topups.count(models.TopupExpired) == 3
		}, 2*time.Second, 10*time.Millisecond, "every pending topup has to expire")

		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("processor has to stop after context cancellation")
		}

		require.Equal(t, 1, topups.count(models.TopupPaid), "settled topups are not touched")
		require.Equal(t, 1, topups.count(models.TopupFailed))

		topups.mu.Lock()
		defer topups.mu.Unlock()
		require.Equal(t, 30*time.Minute, topups.ages[0])
	})

	t.Run("defaults", func(t *testing.T) {
		p := New(Config{}, newFakeTopups(), logger.NewNoOpLogger())

		require.Equal(t, defaultInterval, p.producer.interval)
		require.Equal(t, defaultExpireAfter, p.producer.expireAfter)
		require.Equal(t, defaultBatchSize, p.producer.batchSize)
		require.Equal(t, defaultCountWorkers, p.consumer.countWorkers)
	})
}

func TestConsumer_SkipsSettled(t *testing.T) {
	topups := newFakeTopups(models.TopupPaid)
	c := &Consumer{countWorkers: 2, topups: topups, logger: logger.NewNoOpLogger()}

	in := make(chan models.Topup)
	stopped := c.Consume(t.Context(), in)
	for _, topup := range topups.topups {
		in <- topup
	}
	close(in)
	<-stopped

	require.Equal(t, 1, topups.count(models.TopupPaid))
	require.Zero(t, topups.count(models.TopupExpired))
}
