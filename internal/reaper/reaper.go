// Package reaper периодически удаляет просроченные коды и токены
// из хранилища учётных данных.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/clock"
	"github.com/mmeshcher/pickers-market/internal/credstore"
	"github.com/mmeshcher/pickers-market/internal/metrics"
)

// DefaultInterval период чистки по умолчанию.
const DefaultInterval = 5 * time.Minute

// Sweeper описывает хранилище, которое умеет удалять просроченные записи.
type Sweeper interface {
	SweepExpired() credstore.SweepResult
	Len() (codes, tokens int)
}

// Reaper фоновая задача чистки хранилища учётных данных.
type Reaper struct {
	store    Sweeper
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// New создаёт Reaper. Нулевой или отрицательный interval заменяется на DefaultInterval.
func New(store Sweeper, interval time.Duration, c clock.Clock, logger *zap.Logger, m *metrics.Collector) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		store:    store,
		interval: interval,
		clock:    c,
		logger:   logger,
		metrics:  m,
	}
}

// Run выполняет чистку каждые interval, пока не отменён ctx.
func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("credential reaper started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("credential reaper stopped")
			return
		case <-ticker.C:
			r.SweepOnce()
		}
	}
}

// SweepOnce выполняет один проход чистки.
func (r *Reaper) SweepOnce() credstore.SweepResult {
	res := r.store.SweepExpired()
	codes, tokens := r.store.Len()

	r.metrics.RecordSweep(res.Codes, res.Tokens, codes, tokens)

	if res.Codes > 0 || res.Tokens > 0 {
		r.logger.Debug("expired credentials swept",
			zap.Int("codes_removed", res.Codes),
			zap.Int("tokens_removed", res.Tokens),
			zap.Int("codes_left", codes),
			zap.Int("tokens_left", tokens),
		)
	}

	return res
}
