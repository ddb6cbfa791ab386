package service

import (
	"context"
	"time"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/metrics"
	"siterent-backend/internal/repository"
)

// txRunner runs a whole operation as one transaction and re-runs it from
// scratch on a storage conflict. fn must not keep state between attempts
// other than values it overwrites.
type txRunner struct {
	store      repository.Store
	maxRetries int
}

func (r *txRunner) run(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	start := time.Now()
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err = r.store.WithTx(ctx, fn)
		if err == nil || !domain.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		metrics.TxRetriesTotal.WithLabelValues(op).Inc()
		logger.Warn("Retrying transaction after storage conflict", "operation", op, "attempt", attempt+1, "error", err)
	}
	metrics.ObserveOperation(op, start, err)
	return err
}
