package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"
)

// PaymentReconciler periodically expires stale pending transactions. A push
// whose callback never arrived (phone off, user ignored the prompt, provider
// outage) would otherwise sit pending forever and block the UI from offering
// a retry.
type PaymentReconciler struct {
	transactions repository.TransactionRepository
	interval     time.Duration
	staleAfter   time.Duration
	log          *zerolog.Logger
}

func NewPaymentReconciler(transactions repository.TransactionRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PaymentReconciler{transactions: transactions, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.staleAfter)
	pending, err := w.transactions.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending failed")
		return
	}
	for _, p := range pending {
		// The conditional settle only touches rows still pending, so a callback
		// that lands mid-sweep wins and this becomes a no-op.
		settled, err := w.transactions.SettleByCheckoutRequestID(ctx, repository.NoTX, p.CheckoutRequestID, repository.CallbackOutcome{
			Status:     model.TransactionStatusFailed,
			ResultCode: -1,
			ResultDesc: "expired by reconciler",
		})
		if err != nil {
			w.log.Error().Err(err).Str("transaction_id", p.ID).Msg("reconciler: expire failed")
			continue
		}
		if settled {
			metrics.IncCallback("expired")
			w.log.Info().Str("transaction_id", p.ID).
				Str("checkout_request_id", p.CheckoutRequestID).
				Msg("reconciler: expired stale pending transaction")
		}
	}
}
