//go:build !integration

package sched

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

type sweepRepo struct {
	mu   sync.Mutex
	txns map[string]*model.PaymentTransaction
}

var _ repository.TransactionRepository = (*sweepRepo)(nil)

func newSweepRepo(txns ...*model.PaymentTransaction) *sweepRepo {
	r := &sweepRepo{txns: map[string]*model.PaymentTransaction{}}
	for _, t := range txns {
		cp := *t
		r.txns[cp.CheckoutRequestID] = &cp
	}
	return r
}

func (r *sweepRepo) Save(ctx context.Context, tx repository.Tx, t *model.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txns[cp.CheckoutRequestID] = &cp
	return nil
}

func (r *sweepRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentTransaction, error) {
	return nil, domain.ErrNotFound
}

func (r *sweepRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, key string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.txns[key]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *sweepRepo) SettleByCheckoutRequestID(ctx context.Context, tx repository.Tx, key string, outcome repository.CallbackOutcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[key]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = outcome.Status
	t.ResultCode = &outcome.ResultCode
	t.ResultDesc = &outcome.ResultDesc
	return true, nil
}

func (r *sweepRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, t := range r.txns {
		if t.Status == model.TransactionStatusPending && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestReconcilerExpiresOnlyStalePending(t *testing.T) {
	now := time.Now().UTC()
	repo := newSweepRepo(
		&model.PaymentTransaction{ID: "old", CheckoutRequestID: "co-old", Status: model.TransactionStatusPending, CreatedAt: now.Add(-time.Hour)},
		&model.PaymentTransaction{ID: "fresh", CheckoutRequestID: "co-fresh", Status: model.TransactionStatusPending, CreatedAt: now.Add(-time.Minute)},
		&model.PaymentTransaction{ID: "done", CheckoutRequestID: "co-done", Status: model.TransactionStatusCompleted, CreatedAt: now.Add(-time.Hour)},
	)
	logger := zerolog.New(io.Discard)
	w := NewPaymentReconciler(repo, time.Minute, 10*time.Minute, &logger)

	w.tick(context.Background())

	old, _ := repo.FindByCheckoutRequestID(context.Background(), repository.NoTX, "co-old")
	if old.Status != model.TransactionStatusFailed {
		t.Fatalf("stale pending = %s, want failed", old.Status)
	}
	if old.ResultDesc == nil || *old.ResultDesc != "expired by reconciler" {
		t.Fatalf("result desc = %v", old.ResultDesc)
	}

	fresh, _ := repo.FindByCheckoutRequestID(context.Background(), repository.NoTX, "co-fresh")
	if fresh.Status != model.TransactionStatusPending {
		t.Fatalf("fresh pending must survive, got %s", fresh.Status)
	}
	done, _ := repo.FindByCheckoutRequestID(context.Background(), repository.NoTX, "co-done")
	if done.Status != model.TransactionStatusCompleted {
		t.Fatalf("terminal row must not change, got %s", done.Status)
	}
}

func TestReconcilerStopsOnContextCancel(t *testing.T) {
	repo := newSweepRepo()
	logger := zerolog.New(io.Discard)
	w := NewPaymentReconciler(repo, 5*time.Millisecond, time.Minute, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on cancel")
	}
}
