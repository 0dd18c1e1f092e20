//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func strptr(s string) *string { return &s }

// =============================
// Transaction manager
// =============================

// MockTxManager runs the function inline with a nil handle; the in-memory
// repositories ignore the handle entirely.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Calls      int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- payment transactions ----

type MockTransactionRepo struct {
	mu         sync.Mutex
	byID       map[string]*model.PaymentTransaction
	byCheckout map[string]*model.PaymentTransaction

	SaveFunc   func(ctx context.Context, tx repository.Tx, t *model.PaymentTransaction) error
	SettleFunc func(ctx context.Context, tx repository.Tx, checkoutRequestID string, outcome repository.CallbackOutcome) (bool, error)
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{
		byID:       map[string]*model.PaymentTransaction{},
		byCheckout: map[string]*model.PaymentTransaction{},
	}
}

func (r *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.PaymentTransaction) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.byID[cp.ID] = &cp
	r.byCheckout[cp.CheckoutRequestID] = &cp
	return nil
}

func (r *MockTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, key string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byCheckout[key]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// SettleByCheckoutRequestID mirrors the conditional UPDATE: only a pending
// row settles, anything else reports a duplicate delivery.
func (r *MockTransactionRepo) SettleByCheckoutRequestID(ctx context.Context, tx repository.Tx, key string, outcome repository.CallbackOutcome) (bool, error) {
	if r.SettleFunc != nil {
		return r.SettleFunc(ctx, tx, key, outcome)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byCheckout[key]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = outcome.Status
	t.ResultCode = &outcome.ResultCode
	t.ResultDesc = &outcome.ResultDesc
	if outcome.MpesaReceiptNumber != nil {
		t.MpesaReceiptNumber = outcome.MpesaReceiptNumber
	}
	if outcome.TransactionDate != nil {
		t.TransactionDate = outcome.TransactionDate
	}
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MockTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, t := range r.byID {
		if t.Status == model.TransactionStatusPending && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- seller subscriptions ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.SellerSubscription

	SaveFunc            func(ctx context.Context, tx repository.Tx, s *model.SellerSubscription) error
	FindCurrentFunc     func(ctx context.Context, tx repository.Tx, userID string) (*model.SellerSubscription, error)
	ActivateFunc        func(ctx context.Context, tx repository.Tx, id string, startsAt, expiresAt time.Time, receipt *string, resetAdsUsed bool) error
	AcquireUserLockFunc func(ctx context.Context, tx repository.Tx, userID string) error
	ExpireLapsedFunc    func(ctx context.Context, tx repository.Tx, userID string) error

	LockedUsers []string
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{byID: map[string]*model.SellerSubscription{}}
}

// Save enforces the one-active-row-per-user constraint the real store carries
// as a partial unique index.
func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.SellerSubscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Status == model.SubscriptionStatusActive {
		for _, other := range r.byID {
			if other.ID != s.ID && other.UserID == s.UserID && other.Status == model.SubscriptionStatusActive {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *s
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SellerSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindCurrentByUser(ctx context.Context, tx repository.Tx, userID string) (*model.SellerSubscription, error) {
	if r.FindCurrentFunc != nil {
		return r.FindCurrentFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.byID {
		if s.UserID != userID || s.Status != model.SubscriptionStatusActive || s.PaymentStatus != model.PaymentStateCompleted {
			continue
		}
		if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
			continue
		}
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// Activate enforces the same one-active-row-per-user constraint as Save: the
// real store's partial unique index fires on UPDATEs into 'active' too.
func (r *MockSubscriptionRepo) Activate(ctx context.Context, tx repository.Tx, id string, startsAt, expiresAt time.Time, receipt *string, resetAdsUsed bool) error {
	if r.ActivateFunc != nil {
		return r.ActivateFunc(ctx, tx, id, startsAt, expiresAt, receipt, resetAdsUsed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, other := range r.byID {
		if other.ID != id && other.UserID == s.UserID && other.Status == model.SubscriptionStatusActive {
			return domain.ErrAlreadyExists
		}
	}
	s.Status = model.SubscriptionStatusActive
	s.PaymentStatus = model.PaymentStateCompleted
	s.StartsAt = startsAt
	s.ExpiresAt = &expiresAt
	if receipt != nil {
		s.MpesaReceipt = receipt
	}
	if resetAdsUsed {
		s.AdsUsed = 0
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ExpireLapsed mirrors the conditional demotion: active rows past their
// expiry move to expired, everything else is untouched.
func (r *MockSubscriptionRepo) ExpireLapsed(ctx context.Context, tx repository.Tx, userID string) error {
	if r.ExpireLapsedFunc != nil {
		return r.ExpireLapsedFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.byID {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive &&
			s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = now
		}
	}
	return nil
}

func (r *MockSubscriptionRepo) AcquireUserLock(ctx context.Context, tx repository.Tx, userID string) error {
	if r.AcquireUserLockFunc != nil {
		return r.AcquireUserLockFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LockedUsers = append(r.LockedUsers, userID)
	return nil
}

// ---- subscription packages ----

type MockPackageRepo struct {
	mu   sync.Mutex
	byID map[string]*model.SubscriptionPackage

	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPackage, error)
	FindStarterFunc func(ctx context.Context, tx repository.Tx) (*model.SubscriptionPackage, error)
}

var _ repository.PackageRepository = (*MockPackageRepo)(nil)

func NewMockPackageRepo(pkgs ...*model.SubscriptionPackage) *MockPackageRepo {
	r := &MockPackageRepo{byID: map[string]*model.SubscriptionPackage{}}
	for _, p := range pkgs {
		cp := *p
		r.byID[cp.ID] = &cp
	}
	return r
}

func (r *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.SubscriptionPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *pkg
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPackage, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionPackage
	for _, p := range r.byID {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayPriority < out[j].DisplayPriority })
	return out, nil
}

func (r *MockPackageRepo) FindStarter(ctx context.Context, tx repository.Tx) (*model.SubscriptionPackage, error) {
	if r.FindStarterFunc != nil {
		return r.FindStarterFunc(ctx, tx)
	}
	all, _ := r.ListActive(ctx, tx)
	for _, p := range all {
		if p.IsFree() {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- seller add-ons ----

type MockAddonRepo struct {
	mu   sync.Mutex
	byID map[string]*model.SellerAddon

	ActivateFunc func(ctx context.Context, tx repository.Tx, id string, receipt *string) error
}

var _ repository.AddonRepository = (*MockAddonRepo)(nil)

func NewMockAddonRepo() *MockAddonRepo {
	return &MockAddonRepo{byID: map[string]*model.SellerAddon{}}
}

func (r *MockAddonRepo) Save(ctx context.Context, tx repository.Tx, a *model.SellerAddon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MockAddonRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SellerAddon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockAddonRepo) Activate(ctx context.Context, tx repository.Tx, id string, receipt *string) error {
	if r.ActivateFunc != nil {
		return r.ActivateFunc(ctx, tx, id, receipt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = model.AddonStatusActive
	a.PaymentStatus = model.PaymentStateCompleted
	if receipt != nil {
		a.MpesaReceipt = receipt
	}
	return nil
}

// ---- listings ----

type MockListingRepo struct {
	mu       sync.Mutex
	listings []*model.Listing

	ReactivateDraftsFunc func(ctx context.Context, tx repository.Tx, userID string, limit int, expiresAt time.Time) (int, error)
}

var _ repository.ListingRepository = (*MockListingRepo)(nil)

func NewMockListingRepo(ls ...*model.Listing) *MockListingRepo {
	r := &MockListingRepo{}
	for _, l := range ls {
		cp := *l
		r.listings = append(r.listings, &cp)
	}
	return r
}

func (r *MockListingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.listings = append(r.listings, &cp)
	return nil
}

// ReactivateDrafts mirrors the store: most recently updated drafts first,
// capped at limit.
func (r *MockListingRepo) ReactivateDrafts(ctx context.Context, tx repository.Tx, userID string, limit int, expiresAt time.Time) (int, error) {
	if r.ReactivateDraftsFunc != nil {
		return r.ReactivateDraftsFunc(ctx, tx, userID, limit, expiresAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var drafts []*model.Listing
	for _, l := range r.listings {
		if l.UserID == userID && l.Status == model.ListingStatusDraft {
			drafts = append(drafts, l)
		}
	}
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt) })
	n := 0
	for _, l := range drafts {
		if n >= limit {
			break
		}
		l.Status = model.ListingStatusActive
		exp := expiresAt
		l.ExpiresAt = &exp
		n++
	}
	return n, nil
}

func (r *MockListingRepo) CountActiveByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.listings {
		if l.UserID == userID && l.Status == model.ListingStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *MockListingRepo) ActiveByUser(userID string) []*model.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Listing
	for _, l := range r.listings {
		if l.UserID == userID && l.Status == model.ListingStatusActive {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out
}

// ---- notifications ----

type MockNotificationRepo struct {
	mu    sync.Mutex
	Saved []*model.Notification

	SaveFunc func(ctx context.Context, tx repository.Tx, n *model.Notification) error
}

var _ repository.NotificationRepository = (*MockNotificationRepo)(nil)

func NewMockNotificationRepo() *MockNotificationRepo { return &MockNotificationRepo{} }

func (r *MockNotificationRepo) Save(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.Saved = append(r.Saved, &cp)
	return nil
}

func (r *MockNotificationRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for i := len(r.Saved) - 1; i >= 0 && len(out) < limit; i-- {
		if r.Saved[i].UserID == userID {
			cp := *r.Saved[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockNotificationRepo) CountUnread(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.Saved {
		if s.UserID == userID && s.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

// ---- team ----

type MockTeamRepo struct {
	mu      sync.Mutex
	Members map[string]*model.TeamMember
	Roles   map[string]bool // userID -> privileged flag on the user row
}

var _ repository.TeamRepository = (*MockTeamRepo)(nil)

func NewMockTeamRepo() *MockTeamRepo {
	return &MockTeamRepo{Members: map[string]*model.TeamMember{}, Roles: map[string]bool{}}
}

func (r *MockTeamRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.Members[userID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockTeamRepo) HasPrivilegedRole(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Roles[userID], nil
}

// =============================
// Adapters
// =============================

type MockPaymentGateway struct {
	RequestSTKPushFunc func(ctx context.Context, phoneNumber string, amount int64, accountRef, description string) (adapter.STKPushResult, error)
	Pushes             []int64
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mockpesa" }

func (m *MockPaymentGateway) RequestSTKPush(ctx context.Context, phoneNumber string, amount int64, accountRef, description string) (adapter.STKPushResult, error) {
	if m.RequestSTKPushFunc != nil {
		return m.RequestSTKPushFunc(ctx, phoneNumber, amount, accountRef, description)
	}
	m.Pushes = append(m.Pushes, amount)
	id := "ws_CO_" + uuid.NewString()
	return adapter.STKPushResult{
		MerchantRequestID:   "mr-" + id,
		CheckoutRequestID:   id,
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}
