package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// InitiateSubscription pushes an STK prompt for a pending subscription and
	// records the transaction the callback will later settle.
	InitiateSubscription(ctx context.Context, userID, subscriptionID, phoneNumber string) (*model.PaymentTransaction, error)
	// InitiateAddon does the same for a one-off add-on purchase.
	InitiateAddon(ctx context.Context, userID, addonPurchaseID, phoneNumber string) (*model.PaymentTransaction, error)
}

type paymentUC struct {
	transactions repository.TransactionRepository
	subs         repository.SubscriptionRepository
	packages     repository.PackageRepository
	addons       repository.AddonRepository
	gateway      adapter.PaymentGateway
	log          *zerolog.Logger
}

func NewPaymentUseCase(
	transactions repository.TransactionRepository,
	subs repository.SubscriptionRepository,
	packages repository.PackageRepository,
	addons repository.AddonRepository,
	gateway adapter.PaymentGateway,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		transactions: transactions,
		subs:         subs,
		packages:     packages,
		addons:       addons,
		gateway:      gateway,
		log:          logger,
	}
}

func (u *paymentUC) InitiateSubscription(ctx context.Context, userID, subscriptionID, phoneNumber string) (*model.PaymentTransaction, error) {
	if userID == "" || subscriptionID == "" || phoneNumber == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotFound
	}
	pkg, err := u.packages.FindByID(ctx, repository.NoTX, sub.PackageID)
	if err != nil {
		return nil, err
	}
	return u.initiate(ctx, userID, phoneNumber, pkg.Price, &subscriptionID, nil, "subscription "+pkg.Name)
}

func (u *paymentUC) InitiateAddon(ctx context.Context, userID, addonPurchaseID, phoneNumber string) (*model.PaymentTransaction, error) {
	if userID == "" || addonPurchaseID == "" || phoneNumber == "" {
		return nil, domain.ErrInvalidArgument
	}
	addon, err := u.addons.FindByID(ctx, repository.NoTX, addonPurchaseID)
	if err != nil {
		return nil, err
	}
	if addon.UserID != userID {
		return nil, domain.ErrNotFound
	}
	amount := int64(addon.Credits) * addonUnitPrice(addon.AddonType)
	return u.initiate(ctx, userID, phoneNumber, amount, nil, &addonPurchaseID, string(addon.AddonType)+" credits")
}

func (u *paymentUC) initiate(ctx context.Context, userID, phoneNumber string, amount int64, subscriptionID, addonPurchaseID *string, description string) (*model.PaymentTransaction, error) {
	push, err := u.gateway.RequestSTKPush(ctx, phoneNumber, amount, userID, description)
	if err != nil {
		return nil, fmt.Errorf("stk push: %w", err)
	}

	now := time.Now().UTC()
	txn := &model.PaymentTransaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		SubscriptionID:    subscriptionID,
		AddonPurchaseID:   addonPurchaseID,
		CheckoutRequestID: push.CheckoutRequestID,
		MerchantRequestID: push.MerchantRequestID,
		PhoneNumber:       phoneNumber,
		Amount:            amount,
		Status:            model.TransactionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := u.transactions.Save(ctx, repository.NoTX, txn); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	u.log.Info().Str("transaction_id", txn.ID).Str("checkout_request_id", txn.CheckoutRequestID).
		Int64("amount", amount).Msg("stk push initiated")
	return txn, nil
}

// addonUnitPrice is the flat per-credit price in KES.
func addonUnitPrice(t model.AddonType) int64 {
	switch t {
	case model.AddonTypeFeature:
		return 100
	default:
		return 50
	}
}
