package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ CallbackUseCase = (*callbackUC)(nil)

// fallbackDurationDays is the activation window used when the package row
// referenced by an activated subscription cannot be loaded.
const fallbackDurationDays = 30

// STKCallbackItem is one positional metadata entry from the provider.
// Value types vary (string receipt, numeric timestamp), so it stays untyped
// until extraction.
type STKCallbackItem struct {
	Name  string
	Value any
}

// STKCallback is the provider notification after field extraction from the
// wire envelope. CheckoutRequestID correlates it to a pending transaction.
type STKCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Items             []STKCallbackItem
}

// Ack is the body returned to the provider. Always the success shape:
// providers retry and escalate on anything else.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func AcceptedAck() Ack { return Ack{ResultCode: 0, ResultDesc: "Accepted"} }

// CallbackOutcome describes what a delivery did, for metrics and logs at the
// HTTP boundary. The ack it ships with never depends on it.
type CallbackOutcome string

const (
	CallbackOutcomeCompleted  CallbackOutcome = "completed"
	CallbackOutcomeFailed     CallbackOutcome = "failed"
	CallbackOutcomeUnknownKey CallbackOutcome = "unknown_key"
	CallbackOutcomeReplay     CallbackOutcome = "replay"
	CallbackOutcomeError      CallbackOutcome = "error"
)

// CallbackResult tells the HTTP boundary what a delivery actually did, so it
// can record it without re-deriving anything from storage.
type CallbackResult struct {
	Outcome CallbackOutcome
	// ActivatedKind is "subscription" or "addon" when this delivery performed
	// an activation, empty otherwise (failed, replayed, unknown).
	ActivatedKind string
	// Amount is the settled amount in KES, zero unless Outcome is completed.
	Amount int64
}

type CallbackUseCase interface {
	// HandleCallback durably and idempotently applies a provider notification.
	// The returned Ack is always the provider-contract success body; internal
	// failures surface only through logs and the result value.
	HandleCallback(ctx context.Context, cb STKCallback) (Ack, CallbackResult)
}

type callbackUC struct {
	transactions repository.TransactionRepository
	addons       repository.AddonRepository
	renewals     SubscriptionActivator
	tm           repository.TransactionManager
	log          *zerolog.Logger
}

// SubscriptionActivator is the slice of RenewalUseCase the callback needs.
type SubscriptionActivator interface {
	ActivateFromPayment(ctx context.Context, tx repository.Tx, subscriptionID string, receipt *string) error
}

func NewCallbackUseCase(
	transactions repository.TransactionRepository,
	addons repository.AddonRepository,
	renewals SubscriptionActivator,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *callbackUC {
	return &callbackUC{transactions: transactions, addons: addons, renewals: renewals, tm: tm, log: logger}
}

func (u *callbackUC) HandleCallback(ctx context.Context, cb STKCallback) (Ack, CallbackResult) {
	ack := AcceptedAck()
	log := u.log.With().Str("checkout_request_id", cb.CheckoutRequestID).Logger()

	// Step 1: resolve the correlation key. An unknown key is not an error to
	// the provider; it gets the ack and causes zero writes.
	txn, err := u.transactions.FindByCheckoutRequestID(ctx, repository.NoTX, cb.CheckoutRequestID)
	if err == domain.ErrNotFound {
		log.Warn().Msg("callback for unknown checkout request id, no mutation")
		return ack, CallbackResult{Outcome: CallbackOutcomeUnknownKey}
	}
	if err != nil {
		log.Error().Err(err).Msg("callback transaction lookup failed")
		return ack, CallbackResult{Outcome: CallbackOutcomeError}
	}

	// Step 2: metadata extraction. Malformed or missing items default to nil.
	receipt, txnDate := ParseCallbackMetadata(cb.Items)

	// Step 3: result code 0 means completed, everything else failed.
	status := model.TransactionStatusFailed
	if cb.ResultCode == 0 {
		status = model.TransactionStatusCompleted
	}

	result := CallbackResult{Outcome: CallbackOutcome(status)}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Step 4: conditional absolute-state write keyed on the correlation
		// key. A row that is no longer pending means a duplicate delivery:
		// nothing to do, and in particular no second activation.
		settled, err := u.transactions.SettleByCheckoutRequestID(ctx, tx, cb.CheckoutRequestID, repository.CallbackOutcome{
			Status:             status,
			ResultCode:         cb.ResultCode,
			ResultDesc:         cb.ResultDesc,
			MpesaReceiptNumber: receipt,
			TransactionDate:    txnDate,
		})
		if err != nil {
			return fmt.Errorf("settle transaction: %w", err)
		}
		if !settled {
			result = CallbackResult{Outcome: CallbackOutcomeReplay}
			return nil
		}
		if status != model.TransactionStatusCompleted {
			return nil
		}
		result.Amount = txn.Amount

		// Step 5: cascading activation of exactly the referenced entitlement.
		subscription, addon := txn.References()
		switch {
		case subscription:
			if err := u.renewals.ActivateFromPayment(ctx, tx, *txn.SubscriptionID, receipt); err != nil {
				return fmt.Errorf("activate subscription %s: %w", *txn.SubscriptionID, err)
			}
			result.ActivatedKind = "subscription"
		case addon:
			if err := u.addons.Activate(ctx, tx, *txn.AddonPurchaseID, receipt); err != nil {
				return fmt.Errorf("activate addon %s: %w", *txn.AddonPurchaseID, err)
			}
			result.ActivatedKind = "addon"
		}
		return nil
	})
	if err != nil {
		// The provider still gets its ack; internal failures are for the logs.
		log.Error().Err(err).Msg("callback processing failed")
		return ack, CallbackResult{Outcome: CallbackOutcomeError}
	}

	switch result.Outcome {
	case CallbackOutcomeReplay:
		log.Info().Msg("duplicate callback delivery, transaction already terminal")
	default:
		log.Info().Int("result_code", cb.ResultCode).Str("status", string(status)).Msg("callback settled")
	}
	return ack, result
}

// ParseCallbackMetadata extracts the receipt number and transaction timestamp
// by positional field name matching. Anything malformed is dropped rather
// than raised.
func ParseCallbackMetadata(items []STKCallbackItem) (receipt *string, txnDate *time.Time) {
	for _, item := range items {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok && s != "" {
				receipt = &s
			}
		case "TransactionDate":
			if t, ok := parseProviderTimestamp(item.Value); ok {
				txnDate = &t
			}
		}
	}
	return receipt, txnDate
}

// nairobi is the provider's local zone; timestamps are stored UTC.
var nairobi = time.FixedZone("EAT", 3*60*60)

// parseProviderTimestamp normalizes the provider's flat YYYYMMDDHHmmss value,
// which arrives either as a JSON number or a string.
func parseProviderTimestamp(v any) (time.Time, bool) {
	var raw string
	switch t := v.(type) {
	case string:
		raw = t
	case float64:
		raw = strconv.FormatInt(int64(t), 10)
	case int64:
		raw = strconv.FormatInt(t, 10)
	case json.Number:
		raw = t.String()
	default:
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation("20060102150405", raw, nairobi)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
