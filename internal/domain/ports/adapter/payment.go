package adapter

import "context"

// STKPushResult is the provider's synchronous answer to a push request. The
// payment outcome itself arrives later on the callback endpoint.
type STKPushResult struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// PaymentGateway is the hex port for the mobile-money provider.
type PaymentGateway interface {
	Name() string

	// RequestSTKPush asks the provider to prompt the phone for payment and
	// returns the correlation IDs for the eventual callback.
	RequestSTKPush(ctx context.Context, phoneNumber string, amount int64, accountRef, description string) (STKPushResult, error)
}
