package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"classifieds-marketplace/internal/config"
	"classifieds-marketplace/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*DarajaGateway)(nil)

// DarajaGateway implements adapter.PaymentGateway against Safaricom's Daraja
// API: OAuth client-credentials token, then STK push process requests.
type DarajaGateway struct {
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	sandbox        bool
	client         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewDarajaGateway(cfg *config.MpesaConfig) (*DarajaGateway, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, errors.New("mpesa consumer credentials empty")
	}
	if cfg.ShortCode == "" || cfg.Passkey == "" {
		return nil, errors.New("mpesa short code or passkey empty")
	}
	return &DarajaGateway{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortCode:      cfg.ShortCode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
		sandbox:        cfg.Sandbox,
		client:         &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *DarajaGateway) Name() string { return "mpesa" }

func (g *DarajaGateway) endpoint(path string) string {
	base := "https://api.safaricom.co.ke"
	if g.sandbox {
		base = "https://sandbox.safaricom.co.ke"
	}
	return base + path
}

// token returns a cached OAuth access token, refreshing when within a minute
// of expiry.
func (g *DarajaGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessToken != "" && time.Until(g.tokenExpiry) > time.Minute {
		return g.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.endpoint("/oauth/v1/generate?grant_type=client_credentials"), nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.consumerKey, g.consumerSecret)
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("daraja oauth: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("daraja oauth decode: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("daraja oauth returned no token")
	}
	g.accessToken = out.AccessToken
	g.tokenExpiry = time.Now().Add(50 * time.Minute)
	return g.accessToken, nil
}

// RequestSTKPush prompts the phone for payment. The outcome arrives later on
// the callback endpoint, correlated by CheckoutRequestID.
func (g *DarajaGateway) RequestSTKPush(ctx context.Context, phoneNumber string, amount int64, accountRef, description string) (adapter.STKPushResult, error) {
	tok, err := g.token(ctx)
	if err != nil {
		return adapter.STKPushResult{}, err
	}

	timestamp := time.Now().In(nairobi).Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(g.shortCode + g.passkey + timestamp))

	payload := map[string]any{
		"BusinessShortCode": g.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phoneNumber,
		"PartyB":            g.shortCode,
		"PhoneNumber":       phoneNumber,
		"CallBackURL":       g.callbackURL,
		"AccountReference":  accountRef,
		"TransactionDesc":   description,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.endpoint("/mpesa/stkpush/v1/processrequest"), bytes.NewReader(b))
	if err != nil {
		return adapter.STKPushResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.STKPushResult{}, fmt.Errorf("daraja stk push: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.STKPushResult{}, fmt.Errorf("daraja stk decode: %w", err)
	}
	if out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		msg := out.ErrorMessage
		if msg == "" {
			msg = out.ResponseDescription
		}
		return adapter.STKPushResult{}, fmt.Errorf("daraja stk push rejected: %s", msg)
	}
	return adapter.STKPushResult{
		MerchantRequestID:   out.MerchantRequestID,
		CheckoutRequestID:   out.CheckoutRequestID,
		ResponseCode:        out.ResponseCode,
		ResponseDescription: out.ResponseDescription,
		CustomerMessage:     out.CustomerMessage,
	}, nil
}

// nairobi is Daraja's local zone for STK timestamps.
var nairobi = time.FixedZone("EAT", 3*60*60)
