package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MpesaLogger defines the logging contract for M-Pesa provider operations.
type MpesaLogger func(ctx context.Context, event string, fields map[string]any)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MpesaProviderConfig configures the MpesaProvider against the Daraja API.
type MpesaProviderConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	HTTPClient     httpDoer
	Clock          func() time.Time
	Logger         MpesaLogger
}

// MpesaProvider initiates STK push payments through the Daraja API. The
// checkout request id Daraja returns is the payment reference the asynchronous
// callback later confirms.
type MpesaProvider struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	http           httpDoer
	clock          func() time.Time
	logger         MpesaLogger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewMpesaProvider constructs an M-Pesa Provider using the given configuration.
func NewMpesaProvider(cfg MpesaProviderConfig) (*MpesaProvider, error) {
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errors.New("mpesa: consumer credentials are required")
	}
	if strings.TrimSpace(cfg.ShortCode) == "" || strings.TrimSpace(cfg.Passkey) == "" {
		return nil, errors.New("mpesa: short code and passkey are required")
	}
	if strings.TrimSpace(cfg.CallbackURL) == "" {
		return nil, errors.New("mpesa: callback url is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://sandbox.safaricom.co.ke"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &MpesaProvider{
		baseURL:        baseURL,
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		shortCode:      strings.TrimSpace(cfg.ShortCode),
		passkey:        strings.TrimSpace(cfg.Passkey),
		callbackURL:    strings.TrimSpace(cfg.CallbackURL),
		http:           httpClient,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Name implements Provider.
func (p *MpesaProvider) Name() string { return "mpesa" }

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorMessage        string `json:"errorMessage"`
}

// Initiate sends an STK push prompt to the customer's phone. The amount is
// rounded up to whole shillings because Daraja rejects fractional amounts.
func (p *MpesaProvider) Initiate(ctx context.Context, req Request) (Result, error) {
	if p == nil {
		return Result{}, errors.New("mpesa: provider is nil")
	}
	phone := normalizeMsisdn(req.Phone)
	if phone == "" {
		return Result{}, errors.New("mpesa: a valid phone number is required")
	}
	if req.AmountCents <= 0 {
		return Result{}, errors.New("mpesa: amount must be positive")
	}

	token, err := p.accessTokenFor(ctx)
	if err != nil {
		return Result{}, err
	}

	now := p.clock()
	timestamp := now.Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(p.shortCode + p.passkey + timestamp))

	amount := (req.AmountCents + 99) / 100

	payload := stkPushRequest{
		BusinessShortCode: p.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            fmt.Sprintf("%d", amount),
		PartyA:            phone,
		PartyB:            p.shortCode,
		PhoneNumber:       phone,
		CallBackURL:       p.callbackURL,
		AccountReference:  req.OrderNumber,
		TransactionDesc:   "Order " + req.OrderNumber,
	}

	var resp stkPushResponse
	if err := p.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, payload, &resp); err != nil {
		return Result{}, err
	}
	if resp.ResponseCode != "0" {
		msg := resp.ResponseDescription
		if msg == "" {
			msg = resp.ErrorMessage
		}
		return Result{}, fmt.Errorf("mpesa: stk push rejected: %s", msg)
	}

	p.logger(ctx, "payments.mpesa.stk.initiated", map[string]any{
		"checkoutRequestId": resp.CheckoutRequestID,
		"orderNumber":       req.OrderNumber,
		"amount":            amount,
	})

	return Result{TransactionID: resp.CheckoutRequestID}, nil
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	ErrorMessage string `json:"errorMessage"`
}

// Confirm queries Daraja for the STK push outcome. A result code of "0" means
// the customer completed the prompt; any other code (cancelled, timed out,
// insufficient funds) reads as unpaid.
func (p *MpesaProvider) Confirm(ctx context.Context, transactionID string) (bool, error) {
	if p == nil {
		return false, errors.New("mpesa: provider is nil")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return false, errors.New("mpesa: transaction id is required")
	}

	token, err := p.accessTokenFor(ctx)
	if err != nil {
		return false, err
	}

	timestamp := p.clock().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(p.shortCode + p.passkey + timestamp))

	payload := stkQueryRequest{
		BusinessShortCode: p.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: transactionID,
	}

	var resp stkQueryResponse
	if err := p.postJSON(ctx, "/mpesa/stkpushquery/v1/query", token, payload, &resp); err != nil {
		return false, err
	}
	if resp.ResponseCode != "0" {
		msg := resp.ResultDesc
		if msg == "" {
			msg = resp.ErrorMessage
		}
		return false, fmt.Errorf("mpesa: stk query rejected: %s", msg)
	}

	paid := resp.ResultCode == "0"
	p.logger(ctx, "payments.mpesa.stk.checked", map[string]any{
		"checkoutRequestId": transactionID,
		"resultCode":        resp.ResultCode,
		"paid":              paid,
	})
	return paid, nil
}

type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessTokenFor returns a cached OAuth token, refreshing it a minute before
// Daraja's expiry.
func (p *MpesaProvider) accessTokenFor(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	if p.accessToken != "" && now.Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.accessToken, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("mpesa: build token request: %w", err)
	}
	httpReq.SetBasicAuth(p.consumerKey, p.consumerSecret)

	httpResp, err := p.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mpesa: fetch token: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return "", fmt.Errorf("mpesa: token request failed with %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token mpesaTokenResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("mpesa: decode token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("mpesa: empty access token")
	}

	ttl := 3600 * time.Second
	if secs, err := time.ParseDuration(token.ExpiresIn + "s"); err == nil && secs > 0 {
		ttl = secs
	}

	p.accessToken = token.AccessToken
	p.tokenExpiry = now.Add(ttl)
	return p.accessToken, nil
}

func (p *MpesaProvider) postJSON(ctx context.Context, path, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mpesa: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mpesa: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := p.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mpesa: send request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("mpesa: read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("mpesa: request failed with %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mpesa: decode response: %w", err)
	}
	return nil
}

// normalizeMsisdn coerces Kenyan phone formats (07xx, +2547xx, 2547xx) into
// the 254-prefixed digits Daraja requires.
func normalizeMsisdn(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	switch {
	case strings.HasPrefix(s, "254") && len(s) == 12:
		return s
	case strings.HasPrefix(s, "0") && len(s) == 10:
		return "254" + s[1:]
	case strings.HasPrefix(s, "7") && len(s) == 9:
		return "254" + s
	case strings.HasPrefix(s, "1") && len(s) == 9:
		return "254" + s
	default:
		return ""
	}
}
