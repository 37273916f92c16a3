package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PaypalLogger defines the logging contract for PayPal provider operations.
type PaypalLogger func(ctx context.Context, event string, fields map[string]any)

// PaypalProviderConfig configures the PaypalProvider against the Orders v2 API.
type PaypalProviderConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
	HTTPClient   httpDoer
	Clock        func() time.Time
	Logger       PaypalLogger
}

// PaypalProvider initiates payments as PayPal orders. The PayPal order id is
// the payment reference; the customer approves at the returned redirect URL
// and the capture webhook confirms.
type PaypalProvider struct {
	baseURL      string
	clientID     string
	clientSecret string
	returnURL    string
	cancelURL    string
	http         httpDoer
	clock        func() time.Time
	logger       PaypalLogger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPaypalProvider constructs a PayPal Provider using the given configuration.
func NewPaypalProvider(cfg PaypalProviderConfig) (*PaypalProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("paypal: client credentials are required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
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

	return &PaypalProvider{
		baseURL:      baseURL,
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		returnURL:    strings.TrimSpace(cfg.ReturnURL),
		cancelURL:    strings.TrimSpace(cfg.CancelURL),
		http:         httpClient,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Name implements Provider.
func (p *PaypalProvider) Name() string { return "paypal" }

type paypalOrderRequest struct {
	Intent             string                   `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit     `json:"purchase_units"`
	ApplicationContext paypalApplicationContext `json:"application_context"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalApplicationContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// Initiate creates a CAPTURE-intent PayPal order and returns the approval
// redirect for the customer.
func (p *PaypalProvider) Initiate(ctx context.Context, req Request) (Result, error) {
	if p == nil {
		return Result{}, errors.New("paypal: provider is nil")
	}
	if req.AmountCents <= 0 {
		return Result{}, errors.New("paypal: amount must be positive")
	}

	token, err := p.accessTokenFor(ctx)
	if err != nil {
		return Result{}, err
	}

	payload := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.OrderNumber,
			Amount: paypalAmount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100),
			},
		}},
		ApplicationContext: paypalApplicationContext{
			ReturnURL: p.returnURL,
			CancelURL: p.cancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("paypal: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("paypal: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("PayPal-Request-Id", req.OrderNumber)

	httpResp, err := p.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("paypal: send request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("paypal: read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusCreated && httpResp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("paypal: create order failed with %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var order paypalOrderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return Result{}, fmt.Errorf("paypal: decode order: %w", err)
	}
	if order.ID == "" {
		return Result{}, errors.New("paypal: empty order id")
	}

	redirect := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			redirect = link.Href
			break
		}
	}

	p.logger(ctx, "payments.paypal.order.created", map[string]any{
		"paypalOrderId": order.ID,
		"orderNumber":   req.OrderNumber,
		"status":        order.Status,
	})

	return Result{TransactionID: order.ID, RedirectURL: redirect}, nil
}

// Confirm looks the PayPal order up and reports whether its capture
// completed. APPROVED means the customer consented but no money moved yet,
// so only COMPLETED reads as paid.
func (p *PaypalProvider) Confirm(ctx context.Context, transactionID string) (bool, error) {
	if p == nil {
		return false, errors.New("paypal: provider is nil")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return false, errors.New("paypal: transaction id is required")
	}

	token, err := p.accessTokenFor(ctx)
	if err != nil {
		return false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/checkout/orders/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return false, fmt.Errorf("paypal: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := p.http.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("paypal: send request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("paypal: read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("paypal: fetch order failed with %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var order paypalOrderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return false, fmt.Errorf("paypal: decode order: %w", err)
	}

	paid := order.Status == "COMPLETED"
	p.logger(ctx, "payments.paypal.order.checked", map[string]any{
		"paypalOrderId": transactionID,
		"status":        order.Status,
		"paid":          paid,
	})
	return paid, nil
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (p *PaypalProvider) accessTokenFor(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	if p.accessToken != "" && now.Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.clientID, p.clientSecret)

	httpResp, err := p.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("paypal: fetch token: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return "", fmt.Errorf("paypal: token request failed with %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token paypalTokenResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("paypal: empty access token")
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	p.accessToken = token.AccessToken
	p.tokenExpiry = now.Add(ttl)
	return p.accessToken, nil
}
