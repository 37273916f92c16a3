// Package payments adapts external payment service providers behind a common
// initiation and confirmation interface. Success normally arrives out-of-band
// via webhooks; Confirm queries the provider directly so a webhook's claim can
// be checked against the source of truth. The transaction reference returned
// at initiation is the correlation key throughout.
package payments

import (
	"context"
	"errors"
)

// ErrUnsupportedProvider indicates no adapter is registered under the
// requested name.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// Request carries everything an adapter needs to start a payment.
type Request struct {
	OrderID     string
	OrderNumber string
	AmountCents int64
	Currency    string
	Email       string
	Phone       string
}

// Result is what an adapter hands back after initiating a payment. Exactly one
// of RedirectURL and ClientSecret is set for providers that need the customer
// to act; both stay empty for push-based flows like STK.
type Result struct {
	TransactionID string
	RedirectURL   string
	ClientSecret  string
}

// Provider is one payment service adapter. Confirm reports whether the
// provider considers the transaction settled; false with a nil error means
// the payment is still pending or was declined.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req Request) (Result, error)
	Confirm(ctx context.Context, transactionID string) (bool, error)
}

// Manager is a registry of providers keyed by name.
type Manager struct {
	providers map[string]Provider
}

// NewManager registers the given providers. Later registrations win on name
// collisions.
func NewManager(providers ...Provider) *Manager {
	m := &Manager{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		m.providers[p.Name()] = p
	}
	return m
}

// Get returns the provider registered under name.
func (m *Manager) Get(name string) (Provider, error) {
	p, ok := m.providers[name]
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	return p, nil
}

// Names lists the registered provider names.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}
