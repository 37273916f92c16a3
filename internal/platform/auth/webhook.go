package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/stripe/stripe-go/v78/webhook"
)

// WebhookSignatureHeader carries the shared-secret HMAC for providers without
// a native signing scheme. The value is a base64 or hex encoded HMAC-SHA256
// of the raw request body.
const WebhookSignatureHeader = "X-Signature"

// WebhookVerifierConfig carries the per-provider webhook secrets.
type WebhookVerifierConfig struct {
	StripeSecret string
	MpesaSecret  string
	PaypalSecret string
}

// WebhookVerifier authenticates inbound payment callbacks before they reach
// the handlers. Stripe events are checked with the Stripe-Signature scheme;
// M-Pesa and PayPal callbacks must carry a shared-secret HMAC of the body.
// A provider whose secret is not configured gets 503, never a free pass.
type WebhookVerifier struct {
	stripeSecret string
	hmacSecrets  map[string]string
}

// NewWebhookVerifier builds a verifier over the configured secrets.
func NewWebhookVerifier(cfg WebhookVerifierConfig) *WebhookVerifier {
	hmacSecrets := make(map[string]string, 2)
	if secret := strings.TrimSpace(cfg.MpesaSecret); secret != "" {
		hmacSecrets["mpesa"] = secret
	}
	if secret := strings.TrimSpace(cfg.PaypalSecret); secret != "" {
		hmacSecrets["paypal"] = secret
	}
	return &WebhookVerifier{
		stripeSecret: strings.TrimSpace(cfg.StripeSecret),
		hmacSecrets:  hmacSecrets,
	}
}

// Middleware verifies the signature for the provider named by the request
// path's last segment and rejects unsigned or forged calls.
func (v *WebhookVerifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readAndRestoreBody(r)
			if err != nil {
				writeAuthError(w, http.StatusBadRequest, "invalid_body", "unable to read body for signature verification")
				return
			}

			provider := path.Base(r.URL.Path)
			switch provider {
			case "stripe":
				if v.stripeSecret == "" {
					writeAuthError(w, http.StatusServiceUnavailable, "verification_unavailable", "stripe webhook secret not configured")
					return
				}
				_, err := webhook.ConstructEventWithOptions(body, r.Header.Get("Stripe-Signature"), v.stripeSecret, webhook.ConstructEventOptions{
					IgnoreAPIVersionMismatch: true,
				})
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, "signature_mismatch", "stripe signature verification failed")
					return
				}
			default:
				secret, ok := v.hmacSecrets[provider]
				if !ok {
					writeAuthError(w, http.StatusServiceUnavailable, "verification_unavailable", provider+" webhook secret not configured")
					return
				}
				header := strings.TrimSpace(r.Header.Get(WebhookSignatureHeader))
				if header == "" {
					writeAuthError(w, http.StatusUnauthorized, "signature_missing", "signature header missing")
					return
				}
				signature, err := decodeSignature(header)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, "signature_invalid", "signature encoding invalid")
					return
				}
				mac := hmac.New(sha256.New, []byte(secret))
				_, _ = mac.Write(body)
				if !hmac.Equal(signature, mac.Sum(nil)) {
					writeAuthError(w, http.StatusUnauthorized, "signature_mismatch", "signature verification failed")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(buf))
	return buf, nil
}

func decodeSignature(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(value); err == nil {
		return decoded, nil
	}
	return nil, errors.New("auth: signature must be base64 or hex encoded")
}
