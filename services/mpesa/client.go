package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lms-module/config"
	"lms-module/errors"
	"lms-module/logger"
)

const (
	tokenPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	maxBodyBytes = 1 << 20

	timestampLayout = "20060102150405"
)

// Client talks to the Daraja push-payment API. It holds no per-payment state
// and never retries.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	httpClient     *http.Client
	now            func() time.Time
}

// NewClient builds a gateway client from configuration. Every request is
// bounded by cfg.HTTPTimeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:        cfg.MpesaAPIURL,
		consumerKey:    cfg.MpesaConsumerKey,
		consumerSecret: cfg.MpesaConsumerSecret,
		shortcode:      cfg.MpesaShortcode,
		passkey:        cfg.MpesaPasskey,
		httpClient:     &http.Client{Timeout: cfg.HTTPTimeout},
		now:            time.Now,
	}
}

// FetchAccessToken exchanges the consumer key and secret for a bearer token.
func (c *Client) FetchAccessToken(ctx context.Context) (AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", errors.E(errors.UpstreamAuth, "build token request", err)
	}
	req.Header.Set("Authorization", "Basic "+basicAuth(c.consumerKey, c.consumerSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.E(errors.UpstreamAuth, "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.E(errors.UpstreamAuth, "read token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("[MPESA] Token request failed - Status: %d, Body: %s", resp.StatusCode, truncate(body))
		return "", errors.E(errors.UpstreamAuth, fmt.Sprintf("token request returned status %d", resp.StatusCode))
	}

	var tr accessTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", errors.E(errors.UpstreamAuth, "decode token response", err)
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return "", errors.E(errors.UpstreamAuth, "token response carried no access_token")
	}
	return AccessToken(tr.AccessToken), nil
}

// NewPaymentRequest fills in the signed parts of an STK push envelope
// (timestamp and password) for the given payment.
func (c *Client) NewPaymentRequest(amount int64, phone, callbackURL, accountReference, description string) PaymentRequest {
	ts := Timestamp(c.now())
	return PaymentRequest{
		BusinessShortCode: c.shortcode,
		Password:          Password(c.shortcode, c.passkey, ts),
		Timestamp:         ts,
		TransactionType:   TransactionTypePayBill,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       callbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}
}

// SubmitPushPayment posts the envelope once. Transport failures and
// unreadable responses are UpstreamSubmit errors; a gateway refusal comes
// back as an ack that is not Accepted.
func (c *Client) SubmitPushPayment(ctx context.Context, pr PaymentRequest, token AccessToken) (*GatewayAck, error) {
	payload, err := json.Marshal(pr)
	if err != nil {
		return nil, errors.E(errors.UpstreamSubmit, "encode push request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.E(errors.UpstreamSubmit, "build push request", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.E(errors.UpstreamSubmit, "push request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.E(errors.UpstreamSubmit, "read push response", err)
	}

	var ack GatewayAck
	if err := json.Unmarshal(body, &ack); err != nil {
		logger.Error("[MPESA] Unreadable push response - Status: %d, Body: %s", resp.StatusCode, truncate(body))
		return nil, errors.E(errors.UpstreamSubmit, fmt.Sprintf("decode push response (status %d)", resp.StatusCode), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("[MPESA] Push request refused - Status: %d, ErrorCode: %s, Message: %s", resp.StatusCode, ack.ErrorCode, ack.ErrorMessage)
	}
	return &ack, nil
}

// Timestamp formats t in UTC as YYYYMMDDHHmmss.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func truncate(b []byte) string {
	if len(b) > 500 {
		return string(b[:500])
	}
	return string(b)
}
