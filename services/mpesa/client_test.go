package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms-module/config"
	"lms-module/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{
		MpesaAPIURL:         srv.URL,
		MpesaConsumerKey:    "key",
		MpesaConsumerSecret: "secret",
		MpesaShortcode:      "174379",
		MpesaPasskey:        "passkey",
		HTTPTimeout:         2 * time.Second,
	})
	c.now = func() time.Time { return time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC) }
	return c
}

func TestFetchAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/oauth/v1/generate", r.URL.Path)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("key:secret")), r.Header.Get("Authorization"))
		w.Write([]byte(`{"access_token":"tok-123","expires_in":"3599"}`))
	})

	token, err := c.FetchAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AccessToken("tok-123"), token)
}

func TestFetchAccessTokenFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errorMessage":"Invalid credentials"}`))
		},
		"missing token": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"expires_in":"3599"}`))
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html></html>`))
		},
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := newTestClient(t, h).FetchAccessToken(context.Background())
			assert.Empty(t, token)
			assert.True(t, errors.IsKind(err, errors.UpstreamAuth), "got %v", err)
		})
	}
}

func TestFetchAccessTokenTransportError(t *testing.T) {
	c := NewClient(&config.Config{MpesaAPIURL: "http://127.0.0.1:1", HTTPTimeout: time.Second})

	_, err := c.FetchAccessToken(context.Background())
	assert.True(t, errors.IsKind(err, errors.UpstreamAuth))
}

func TestFetchAccessTokenTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"access_token":"late"}`))
	})
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.FetchAccessToken(context.Background())
	assert.True(t, errors.IsKind(err, errors.UpstreamAuth))
}

func TestSubmitPushPayment(t *testing.T) {
	var got PaymentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`))
	})

	pr := c.NewPaymentRequest(1500, "254712345678", "https://lms.example.com/mpesa/callback", "COURSE-c1", "Payment for Go 101")
	ack, err := c.SubmitPushPayment(context.Background(), pr, "tok-123")
	require.NoError(t, err)
	assert.True(t, ack.Accepted())
	assert.Equal(t, "ws_CO_191220191020363925", ack.CheckoutRequestID)

	assert.Equal(t, int64(1500), got.Amount)
	assert.Equal(t, "20240305070809", got.Timestamp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379passkey20240305070809")), got.Password)
	assert.Equal(t, "174379", got.BusinessShortCode)
	assert.Equal(t, "174379", got.PartyB)
	assert.Equal(t, "254712345678", got.PartyA)
	assert.Equal(t, "254712345678", got.PhoneNumber)
	assert.Equal(t, TransactionTypePayBill, got.TransactionType)
	assert.Equal(t, "COURSE-c1", got.AccountReference)
}

func TestSubmitPushPaymentRefusal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"requestId":"1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid Amount"}`))
	})

	ack, err := c.SubmitPushPayment(context.Background(), PaymentRequest{}, "tok")
	require.NoError(t, err)
	assert.False(t, ack.Accepted())
	assert.Equal(t, "Bad Request - Invalid Amount", ack.Reason())
}

func TestSubmitPushPaymentUnreadableResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	})

	_, err := c.SubmitPushPayment(context.Background(), PaymentRequest{}, "tok")
	assert.True(t, errors.IsKind(err, errors.UpstreamSubmit))
}

func TestTimestampIsUTC(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	assert.Equal(t, "20240305040809", Timestamp(time.Date(2024, 3, 5, 7, 8, 9, 0, nairobi)))
	assert.Len(t, Timestamp(time.Now()), 14)
}
