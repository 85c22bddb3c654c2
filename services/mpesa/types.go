package mpesa

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType for paybill STK pushes
const TransactionTypePayBill = "CustomerPayBillOnline"

// ResponseCodeAccepted is the acknowledgement code for an accepted push request
const ResponseCodeAccepted = "0"

// AccessToken is a short-lived bearer credential, fetched per payment
type AccessToken string

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// PaymentRequest is the STK push envelope
type PaymentRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// GatewayAck is the immediate acknowledgement of a push request
type GatewayAck struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	RequestID           string `json:"requestId"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// Accepted reports whether the gateway took the push request
func (a *GatewayAck) Accepted() bool {
	return a.ResponseCode == ResponseCodeAccepted
}

// Reason is the most specific failure description the gateway gave
func (a *GatewayAck) Reason() string {
	switch {
	case a.ErrorMessage != "":
		return a.ErrorMessage
	case a.ResponseDescription != "":
		return a.ResponseDescription
	default:
		return "failed to initiate M-Pesa payment"
	}
}

// CallbackEnvelope is the asynchronous payment result delivered to the callback URL
type CallbackEnvelope struct {
	Body *CallbackBody `json:"Body"`
}

type CallbackBody struct {
	StkCallback *StkCallback `json:"stkCallback"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        *int              `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is one loosely typed name/value pair; Value may be a number,
// a string, or missing.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Find returns the first item with the given name
func (m *CallbackMetadata) Find(name string) (MetadataItem, bool) {
	if m == nil {
		return MetadataItem{}, false
	}
	for _, item := range m.Item {
		if item.Name == name {
			return item, true
		}
	}
	return MetadataItem{}, false
}

// String returns the value as text; numbers keep their literal form.
// Null, missing and empty values give "".
func (i MetadataItem) String() string {
	raw := strings.TrimSpace(string(i.Value))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(i.Value, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(i.Value, &n); err == nil {
		return n.String()
	}
	return ""
}

// Present reports whether the value is truthy: not missing, null, empty,
// false or numerically zero.
func (i MetadataItem) Present() bool {
	raw := strings.TrimSpace(string(i.Value))
	switch raw {
	case "", "null", "false", `""`:
		return false
	}
	var n json.Number
	if err := json.Unmarshal(i.Value, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		return err != nil || !d.IsZero()
	}
	var s string
	if err := json.Unmarshal(i.Value, &s); err == nil {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Decimal parses the value as a number, accepting numeric strings.
// Falsy values (missing, zero, empty) report false.
func (i MetadataItem) Decimal() (decimal.Decimal, bool) {
	s := i.String()
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}
