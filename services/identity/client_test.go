package identity

import (
	"context"
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
	return NewClient(&config.Config{
		IdentityAPIURL:    srv.URL,
		IdentitySecretKey: "sk_test",
		HTTPTimeout:       2 * time.Second,
	})
}

func TestGetProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"id": "user_123",
			"first_name": "Amina",
			"last_name": "Otieno",
			"image_url": "https://img.example.com/a.png",
			"primary_email_address_id": "idn_2",
			"email_addresses": [
				{"id": "idn_1", "email_address": "old@example.com"},
				{"id": "idn_2", "email_address": "amina@example.com"}
			]
		}`))
	})

	p, err := c.GetProfile(context.Background(), "user_123")
	require.NoError(t, err)
	assert.Equal(t, "user_123", p.ID)
	assert.Equal(t, "amina@example.com", p.Email)
	assert.Equal(t, "Amina", p.FirstName)
	assert.Equal(t, "Otieno", p.LastName)
	assert.Equal(t, "https://img.example.com/a.png", p.AvatarURL)
}

func TestGetProfileFallsBackToFirstEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","first_name":null,"email_addresses":[{"id":"idn_1","email_address":"u1@example.com"}]}`))
	})

	p, err := c.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", p.Email)
	assert.Equal(t, "u1@example.com", p.FirstName)
}

func TestGetProfileWithoutEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","email_addresses":[]}`))
	})

	p, err := c.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Email)
}

func TestGetProfileErrors(t *testing.T) {
	notFound := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := notFound.GetProfile(context.Background(), "ghost")
	assert.True(t, errors.IsKind(err, errors.NotFound))

	unauthorized := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err = unauthorized.GetProfile(context.Background(), "u1")
	assert.True(t, errors.IsKind(err, errors.UpstreamAuth))

	_, err = unauthorized.GetProfile(context.Background(), "")
	assert.True(t, errors.IsKind(err, errors.Invalid))
}
