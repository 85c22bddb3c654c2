package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"lms-module/config"
	"lms-module/errors"
	"lms-module/logger"
	"lms-module/models"
)

// Client reads user profiles from the hosted identity provider's backend API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type userResponse struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.IdentityAPIURL,
		secretKey:  cfg.IdentitySecretKey,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// GetProfile fetches the purchaser's profile. Email is the primary address
// when one is marked, otherwise the first listed; it may be empty.
func (c *Client) GetProfile(ctx context.Context, purchaserID string) (*models.PurchaserProfile, error) {
	if strings.TrimSpace(purchaserID) == "" {
		return nil, errors.E(errors.Invalid, "purchaser id is required")
	}

	endpoint := c.baseURL + "/v1/users/" + url.PathEscape(purchaserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.E(errors.Internal, "build identity request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.E(errors.UpstreamAuth, "identity request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.E(errors.UpstreamAuth, "read identity response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.E(errors.NotFound, fmt.Sprintf("purchaser %s not found", purchaserID))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		logger.Error("[IDENTITY] Profile lookup failed - Status: %d, Purchaser: %s", resp.StatusCode, purchaserID)
		return nil, errors.E(errors.UpstreamAuth, fmt.Sprintf("identity provider returned status %d", resp.StatusCode))
	}

	var u userResponse
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, errors.E(errors.UpstreamAuth, "decode identity response", err)
	}

	profile := &models.PurchaserProfile{
		ID:        u.ID,
		Email:     u.primaryEmail(),
		AvatarURL: u.ImageURL,
	}
	if profile.ID == "" {
		profile.ID = purchaserID
	}
	if u.FirstName != nil {
		profile.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		profile.LastName = *u.LastName
	}
	if strings.TrimSpace(profile.FirstName) == "" {
		profile.FirstName = profile.Email
	}
	return profile, nil
}

func (u *userResponse) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != "" && e.ID == u.PrimaryEmailAddressID {
			return strings.TrimSpace(e.EmailAddress)
		}
	}
	for _, e := range u.EmailAddresses {
		if s := strings.TrimSpace(e.EmailAddress); s != "" {
			return s
		}
	}
	return ""
}
