// Package farcaster wraps the Neynar REST API for sign-in verification and
// profile lookup. The identity provider is treated as a black box:
// authenticate() -> {fid, profile}.
package farcaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/moltspaces/backend/config"
)

var (
	// ErrSignerNotApproved means the signer exists but the user has not approved it.
	ErrSignerNotApproved = errors.New("signer not approved")
	// ErrUserNotFound means the fid resolved to no Farcaster account.
	ErrUserNotFound = errors.New("farcaster user not found")
)

// Profile is the subset of a Farcaster account the app cares about.
type Profile struct {
	Fid         string
	Username    string
	DisplayName string
	PfpURL      string
}

// Client calls the Neynar API.
type Client struct {
	apiKey string
	base   string
	httpc  *http.Client
	logger *zap.Logger
}

// NewClient creates a Neynar API client.
func NewClient(cfg config.NeynarConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey: cfg.APIKey,
		base:   cfg.APIBase,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type signerResponse struct {
	SignerUUID string `json:"signer_uuid"`
	Status     string `json:"status"`
	Fid        int64  `json:"fid"`
}

// VerifySigner checks an approved SIWN signer and returns the fid it belongs to.
func (c *Client) VerifySigner(ctx context.Context, signerUUID string) (string, error) {
	endpoint := c.base + "/farcaster/signer?signer_uuid=" + url.QueryEscape(signerUUID)
	var resp signerResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return "", fmt.Errorf("verify signer: %w", err)
	}
	if resp.Status != "approved" || resp.Fid == 0 {
		return "", ErrSignerNotApproved
	}
	return strconv.FormatInt(resp.Fid, 10), nil
}

type userBulkResponse struct {
	Users []struct {
		Fid         int64  `json:"fid"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		PfpURL      string `json:"pfp_url"`
	} `json:"users"`
}

// GetUser fetches the profile for a fid.
func (c *Client) GetUser(ctx context.Context, fid string) (*Profile, error) {
	endpoint := c.base + "/farcaster/user/bulk?fids=" + url.QueryEscape(fid)
	var resp userBulkResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, ErrUserNotFound
	}
	u := resp.Users[0]
	return &Profile{
		Fid:         strconv.FormatInt(u.Fid, 10),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		PfpURL:      u.PfpURL,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("neynar status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
