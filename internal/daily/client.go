// Package daily wraps the Daily.co REST API for room provisioning and
// meeting token minting. The audio transport itself is opaque to this
// service: clients join the room URL with the minted token on their own.
package daily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/config"
)

// Room is a provisioned Daily room.
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Client calls the Daily REST API.
type Client struct {
	apiKey   string
	base     string
	tokenExp time.Duration
	httpc    *http.Client
	logger   *zap.Logger
}

// NewClient creates a Daily API client.
func NewClient(cfg config.DailyConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:   cfg.APIKey,
		base:     cfg.APIBase,
		tokenExp: time.Duration(cfg.TokenExpMinutes) * time.Minute,
		httpc:    &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CreateRoom provisions a fresh audio-only room for a host's session and
// returns its URL. Room names are unique per session so stale clients of a
// previous session cannot wander into the new one.
func (c *Client) CreateRoom(ctx context.Context, hostSlug string) (string, error) {
	name := fmt.Sprintf("%s-%s", hostSlug, uuid.New().String()[:8])
	body := map[string]interface{}{
		"name":    name,
		"privacy": "public",
		"properties": map[string]interface{}{
			"start_video_off":    true,
			"enable_screenshare": false,
			"exp":                time.Now().Add(24 * time.Hour).Unix(),
		},
	}

	var room Room
	if err := c.post(ctx, "/rooms", body, &room); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	return room.URL, nil
}

// CreateMeetingToken mints a join token for roomURL. Owners (the host) may
// speak immediately; listeners start with audio off.
func (c *Client) CreateMeetingToken(ctx context.Context, roomURL, userName string, owner bool) (string, error) {
	roomName := RoomNameFromURL(roomURL)
	if roomName == "" {
		return "", fmt.Errorf("invalid room url %q", roomURL)
	}
	if userName == "" {
		userName = "Listener"
	}
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			"room_name":       roomName,
			"user_name":       userName,
			"is_owner":        owner,
			"start_audio_off": !owner,
			"start_video_off": true,
			"exp":             time.Now().Add(c.tokenExp).Unix(),
		},
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/meeting-tokens", body, &resp); err != nil {
		return "", fmt.Errorf("create meeting token: %w", err)
	}
	return resp.Token, nil
}

// RoomNameFromURL extracts the room name from a Daily room URL
// (https://<domain>.daily.co/<name>).
func RoomNameFromURL(roomURL string) string {
	trimmed := strings.TrimRight(roomURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return ""
	}
	return trimmed[idx+1:]
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daily status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
