package farcaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltspaces/backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.NeynarConfig{APIKey: "test-key", APIBase: srv.URL}, nil)
}

func TestClient_VerifySigner(t *testing.T) {
	t.Run("approved signer resolves to fid", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/farcaster/signer", r.URL.Path)
			assert.Equal(t, "sig-1", r.URL.Query().Get("signer_uuid"))
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			json.NewEncoder(w).Encode(signerResponse{SignerUUID: "sig-1", Status: "approved", Fid: 8821})
		})

		fid, err := client.VerifySigner(context.Background(), "sig-1")
		require.NoError(t, err)
		assert.Equal(t, "8821", fid)
	})

	t.Run("pending signer is rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(signerResponse{SignerUUID: "sig-1", Status: "pending_approval"})
		})

		_, err := client.VerifySigner(context.Background(), "sig-1")
		assert.ErrorIs(t, err, ErrSignerNotApproved)
	})

	t.Run("approved signer without fid is rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(signerResponse{SignerUUID: "sig-1", Status: "approved"})
		})

		_, err := client.VerifySigner(context.Background(), "sig-1")
		assert.ErrorIs(t, err, ErrSignerNotApproved)
	})

	t.Run("non-200 surfaces as error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.VerifySigner(context.Background(), "sig-1")
		assert.ErrorContains(t, err, "neynar status 401")
	})
}

func TestClient_GetUser(t *testing.T) {
	t.Run("resolves a profile", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/farcaster/user/bulk", r.URL.Path)
			assert.Equal(t, "8821", r.URL.Query().Get("fids"))
			w.Write([]byte(`{"users":[{"fid":8821,"username":"alice","display_name":"Alice","pfp_url":"https://img.example/alice.png"}]}`))
		})

		profile, err := client.GetUser(context.Background(), "8821")
		require.NoError(t, err)
		assert.Equal(t, "8821", profile.Fid)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, "Alice", profile.DisplayName)
		assert.Equal(t, "https://img.example/alice.png", profile.PfpURL)
	})

	t.Run("empty result set", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"users":[]}`))
		})

		_, err := client.GetUser(context.Background(), "999999")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
