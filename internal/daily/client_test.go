package daily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltspaces/backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.DailyConfig{
		APIKey:          "test-key",
		APIBase:         srv.URL,
		TokenExpMinutes: 60,
	}, nil)
}

func TestClient_CreateRoom(t *testing.T) {
	t.Run("provisions a uniquely named public room", func(t *testing.T) {
		var captured map[string]interface{}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rooms", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			name := captured["name"].(string)
			json.NewEncoder(w).Encode(Room{Name: name, URL: "https://molt.daily.co/" + name})
		})

		url, err := client.CreateRoom(context.Background(), "alice")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "https://molt.daily.co/alice-"))
		assert.Equal(t, "public", captured["privacy"])

		props := captured["properties"].(map[string]interface{})
		assert.Equal(t, true, props["start_video_off"])
		assert.Contains(t, props, "exp")
	})

	t.Run("non-200 surfaces as error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.CreateRoom(context.Background(), "alice")
		assert.ErrorContains(t, err, "daily status 429")
	})
}

func TestClient_CreateMeetingToken(t *testing.T) {
	t.Run("owner token", func(t *testing.T) {
		var captured map[string]interface{}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/meeting-tokens", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(map[string]string{"token": "tkn-123"})
		})

		token, err := client.CreateMeetingToken(context.Background(), "https://molt.daily.co/alice-abc123", "alice", true)
		require.NoError(t, err)
		assert.Equal(t, "tkn-123", token)

		props := captured["properties"].(map[string]interface{})
		assert.Equal(t, "alice-abc123", props["room_name"])
		assert.Equal(t, true, props["is_owner"])
		assert.Equal(t, false, props["start_audio_off"])
	})

	t.Run("listener starts muted with a default name", func(t *testing.T) {
		var captured map[string]interface{}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(map[string]string{"token": "tkn-456"})
		})

		_, err := client.CreateMeetingToken(context.Background(), "https://molt.daily.co/alice-abc123", "", false)
		require.NoError(t, err)

		props := captured["properties"].(map[string]interface{})
		assert.Equal(t, "Listener", props["user_name"])
		assert.Equal(t, false, props["is_owner"])
		assert.Equal(t, true, props["start_audio_off"])
	})

	t.Run("rejects a malformed room url", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		_, err := client.CreateMeetingToken(context.Background(), "https:///", "alice", false)
		assert.Error(t, err)
	})
}

func TestRoomNameFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://molt.daily.co/alice-abc123", "alice-abc123"},
		{"https://molt.daily.co/alice-abc123/", "alice-abc123"},
		{"alice-abc123", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoomNameFromURL(tc.url), tc.url)
	}
}

func TestClient_Configured(t *testing.T) {
	assert.False(t, NewClient(config.DailyConfig{}, nil).Configured())
	assert.True(t, NewClient(config.DailyConfig{APIKey: "k"}, nil).Configured())
}
