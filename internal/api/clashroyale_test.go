package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/S1M0N38/cr-db/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const battlelog = `[
  {
    "type": "pathOfLegend",
    "battleTime": "20240101T120000.000Z",
    "gameMode": {"id": 72000006, "name": "Ladder"},
    "team": [{
      "tag": "#P1", "name": "one", "startingTrophies": 7000, "crowns": 3,
      "cards": [{"id": 26000000, "name": "Knight", "level": 14}]
    }],
    "opponent": [{
      "tag": "#P2", "name": "two", "crowns": 1,
      "cards": [{"id": 26000001, "name": "Archers", "level": 13}]
    }]
  }
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.Config{APIToken: "tok", APIBaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(&config.Config{APIBaseURL: "http://localhost"})
	assert.ErrorIs(t, err, config.ErrMissingToken)
}

func TestGetBattleLog(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(battlelog))
	})

	battles, err := client.GetBattleLog(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, "/players/%23P1/battlelog", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)

	require.Len(t, battles, 1)
	b := battles[0]
	assert.Equal(t, "20240101T120000.000Z", b.BattleTime)
	assert.Equal(t, 72000006, b.GameMode.ID)
	require.Len(t, b.Team, 1)
	require.NotNil(t, b.Team[0].StartingTrophies)
	assert.Equal(t, 7000, *b.Team[0].StartingTrophies)
	assert.Equal(t, 3, b.Team[0].Crowns)
	assert.Equal(t, 26000000, b.Team[0].Cards[0].ID)
	require.Len(t, b.Opponent, 1)
	assert.Nil(t, b.Opponent[0].StartingTrophies)
}

func TestGetBattleLogAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"reason":"accessDenied","message":"Invalid authorization"}`))
	})

	_, err := client.GetBattleLog(context.Background(), "P1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "accessDenied", apiErr.Reason)
	assert.Equal(t, "Invalid authorization", apiErr.Message)
}

func TestGetBattleLogAPIErrorWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetBattleLog(context.Background(), "P1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Reason)
}

func TestGetBattleLogBadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	})

	_, err := client.GetBattleLog(context.Background(), "P1")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestGetBattleLogHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetBattleLog(ctx, "P1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetBattleLogDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetBattleLog(ctx, "P1")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "timeouts are transport errors")
}
