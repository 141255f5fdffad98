package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statrelay-project/statrelay/internal/config"
	"github.com/statrelay-project/statrelay/internal/dispatch"
	"github.com/statrelay-project/statrelay/internal/protocol"
	"github.com/statrelay-project/statrelay/internal/session"
)

const testGameKey = "abcdefghijklmnopqrst41c64e6d000030397fffffff5a5a5a5agamestats2"

func newTestServer(t *testing.T) (*Server, *protocol.GameConfig) {
	t.Helper()

	cfg := config.DefaultConfig()
	dep := config.GameDeployment{
		Name:            "test",
		Key:             testGameKey,
		RequestVersion:  protocol.RequestV2,
		ResponseVersion: protocol.ResponseV2,
		Encrypted:       true,
		Handler:         "echo",
	}
	gameCfg, err := dep.GameConfig()
	require.NoError(t, err)

	sessions := session.NewRegistry(time.Hour, time.Hour, nil)
	dispatcher := dispatch.New(sessions, nil, false)
	require.NoError(t, dispatcher.Register(dep.Name, gameCfg, dispatch.EchoHandler()))

	return NewServer(cfg, dispatcher, sessions), gameCfg
}

func TestStatsEndToEnd(t *testing.T) {
	server, gameCfg := newTestServer(t)
	router := server.Router()

	// New session: pid is the only parameter, the token is the body.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats/test?pid=1234", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	assert.Regexp(t, "^[0-9a-f]{40}$", token)

	// Main request over POST with an urlencoded form body.
	payload := []byte("telemetry bytes")
	form := url.Values{
		"pid":  {"1234"},
		"hash": {token},
		"data": {protocol.EncodeRequest(payload, 1234, gameCfg)},
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/stats/test", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.Bytes()
	require.Len(t, body, len(payload)+40)
	assert.Equal(t, payload, body[:len(payload)])
	assert.Equal(t, protocol.ResponseSuffix(payload, gameCfg), string(body[len(payload):]))
}

func TestStatsQueryAndFormMerge(t *testing.T) {
	server, gameCfg := newTestServer(t)
	router := server.Router()

	// pid in the query string, the rest in the body: the two parameter
	// sources are one bag to the protocol.
	form := url.Values{
		"hash": {"ffffffffffffffffffffffffffffffffffffffff"},
		"data": {protocol.EncodeRequest([]byte("payload"), 77, gameCfg)},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stats/test?pid=77", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsUnknownGame(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats/nosuch?pid=1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, protocol.GenericNotFound, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestStatsRejectsBadMethod(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	// The protocol, not the router, answers non-GET/POST methods.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/stats/test?pid=1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, protocol.GenericBadRequest, w.Body.String())
}

func TestStatsSubPathRoute(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats/test/web/client2.asp?pid=55", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, "^[0-9a-f]{40}$", w.Body.String())
}

func TestPublicPing(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPublicGames(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/games", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Games []struct {
			Name           string `json:"name"`
			GameID         string `json:"game_id"`
			RequestVersion string `json:"request_version"`
		} `json:"games"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "test", body.Games[0].Name)
	assert.Equal(t, "gamestats2", body.Games[0].GameID)
	assert.Equal(t, "v2", body.Games[0].RequestVersion)

	// The packed game key never leaves the server.
	assert.NotContains(t, w.Body.String(), testGameKey)
}

func TestSecurityHeaders(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "StatRelay", w.Header().Get("Server"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
