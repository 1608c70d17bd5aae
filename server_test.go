package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, sender *mockSender, token string) (*Server, *httptest.Server) {
	cfg := defaultConfig()
	cfg.ReceiverMail = "me@example.com"
	cfg.SendHour, cfg.SendMinute = 7, 30
	cfg.Status.Token = token

	p := testPipeline(t, &mockCollector{}, sender)
	s := newServer(logr.Discard(), cfg, VariantLinux, p)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return s, hs
}

func TestServer_Health(t *testing.T) {
	_, hs := testServer(t, &mockSender{}, "secret")

	resp, err := http.Get(hs.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequiresToken(t *testing.T) {
	_, hs := testServer(t, &mockSender{}, "secret")

	for _, path := range []string{"/status", "/preview", "/send", "/ws"} {
		resp, err := http.Get(hs.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestServer_Status(t *testing.T) {
	_, hs := testServer(t, &mockSender{}, "secret")

	req, _ := http.NewRequest(http.MethodGet, hs.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "linux", st.Variant)
	assert.Equal(t, "07:30", st.SendAt)
	assert.Equal(t, "me@example.com", st.Receiver)
	assert.Nil(t, st.LastRun)
}

func TestServer_PreviewInlinesLogo(t *testing.T) {
	sender := &mockSender{}
	_, hs := testServer(t, sender, "secret")

	resp, err := http.Get(hs.URL + "/preview?token=secret")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "data:image/png;base64,")
	assert.NotContains(t, string(body), "cid:")
	assert.Empty(t, sender.sent())
}

func TestServer_SendRequiresPost(t *testing.T) {
	_, hs := testServer(t, &mockSender{}, "")

	resp, err := http.Get(hs.URL + "/send")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_SendRunsPipeline(t *testing.T) {
	sender := &mockSender{}
	_, hs := testServer(t, sender, "")

	resp, err := http.Post(hs.URL+"/send", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ev RunEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	assert.Equal(t, PhaseSent, ev.Phase)
	assert.Len(t, sender.sent(), 1)
}

func TestServer_SendFailure(t *testing.T) {
	_, hs := testServer(t, &mockSender{err: &TransportError{Err: errors.New("refused")}}, "")

	resp, err := http.Post(hs.URL+"/send", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var ev RunEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	assert.Equal(t, PhaseFailed, ev.Phase)
	assert.Contains(t, ev.Error, "refused")
}

func TestServer_WebSocketStreamsRunEvents(t *testing.T) {
	s, hs := testServer(t, &mockSender{}, "secret")

	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws?token=secret"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, "linux", hello.Variant)

	require.NoError(t, s.pipeline.Run(context.Background()))

	var phases []string
	for len(phases) < 3 {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "run", msg.Type)
		phases = append(phases, msg.Event.Phase)
	}
	assert.Equal(t, []string{PhaseStarted, PhaseRendered, PhaseSent}, phases)
}

func TestCheckAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	assert.True(t, checkAuth(req, ""))
	assert.False(t, checkAuth(req, "secret"))

	req.Header.Set("Authorization", "Bearer secret")
	assert.True(t, checkAuth(req, "secret"))

	req = httptest.NewRequest(http.MethodGet, "/status?token=wrong", nil)
	assert.False(t, checkAuth(req, "secret"))
}
