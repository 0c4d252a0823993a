package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

const testJWTSecret = "testsecret"

type testEnv struct {
	server *httptest.Server
	coord  *core.Coordinator
	auth   *auth.Service
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = testJWTSecret
	cfg.JWTIssuer = "test"
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	coord := core.New(st, &logger)
	authService := auth.NewService(&auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    time.Hour,
	})

	server := NewServer(coord, authService, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, coord: coord, auth: authService}
}

func (e *testEnv) wsURL(query string) string {
	u := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, id string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, ID: id, Data: payload}))
}

// frame is an outbound message with its data left raw for the caller to decode.
type frame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readUntil reads frames until match returns true and returns that frame.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	for {
		var f frame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		if match(f) {
			return f
		}
	}
}

func isEvent(name string) func(frame) bool {
	return func(f frame) bool { return f.Type == proto.OutboundTypeEvent && f.Event == name }
}

func isType(typ string) func(frame) bool {
	return func(f frame) bool { return f.Type == typ }
}

// waitJoined blocks until identity shows up in the coordinator's presence.
func waitJoined(t *testing.T, coord *core.Coordinator, identity string) string {
	t.Helper()
	var connID string
	require.Eventually(t, func() bool {
		var ok bool
		connID, ok = coord.ConnectionOf(identity)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	return connID
}
