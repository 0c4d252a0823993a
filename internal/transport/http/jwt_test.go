package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func makeJWT(secret, iss, name string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": name,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if iss != "" {
		claims["iss"] = iss
	}
	if name != "" {
		claims["username"] = name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func TestWebSocketJWTHelloJoins(t *testing.T) {
	env := startTestServer(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := makeJWT(testJWTSecret, "test", "alice", time.Minute)
	require.NoError(t, err)

	conn := dial(t, ctx, env.wsURL(""))
	send(t, ctx, conn, proto.InboundTypeHello, "h1", proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
	waitJoined(t, env.coord, "alice")

	send(t, ctx, conn, proto.InboundTypeSendMessage, "m1", proto.SendMessageData{Message: "hi"})
	readUntil(t, ctx, conn, isType(proto.OutboundTypeAck))

	msgs, err := env.coord.ListMessages(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].Sender)
}

func TestWebSocketJWTBearerHeader(t *testing.T) {
	env := startTestServer(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := makeJWT(testJWTSecret, "test", "bob", time.Minute)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.Dial(ctx, env.wsURL(""), &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	waitJoined(t, env.coord, "bob")
}

func TestWebSocketJWTInvalid(t *testing.T) {
	env := startTestServer(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrongSecret, err := makeJWT("other", "test", "mallory", time.Minute)
	require.NoError(t, err)
	expired, err := makeJWT(testJWTSecret, "test", "mallory", -time.Minute)
	require.NoError(t, err)

	// A bad handshake token leaves the connection open and anonymous.
	conn := dial(t, ctx, env.wsURL("token="+wrongSecret))

	for i, token := range []string{"invalid", expired} {
		id := strings.Repeat("x", i+1)
		send(t, ctx, conn, proto.InboundTypeHello, id, proto.HelloData{Token: token})
		f := readUntil(t, ctx, conn, isType(proto.OutboundTypeError))
		assert.Equal(t, id, f.ID)
		require.NotNil(t, f.Error)
		assert.Equal(t, core.ErrCodeUnauthorized, f.Error.Code)
	}

	_, ok := env.coord.ConnectionOf("mallory")
	assert.False(t, ok)

	send(t, ctx, conn, proto.InboundTypeSendMessage, "m1", proto.SendMessageData{Message: "who am i"})
	readUntil(t, ctx, conn, isType(proto.OutboundTypeAck))
	msgs, err := env.coord.ListMessages(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, core.AnonymousSender, msgs[0].Sender)
}
