package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	coord *core.Coordinator
	auth  *auth.Service
	cfg   *config.Config
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(coord *core.Coordinator, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{coord: coord, auth: authService, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.cfg.AllowedOrigins,
		InsecureSkipVerify: len(h.cfg.AllowedOrigins) == 0,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	// A token on the upgrade request authenticates the connection up front.
	identity := h.identityFromToken(handshakeToken(r))

	client := core.NewClient(utils.NewID(), identity)
	h.coord.Connect(client)
	defer h.coord.Disconnect(context.WithoutCancel(ctx), client)

	h.log.Info().Str("conn_id", client.ID).Str("identity", identity).Msg("ws connected")

	if identity != "" {
		if err := h.coord.Join(ctx, client, identity); err != nil {
			h.coord.ReportError(client, "", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.cfg.MessageRatePerMinute)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("read ws inbound")
			return err
		}

		if inbound.Type == proto.InboundTypeHello {
			h.handleHello(ctx, client, inbound)
			continue
		}

		cmd, cmdErr := inboundToCommand(inbound)
		if cmdErr != nil {
			h.coord.ReportError(client, inbound.ID, cmdErr)
			continue
		}
		if cmd.Kind == core.CommandSendMessage && !limiter.allow() {
			h.coord.ReportError(client, inbound.ID, core.NewError(core.ErrCodeRateLimited, "too many messages"))
			continue
		}

		h.coord.Dispatch(ctx, client, cmd)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleHello checks the protocol version and, when a token is present,
// joins the connection under the token's username.
func (h *WSHandler) handleHello(ctx context.Context, client *core.Client, inbound proto.Inbound) {
	var hello proto.HelloData
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			h.coord.ReportError(client, inbound.ID, invalidPayload())
			return
		}
	}

	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		h.coord.ReportError(client, inbound.ID, core.NewError(core.ErrCodeUnsupportedVersion, "unsupported protocol version"))
		return
	}
	if hello.Token == "" {
		return
	}

	claims, err := h.auth.ValidateToken(hello.Token)
	if err != nil {
		h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("invalid hello token")
		h.coord.ReportError(client, inbound.ID, core.NewError(core.ErrCodeUnauthorized, "invalid token"))
		return
	}

	client.Hint = claims.Username
	if err := h.coord.Join(ctx, client, claims.Username); err != nil {
		h.coord.ReportError(client, inbound.ID, err)
	}
}

func (h *WSHandler) identityFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		h.log.Info().Err(err).Msg("invalid token on ws handshake, continuing unauthenticated")
		return ""
	}
	return claims.Username
}

func handshakeToken(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return bearerToken(r.Header.Get("Authorization"))
}
