package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LHYWilliam/roomchat/internal/core"
	"github.com/LHYWilliam/roomchat/internal/proto"
)

// WSHandler is the chat gateway: it upgrades the connection for an already
// authenticated principal, attaches a session to the registry, and runs the
// session's read/write loop pair until either side terminates. Cleanup runs
// exactly once, after both loops have returned.
type WSHandler struct {
	reg             *core.Registry
	router          *core.Router
	maxMessageBytes int64
	log             *zerolog.Logger
}

// NewWSHandler builds a new WebSocket gateway handler.
func NewWSHandler(reg *core.Registry, router *core.Router, maxMessageBytes int64, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		reg:             reg,
		router:          router,
		maxMessageBytes: maxMessageBytes,
		log:             logger,
	}
}

// Handle serves GET /chat. The principal must already be resolved by the
// auth middleware; unknown or already-connected users are refused before
// the upgrade, with no membership side effects.
func (h *WSHandler) Handle(c *gin.Context) {
	username := c.GetString(ContextKeyUsername)
	if username == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	inbox, err := h.reg.Attach(username)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUserNotFound):
			h.log.Warn().Str("user", username).Msg("ws connect for unregistered chat user")
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not registered for chat"})
		case errors.Is(err, core.ErrAlreadyConnected):
			h.log.Warn().Str("user", username).Msg("ws connect for already connected user")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already connected"})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.reg.Detach(username)
		h.log.Error().Err(err).Str("user", username).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(h.maxMessageBytes)

	connID := uuid.NewString()
	h.log.Info().Str("user", username).Str("conn_id", connID).Msg("user connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, username, connID)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, inbox)
	}()

	err = <-errCh
	cancel() // stop the other loop
	<-errCh

	// Both loops are done; run registry cleanup once.
	h.router.Disconnect(username)
	h.log.Info().Str("user", username).Str("conn_id", connID).Msg("user disconnected")

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
			reason = "internal error"
			h.log.Warn().Err(err).Str("user", username).Str("conn_id", connID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop decodes directives and hands them to the router. Malformed or
// rejected directives are dropped without any response frame; only
// transport errors end the loop.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, username, connID string) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var directive proto.Directive
		if err := json.Unmarshal(data, &directive); err != nil {
			h.log.Warn().Err(err).Str("user", username).Str("conn_id", connID).Msg("malformed directive dropped")
			continue
		}

		switch {
		case directive.Join != nil:
			err = h.router.HandleJoin(username, *directive.Join)
		case directive.Leave != nil:
			err = h.router.HandleLeave(username, *directive.Leave)
		case directive.Content != nil:
			// The claimed from field is ignored; the router stamps the
			// authenticated sender.
			err = h.router.HandleContent(username, directive.Content.Room.Name, directive.Content.Message)
		}
		if err != nil {
			h.log.Warn().Err(err).Str("user", username).Str("conn_id", connID).Msg("directive dropped")
		}
	}
}

// writeLoop drains the session's delivery queue onto the wire. A closed
// queue means the user was deleted; the loop ends and drains the session.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, inbox <-chan *core.ChannelMessage) error {
	for {
		select {
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, deliveryFromMessage(msg)); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func deliveryFromMessage(msg *core.ChannelMessage) proto.Delivery {
	return proto.Delivery{
		Room:    proto.RoomRef{Name: msg.Room},
		From:    msg.From,
		Message: msg.Message,
	}
}
