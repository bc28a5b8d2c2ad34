package ws

import (
	"context"
	"net/http"
	"strings"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	Manager    *WebSocketManager
	Dispatcher *Dispatcher

	tokens   *auth.TokenManager
	upgrader websocket.Upgrader
	cfg      PumpConfig
	buffer   int
	// baseCtx живет дольше запроса апгрейда, отменяется при остановке сервера
	baseCtx context.Context
}

type HandlerOptions struct {
	AllowedOrigins []string
	Pump           PumpConfig
	SendBuffer     int
}

func NewWebSocketHandler(ctx context.Context, manager *WebSocketManager, dispatcher *Dispatcher, tokens *auth.TokenManager, opts HandlerOptions) *WebSocketHandler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = manager.sendBuffer
	}
	if opts.Pump.PongWait == 0 {
		opts.Pump = DefaultPumpConfig()
	}
	return &WebSocketHandler{
		Manager:    manager,
		Dispatcher: dispatcher,
		tokens:     tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(opts.AllowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cfg:     opts.Pump,
		buffer:  opts.SendBuffer,
		baseCtx: ctx,
	}
}

// originChecker: пустой список или "*" - любой origin; запросы без Origin (не из браузера) пропускаются
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS - GET /ws?token=<jwt> или заголовок Authorization: Bearer <jwt>
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	identity, err := h.authenticate(c.Request)
	if err != nil {
		apperrors.HandleError(c, apperrors.ErrInvalidToken.WithError(err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.Warn("websocket upgrade failed", "user_id", identity.UserID, "error", err.Error())
		return
	}

	client := &Client{
		ID:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, h.buffer),
		authed:     identity,
		manager:    h.Manager,
		dispatcher: h.Dispatcher,
		cfg:        h.cfg,
	}

	if err := h.Manager.Register(client); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	ctx := logger.WithUserID(h.baseCtx, identity.UserID)
	go client.writePump()
	go client.readPump(ctx)
}

func (h *WebSocketHandler) authenticate(r *http.Request) (auth.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	claims, err := h.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, err
	}
	return claims.Identity(), nil
}
