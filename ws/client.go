package ws

import (
	"context"
	"encoding/json"
	"time"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/pkg/realtime"

	"github.com/gorilla/websocket"
)

type PumpConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

func DefaultPumpConfig() PumpConfig {
	pongWait := 60 * time.Second
	return PumpConfig{
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

// Client - одно сокет-соединение; ID генерируется на апгрейде, а не берется от пользователя
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte

	// authed - личность из токена апгрейда; presence заполняется только после user:register
	authed     auth.Identity
	manager    *WebSocketManager
	dispatcher *Dispatcher
	cfg        PumpConfig
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.manager.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WSLog("read", c.ID, c.authed.UserID, err)
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.manager.SendTo(c.ID, realtime.EventError, realtime.ErrorPayload{Message: "Invalid message format"})
			continue
		}

		// События одного соединения обрабатываются последовательно
		c.dispatcher.Dispatch(logger.WithConnID(ctx, c.ID), c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				// Менеджер закрыл очередь
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.WSLog("write", c.ID, c.authed.UserID, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
