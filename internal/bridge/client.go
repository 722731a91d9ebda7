package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"authflow/internal/middleware"
	"authflow/internal/session"
	"authflow/internal/types"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 10 * time.Second
	maxMessageSize = 1024

	commandBurst = 5
	commandRate  = 500 * time.Millisecond
)

// Client is one websocket connection from a UI shell.
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan []byte
	Hub         *Hub
	Limiter     *middleware.RateLimiter
	LastWarning time.Time
	once        sync.Once
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and attaches the connection to h.
func ServeWS(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("upgrade failed", "error", err)
			return
		}

		c := &Client{
			ID:      uuid.NewString(),
			Conn:    conn,
			Send:    make(chan []byte, 256),
			Hub:     h,
			Limiter: middleware.NewRatelimiter(commandBurst, commandRate),
		}

		select {
		case h.Register <- c:
		case <-h.Quit:
			conn.Close()
			return
		}

		go c.WritePump()
		go c.ReadPump()
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame so shells can decode each message directly.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Warn("unexpected close", "conn_id", c.ID, "error", err)
			}
			return
		}

		if !c.Limiter.Allow() {
			if time.Since(c.LastWarning) > 3*time.Second {
				c.LastWarning = time.Now()
				c.Hub.sendTo(c, errorMessage("rate limit exceeded", c.Hub.now()))
			}
			continue
		}

		var cmd types.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.Hub.sendTo(c, errorMessage("invalid command", c.Hub.now()))
			continue
		}
		c.handle(cmd)
	}
}

// handle runs one command. Login and register run in their own goroutine so the read loop
// keeps serving logout and state while a request is outstanding.
func (c *Client) handle(cmd types.Command) {
	h := c.Hub
	switch cmd.Type {
	case types.TypeLogin:
		h.logger.Info("login requested", "conn_id", c.ID)
		go func() { c.report(h.flow.Login(h.ctx, cmd.Email, cmd.Password)) }()

	case types.TypeRegister:
		h.logger.Info("register requested", "conn_id", c.ID)
		go func() { c.report(h.flow.Register(h.ctx, cmd.Username, cmd.Email, cmd.Password)) }()

	case types.TypeLogout:
		h.flow.Logout()

	case types.TypeState:
		h.snapshotFor(c)

	default:
		h.sendTo(c, errorMessage("unknown command "+string(cmd.Type), h.now()))
	}
}

// report only surfaces errors that no snapshot describes.
func (c *Client) report(err error) {
	if errors.Is(err, session.ErrClosed) {
		c.Hub.sendTo(c, errorMessage(err.Error(), c.Hub.now()))
	}
}
