// Package client talks to a blackjack server over its WebSocket protocol.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/server" // Reuse message types
)

// ErrClosed is returned when sending on a closed client
var ErrClosed = errors.New("client closed")

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// Client represents a WebSocket client for the blackjack server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	events    chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	user      string
	closeOnce sync.Once
}

// New creates a client for the server at serverURL (http, https, ws or
// wss)
func New(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 64),
		events:    make(chan *server.Message, 64),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// WebSocketURL converts a server base URL into its /ws endpoint
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.connected = false

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Events delivers messages from the server. It is closed when the
// connection ends.
func (c *Client) Events() <-chan *server.Message {
	return c.events
}

// User returns the name sent with Auth
func (c *Client) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// SendMessage queues a message for the server
func (c *Client) SendMessage(msg *server.Message) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) sendType(messageType server.MessageType, data any) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Auth sets the player name used as the stats key
func (c *Client) Auth(playerName string) error {
	c.mu.Lock()
	c.user = playerName
	c.mu.Unlock()

	return c.sendType(server.MessageTypeAuth, server.AuthData{PlayerName: playerName})
}

// Deal starts a new round or resumes the current one
func (c *Client) Deal() error { return c.sendType(server.MessageTypeDeal, nil) }

// Hit asks for another card
func (c *Client) Hit() error { return c.sendType(server.MessageTypeHit, nil) }

// Stand ends the player's turn
func (c *Client) Stand() error { return c.sendType(server.MessageTypeStand, nil) }

// Reset discards the current round and deals a new one
func (c *Client) Reset() error { return c.sendType(server.MessageTypeReset, nil) }

// ResetStats clears the player's stats
func (c *Client) ResetStats() error { return c.sendType(server.MessageTypeResetStats, nil) }

// GetStats requests the player's stats
func (c *Client) GetStats() error { return c.sendType(server.MessageTypeGetStats, nil) }

// WaitFor returns the next message of one of the given types, dropping
// any others
func (c *Client) WaitFor(ctx context.Context, types ...server.MessageType) (*server.Message, error) {
	for {
		select {
		case msg, ok := <-c.events:
			if !ok {
				return nil, ErrClosed
			}
			for _, t := range types {
				if msg.Type == t {
					return msg, nil
				}
			}
			c.logger.Debug("Skipping message", "type", msg.Type)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.events)
		c.cancel()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.events <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
