package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/session"
)

// Connection represents a WebSocket connection to a client. Each
// connection plays in its own session.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	session   *session.Session
	game      *GameService
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, sess *session.Session, gameService *GameService, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		session: sess,
		game:    gameService,
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed when the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Session returns the connection's session
func (c *Connection) Session() *session.Session {
	return c.session
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
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

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "session", c.session.ID)

	c.session.Lock()
	defer c.session.Unlock()

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := msg.Decode(&data); err != nil {
			c.sendError(ErrorCodeInvalidMessage, "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeDeal:
		c.reply(MessageTypeRoundState, c.game.StartOrResumeRound(c.ctx, c.session))

	case MessageTypeHit:
		view, outcome, err := c.game.Hit(c.ctx, c.session)
		if err != nil {
			c.sendActionError(err)
			return
		}
		if outcome != nil {
			c.reply(MessageTypeRoundResult, outcome)
			return
		}
		c.reply(MessageTypeRoundState, view)

	case MessageTypeStand:
		outcome, err := c.game.Stand(c.ctx, c.session)
		if err != nil {
			c.sendActionError(err)
			return
		}
		c.reply(MessageTypeRoundResult, outcome)

	case MessageTypeReset:
		c.game.ResetRound(c.session)
		c.reply(MessageTypeRoundState, c.game.StartOrResumeRound(c.ctx, c.session))

	case MessageTypeResetStats:
		if err := c.game.ResetStats(c.ctx, c.session); err != nil {
			c.sendError(ErrorCodeStatsFailed, err.Error())
			return
		}
		c.reply(MessageTypeStats, c.game.SessionStats(c.ctx, c.session))

	case MessageTypeGetStats:
		c.reply(MessageTypeStats, c.game.SessionStats(c.ctx, c.session))

	default:
		c.sendError(ErrorCodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleAuth(data AuthData) {
	name := strings.TrimSpace(data.PlayerName)
	c.logger.Info("Auth request", "playerName", name, "session", c.session.ID)

	if name == "" {
		c.sendError(ErrorCodeInvalidAuth, "Player name required")
		return
	}

	c.session.User = name
	c.reply(MessageTypeAuthResponse, AuthResponseData{
		Success:   true,
		User:      name,
		SessionID: c.session.ID,
	})
}

func (c *Connection) reply(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendActionError(err error) {
	if errors.Is(err, ErrNoRound) {
		c.sendError(ErrorCodeNoRound, "No round in progress, deal first")
		return
	}
	c.sendError(ErrorCodeInvalidAction, err.Error())
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	c.reply(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
}
