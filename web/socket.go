// Package web provides the WebSocket transport: namespace endpoints, the
// per-socket read/write pumps, and the HTTP server around them.
package web

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 64 * 1024

	// Outbound buffer per socket. Sends never block the caller; a full
	// buffer drops the frame and reports ErrSlowConsumer.
	sendBuffer = 256
)

// ErrSlowConsumer is returned when a socket's outbound buffer is full.
var ErrSlowConsumer = errors.New("socket send buffer full")

// ErrSocketClosed is returned when sending on a closed socket.
var ErrSocketClosed = errors.New("socket closed")

// Frame is the wire format in both directions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Socket wraps one WebSocket connection with a single-writer pump, making
// Send safe from any goroutine and non-blocking by contract.
type Socket struct {
	id     string
	userID string
	conn   *websocket.Conn
	logger zerolog.Logger

	send      chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newSocket(id, userID string, conn *websocket.Conn, logger zerolog.Logger) *Socket {
	return &Socket{
		id:     id,
		userID: userID,
		conn:   conn,
		logger: logger,
		send:   make(chan Frame, sendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the transport-assigned socket identifier.
func (s *Socket) ID() string { return s.id }

// UserID returns the identity resolved at handshake time.
func (s *Socket) UserID() string { return s.userID }

// Send queues one event frame for delivery.
func (s *Socket) Send(event string, data any) error {
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}

	select {
	case s.send <- Frame{Event: event, Data: data}:
		return nil
	default:
		s.logger.Debug().
			Str("socket", s.id).
			Str("event", event).
			Msg("dropping frame for slow consumer")
		return ErrSlowConsumer
	}
}

// writeLoop is the sole writer on the underlying connection.
func (s *Socket) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// readFrame blocks for the next inbound frame. Returns an error when the
// connection is gone; malformed JSON is reported without killing the socket.
func (s *Socket) readFrame() (Frame, error) {
	var frame Frame
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return frame, err
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, errMalformedFrame
	}
	return frame, nil
}

var errMalformedFrame = errors.New("malformed frame")

func (s *Socket) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
