package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/adapters/metrics"
	"github.com/artpar/socketgate/app"
	"github.com/artpar/socketgate/config"
	"github.com/artpar/socketgate/domain/bridge"
	"github.com/artpar/socketgate/ports"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   4096,
	WriteBufferSize:  4096,
	// Socket auth happens upstream; the gateway accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Namespace serves one isolated realtime channel: it upgrades connections,
// runs the read pump, and routes admitted events to presence handling or
// room fan-out.
type Namespace struct {
	name     string
	bridge   *app.Bridge
	presence *app.Presence
	idgen    ports.IDGenerator
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

// NewNamespace wires the handlers for one namespace. metrics may be nil.
func NewNamespace(name string, b *app.Bridge, p *app.Presence, idgen ports.IDGenerator, collector *metrics.Collector, logger zerolog.Logger) *Namespace {
	return &Namespace{
		name:     name,
		bridge:   b,
		presence: p,
		idgen:    idgen,
		metrics:  collector,
		logger:   logger.With().Str("namespace", name).Logger(),
	}
}

// Name returns the namespace identifier.
func (n *Namespace) Name() string { return n.name }

// Bridge exposes the namespace's admission bridge for flag subscriptions.
func (n *Namespace) Bridge() *app.Bridge { return n.bridge }

// Presence exposes the namespace's presence controller.
func (n *Namespace) Presence() *app.Presence { return n.presence }

// ServeHTTP upgrades the request and runs the socket until it disconnects.
func (n *Namespace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	socketID := n.idgen.New()
	auth, query := handshakePayloads(r.URL.Query())
	userID := bridge.UserID(auth, query, socketID)

	socket := newSocket(socketID, userID, conn, n.logger)
	go socket.writeLoop()

	if n.metrics != nil {
		n.metrics.ConnectionsActive.WithLabelValues(n.name).Inc()
	}
	n.logger.Debug().
		Str("socket", socketID).
		Str("user", userID).
		Msg("socket connected")

	n.presence.Connect(socket, bridge.ExtractRoomIDs(auth, query))

	n.readLoop(socket)

	n.presence.Disconnect(socketID)
	socket.close()
	if n.metrics != nil {
		n.metrics.ConnectionsActive.WithLabelValues(n.name).Dec()
	}
	n.logger.Debug().
		Str("socket", socketID).
		Str("user", userID).
		Msg("socket disconnected")
}

func (n *Namespace) readLoop(socket *Socket) {
	socket.conn.SetReadLimit(maxFrameSize)
	_ = socket.conn.SetReadDeadline(time.Now().Add(pongWait))
	socket.conn.SetPongHandler(func(string) error {
		return socket.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		frame, err := socket.readFrame()
		if errors.Is(err, errMalformedFrame) {
			_ = socket.Send("error", map[string]any{"code": "malformed_frame"})
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				n.logger.Debug().Err(err).Str("socket", socket.ID()).Msg("read error")
			}
			return
		}
		n.handleFrame(socket, frame)
	}
}

func (n *Namespace) handleFrame(socket *Socket, frame Frame) {
	if n.metrics != nil {
		n.metrics.EventsReceived.WithLabelValues(n.name).Inc()
	}

	if rejection := n.bridge.Admit(socket.UserID(), frame.Event, frame.Data); rejection != nil {
		_ = socket.Send("error", rejection)
		return
	}

	switch frame.Event {
	case "join":
		n.presence.Join(socket.ID(), bridge.ExtractRoomIDs(frame.Data))
	case "leave":
		n.presence.Leave(socket.ID(), bridge.ExtractRoomIDs(frame.Data))
	default:
		// Room-targeted events fan out to the rooms' other members; events
		// without rooms have no downstream handler here and are dropped.
		if rooms := bridge.ExtractRoomIDs(frame.Data); len(rooms) > 0 {
			n.presence.Publish(socket.ID(), frame.Event, rooms, frame.Data)
		}
	}
}

// handshakePayloads splits the connect request into the auth payload (a JSON
// object in the "auth" query parameter, mirroring a socket handshake's auth
// blob) and the plain query parameters.
func handshakePayloads(values url.Values) (auth, query map[string]any) {
	if raw := values.Get("auth"); raw != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			auth = parsed
		}
	}

	query = make(map[string]any, len(values))
	for key := range values {
		if key == "auth" {
			continue
		}
		value := values.Get(key)
		if key == "rooms" {
			if list := config.ParseList(value); list != nil {
				query[key] = list
				continue
			}
		}
		query[key] = value
	}
	return auth, query
}
