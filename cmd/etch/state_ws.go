package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"etch"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// Viewers connect here to follow the stylus. The daemon emits StateBroadcasts;
// the broadcaster turns them into JSON frames and the hub fans them out.
//
// Messages are JSON text frames with an envelope: {type, ts, data}.
//   - "state_init"   on connect: current position and canvas size
//   - "stroke"       a polyline of consecutive stylus moves
//   - "stylus_reset" the stylus jumped back to the centre
//
// Slow clients are disconnected when their send buffer fills.
//
// ============================================================================

// wsPoint is one vertex of a stroke.
type wsPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func toWSPoint(p etch.StylusPosition) wsPoint {
	return wsPoint{X: p.X, Y: p.Y}
}

// wsStateInitData is the JSON `data` payload for "state_init".
type wsStateInitData struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// wsStrokeData is the JSON `data` payload for "stroke".
type wsStrokeData struct {
	Points []wsPoint `json:"points"`
}

// wsStylusResetData is the JSON `data` payload for "stylus_reset".
type wsStylusResetData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

const (
	wsTypeStateInit   = "state_init"
	wsTypeStroke      = "stroke"
	wsTypeStylusReset = "stylus_reset"
)

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size. Zero means 32.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size. Zero means 128.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				if !c.trySend(msg) {
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit.
		c.closeSend()

		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	// mu guards closed so a late send never hits a closed channel.
	mu     sync.Mutex
	closed bool

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues msg without blocking. It reports false if the queue is full
// or the client has already been disconnected.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsStrokeCoalesceWindow is how long consecutive stylus moves are collected
// into one stroke before it is sent.
const wsStrokeCoalesceWindow = 50 * time.Millisecond

// closeStatus extracts a websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("write error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("ping error", err)
				return
			}
		}
	}
}

// readPump discards incoming messages to detect disconnects and handle
// control frames. It exits on read error, then unregisters the client.
func (c *Client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("read error", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

func (c *Client) logExit(what string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws pump exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws pump exiting", "remote_addr", c.remoteAddr, "cause", what, "error", err)
}

// ============================================================================
// HTTP Handler
// ============================================================================

type Server struct {
	logger *slog.Logger

	hub *Hub

	// Snapshot requests for state_init go through the daemon loop.
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer constructs the WS state server components. Call Register on a mux,
// start Hub().Run(ctx), and start RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades and registers a client, then sends state_init.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// The pumps must outlive the request context, which net/http cancels
	// when this handler returns. The hub and socket errors end them instead.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	if s.events == nil {
		return
	}

	reply := make(chan StateSnapshot, 1)
	select {
	case <-r.Context().Done():
		return
	case s.events <- RequestStateSnapshot{Reply: reply}:
	}

	waitCtx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	select {
	case <-waitCtx.Done():
		if !errors.Is(waitCtx.Err(), context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", waitCtx.Err())
		}

	case snap := <-reply:
		msg, err := marshalEnvelope(wsTypeStateInit, time.Now(), wsStateInitData{
			X:      snap.Position.X,
			Y:      snap.Position.Y,
			Width:  snap.Width,
			Height: snap.Height,
		})
		if err != nil {
			s.logger.Warn("ws state_init marshal failed", "error", err)
			return
		}
		// A client that disconnected while we waited is skipped; a slow one
		// is dropped.
		if !client.trySend(msg) {
			s.hub.unregister <- client
		}
	}
}

func marshalEnvelope(typ string, at time.Time, data any) ([]byte, error) {
	ts := at.UTC()
	return json.Marshal(envelope{Type: typ, Ts: &ts, Data: data})
}

// ============================================================================
// Broadcaster
// ============================================================================

// strokeBuilder joins consecutive segments into one polyline.
type strokeBuilder struct {
	points []wsPoint
	at     time.Time
}

// add appends seg and reports whether it continued the current stroke. A
// segment that does not start where the stroke ends is not added.
func (b *strokeBuilder) add(seg BroadcastSegment) bool {
	from, to := toWSPoint(seg.From), toWSPoint(seg.To)
	if len(b.points) == 0 {
		b.points = append(b.points, from, to)
		b.at = seg.At
		return true
	}
	if b.points[len(b.points)-1] != from {
		return false
	}
	b.points = append(b.points, to)
	return true
}

func (b *strokeBuilder) empty() bool { return len(b.points) == 0 }

// take returns the pending stroke and starts a new one.
func (b *strokeBuilder) take() (wsStrokeData, time.Time) {
	d := wsStrokeData{Points: b.points}
	at := b.at
	b.points = nil
	b.at = time.Time{}
	return d, at
}

// RunBroadcaster reads daemon broadcasts, marshals them, and broadcasts them
// to all hub clients. Intended to run as a single goroutine.
//
// Segments are coalesced into strokes flushed at most once per
// wsStrokeCoalesceWindow even while moves keep arriving.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	var pending strokeBuilder
	var timer *time.Timer
	var timerC <-chan time.Time

	emit := func(typ string, at time.Time, data any) {
		if at.IsZero() {
			at = time.Now()
		}
		msg, err := marshalEnvelope(typ, at, data)
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", typ)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flush := func() {
		if pending.empty() {
			return
		}
		d, at := pending.take()
		emit(wsTypeStroke, at, d)
	}

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		timerC = nil
	}

	startTimerIfNeeded := func() {
		if timer != nil {
			return
		}
		timer = time.NewTimer(wsStrokeCoalesceWindow)
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			stopTimer()
			return

		case <-timerC:
			flush()
			timer = nil
			timerC = nil

		case b, ok := <-src:
			if !ok {
				flush()
				stopTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			switch ev := b.(type) {
			case BroadcastSegment:
				if !pending.add(ev) {
					// Discontinuous move: close the current stroke first.
					flush()
					pending.add(ev)
				}
				startTimerIfNeeded()

			case BroadcastStylusReset:
				flush()
				stopTimer()
				emit(wsTypeStylusReset, ev.At, wsStylusResetData{X: ev.Position.X, Y: ev.Position.Y})

			default:
				logger.Debug("ws broadcaster dropping unknown broadcast")
			}
		}
	}
}
