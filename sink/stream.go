package sink

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamClientBuf  = 32
)

// Stream pushes every published reading to websocket clients as a JSON
// encoded Reading. Clients may pass ?device=<name> to receive one device only.
//
// Publishing never blocks: when the broadcast buffer is full the reading is
// dropped and counted, and a client that can't keep up is disconnected.
type Stream struct {
	upgrader   websocket.Upgrader
	broadcast  chan Reading
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}
	logger     logger.Logger
	now        func() time.Time

	clients atomic.Int64
	dropped atomic.Uint64
}

type streamClient struct {
	conn   *websocket.Conn
	device string
	send   chan Reading
}

var _ Factory = (*Stream)(nil)

// NewStream creates a stream buffering up to size readings between the host
// loop and the broadcasting goroutine started by Run.
func NewStream(size int, l logger.Logger) *Stream {
	if size <= 0 {
		size = 256
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Stream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		broadcast:  make(chan Reading, size),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
		logger:     l.With("sink", "stream"),
		now:        time.Now,
	}
}

// Sink implements Factory.
func (s *Stream) Sink(device, field string) ezo.Sink {
	return ezo.SinkFunc(func(value float64) {
		r := Reading{Device: device, Field: field, Value: value, Time: s.now()}
		select {
		case s.broadcast <- r:
		default:
			s.dropped.Add(1)
		}
	})
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int { return int(s.clients.Load()) }

// Dropped returns how many readings were dropped because the buffer was full.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Run broadcasts readings until ctx is done, then disconnects all clients.
func (s *Stream) Run(ctx context.Context) {
	clients := make(map[*streamClient]struct{})
	defer func() {
		for c := range clients {
			close(c.send)
		}
		s.clients.Store(0)
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-s.register:
			clients[c] = struct{}{}
			s.clients.Store(int64(len(clients)))
			s.logger.Debug("stream client registered", "clients", len(clients))

		case c := <-s.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				s.clients.Store(int64(len(clients)))
				s.logger.Debug("stream client unregistered", "clients", len(clients))
			}

		case r := <-s.broadcast:
			for c := range clients {
				if c.device != "" && c.device != r.Device {
					continue
				}
				select {
				case c.send <- r:
				default:
					s.logger.Warn("stream client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
					delete(clients, c)
					close(c.send)
					s.clients.Store(int64(len(clients)))
				}
			}
		}
	}
}

// Handler upgrades requests to websocket connections fed by Run.
func (s *Stream) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		c := &streamClient{
			conn:   conn,
			device: r.URL.Query().Get("device"),
			send:   make(chan Reading, streamClientBuf),
		}

		select {
		case s.register <- c:
		case <-s.done:
			_ = conn.Close()
			return
		}

		go s.writeLoop(c)
		s.readLoop(c)
	})
}

// readLoop discards client messages and keeps the read deadline alive with
// pongs. It returns when the connection fails or is closed.
func (s *Stream) readLoop(c *streamClient) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("stream client read failed", "error", err)
			}
			break
		}
	}

	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

func (s *Stream) writeLoop(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case r, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(r); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
