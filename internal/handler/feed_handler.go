package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/metrics"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/response"
	ws "github.com/stemsi/perizinan-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// RequestFeed is the live request list.
type RequestFeed interface {
	Watch(ctx context.Context, actor model.Role, handler func([]model.Perizinan, error)) (func(), error)
}

// FeedHandler streams the request list to dashboards over WebSocket.
type FeedHandler struct {
	feed     RequestFeed
	log      zerolog.Logger
	upgrader websocket.Upgrader

	// base outlives single requests; Close cancels it to end every stream.
	base context.Context
	stop context.CancelFunc
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feed RequestFeed, log zerolog.Logger, allowedOrigins []string) *FeedHandler {
	base, stop := context.WithCancel(context.Background())
	return &FeedHandler{
		feed:     feed,
		log:      log.With().Str("component", "feed_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		base:     base,
		stop:     stop,
	}
}

// Close ends all open streams with a normal close frame. Hijacked
// connections are not closed by http.Server.Shutdown.
func (h *FeedHandler) Close() {
	h.stop()
}

// outbox holds what the writer goroutine still has to send. Snapshots
// coalesce: only the latest one is kept.
type outbox struct {
	mu       sync.Mutex
	snapshot interface{}
	pongs    int
	wake     chan struct{}
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1)}
}

func (o *outbox) setSnapshot(v interface{}) {
	o.mu.Lock()
	o.snapshot = v
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) addPong() {
	o.mu.Lock()
	o.pongs++
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) take() (snapshot interface{}, pongs int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot, pongs = o.snapshot, o.pongs
	o.snapshot, o.pongs = nil, 0
	return snapshot, pongs
}

// Stream godoc
// WS /ws/v1/perizinan/stream?token=...
// Sends {event:"snapshot"} with the full enriched request list on connect and
// after every change, {event:"disconnected"} while the record store is
// unreachable, and {event:"pong"} for every {action:"ping"}.
func (h *FeedHandler) Stream(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrNotSignedIn)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("identity_id", actor.ID).
		Str("role", string(actor.Role)).
		Logger()

	ctx, cancel := context.WithCancel(h.base)
	defer cancel()

	out := newOutbox()
	unsubscribe, err := h.feed.Watch(ctx, actor.Role, func(requests []model.Perizinan, err error) {
		if err != nil {
			out.setSnapshot(ws.DisconnectedResponse{Event: ws.EventDisconnected})
			return
		}
		out.setSnapshot(ws.SnapshotResponse{Event: ws.EventSnapshot, Requests: requests})
	})
	if err != nil {
		wsLog.Warn().Err(err).Msg("Feed subscription refused")
		_ = ws.WriteError(conn, "feed unavailable")
		return
	}
	defer unsubscribe()

	metrics.FeedSubscribers.Inc()
	defer metrics.FeedSubscribers.Dec()
	wsLog.Info().Msg("Feed subscriber connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, out, wsLog)
	}()

	h.readLoop(conn, out, wsLog)
	cancel()
	<-done
	wsLog.Info().Msg("Feed subscriber disconnected")
}

// readLoop handles client messages until the connection fails.
func (h *FeedHandler) readLoop(conn *websocket.Conn, out *outbox, wsLog zerolog.Logger) {
	ws.KeepAlive(conn)
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			out.addPong()
		default:
			wsLog.Debug().Str("action", string(msg.Action)).Msg("Unknown action")
		}
	}
}

// writeLoop is the only writer of conn.
func (h *FeedHandler) writeLoop(ctx context.Context, conn *websocket.Conn, out *outbox, wsLog zerolog.Logger) {
	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(ws.WriteWait))
			return
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				conn.Close()
				return
			}
		case <-out.wake:
			snapshot, pongs := out.take()
			for i := 0; i < pongs; i++ {
				if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
					conn.Close()
					return
				}
			}
			if snapshot == nil {
				continue
			}
			if err := ws.WriteTyped(conn, snapshot); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					wsLog.Debug().Err(err).Msg("Write failed")
				}
				conn.Close()
				return
			}
		}
	}
}
