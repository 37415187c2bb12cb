package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
)

type stubFeed struct {
	mu      sync.Mutex
	handler func([]model.Perizinan, error)
	ready   chan struct{}
	stopped chan struct{}
}

func newStubFeed() *stubFeed {
	return &stubFeed{ready: make(chan struct{}), stopped: make(chan struct{})}
}

func (f *stubFeed) Watch(_ context.Context, _ model.Role, handler func([]model.Perizinan, error)) (func(), error) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	close(f.ready)
	return func() { close(f.stopped) }, nil
}

func (f *stubFeed) emit(requests []model.Perizinan, err error) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(requests, err)
}

func dialFeed(t *testing.T, feed RequestFeed) (*websocket.Conn, *FeedHandler) {
	t.Helper()
	h := NewFeedHandler(feed, zerolog.Nop(), nil)
	r := gin.New()
	r.GET("/stream", asRole(model.RoleApprover), h.Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, h
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestFeedStreamsSnapshotsAndPongs(t *testing.T) {
	feed := newStubFeed()
	conn, _ := dialFeed(t, feed)
	<-feed.ready

	feed.emit([]model.Perizinan{{ID: "a", Status: model.StatusPending}}, nil)
	msg := readEvent(t, conn)
	if msg["event"] != "snapshot" || len(msg["requests"].([]interface{})) != 1 {
		t.Fatalf("first event = %v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"action": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readEvent(t, conn); msg["event"] != "pong" {
		t.Fatalf("ping answered with %v", msg)
	}

	feed.emit(nil, errors.New("store offline"))
	if msg := readEvent(t, conn); msg["event"] != "disconnected" {
		t.Fatalf("store failure delivered as %v", msg)
	}
}

func TestFeedCloseEndsStream(t *testing.T) {
	feed := newStubFeed()
	conn, h := dialFeed(t, feed)
	<-feed.ready

	h.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	select {
	case <-feed.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription not released after close")
	}
}
