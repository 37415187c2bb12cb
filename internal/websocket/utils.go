package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = PongWait * 9 / 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WritePing sends a ping control frame.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait))
}

// KeepAlive extends the read deadline whenever the peer answers a ping.
func KeepAlive(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}

// ReadJSON reads and decodes a message into the provided structure and
// extends the read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	err := conn.ReadJSON(v)
	if err == nil {
		conn.SetReadDeadline(time.Now().Add(PongWait))
	}
	return err
}
