package session

import (
	"time"

	"github.com/gorilla/websocket"
)

// Liveness and write timings shared by both session kinds.
const (
	pingPeriod  = 30 * time.Second
	pongTimeout = 10 * time.Second
	writeWait   = 10 * time.Second
)

// wsConn is the slice of *websocket.Conn the sessions use. Tests substitute
// an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type frameKind int

const (
	frameText frameKind = iota
	framePong
	frameClosed
)

// frame is one event surfaced by the reader pump: a text payload, a pong, or
// the terminal close with the error that ended the read loop.
type frame struct {
	kind frameKind
	data []byte
	err  error
}

// readFrames starts the reader pump for conn. The returned channel carries
// text frames and pongs, then exactly one frameClosed, then closes. The pump
// goroutine exits once the socket errors or closes; callers that stop
// selecting on the channel must close the socket and drain the channel so the
// pump can finish.
func readFrames(conn wsConn) <-chan frame {
	frames := make(chan frame, 16)

	conn.SetPongHandler(func(string) error {
		// Runs on the pump goroutine, inside ReadMessage.
		frames <- frame{kind: framePong}
		return nil
	})

	go func() {
		defer close(frames)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				frames <- frame{kind: frameClosed, err: err}
				return
			}
			if msgType != websocket.TextMessage {
				// Binary and other data frames carry no relay semantics.
				continue
			}
			frames <- frame{kind: frameText, data: data}
		}
	}()

	return frames
}

// isExpectedClose reports whether err is a normal peer-initiated close.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
