package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("use of closed connection")

type readResult struct {
	msgType int
	data    []byte
	err     error
}

// fakeConn is an in-memory wsConn. Tests feed inbound frames through
// sendText/closePeer/failRead and observe outbound writes on writeCh and
// pings on pingCh.
type fakeConn struct {
	mu          sync.Mutex
	pongHandler func(string) error
	writeErr    error

	readCh  chan readResult
	writeCh chan []byte
	pingCh  chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readCh:  make(chan readResult, 16),
		writeCh: make(chan []byte, 64),
		pingCh:  make(chan struct{}, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-f.readCh:
		return r.msgType, r.data, r.err
	case <-f.closed:
		return 0, nil, errConnClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if messageType == websocket.TextMessage {
		f.writeCh <- data
	}
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if messageType == websocket.PingMessage {
		select {
		case f.pingCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeConn) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	f.pongHandler = h
	f.mu.Unlock()
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// sendText feeds one inbound text frame to the session's reader pump.
func (f *fakeConn) sendText(data []byte) {
	f.readCh <- readResult{msgType: websocket.TextMessage, data: data}
}

// closePeer emulates a clean close handshake from the peer.
func (f *fakeConn) closePeer() {
	f.readCh <- readResult{err: &websocket.CloseError{Code: websocket.CloseNormalClosure}}
}

// pong emulates a pong arriving on the wire.
func (f *fakeConn) pong() {
	f.mu.Lock()
	h := f.pongHandler
	f.mu.Unlock()
	if h != nil {
		h("")
	}
}

func (f *fakeConn) setWriteErr(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}
