package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	// pingInterval is the interval at which to send pings.
	pingInterval = 15 * time.Second
	// pongWait is the duration to wait for a pong response to a ping.
	pongWait = time.Minute
	// closeWait is the duration to wait for a close response.
	closeWait = 5 * time.Second
	// maxInboundSize bounds what a peer may send us; push streams expect nothing but control frames.
	maxInboundSize = 4 * 1024
)

// Stream is a server-to-client push channel of JSON messages over a websocket. Only the newest
// unsent message is kept: a slow peer skips intermediate messages instead of falling behind.
// Peers are not expected to send data frames; anything they send is read and discarded so
// control frames (pings, pongs, closes) keep flowing.
type Stream[T any] struct {
	// System dependencies.
	log  *logrus.Entry
	conn *websocket.Conn

	// Internal state.
	pendingMu sync.Mutex
	pending   *T
	wake      chan struct{}
	cancel    context.CancelFunc
	errLock   sync.Mutex
	err       error
	closeOnce sync.Once
	closeErr  error
	// Done is closed when the stream is finished. Even if it has exited, call Close.
	Done <-chan struct{}
}

// NewStream wraps the given, underlying *websocket.Conn in a push Stream.
func NewStream[T any](name string, conn *websocket.Conn) *Stream[T] {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	s := &Stream[T]{
		log: logrus.WithFields(logrus.Fields{
			"component":   "push-stream",
			"remote-addr": conn.RemoteAddr(),
			"name":        name,
		}),
		conn: conn,

		wake:   make(chan struct{}, 1),
		cancel: cancel,
		Done:   done,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.runWriteLoop(ctx); err != nil {
			s.setError(fmt.Errorf("write loop: %w", err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.runDrainLoop(ctx); err != nil {
			s.setError(fmt.Errorf("drain loop: %w", err))
		}
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	return s
}

// Send makes msg the next message to write, replacing any message not yet written. It never
// blocks and reports false once the stream has finished.
func (s *Stream[T]) Send(msg T) bool {
	select {
	case <-s.Done:
		return false
	default:
	}

	s.pendingMu.Lock()
	s.pending = &msg
	s.pendingMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Stream[T]) takePending() *T {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	msg := s.pending
	s.pending = nil
	return msg
}

// Error returns an error if the stream has encountered one. Errors from closing are excluded.
func (s *Stream[T]) Error() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}

// Close closes the stream by performing the close handshake and closing the underlying
// connection, rendering it unusable.
func (s *Stream[T]) Close() error {
	s.closeOnce.Do(func() {
		initialErr := s.Error()

		var err *multierror.Error
		if hErr := s.closeGraceful(); hErr != nil {
			err = multierror.Append(err, fmt.Errorf("gracefully closing: %w", hErr))
			if fErr := s.closeForced(); fErr != nil {
				err = multierror.Append(err, fmt.Errorf("forcibly closing: %w", fErr))
			}
		}
		s.log.Trace("stream closed")

		if endingErr := s.Error(); initialErr == nil && endingErr != nil {
			err = multierror.Append(err, endingErr)
		}

		s.closeErr = err.ErrorOrNil()
	})
	return s.closeErr
}

func (s *Stream[T]) runDrainLoop(ctx context.Context) error {
	defer s.cancel()

	s.conn.SetReadLimit(maxInboundSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return fmt.Errorf("setting initial read deadline: %w", err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			s.log.WithError(err).Error("setting read deadline")
		}
		return nil
	})

	for {
		_, _, err := s.conn.ReadMessage()
		switch {
		case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			return nil
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("reading message: %w", err)
		}
	}
}

func (s *Stream[T]) runWriteLoop(ctx context.Context) error {
	defer s.cancel()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-s.wake:
			msg := s.takePending()
			if msg == nil {
				continue
			}
			var buf bytes.Buffer
			if err := json.NewEncoder(&buf).Encode(*msg); err != nil {
				return fmt.Errorf("encoding outbound message: %w", err)
			}
			err := s.conn.WriteMessage(websocket.TextMessage, buf.Bytes())
			switch {
			case err == websocket.ErrCloseSent:
				return nil
			case err != nil:
				return fmt.Errorf("writing message: %w", err)
			}
		case <-ping.C:
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pongWait))
			netErr, ok := err.(net.Error)
			switch {
			case ok && netErr.Timeout():
				continue
			case err == websocket.ErrCloseSent:
				return nil
			case err != nil:
				return fmt.Errorf("sending ping: %w", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Stream[T]) closeGraceful() error {
	s.cancel()

	closeDeadline := time.Now().Add(closeWait)
	s.conn.SetPongHandler(nil)
	if err := s.conn.SetReadDeadline(closeDeadline); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}

	// Sending the close begins the handshake; the drain loop reads until the peer answers with
	// its own close or the deadline passes.
	if err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "close called"),
		closeDeadline,
	); err != websocket.ErrCloseSent && err != nil {
		return fmt.Errorf("sending close: %w", err)
	}

	<-s.Done
	if clErr := s.conn.Close(); clErr != nil {
		return fmt.Errorf("closing underlying conn: %w", clErr)
	}
	return nil
}

func (s *Stream[T]) closeForced() error {
	s.cancel()
	err := s.conn.Close()
	<-s.Done
	if err != nil {
		return fmt.Errorf("closing underlying conn: %w", err)
	}
	return nil
}

func (s *Stream[T]) setError(err error) {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	s.err = multierror.Append(s.err, err)
}
