package server

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tablewire/holdem/internal/protocol"
)

// Conn is one framed client transport: blocking line reads on one side,
// line writes on the other. Implemented for raw TCP and for websocket,
// both carrying the identical one-line-per-message protocol.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// tcpConn frames a TCP stream into newline-terminated lines with a hard
// length bound; an oversize line is a transport error and drops the
// connection.
type tcpConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// NewTCPConn wraps a TCP connection with bounded line framing.
func NewTCPConn(conn net.Conn, maxLineBytes int) Conn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxLineBytes)
	return &tcpConn{conn: conn, scanner: scanner}
}

func (c *tcpConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("connection closed")
	}
	return c.scanner.Text(), nil
}

func (c *tcpConn) WriteLine(line string) error {
	_, err := c.conn.Write([]byte(line))
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// wsConn carries the line protocol over websocket text frames, one line
// per frame.
type wsConn struct {
	conn *websocket.Conn
}

// NewWSConn wraps a websocket connection. The read limit bounds inbound
// frames the same way maxLineBytes bounds TCP lines.
func NewWSConn(conn *websocket.Conn, maxLineBytes int) Conn {
	conn.SetReadLimit(int64(maxLineBytes))
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	}
}

func (c *wsConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(strings.TrimSuffix(line, "\n")))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

const sessionSendBuffer = 64

// Session owns one live connection. The reader goroutine decodes lines
// into client messages and posts them to the orchestrator's event
// channel; the writer goroutine drains the outbound queue, so delivery
// per connection is strictly ordered and never interleaved.
type Session struct {
	id     int
	seatID int // -1 until a JOIN is processed
	conn   Conn
	out    chan string
	done   chan struct{}
	logger *log.Logger

	closeOnce sync.Once
}

// NewSession wraps a connection. The session does nothing until Start.
func NewSession(id int, conn Conn, logger *log.Logger) *Session {
	return &Session{
		id:     id,
		seatID: -1,
		conn:   conn,
		out:    make(chan string, sessionSendBuffer),
		done:   make(chan struct{}),
		logger: logger.WithPrefix("session").With("session", id, "remote", conn.RemoteAddr()),
	}
}

// Start launches the read and write pumps. Decoded messages and the
// final disconnect are posted to events.
func (s *Session) Start(events chan<- event) {
	go s.writePump()
	go s.readPump(events)
}

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Send queues one encoded line for delivery. A full queue means the
// client has stopped draining; the session is closed rather than
// blocking the run loop.
func (s *Session) Send(line string) {
	select {
	case <-s.done:
	case s.out <- line:
	default:
		s.logger.Warn("send queue full, dropping connection")
		s.Close()
	}
}

func (s *Session) readPump(events chan<- event) {
	defer func() {
		s.Close()
		events <- event{kind: eventDisconnect, session: s}
	}()

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		msg := protocol.DecodeClient(line)
		if _, isNoop := msg.(protocol.Noop); isNoop && line != "" {
			s.logger.Debug("ignoring malformed line", "line", line)
		}
		events <- event{kind: eventMessage, session: s, msg: msg}
	}
}

func (s *Session) writePump() {
	defer s.Close()
	for {
		select {
		case <-s.done:
			return
		case line := <-s.out:
			if err := s.conn.WriteLine(line); err != nil {
				s.logger.Debug("write failed", "error", err)
				return
			}
		}
	}
}
