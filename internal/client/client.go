package client

import (
	"bufio"
	"net"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tablewire/holdem/internal/protocol"
)

// Client is the network half of the terminal client: one TCP
// connection speaking the line protocol, with a background reader
// translating server lines into typed messages.
type Client struct {
	conn    net.Conn
	logger  *log.Logger
	scanner *bufio.Scanner

	messages chan protocol.ServerMessage

	closeOnce sync.Once
}

// Dial connects to the server and starts the read loop. The returned
// client delivers decoded server messages on Messages until the
// connection drops, at which point the channel is closed.
func Dial(addr string, logger *log.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:     conn,
		logger:   logger.WithPrefix("net"),
		scanner:  bufio.NewScanner(conn),
		messages: make(chan protocol.ServerMessage, 64),
	}
	go c.readLoop()
	return c, nil
}

// Messages is the stream of decoded server messages. Closed on
// disconnect.
func (c *Client) Messages() <-chan protocol.ServerMessage {
	return c.messages
}

// Send encodes and writes one client message.
func (c *Client) Send(msg protocol.ClientMessage) error {
	_, err := c.conn.Write([]byte(protocol.EncodeClient(msg)))
	return err
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.messages)
	for c.scanner.Scan() {
		line := c.scanner.Text()
		msg := protocol.DecodeServer(line)
		if _, isNoop := msg.(protocol.ServerNoop); isNoop {
			c.logger.Debug("ignoring unknown server line", "line", line)
			continue
		}
		c.messages <- msg
	}
	if err := c.scanner.Err(); err != nil {
		c.logger.Debug("connection read failed", "error", err)
	}
}
