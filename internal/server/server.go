package server

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/tablewire/holdem/internal/deck"
	"github.com/tablewire/holdem/internal/protocol"
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
	eventTurnTimeout
)

// event is one unit of work for the run loop. Connection readers, the
// accept loops and turn timers are all producers; the run loop is the
// only consumer and the only goroutine that touches table state.
type event struct {
	kind    eventKind
	conn    Conn // eventConnect
	session *Session
	msg     protocol.ClientMessage

	// eventTurnTimeout
	seatID  int
	turnSeq int
}

// Server owns the listeners, the session registry and the single table.
type Server struct {
	cfg    *Config
	logger *log.Logger
	clock  quartz.Clock

	table  *Table
	engine *Engine

	sessions      map[int]*Session
	nextSessionID int
	events        chan event

	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithClock substitutes the wall clock, letting tests drive turn
// timeouts deterministically.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// New creates a server over a fresh table. rng seeds the deck shuffle.
func New(cfg *Config, logger *log.Logger, rng *rand.Rand, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.WithPrefix("server"),
		clock:    quartz.NewReal(),
		table:    NewTable(),
		sessions: make(map[int]*Session),
		events:   make(chan event, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = NewEngine(s.table, deck.New(rng), s, cfg.Table.BigBlind, logger)
	if cfg.Table.TurnTimeoutSec > 0 {
		s.engine.SetTurnTimer(&turnTimer{
			clock:   s.clock,
			timeout: time.Duration(cfg.Table.TurnTimeoutSec) * time.Second,
			events:  s.events,
		})
	}
	return s
}

// Run serves until the context is cancelled. It owns the TCP accept
// loop, the optional websocket listener and the run loop.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	ln, err := net.Listen("tcp", s.cfg.TCPAddr())
	if err != nil {
		return err
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			s.events <- event{kind: eventConnect, conn: NewTCPConn(conn, s.cfg.Server.MaxLineBytes)}
		}
	})

	if addr := s.cfg.WSAddr(); addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.handleWebSocket)
		httpSrv := &http.Server{Addr: addr, Handler: mux}
		g.Go(func() error {
			<-ctx.Done()
			return httpSrv.Close()
		})
		g.Go(func() error {
			s.logger.Info("websocket listening", "addr", addr)
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		s.run(ctx)
		return nil
	})

	return g.Wait()
}

// nextID allocates a session id. Called only from the run loop, which
// owns the session registry.
func (s *Server) nextID() int {
	id := s.nextSessionID
	s.nextSessionID++
	return id
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	s.events <- event{kind: eventConnect, conn: NewWSConn(conn, s.cfg.Server.MaxLineBytes)}
}

// run is the single consumer of the event channel. Every touch of
// Table, Seat or hand state happens here.
func (s *Server) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, sess := range s.sessions {
				sess.Close()
			}
			return
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

func (s *Server) dispatch(ev event) {
	switch ev.kind {
	case eventConnect:
		sess := NewSession(s.nextID(), ev.conn, s.logger)
		s.sessions[sess.id] = sess
		sess.Start(s.events)
		s.logger.Info("client connected", "session", sess.id, "total", len(s.sessions))

	case eventDisconnect:
		s.dropSession(ev.session)

	case eventTurnTimeout:
		if ev.turnSeq == s.engine.TurnSeq() && s.table.ToAct == ev.seatID {
			s.logger.Warn("turn timeout, folding seat", "seat", ev.seatID)
			s.engine.ForceFold(ev.seatID)
		}

	case eventMessage:
		s.handleMessage(ev.session, ev.msg)
	}
}

// dropSession applies the disconnect policy: the seat is folded out of
// any active hand, removed from the table, and announced as departed.
func (s *Server) dropSession(sess *Session) {
	if _, ok := s.sessions[sess.id]; !ok {
		return
	}
	delete(s.sessions, sess.id)
	sess.Close()
	s.logger.Info("client disconnected", "session", sess.id, "total", len(s.sessions))

	if sess.seatID >= 0 {
		s.removeSeat(sess.seatID)
	}
}

func (s *Server) removeSeat(seatID int) {
	s.engine.ForceFold(seatID)
	s.table.RemoveSeat(seatID)
	s.Broadcast(protocol.PlayerLeft{ID: seatID})
}

func (s *Server) handleMessage(sess *Session, msg protocol.ClientMessage) {
	switch m := msg.(type) {
	case protocol.Join:
		s.handleJoin(sess, m)

	case protocol.Ready:
		seat := s.seatOf(sess)
		if seat == nil {
			return
		}
		seat.Ready = true
		s.logger.Info("player ready", "seat", seat.ID, "name", seat.Name)
		s.Broadcast(protocol.PlayerReady{ID: seat.ID})
		s.maybeStartHand()

	case protocol.Chat:
		seat := s.seatOf(sess)
		if seat == nil {
			return
		}
		s.Broadcast(protocol.ChatFrom{ID: seat.ID, Text: m.Text})

	case protocol.Action:
		s.engine.HandleAction(sess.seatID, m.Action, m.Amount)

	case protocol.RequestState:
		sess.Send(protocol.EncodeServer(protocol.GameStateMsg{State: s.table.State, Pot: s.table.Pot}))

	case protocol.Leave:
		seatID := sess.seatID
		sess.seatID = -1
		if seatID >= 0 {
			s.logger.Info("player left", "seat", seatID)
			s.removeSeat(seatID)
		}
		s.dropSession(sess)

	case protocol.AdminPlay:
		if err := s.engine.StartHand(); err != nil {
			s.logger.Warn("cannot start hand", "error", err)
		}

	case protocol.Noop:
		// Lenient protocol: junk input is dropped, not answered.
	}
}

func (s *Server) handleJoin(sess *Session, m protocol.Join) {
	if sess.seatID >= 0 {
		s.logger.Debug("duplicate JOIN ignored", "session", sess.id, "seat", sess.seatID)
		return
	}
	seat := s.table.AddSeat(m.Name, s.cfg.Table.StartingStack)
	sess.seatID = seat.ID
	s.logger.Info("player joined", "seat", seat.ID, "name", seat.Name)

	sess.Send(protocol.EncodeServer(protocol.Welcome{
		ID:      seat.ID,
		Name:    seat.Name,
		Players: s.table.Roster(),
	}))
	s.Broadcast(protocol.PlayerJoined{ID: seat.ID, Name: seat.Name})
}

// maybeStartHand auto-deals once at least two seats are joined and all
// of them are ready.
func (s *Server) maybeStartHand() {
	if len(s.table.Seats()) >= 2 && s.table.AllReady() && !s.table.HandActive() {
		if err := s.engine.StartHand(); err != nil {
			s.logger.Error("failed to start hand", "error", err)
		}
	}
}

func (s *Server) seatOf(sess *Session) *Seat {
	if sess.seatID < 0 {
		return nil
	}
	return s.table.SeatByID(sess.seatID)
}

// Broadcast implements Notifier: the encoded line is queued on every
// live session without blocking the run loop.
func (s *Server) Broadcast(msg protocol.ServerMessage) {
	line := protocol.EncodeServer(msg)
	for _, sess := range s.sessions {
		sess.Send(line)
	}
}

// SendToSeat implements Notifier for per-seat messages (hole cards).
func (s *Server) SendToSeat(seatID int, msg protocol.ServerMessage) {
	line := protocol.EncodeServer(msg)
	for _, sess := range s.sessions {
		if sess.seatID == seatID {
			sess.Send(line)
			return
		}
	}
}

// turnTimer schedules auto-fold timeouts on a quartz clock so tests can
// advance time manually.
type turnTimer struct {
	clock   quartz.Clock
	timeout time.Duration
	events  chan<- event

	pending *quartz.Timer
}

func (t *turnTimer) Schedule(seatID, seq int) {
	t.Cancel()
	t.pending = t.clock.AfterFunc(t.timeout, func() {
		t.events <- event{kind: eventTurnTimeout, seatID: seatID, turnSeq: seq}
	})
}

func (t *turnTimer) Cancel() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
