// Package rpc lets other processes control a running looper. Commands and
// state are served with net/rpc over HTTP, and the same server streams state
// snapshots to websocket clients at /ws.
package rpc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/rpc"
	"sync"

	"github.com/google/uuid"
	"github.com/vsariola/looper"
	"github.com/vsariola/looper/engine"
)

const DefaultAddress = "127.0.0.1:31337"

type (
	// Server forwards remote commands to the engine and keeps the latest
	// state for remote readers. The owner of the Broker's state channel
	// passes every snapshot to Publish.
	Server struct {
		broker *engine.Broker
		logger *slog.Logger

		mu      sync.Mutex
		state   *looper.State
		clients map[uuid.UUID]*wsClient

		listener net.Listener
		http     *http.Server
	}

	// Service is the net/rpc receiver, registered as "Looper".
	Service struct {
		server *Server
	}

	Client struct {
		client *rpc.Client
	}
)

func NewServer(broker *engine.Broker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		broker:  broker,
		logger:  logger,
		state:   &looper.State{},
		clients: map[uuid.UUID]*wsClient{},
	}
}

// Listen starts serving on addr in the background.
func (s *Server) Listen(addr string) error {
	rs := rpc.NewServer()
	if err := rs.RegisterName("Looper", &Service{server: s}); err != nil {
		return fmt.Errorf("registering rpc service failed: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, rs)
	mux.HandleFunc("/ws", s.serveWebSocket)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("net.Listen failed: %w", err)
	}
	s.listener = l
	s.http = &http.Server{Handler: mux}
	go func() {
		if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("rpc server stopped", "err", err)
		}
	}()
	s.logger.Info("rpc server listening", "addr", l.Addr().String())
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Publish stores the snapshot as the latest state and sends it to all
// websocket clients. The server keeps the snapshot, so the caller must not
// modify it afterwards. Clients that do not keep up miss snapshots.
func (s *Server) Publish(state looper.State) {
	st := &state
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	for _, c := range s.clients {
		engine.TrySend(c.send, wsMessage{Session: c.id.String(), State: st})
	}
}

// State returns the latest published state.
func (s *Server) State() looper.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Copy()
}

func (s *Server) Close() error {
	if s.http == nil {
		return nil
	}
	err := s.http.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	// hijacked connections are not closed by http.Server
	for id, c := range s.clients {
		close(c.send)
		c.conn.Close()
		delete(s.clients, id)
	}
	return err
}

func (s *Server) send(msg CommandMessage) error {
	cmd, err := msg.Command()
	if err != nil {
		s.logger.Warn("rejected remote command", "err", err)
		return err
	}
	s.broker.Send(cmd)
	return nil
}

// Send decodes a command and queues it for the engine.
func (l *Service) Send(msg CommandMessage, reply *int) error {
	return l.server.send(msg)
}

// State returns the latest state snapshot.
func (l *Service) State(args int, reply *looper.State) error {
	*reply = l.server.State()
	return nil
}

// Dial connects to a looper rpc server.
func Dial(addr string) (*Client, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc.DialHTTP failed: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Send(cmd looper.Command) error {
	msg, err := NewCommandMessage(cmd)
	if err != nil {
		return err
	}
	var reply int
	if err := c.client.Call("Looper.Send", msg, &reply); err != nil {
		return fmt.Errorf("Looper.Send failed: %w", err)
	}
	return nil
}

func (c *Client) State() (looper.State, error) {
	var state looper.State
	if err := c.client.Call("Looper.State", 0, &state); err != nil {
		return looper.State{}, fmt.Errorf("Looper.State failed: %w", err)
	}
	return state, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
