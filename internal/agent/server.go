package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codepair/internal/protocol"
	"codepair/internal/transport"
	"codepair/internal/workspace"
)

const (
	// DefaultAddr is the loopback address the agent server binds by default.
	DefaultAddr = "127.0.0.1:8731"

	sessionPath = "/session"
)

// SessionURL builds the websocket URL a shell dials to reach an agent
// server listening on addr.
func SessionURL(addr string) string {
	return "ws://" + addr + sessionPath
}

// ServerConfig configures a standalone agent server.
type ServerConfig struct {
	Addr       string
	Client     *Client
	Root       workspace.Root
	Generation protocol.Generation
	Logger     *zap.Logger
}

// Server exposes the agent over websocket. Each accepted connection gets
// its own session: a fresh tool binding and proposal recorder over the
// configured workspace root. Turns on one connection run sequentially.
type Server struct {
	cfg     ServerConfig
	httpSrv *http.Server
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[transport.Channel]struct{}
}

// NewServer validates the config and prepares a server; Start makes it
// listen.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Client == nil {
		return nil, errors.New("agent server requires a model client")
	}
	if cfg.Root.Base() == "" {
		return nil, errors.New("agent server requires a workspace root")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Generation == "" {
		cfg.Generation = protocol.GenerationRich
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.Named("agent-server"),
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[transport.Channel]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(sessionPath, s.handleSession)
	s.httpSrv = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Start listens and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	s.logger.Info("agent server listening",
		zap.String("addr", s.cfg.Addr),
		zap.String("workspace", s.cfg.Root.Base()),
		zap.String("generation", string(s.cfg.Generation)))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and closes the live ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for ch := range s.conns {
		_ = ch.Close()
	}
	s.mu.Unlock()

	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ch, err := transport.Accept(w, r)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.track(ch)
	defer s.untrack(ch)
	defer ch.Close()

	s.serve(s.ctx, ch)
}

func (s *Server) track(ch transport.Channel) {
	s.mu.Lock()
	s.conns[ch] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(ch transport.Channel) {
	s.mu.Lock()
	delete(s.conns, ch)
	s.mu.Unlock()
}

// serve reads user messages off the channel and runs a turn for each until
// the peer goes away or the server shuts down.
func (s *Server) serve(ctx context.Context, ch transport.Channel) {
	sessionID := uuid.NewString()
	runner := NewRunner(s.cfg.Client, sessionID, s.cfg.Root, s.cfg.Generation, s.logger)
	defer runner.Close()

	ServeChannel(ctx, ch, runner, s.logger)
}

// ServeChannel pumps one session: each user message received on ch runs a
// turn whose protocol messages are sent back on the same channel. It returns
// when the channel closes or ctx is canceled. The in-process shell uses this
// over a pipe; the websocket server uses it per connection.
func ServeChannel(ctx context.Context, ch transport.Channel, runner *Runner, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := runner.SessionID()

	logger.Info("session opened", zap.String("session", sessionID))
	defer logger.Info("session closed", zap.String("session", sessionID))

	emit := func(m protocol.Message) error {
		frame, err := protocol.Encode(m)
		if err != nil {
			return fmt.Errorf("encode %T: %w", m, err)
		}
		return ch.Send(ctx, frame)
	}

	for {
		frame, err := ch.Receive(ctx)
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) && !errors.Is(err, context.Canceled) {
				logger.Warn("receive failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			logger.Warn("dropping undecodable frame", zap.String("session", sessionID), zap.Error(err))
			continue
		}
		um, ok := msg.(protocol.UserMessage)
		if !ok {
			continue
		}

		if err := runner.RunTurn(ctx, um.Text, emit); err != nil {
			if errors.Is(err, ErrTurnInProgress) {
				_ = emit(protocol.ProtocolError{Message: err.Error()})
				continue
			}
			logger.Error("turn failed", zap.String("session", sessionID), zap.Error(err))
		}
	}
}
