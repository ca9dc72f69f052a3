// Package server runs a modality worklist SCP: it accepts DICOM
// associations and answers C-ECHO verification and worklist C-FIND queries
// over items staged as part-10 files.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/pdu"
	"github.com/bexahealth/dicomwl/services"
)

// DefaultAETitle is used when the config leaves the AE title empty.
const DefaultAETitle = "MERCURE"

// Config holds worklist SCP settings. Zero values select defaults.
type Config struct {
	AETitle      string        // default MERCURE
	WorklistDir  string        // directory of part-10 worklist files (.wl, .dcm); empty starts with no items
	ReadTimeout  time.Duration // per-connection read deadline (default 60s)
	WriteTimeout time.Duration // per-connection write deadline (default 60s)
	Logger       *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.AETitle == "" {
		c.AETitle = DefaultAETitle
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is a modality worklist SCP. It owns the worklist store and the
// command registry; echo and worklist find are wired at construction and
// further commands may be registered before serving starts.
type Server struct {
	config   Config
	store    *services.WorklistStore
	registry *services.Registry
	logger   *slog.Logger
}

// New loads the worklist directory and wires the echo and worklist find
// services. An unreadable directory fails construction rather than the
// first query.
func New(config Config) (*Server, error) {
	config.applyDefaults()

	store := services.NewWorklistStore()
	if config.WorklistDir != "" {
		if _, err := store.LoadDir(config.WorklistDir, config.Logger); err != nil {
			return nil, fmt.Errorf("failed to load worklist directory %s: %w", config.WorklistDir, err)
		}
	}

	registry := services.NewRegistry()
	registry.RegisterHandler(dimse.CEchoRQ, services.NewEchoService())
	registry.RegisterHandler(dimse.CFindRQ, services.NewWorklistService(store, config.Logger))

	return &Server{
		config:   config,
		store:    store,
		registry: registry,
		logger:   config.Logger,
	}, nil
}

// Store exposes the worklist store so callers can stage items at runtime.
func (s *Server) Store() *services.WorklistStore {
	return s.store
}

// RegisterHandler adds or replaces the handler for a DIMSE command beyond
// the built-in echo and worklist find.
func (s *Server) RegisterHandler(commandField uint16, handler dimse.ServiceHandler) {
	s.registry.RegisterHandler(commandField, handler)
}

// ListenAndServe listens on address and serves associations until ctx is
// done or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return dicomerr.NewConnectError(address, err)
	}
	defer listener.Close()
	return s.Serve(ctx, listener)
}

// Serve accepts associations from listener until ctx is cancelled or the
// listener fails. Each association runs on its own goroutine; Serve returns
// only after all of them have finished.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return &dicomerr.ValidationError{Field: "listener", Msg: "is required"}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Cancellation unblocks Accept by closing the listener.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("Worklist SCP listening",
		"address", listener.Addr().String(),
		"ae_title", s.config.AETitle,
		"worklist_items", s.store.Len())

	var wg sync.WaitGroup
	var serveErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("Accept timeout", "error", err)
				continue
			}
			serveErr = fmt.Errorf("%w: accept on %s failed: %v",
				dicomerr.ErrConnectionClosed, listener.Addr(), err)
			break
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			s.serveAssociation(ctx, c)
		}(conn)
	}

	wg.Wait()

	if serveErr != nil {
		return serveErr
	}
	return ctx.Err()
}

// serveAssociation drives one association from negotiation to release.
func (s *Server) serveAssociation(ctx context.Context, conn net.Conn) {
	logger := s.logger.With("remote_addr", conn.RemoteAddr())
	logger.Info("Accepted DICOM connection")

	if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
		logger.Warn("Failed to set read deadline", "error", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		logger.Warn("Failed to set write deadline", "error", err)
	}

	adapter := &dimseHandlerAdapter{service: dimse.NewService(s.registry, logger)}
	layer := pdu.NewLayer(conn, adapter, s.config.AETitle, logger)

	if err := layer.HandleConnection(); err != nil && ctx.Err() == nil {
		logger.Warn("Association ended with error", "error", err)
		return
	}
	logger.Info("Association closed")
}

// dimseHandlerAdapter bridges the PDU layer's fragment callback onto the
// DIMSE service without the pdu package depending on dimse.
type dimseHandlerAdapter struct {
	service *dimse.Service
}

func (a *dimseHandlerAdapter) HandleDIMSEMessage(presContextID byte, msgCtrlHeader byte, data []byte, layer *pdu.Layer) error {
	return a.service.HandleDIMSEMessage(presContextID, msgCtrlHeader, data, layer)
}
