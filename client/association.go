// Package client implements the requester side of a DICOM association:
// connection setup, presentation context negotiation, the echo, find and
// store operations, and orderly or abortive teardown.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/pdu"
	"github.com/bexahealth/dicomwl/types"
)

// State is the lifecycle phase of an association.
type State int

const (
	StateIdle State = iota
	StateAssociating
	StateEstablished
	StateReleasing
	StateClosed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAssociating:
		return "associating"
	case StateEstablished:
		return "established"
	case StateReleasing:
		return "releasing"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Default AE titles used when the config leaves them empty.
const (
	DefaultCallingAETitle = "BEXA"
	DefaultCalledAETitle  = "MERCURE"
)

// Config holds client association settings. Zero values select defaults.
type Config struct {
	CallingAETitle string
	CalledAETitle  string
	MaxPDULength   uint32
	ConnectTimeout time.Duration // default 30s
	ReadTimeout    time.Duration // default 60s
	WriteTimeout   time.Duration // default 60s
	ReleaseTimeout time.Duration // how long to wait for A-RELEASE-RP before aborting (default 5s)
	Logger         *slog.Logger

	// AbstractSyntaxes to propose. Defaults to Verification, Modality
	// Worklist FIND and Secondary Capture storage.
	AbstractSyntaxes []string
	// TransferSyntaxes to propose per context, in preference order.
	TransferSyntaxes []string
}

func (c *Config) applyDefaults() {
	if c.CallingAETitle == "" {
		c.CallingAETitle = DefaultCallingAETitle
	}
	if c.CalledAETitle == "" {
		c.CalledAETitle = DefaultCalledAETitle
	}
	if c.MaxPDULength == 0 {
		c.MaxPDULength = 16384
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.ReleaseTimeout == 0 {
		c.ReleaseTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if len(c.AbstractSyntaxes) == 0 {
		c.AbstractSyntaxes = []string{
			types.VerificationSOPClass,
			types.ModalityWorklistInformationFind,
			types.SecondaryCaptureImageStorage,
		}
	}
	if len(c.TransferSyntaxes) == 0 {
		c.TransferSyntaxes = types.DefaultTransferSyntaxes()
	}
}

// PresentationContext holds a negotiated presentation context.
type PresentationContext struct {
	ID             byte
	AbstractSyntax string
	TransferSyntax string
	Accepted       bool
}

// Association is a client-side DICOM association. Methods are safe for use
// from the goroutine driving operations plus concurrent Abort calls; the
// underlying transport is released exactly once no matter how the session
// ends.
type Association struct {
	mu               sync.Mutex
	state            State
	conn             net.Conn
	closeOnce        sync.Once
	closeErr         error
	endpoint         string
	config           Config
	presentationCtxs map[byte]*PresentationContext
	logger           *slog.Logger
}

// Connect dials the remote SCP and negotiates an association. On rejection
// the returned error unwraps to *dicomerr.AssociationRejectedError and the
// connection is closed.
func Connect(address string, config Config) (*Association, error) {
	config.applyDefaults()

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, dicomerr.NewConnectError(address, err)
	}

	a := &Association{
		state:            StateAssociating,
		conn:             conn,
		endpoint:         address,
		config:           config,
		presentationCtxs: make(map[byte]*PresentationContext),
		logger:           config.Logger,
	}

	if err := a.negotiate(); err != nil {
		a.closeTransport()
		a.state = StateClosed
		return nil, err
	}

	a.state = StateEstablished
	a.logger.Info("DICOM association established",
		"remote_addr", address,
		"calling_ae", config.CallingAETitle,
		"called_ae", config.CalledAETitle,
		"state", a.state.String())

	return a, nil
}

// State returns the current lifecycle phase.
func (a *Association) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// closeTransport releases the underlying connection. Safe to call from any
// path; only the first call closes.
func (a *Association) closeTransport() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.conn.Close()
	})
	return a.closeErr
}

func (a *Association) negotiate() error {
	rq := &pdu.AssociateRQ{
		CalledAETitle:             a.config.CalledAETitle,
		CallingAETitle:            a.config.CallingAETitle,
		ApplicationContext:        types.ApplicationContextUID,
		MaxPDULength:              a.config.MaxPDULength,
		ImplementationClassUID:    types.ImplementationClassUID,
		ImplementationVersionName: types.ImplementationVersionName,
	}

	// Context IDs are odd, assigned in proposal order.
	ctxID := byte(1)
	for _, abstractSyntax := range a.config.AbstractSyntaxes {
		rq.PresentationContexts = append(rq.PresentationContexts, &pdu.ProposedContext{
			ID:               ctxID,
			AbstractSyntax:   abstractSyntax,
			TransferSyntaxes: a.config.TransferSyntaxes,
		})
		a.presentationCtxs[ctxID] = &PresentationContext{
			ID:             ctxID,
			AbstractSyntax: abstractSyntax,
		}
		ctxID += 2
	}

	if err := a.setDeadlines(); err != nil {
		return err
	}
	if err := pdu.Write(a.conn, pdu.TypeAssociateRQ, rq.Encode()); err != nil {
		return fmt.Errorf("failed to send A-ASSOCIATE-RQ: %w", err)
	}

	p, err := pdu.Read(a.conn)
	if err != nil {
		return fmt.Errorf("failed to read association response: %w", err)
	}

	switch p.Type {
	case pdu.TypeAssociateAC:
		return a.applyAccept(p.Data)
	case pdu.TypeAssociateRJ:
		rj, perr := pdu.ParseAssociateRJ(p.Data)
		if perr != nil {
			return perr
		}
		return &dicomerr.AssociationRejectedError{
			Endpoint:      a.endpoint,
			CalledAETitle: a.config.CalledAETitle,
			Source:        rj.Source,
			Reason:        rj.Reason,
		}
	case pdu.TypeAbort:
		return &dicomerr.SessionAbortedError{Endpoint: a.endpoint, Err: dicomerr.ErrPeerAborted}
	default:
		return fmt.Errorf("%w: unexpected PDU type 0x%02x during association", dicomerr.ErrInvalidPDU, p.Type)
	}
}

func (a *Association) applyAccept(data []byte) error {
	ac, err := pdu.ParseAssociateAC(data)
	if err != nil {
		return err
	}

	if ac.MaxPDULength > 0 && ac.MaxPDULength < a.config.MaxPDULength {
		a.config.MaxPDULength = ac.MaxPDULength
	}

	accepted := 0
	for _, result := range ac.PresentationContexts {
		pc, ok := a.presentationCtxs[result.ID]
		if !ok {
			continue
		}
		pc.Accepted = result.Result == pdu.ResultAcceptance
		if pc.Accepted {
			pc.TransferSyntax = result.TransferSyntax
			accepted++
		}
		a.logger.Debug("Presentation context negotiation",
			"context_id", result.ID,
			"abstract_syntax", pc.AbstractSyntax,
			"accepted", pc.Accepted,
			"transfer_syntax", pc.TransferSyntax)
	}

	if accepted == 0 {
		return dicomerr.ErrNoPresentationCtx
	}
	return nil
}

// GetPresentationContextID finds the accepted presentation context for the
// given abstract syntax.
func (a *Association) GetPresentationContextID(abstractSyntax string) (byte, error) {
	for _, pc := range a.presentationCtxs {
		if pc.AbstractSyntax == abstractSyntax && pc.Accepted {
			return pc.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", dicomerr.ErrNoPresentationCtx, abstractSyntax)
}

// TransferSyntaxFor returns the negotiated transfer syntax for a
// presentation context ID.
func (a *Association) TransferSyntaxFor(presContextID byte) (string, error) {
	pc, ok := a.presentationCtxs[presContextID]
	if !ok || !pc.Accepted {
		return "", fmt.Errorf("%w: presentation context %d", dicomerr.ErrNoPresentationCtx, presContextID)
	}
	return pc.TransferSyntax, nil
}

func (a *Association) setDeadlines() error {
	if err := a.conn.SetReadDeadline(time.Now().Add(a.config.ReadTimeout)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	if err := a.conn.SetWriteDeadline(time.Now().Add(a.config.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	return nil
}

// exchangeReady verifies the association is usable for an operation.
func (a *Association) exchangeReady() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateEstablished {
		return fmt.Errorf("%w: association %s", dicomerr.ErrConnectionClosed, a.state)
	}
	return a.setDeadlines()
}

// sendMessage writes one DIMSE message over the association.
func (a *Association) sendMessage(presContextID byte, msg *types.Message, data []byte) error {
	if err := a.exchangeReady(); err != nil {
		return err
	}
	if err := dimse.WriteMessage(a.conn, presContextID, a.config.MaxPDULength, msg, data); err != nil {
		return a.wrapStreamError(err)
	}
	return nil
}

// receiveMessage reads one complete DIMSE message from the association.
func (a *Association) receiveMessage() (*types.Message, []byte, error) {
	msg, data, _, err := dimse.ReadMessage(a.conn)
	if err != nil {
		return nil, nil, a.wrapStreamError(err)
	}
	return msg, data, nil
}

// wrapStreamError marks the session aborted and releases the transport so
// later calls fail fast. Any stream failure mid-operation leaves the
// association unusable, whether the peer sent A-ABORT, the connection
// dropped, or a deadline expired.
func (a *Association) wrapStreamError(err error) error {
	a.mu.Lock()
	a.state = StateAborted
	a.mu.Unlock()
	a.closeTransport()
	return &dicomerr.SessionAbortedError{Endpoint: a.endpoint, Err: err}
}

// Close releases the association gracefully: A-RELEASE-RQ, wait for the
// A-RELEASE-RP, then close the transport. When the peer does not answer the
// release in time the session is aborted instead. Close is idempotent.
func (a *Association) Close() error {
	a.mu.Lock()
	switch a.state {
	case StateClosed, StateAborted:
		a.mu.Unlock()
		return nil
	case StateEstablished:
		a.state = StateReleasing
	default:
		a.state = StateClosed
		a.mu.Unlock()
		return a.closeTransport()
	}
	a.mu.Unlock()

	err := a.release()
	if err != nil {
		a.logger.Warn("Graceful release failed, aborting", "error", err)
		pdu.WriteAbort(a.conn, pdu.AbortSourceUser, 0x00)
		a.mu.Lock()
		a.state = StateAborted
		a.mu.Unlock()
		a.closeTransport()
		return err
	}

	a.mu.Lock()
	a.state = StateClosed
	a.mu.Unlock()
	return a.closeTransport()
}

func (a *Association) release() error {
	if err := a.conn.SetDeadline(time.Now().Add(a.config.ReleaseTimeout)); err != nil {
		return err
	}
	if err := pdu.WriteReleaseRQ(a.conn); err != nil {
		return fmt.Errorf("failed to send A-RELEASE-RQ: %w", err)
	}

	// The peer may still have pending P-DATA in flight; drain until the
	// release response arrives.
	for {
		p, err := pdu.Read(a.conn)
		if err != nil {
			return fmt.Errorf("failed to read A-RELEASE-RP: %w", err)
		}
		switch p.Type {
		case pdu.TypeReleaseRP:
			return nil
		case pdu.TypePDataTF:
			continue
		case pdu.TypeAbort:
			return dicomerr.ErrPeerAborted
		default:
			return fmt.Errorf("%w: unexpected PDU type 0x%02x during release", dicomerr.ErrInvalidPDU, p.Type)
		}
	}
}

// Abort terminates the association immediately with an A-ABORT. It is safe
// to call concurrently with in-flight operations and with Close; whichever
// path runs first releases the transport.
func (a *Association) Abort() error {
	a.mu.Lock()
	if a.state == StateClosed || a.state == StateAborted {
		a.mu.Unlock()
		return nil
	}
	a.state = StateAborted
	a.mu.Unlock()

	// Best effort; the peer may already be gone.
	a.conn.SetWriteDeadline(time.Now().Add(a.config.WriteTimeout))
	if err := pdu.WriteAbort(a.conn, pdu.AbortSourceUser, 0x00); err != nil {
		a.logger.Debug("Failed to send A-ABORT", "error", err)
	}
	return a.closeTransport()
}
