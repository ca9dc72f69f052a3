package pdu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

// DIMSEHandler receives reassembled PDV fragments from the upper layer.
type DIMSEHandler interface {
	HandleDIMSEMessage(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer *Layer) error
}

// Layer drives the acceptor side of the DICOM Upper Layer Protocol on a
// single connection.
type Layer struct {
	conn          net.Conn
	dimseHandler  DIMSEHandler
	serverAETitle string
	logger        *slog.Logger

	associationCtx *AssociationContext
}

// AssociationContext holds the negotiated association state.
type AssociationContext struct {
	CalledAETitle    string
	CallingAETitle   string
	MaxPDULength     uint32
	PresentationCtxs map[byte]*AcceptedContext
	abstractSyntaxes map[byte]string
}

var acceptedAbstractSyntaxes = map[string]bool{
	types.VerificationSOPClass:            true,
	types.ModalityWorklistInformationFind: true,
}

var acceptedTransferSyntaxes = map[string]bool{
	types.ImplicitVRLittleEndian: true,
	types.ExplicitVRLittleEndian: true,
}

// NewLayer creates a protocol layer for one accepted connection.
func NewLayer(conn net.Conn, dimseHandler DIMSEHandler, serverAETitle string, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{
		conn:          conn,
		dimseHandler:  dimseHandler,
		serverAETitle: serverAETitle,
		logger:        logger,
	}
}

// HandleConnection runs the association lifecycle until release, abort or
// connection loss.
func (p *Layer) HandleConnection() error {
	defer p.conn.Close()
	p.logger.Info("New DICOM connection", "remote_addr", p.conn.RemoteAddr())

	if err := p.handleAssociationPhase(); err != nil {
		return fmt.Errorf("association failed: %w", err)
	}

	for {
		pdu, err := Read(p.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("Connection closed by client", "remote_addr", p.conn.RemoteAddr())
			} else {
				p.logger.Warn("Error reading PDU", "error", err, "remote_addr", p.conn.RemoteAddr())
			}
			break
		}

		if err := p.handlePDU(pdu); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("error handling PDU: %w", err)
		}
	}

	return nil
}

func (p *Layer) handleAssociationPhase() error {
	pdu, err := Read(p.conn)
	if err != nil {
		return fmt.Errorf("failed to read association request: %w", err)
	}

	if pdu.Type != TypeAssociateRQ {
		return fmt.Errorf("%w: expected A-ASSOCIATE-RQ, got type 0x%02x", dicomerr.ErrInvalidPDU, pdu.Type)
	}

	rq, err := ParseAssociateRQ(pdu.Data)
	if err != nil {
		return err
	}

	p.associationCtx = &AssociationContext{
		CalledAETitle:    rq.CalledAETitle,
		CallingAETitle:   rq.CallingAETitle,
		MaxPDULength:     16384,
		PresentationCtxs: make(map[byte]*AcceptedContext),
		abstractSyntaxes: make(map[byte]string),
	}
	if rq.MaxPDULength > 0 {
		p.associationCtx.MaxPDULength = rq.MaxPDULength
	}

	ac := &AssociateAC{
		CalledAETitle:             rq.CalledAETitle,
		CallingAETitle:            rq.CallingAETitle,
		MaxPDULength:              16384,
		ImplementationClassUID:    types.ImplementationClassUID,
		ImplementationVersionName: types.ImplementationVersionName,
	}

	accepted := 0
	for _, proposed := range rq.PresentationContexts {
		result := negotiateContext(proposed)
		p.associationCtx.PresentationCtxs[result.ID] = result
		p.associationCtx.abstractSyntaxes[result.ID] = proposed.AbstractSyntax
		if result.Result == ResultAcceptance {
			accepted++
			// Some peers (DCMTK, Orthanc) reject ACs carrying refused
			// contexts, so only accepted ones go on the wire.
			ac.PresentationContexts = append(ac.PresentationContexts, result)
		}
	}

	p.logger.Info("Negotiated presentation contexts",
		"calling_ae", rq.CallingAETitle,
		"called_ae", rq.CalledAETitle,
		"proposed", len(rq.PresentationContexts),
		"accepted", accepted,
		"max_pdu_length", p.associationCtx.MaxPDULength)

	if err := Write(p.conn, TypeAssociateAC, ac.Encode()); err != nil {
		return fmt.Errorf("failed to send A-ASSOCIATE-AC: %w", err)
	}

	return nil
}

func negotiateContext(proposed *ProposedContext) *AcceptedContext {
	result := &AcceptedContext{ID: proposed.ID, Result: ResultRejectAbstractSyntax}
	if !acceptedAbstractSyntaxes[proposed.AbstractSyntax] {
		return result
	}

	result.Result = ResultRejectTransferSyntax
	for _, ts := range proposed.TransferSyntaxes {
		if acceptedTransferSyntaxes[ts] {
			result.Result = ResultAcceptance
			result.TransferSyntax = ts
			break
		}
	}
	return result
}

func (p *Layer) handlePDU(pdu *PDU) error {
	p.logger.Debug("Received PDU", "type", fmt.Sprintf("0x%02x", pdu.Type), "length", len(pdu.Data))

	switch pdu.Type {
	case TypePDataTF:
		return p.handlePDataTF(pdu)
	case TypeReleaseRQ:
		if err := WriteReleaseRP(p.conn); err != nil {
			return fmt.Errorf("failed to send A-RELEASE-RP: %w", err)
		}
		p.logger.Debug("Sent A-RELEASE-RP")
		return io.EOF
	case TypeReleaseRP:
		return io.EOF
	case TypeAbort:
		p.logger.Info("Received A-ABORT")
		return io.EOF
	default:
		p.logger.Warn("Unhandled PDU type", "type", fmt.Sprintf("0x%02x", pdu.Type))
		return nil
	}
}

// handlePDataTF walks every PDV in the PDU and forwards each fragment.
func (p *Layer) handlePDataTF(pdu *PDU) error {
	offset := 0
	for offset < len(pdu.Data) {
		if offset+6 > len(pdu.Data) {
			return fmt.Errorf("%w: truncated PDV header", dicomerr.ErrInvalidPDU)
		}
		pdvLength := binary.BigEndian.Uint32(pdu.Data[offset : offset+4])
		if pdvLength < 2 || offset+4+int(pdvLength) > len(pdu.Data) {
			return fmt.Errorf("%w: PDV exceeds PDU length", dicomerr.ErrInvalidPDU)
		}

		pdv := pdu.Data[offset+4 : offset+4+int(pdvLength)]
		presContextID := pdv[0]
		msgCtrlHeader := pdv[1]

		if err := p.dimseHandler.HandleDIMSEMessage(presContextID, msgCtrlHeader, pdv[2:], p); err != nil {
			return err
		}

		offset += 4 + int(pdvLength)
	}
	return nil
}

// SendDIMSEResponse sends a command-only DIMSE response via P-DATA-TF.
func (p *Layer) SendDIMSEResponse(presContextID byte, commandData []byte) error {
	return p.SendDIMSEResponseWithDataset(presContextID, commandData, nil)
}

// SendDIMSEResponseWithDataset sends a DIMSE response with an optional
// dataset, fragmented to the max PDU length the peer announced.
func (p *Layer) SendDIMSEResponseWithDataset(presContextID byte, commandData []byte, datasetData []byte) error {
	maxPDU := p.MaxPDULength()
	if err := WritePDataTF(p.conn, presContextID, maxPDU, true, commandData); err != nil {
		return fmt.Errorf("failed to send command PDU: %w", err)
	}
	if len(datasetData) > 0 {
		if err := WritePDataTF(p.conn, presContextID, maxPDU, false, datasetData); err != nil {
			return fmt.Errorf("failed to send dataset PDU: %w", err)
		}
	}
	return nil
}

// MaxPDULength returns the peer's announced receive limit, or the protocol
// default before negotiation has run.
func (p *Layer) MaxPDULength() uint32 {
	if p.associationCtx == nil || p.associationCtx.MaxPDULength == 0 {
		return 16384
	}
	return p.associationCtx.MaxPDULength
}

// GetTransferSyntax returns the negotiated transfer syntax for a
// presentation context.
func (p *Layer) GetTransferSyntax(presContextID byte) (string, error) {
	if p.associationCtx == nil {
		return "", fmt.Errorf("association context not initialized")
	}
	ctx, ok := p.associationCtx.PresentationCtxs[presContextID]
	if !ok || ctx.Result != ResultAcceptance {
		return "", fmt.Errorf("%w: presentation context %d", dicomerr.ErrNoPresentationCtx, presContextID)
	}
	return ctx.TransferSyntax, nil
}

// CallingAETitle returns the peer AE title once the association is up.
func (p *Layer) CallingAETitle() string {
	if p.associationCtx == nil {
		return ""
	}
	return p.associationCtx.CallingAETitle
}
