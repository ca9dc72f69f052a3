// Package pdu implements the DICOM Upper Layer protocol data units:
// framing, association negotiation and the P-DATA-TF stream.
package pdu

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bexahealth/dicomwl/dicomerr"
)

// PDU types
const (
	TypeAssociateRQ = 0x01
	TypeAssociateAC = 0x02
	TypeAssociateRJ = 0x03
	TypePDataTF     = 0x04
	TypeReleaseRQ   = 0x05
	TypeReleaseRP   = 0x06
	TypeAbort       = 0x07
)

// maxPDUBodyLength bounds incoming PDU bodies so a corrupted length field
// cannot trigger a huge allocation.
const maxPDUBodyLength = 64 * 1024 * 1024

// PDU represents a Protocol Data Unit.
type PDU struct {
	Type byte
	Data []byte
}

// Read reads one complete PDU from the stream.
func Read(r io.Reader) (*PDU, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	pduType := header[0]
	pduLength := binary.BigEndian.Uint32(header[2:6])
	if pduLength > maxPDUBodyLength {
		return nil, fmt.Errorf("%w: declared length %d exceeds limit", dicomerr.ErrInvalidPDU, pduLength)
	}

	data := make([]byte, pduLength)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read PDU body: %w", err)
	}

	return &PDU{Type: pduType, Data: data}, nil
}

// Write frames data as a PDU of the given type and writes it in one call.
func Write(w io.Writer, pduType byte, data []byte) error {
	buf := make([]byte, 6+len(data))
	buf[0] = pduType
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(data)))
	copy(buf[6:], data)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write PDU type 0x%02x: %w", pduType, err)
	}
	return nil
}

// PDV message control header bits.
const (
	PDVCommand      byte = 0x01
	PDVLastFragment byte = 0x02
)

// pdvOverhead is the per-PDV cost inside a P-DATA-TF body: 4 length bytes,
// the presentation context ID and the control header.
const pdvOverhead = 6

// WritePDataTF sends data as P-DATA-TF PDUs, fragmenting into PDVs so no
// PDU body exceeds maxPDULength. The last fragment carries the
// PDVLastFragment control bit.
func WritePDataTF(w io.Writer, presContextID byte, maxPDULength uint32, isCommand bool, data []byte) error {
	maxChunk := int(maxPDULength) - pdvOverhead
	if maxChunk < 1 {
		maxChunk = 1
	}

	for offset := 0; ; {
		chunk := data[offset:min(offset+maxChunk, len(data))]
		offset += len(chunk)
		last := offset >= len(data)

		var ctrl byte
		if isCommand {
			ctrl |= PDVCommand
		}
		if last {
			ctrl |= PDVLastFragment
		}

		body := make([]byte, pdvOverhead+len(chunk))
		binary.BigEndian.PutUint32(body[0:4], uint32(2+len(chunk)))
		body[4] = presContextID
		body[5] = ctrl
		copy(body[6:], chunk)

		if err := Write(w, TypePDataTF, body); err != nil {
			return err
		}
		if last {
			return nil
		}
	}
}

// WriteReleaseRQ sends an A-RELEASE-RQ PDU.
func WriteReleaseRQ(w io.Writer) error {
	return Write(w, TypeReleaseRQ, make([]byte, 4))
}

// WriteReleaseRP sends an A-RELEASE-RP PDU.
func WriteReleaseRP(w io.Writer) error {
	return Write(w, TypeReleaseRP, make([]byte, 4))
}

// Abort sources
const (
	AbortSourceUser     byte = 0x00
	AbortSourceProvider byte = 0x02
)

// Abort represents an A-ABORT PDU.
type Abort struct {
	Source byte
	Reason byte
}

// Encode returns the A-ABORT PDU body.
func (a *Abort) Encode() []byte {
	return []byte{0x00, 0x00, a.Source, a.Reason}
}

// ParseAbort parses an A-ABORT PDU body.
func ParseAbort(data []byte) (*Abort, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: A-ABORT body too short", dicomerr.ErrInvalidPDU)
	}
	return &Abort{Source: data[2], Reason: data[3]}, nil
}

// WriteAbort sends an A-ABORT PDU.
func WriteAbort(w io.Writer, source, reason byte) error {
	a := &Abort{Source: source, Reason: reason}
	return Write(w, TypeAbort, a.Encode())
}
