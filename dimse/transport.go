package dimse

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/pdu"
	"github.com/bexahealth/dicomwl/types"
)

// PDV message control header bits, shared with the acceptor side.
const (
	pdvCommand      = pdu.PDVCommand
	pdvLastFragment = pdu.PDVLastFragment
)

// pdvOverhead is the per-PDV cost inside a P-DATA-TF body: 4 length bytes,
// the presentation context ID and the control header.
const pdvOverhead = 6

// WriteMessage sends a DIMSE command and optional dataset as P-DATA-TF
// PDUs, fragmenting each part to fit within maxPDULength.
func WriteMessage(w io.Writer, presContextID byte, maxPDULength uint32, msg *types.Message, data []byte) error {
	if err := pdu.WritePDataTF(w, presContextID, maxPDULength, true, EncodeCommand(msg)); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	if msg.HasDataset() {
		if err := pdu.WritePDataTF(w, presContextID, maxPDULength, false, data); err != nil {
			return fmt.Errorf("failed to send dataset: %w", err)
		}
	}
	return nil
}

// ReadMessage reassembles one complete DIMSE message from the stream. It
// returns the decoded command, the accompanying dataset bytes (nil when the
// command carries none) and the presentation context the peer used. An
// incoming A-ABORT surfaces as ErrPeerAborted.
func ReadMessage(r io.Reader) (*types.Message, []byte, byte, error) {
	var (
		msg           *types.Message
		commandData   []byte
		datasetData   []byte
		presContextID byte
	)

	for {
		p, err := pdu.Read(r)
		if err != nil {
			return nil, nil, 0, err
		}

		switch p.Type {
		case pdu.TypeAbort:
			if abort, perr := pdu.ParseAbort(p.Data); perr == nil {
				return nil, nil, 0, fmt.Errorf("%w: source 0x%02x reason 0x%02x",
					dicomerr.ErrPeerAborted, abort.Source, abort.Reason)
			}
			return nil, nil, 0, dicomerr.ErrPeerAborted
		case pdu.TypeReleaseRQ:
			return nil, nil, 0, fmt.Errorf("%w: peer requested release mid-operation", dicomerr.ErrConnectionClosed)
		case pdu.TypePDataTF:
			// fall through to PDV handling below
		default:
			return nil, nil, 0, fmt.Errorf("%w: unexpected PDU type 0x%02x", dicomerr.ErrInvalidPDU, p.Type)
		}

		offset := 0
		for offset < len(p.Data) {
			if offset+pdvOverhead > len(p.Data) {
				return nil, nil, 0, fmt.Errorf("%w: truncated PDV header", dicomerr.ErrInvalidPDU)
			}
			pdvLength := binary.BigEndian.Uint32(p.Data[offset : offset+4])
			if pdvLength < 2 || offset+4+int(pdvLength) > len(p.Data) {
				return nil, nil, 0, fmt.Errorf("%w: PDV exceeds PDU length", dicomerr.ErrInvalidPDU)
			}

			pdv := p.Data[offset+4 : offset+4+int(pdvLength)]
			presContextID = pdv[0]
			ctrl := pdv[1]
			fragment := pdv[2:]
			offset += 4 + int(pdvLength)

			if ctrl&pdvCommand != 0 {
				commandData = append(commandData, fragment...)
				if ctrl&pdvLastFragment == 0 {
					continue
				}
				msg, err = DecodeCommand(commandData)
				if err != nil {
					return nil, nil, 0, err
				}
				if !msg.HasDataset() {
					return msg, nil, presContextID, nil
				}
			} else {
				datasetData = append(datasetData, fragment...)
				if ctrl&pdvLastFragment != 0 {
					if msg == nil {
						return nil, nil, 0, fmt.Errorf("%w: dataset fragment before command", dicomerr.ErrInvalidMessage)
					}
					return msg, datasetData, presContextID, nil
				}
			}
		}
	}
}
