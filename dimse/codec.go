package dimse

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

// Command group element numbers within group 0000. Commands are always
// encoded Implicit VR Little Endian regardless of the negotiated transfer
// syntax.
const (
	elemGroupLength          = 0x0000
	elemAffectedSOPClass     = 0x0002
	elemCommandField         = 0x0100
	elemMessageID            = 0x0110
	elemMessageIDRespondedTo = 0x0120
	elemPriority             = 0x0700
	elemCommandDataSetType   = 0x0800
	elemStatus               = 0x0900
	elemAffectedSOPInstance  = 0x1000
	maxCommandElementLength  = 1 << 20
)

func appendUint16Element(buf []byte, element uint16, value uint16) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, 0x0000)
	buf = binary.LittleEndian.AppendUint16(buf, element)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	return binary.LittleEndian.AppendUint16(buf, value)
}

func appendUIDElement(buf []byte, element uint16, value string) []byte {
	padded := []byte(value)
	if len(padded)%2 == 1 {
		padded = append(padded, 0x00)
	}
	buf = binary.LittleEndian.AppendUint16(buf, 0x0000)
	buf = binary.LittleEndian.AppendUint16(buf, element)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(padded)))
	return append(buf, padded...)
}

// EncodeCommand serializes a DIMSE command group, prefixed with its group
// length element. Elements are written in ascending tag order.
func EncodeCommand(msg *types.Message) []byte {
	var elements []byte

	if msg.AffectedSOPClassUID != "" {
		elements = appendUIDElement(elements, elemAffectedSOPClass, msg.AffectedSOPClassUID)
	}
	elements = appendUint16Element(elements, elemCommandField, msg.CommandField)
	if msg.CommandField&0x8000 == 0 {
		elements = appendUint16Element(elements, elemMessageID, msg.MessageID)
		if msg.CommandField == CFindRQ || msg.CommandField == CStoreRQ {
			elements = appendUint16Element(elements, elemPriority, msg.Priority)
		}
	} else {
		elements = appendUint16Element(elements, elemMessageIDRespondedTo, msg.MessageIDBeingRespondedTo)
	}
	elements = appendUint16Element(elements, elemCommandDataSetType, msg.CommandDataSetType)
	if msg.CommandField&0x8000 != 0 {
		elements = appendUint16Element(elements, elemStatus, msg.Status)
	}
	if msg.AffectedSOPInstanceUID != "" {
		elements = appendUIDElement(elements, elemAffectedSOPInstance, msg.AffectedSOPInstanceUID)
	}

	buf := make([]byte, 0, 12+len(elements))
	buf = binary.LittleEndian.AppendUint16(buf, 0x0000)
	buf = binary.LittleEndian.AppendUint16(buf, elemGroupLength)
	buf = binary.LittleEndian.AppendUint32(buf, 4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(elements)))
	return append(buf, elements...)
}

// DecodeCommand parses a DIMSE command group. Elements outside group 0000
// and unknown command elements are skipped.
func DecodeCommand(data []byte) (*types.Message, error) {
	if len(data) < 12 {
		return nil, dicomerr.NewEncodingError(0, "command group too short: %d bytes", len(data))
	}

	msg := &types.Message{}
	offset := 0
	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])

		if length > maxCommandElementLength {
			return nil, dicomerr.NewEncodingError(offset, "command element (%04x,%04x) declares length %d", group, element, length)
		}
		valueStart := offset + 8
		valueEnd := valueStart + int(length)
		if valueEnd > len(data) {
			return nil, dicomerr.NewEncodingError(offset, "command element (%04x,%04x) exceeds buffer", group, element)
		}
		value := data[valueStart:valueEnd]

		if group == 0x0000 {
			switch element {
			case elemAffectedSOPClass:
				msg.AffectedSOPClassUID = trimUIDValue(value)
			case elemCommandField:
				msg.CommandField = uint16Value(value)
			case elemMessageID:
				msg.MessageID = uint16Value(value)
			case elemMessageIDRespondedTo:
				msg.MessageIDBeingRespondedTo = uint16Value(value)
			case elemPriority:
				msg.Priority = uint16Value(value)
			case elemCommandDataSetType:
				msg.CommandDataSetType = uint16Value(value)
			case elemStatus:
				msg.Status = uint16Value(value)
			case elemAffectedSOPInstance:
				msg.AffectedSOPInstanceUID = trimUIDValue(value)
			}
		}

		offset = valueEnd
	}

	if msg.CommandField == 0 {
		return nil, fmt.Errorf("%w: missing command field", dicomerr.ErrInvalidMessage)
	}
	return msg, nil
}

func uint16Value(value []byte) uint16 {
	if len(value) != 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(value)
}

func trimUIDValue(value []byte) string {
	return strings.TrimRight(string(value), "\x00 ")
}
