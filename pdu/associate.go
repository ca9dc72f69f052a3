package pdu

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bexahealth/dicomwl/dicomerr"
)

// Variable item types used inside associate PDUs.
const (
	itemApplicationContext    = 0x10
	itemPresentationContextRQ = 0x20
	itemPresentationContextAC = 0x21
	itemAbstractSyntax        = 0x30
	itemTransferSyntax        = 0x40
	itemUserInformation       = 0x50
	itemMaxPDULength          = 0x51
	itemImplementationClass   = 0x52
	itemImplementationVersion = 0x55
)

// Presentation context negotiation results.
const (
	ResultAcceptance           byte = 0x00
	ResultRejectAbstractSyntax byte = 0x03
	ResultRejectTransferSyntax byte = 0x04
)

// ProposedContext is a presentation context offered in an A-ASSOCIATE-RQ.
// Context IDs are odd by convention.
type ProposedContext struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
}

// AcceptedContext is a presentation context result from an A-ASSOCIATE-AC.
type AcceptedContext struct {
	ID             byte
	Result         byte
	TransferSyntax string
}

// AssociateRQ carries the negotiable fields of an A-ASSOCIATE-RQ.
type AssociateRQ struct {
	CalledAETitle             string
	CallingAETitle            string
	ApplicationContext        string
	MaxPDULength              uint32
	ImplementationClassUID    string
	ImplementationVersionName string
	PresentationContexts      []*ProposedContext
}

// AssociateAC carries the negotiated fields of an A-ASSOCIATE-AC.
type AssociateAC struct {
	CalledAETitle             string
	CallingAETitle            string
	MaxPDULength              uint32
	ImplementationClassUID    string
	ImplementationVersionName string
	PresentationContexts      []*AcceptedContext
}

// AssociateRJ carries an A-ASSOCIATE-RJ result.
type AssociateRJ struct {
	Result byte
	Source dicomerr.RejectSource
	Reason dicomerr.RejectReason
}

func padAETitle(title string) []byte {
	padded := make([]byte, 16)
	for i := range padded {
		padded[i] = ' '
	}
	copy(padded, title)
	return padded
}

func trimAETitle(raw []byte) string {
	title := string(raw)
	if idx := strings.IndexByte(title, 0); idx != -1 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

func trimUID(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 ")
}

func appendItem(buf []byte, itemType byte, value []byte) []byte {
	buf = append(buf, itemType, 0x00)
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, uint16(len(value)))
	buf = append(buf, lenBytes...)
	return append(buf, value...)
}

func appendFixedFields(buf []byte, calledAE, callingAE string) []byte {
	buf = append(buf, 0x00, 0x01) // Protocol version
	buf = append(buf, 0x00, 0x00)
	buf = append(buf, padAETitle(calledAE)...)
	buf = append(buf, padAETitle(callingAE)...)
	return append(buf, make([]byte, 32)...)
}

func appendUserInformation(buf []byte, maxPDU uint32, implClass, implVersion string) []byte {
	var ui []byte
	maxPDUValue := make([]byte, 4)
	binary.BigEndian.PutUint32(maxPDUValue, maxPDU)
	ui = appendItem(ui, itemMaxPDULength, maxPDUValue)
	if implClass != "" {
		ui = appendItem(ui, itemImplementationClass, []byte(implClass))
	}
	if implVersion != "" {
		ui = appendItem(ui, itemImplementationVersion, []byte(implVersion))
	}
	return appendItem(buf, itemUserInformation, ui)
}

// Encode returns the A-ASSOCIATE-RQ PDU body.
func (rq *AssociateRQ) Encode() []byte {
	buf := appendFixedFields(nil, rq.CalledAETitle, rq.CallingAETitle)
	buf = appendItem(buf, itemApplicationContext, []byte(rq.ApplicationContext))

	for _, pc := range rq.PresentationContexts {
		var item []byte
		item = append(item, pc.ID, 0x00, 0x00, 0x00)
		item = appendItem(item, itemAbstractSyntax, []byte(pc.AbstractSyntax))
		for _, ts := range pc.TransferSyntaxes {
			item = appendItem(item, itemTransferSyntax, []byte(ts))
		}
		buf = appendItem(buf, itemPresentationContextRQ, item)
	}

	return appendUserInformation(buf, rq.MaxPDULength, rq.ImplementationClassUID, rq.ImplementationVersionName)
}

// Encode returns the A-ASSOCIATE-AC PDU body. Rejected presentation contexts
// carry no transfer syntax sub-item; some peers (DCMTK, Orthanc) choke on
// rejected contexts in the AC, so callers may choose to omit them entirely.
func (ac *AssociateAC) Encode() []byte {
	buf := appendFixedFields(nil, ac.CalledAETitle, ac.CallingAETitle)
	buf = appendItem(buf, itemApplicationContext, []byte(applicationContextUID))

	for _, pc := range ac.PresentationContexts {
		var item []byte
		// PS3.8 table 9-18: ID, reserved, result/reason, reserved
		item = append(item, pc.ID, 0x00, pc.Result, 0x00)
		if pc.Result == ResultAcceptance {
			item = appendItem(item, itemTransferSyntax, []byte(pc.TransferSyntax))
		}
		buf = appendItem(buf, itemPresentationContextAC, item)
	}

	return appendUserInformation(buf, ac.MaxPDULength, ac.ImplementationClassUID, ac.ImplementationVersionName)
}

// Encode returns the A-ASSOCIATE-RJ PDU body.
func (rj *AssociateRJ) Encode() []byte {
	return []byte{0x00, rj.Result, byte(rj.Source), byte(rj.Reason)}
}

// ParseAssociateRJ parses an A-ASSOCIATE-RJ PDU body.
func ParseAssociateRJ(data []byte) (*AssociateRJ, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: A-ASSOCIATE-RJ body too short", dicomerr.ErrInvalidPDU)
	}
	return &AssociateRJ{
		Result: data[1],
		Source: dicomerr.RejectSource(data[2]),
		Reason: dicomerr.RejectReason(data[3]),
	}, nil
}

const applicationContextUID = "1.2.840.10008.3.1.1.1"

type variableItem struct {
	itemType byte
	data     []byte
}

func parseVariableItems(data []byte) ([]variableItem, error) {
	var items []variableItem
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated item header at offset %d", dicomerr.ErrInvalidPDU, offset)
		}
		itemType := data[offset]
		itemLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(itemLength)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("%w: item 0x%02x exceeds PDU length", dicomerr.ErrInvalidPDU, itemType)
		}
		items = append(items, variableItem{itemType: itemType, data: data[valueStart:valueEnd]})
		offset = valueEnd
	}
	return items, nil
}

// ParseAssociateRQ parses an A-ASSOCIATE-RQ PDU body.
func ParseAssociateRQ(data []byte) (*AssociateRQ, error) {
	if len(data) < 68 {
		return nil, fmt.Errorf("%w: A-ASSOCIATE-RQ body too short", dicomerr.ErrInvalidPDU)
	}

	rq := &AssociateRQ{
		CalledAETitle:  trimAETitle(data[4:20]),
		CallingAETitle: trimAETitle(data[20:36]),
	}

	items, err := parseVariableItems(data[68:])
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		switch item.itemType {
		case itemApplicationContext:
			rq.ApplicationContext = trimUID(item.data)
		case itemPresentationContextRQ:
			pc, err := parseProposedContext(item.data)
			if err != nil {
				return nil, err
			}
			rq.PresentationContexts = append(rq.PresentationContexts, pc)
		case itemUserInformation:
			parseUserInformation(item.data, &rq.MaxPDULength, &rq.ImplementationClassUID, &rq.ImplementationVersionName)
		}
	}

	return rq, nil
}

// ParseAssociateAC parses an A-ASSOCIATE-AC PDU body.
func ParseAssociateAC(data []byte) (*AssociateAC, error) {
	if len(data) < 68 {
		return nil, fmt.Errorf("%w: A-ASSOCIATE-AC body too short", dicomerr.ErrInvalidPDU)
	}

	ac := &AssociateAC{
		CalledAETitle:  trimAETitle(data[4:20]),
		CallingAETitle: trimAETitle(data[20:36]),
	}

	items, err := parseVariableItems(data[68:])
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		switch item.itemType {
		case itemPresentationContextAC:
			if len(item.data) < 4 {
				return nil, fmt.Errorf("%w: presentation context result too short", dicomerr.ErrInvalidPDU)
			}
			pc := &AcceptedContext{ID: item.data[0], Result: item.data[2]}
			subItems, err := parseVariableItems(item.data[4:])
			if err != nil {
				return nil, err
			}
			for _, sub := range subItems {
				if sub.itemType == itemTransferSyntax {
					pc.TransferSyntax = trimUID(sub.data)
				}
			}
			if pc.Result == ResultAcceptance && pc.TransferSyntax == "" {
				return nil, fmt.Errorf("%w: accepted presentation context %d has no transfer syntax", dicomerr.ErrInvalidPDU, pc.ID)
			}
			ac.PresentationContexts = append(ac.PresentationContexts, pc)
		case itemUserInformation:
			parseUserInformation(item.data, &ac.MaxPDULength, &ac.ImplementationClassUID, &ac.ImplementationVersionName)
		}
	}

	return ac, nil
}

func parseProposedContext(data []byte) (*ProposedContext, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: presentation context too short", dicomerr.ErrInvalidPDU)
	}

	pc := &ProposedContext{ID: data[0]}
	subItems, err := parseVariableItems(data[4:])
	if err != nil {
		return nil, err
	}
	for _, sub := range subItems {
		switch sub.itemType {
		case itemAbstractSyntax:
			pc.AbstractSyntax = trimUID(sub.data)
		case itemTransferSyntax:
			pc.TransferSyntaxes = append(pc.TransferSyntaxes, trimUID(sub.data))
		}
	}

	if pc.AbstractSyntax == "" {
		return nil, fmt.Errorf("%w: presentation context %d missing abstract syntax", dicomerr.ErrInvalidPDU, pc.ID)
	}
	return pc, nil
}

func parseUserInformation(data []byte, maxPDU *uint32, implClass, implVersion *string) {
	items, err := parseVariableItems(data)
	if err != nil {
		return
	}
	for _, item := range items {
		switch item.itemType {
		case itemMaxPDULength:
			if len(item.data) == 4 {
				*maxPDU = binary.BigEndian.Uint32(item.data)
			}
		case itemImplementationClass:
			*implClass = trimUID(item.data)
		case itemImplementationVersion:
			*implVersion = strings.TrimRight(string(item.data), "\x00 ")
		}
	}
}
