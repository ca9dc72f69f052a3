package client

import (
	"fmt"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

// Echo performs a C-ECHO verification round trip. A non-success status is
// returned as *dicomerr.OperationFailedError. No retry is attempted.
func (a *Association) Echo(messageID uint16) error {
	if messageID == 0 {
		messageID = 1
	}

	presContextID, err := a.GetPresentationContextID(types.VerificationSOPClass)
	if err != nil {
		return err
	}

	command := &types.Message{
		CommandField:        dimse.CEchoRQ,
		MessageID:           messageID,
		CommandDataSetType:  types.NoDataSet,
		AffectedSOPClassUID: types.VerificationSOPClass,
	}

	if err := a.sendMessage(presContextID, command, nil); err != nil {
		return fmt.Errorf("failed to send C-ECHO request: %w", err)
	}

	msg, _, err := a.receiveMessage()
	if err != nil {
		return err
	}
	if msg.CommandField != dimse.CEchoRSP {
		return fmt.Errorf("%w: unexpected command 0x%04x, expected C-ECHO-RSP", dicomerr.ErrInvalidMessage, msg.CommandField)
	}
	if msg.Status != dimse.StatusSuccess {
		return &dicomerr.OperationFailedError{Op: "C-ECHO", Status: msg.Status}
	}

	a.logger.Debug("C-ECHO verified", "message_id", msg.MessageIDBeingRespondedTo)
	return nil
}
