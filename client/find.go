package client

import (
	"fmt"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

// FindRequest describes a C-FIND query.
type FindRequest struct {
	SOPClassUID string // defaults to Modality Worklist FIND
	MessageID   uint16
	Priority    uint16
	Query       *dataset.Dataset
}

// Find runs a C-FIND query and collects the pending match datasets. When
// the operation fails partway, the matches received so far are returned
// alongside the error so callers can inspect partial results.
func (a *Association) Find(req *FindRequest) ([]*dataset.Dataset, error) {
	if req == nil || req.Query == nil {
		return nil, dicomerr.NewValidationError("query", "c-find requires a query dataset")
	}

	sopClass := req.SOPClassUID
	if sopClass == "" {
		sopClass = types.ModalityWorklistInformationFind
	}
	messageID := req.MessageID
	if messageID == 0 {
		messageID = 1
	}

	presContextID, err := a.GetPresentationContextID(sopClass)
	if err != nil {
		return nil, err
	}
	transferSyntax, err := a.TransferSyntaxFor(presContextID)
	if err != nil {
		return nil, err
	}

	queryData, err := dataset.Encode(req.Query, transferSyntax)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	command := &types.Message{
		CommandField:        dimse.CFindRQ,
		MessageID:           messageID,
		CommandDataSetType:  types.DataSetPresent,
		Priority:            req.Priority,
		AffectedSOPClassUID: sopClass,
	}

	if err := a.sendMessage(presContextID, command, queryData); err != nil {
		return nil, fmt.Errorf("failed to send C-FIND request: %w", err)
	}

	var matches []*dataset.Dataset
	for {
		msg, data, err := a.receiveMessage()
		if err != nil {
			return matches, err
		}
		if msg.CommandField != dimse.CFindRSP {
			return matches, fmt.Errorf("%w: unexpected command 0x%04x, expected C-FIND-RSP", dicomerr.ErrInvalidMessage, msg.CommandField)
		}

		if len(data) > 0 {
			match, err := dataset.Decode(data, transferSyntax)
			if err != nil {
				return matches, fmt.Errorf("failed to decode match %d: %w", len(matches)+1, err)
			}
			matches = append(matches, match)
		}

		if dimse.IsPending(msg.Status) {
			continue
		}
		if msg.Status != dimse.StatusSuccess {
			return matches, &dicomerr.OperationFailedError{Op: "C-FIND", Status: msg.Status}
		}

		a.logger.Debug("C-FIND complete",
			"message_id", msg.MessageIDBeingRespondedTo,
			"matches", len(matches))
		return matches, nil
	}
}
