package client

import (
	"fmt"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

// UIDGenerator mints unique identifiers for stored objects.
type UIDGenerator interface {
	NewUID() string
}

// Store sends a dataset to the peer with C-STORE. A fresh SOP Instance UID
// is always assigned from gen; Study and Series Instance UIDs are assigned
// only when the dataset lacks them. The assigned SOP Instance UID is
// returned. A non-success status is returned as
// *dicomerr.OperationFailedError; partial sends are not retried.
func (a *Association) Store(ds *dataset.Dataset, gen UIDGenerator) (string, error) {
	if ds == nil {
		return "", dicomerr.NewValidationError("dataset", "c-store requires a dataset")
	}
	if gen == nil {
		return "", dicomerr.NewValidationError("generator", "c-store requires a UID generator")
	}

	sopClassUID := ds.GetString(types.TagSOPClassUID)
	if sopClassUID == "" {
		sopClassUID = types.SecondaryCaptureImageStorage
		ds.Set(types.TagSOPClassUID, sopClassUID)
	}

	sopInstanceUID := gen.NewUID()
	ds.Set(types.TagSOPInstanceUID, sopInstanceUID)
	if ds.GetString(types.TagStudyInstanceUID) == "" {
		ds.Set(types.TagStudyInstanceUID, gen.NewUID())
	}

	presContextID, err := a.GetPresentationContextID(sopClassUID)
	if err != nil {
		return "", err
	}
	transferSyntax, err := a.TransferSyntaxFor(presContextID)
	if err != nil {
		return "", err
	}

	data, err := dataset.Encode(ds, transferSyntax)
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset: %w", err)
	}

	command := &types.Message{
		CommandField:           dimse.CStoreRQ,
		MessageID:              1,
		CommandDataSetType:     types.DataSetPresent,
		AffectedSOPClassUID:    sopClassUID,
		AffectedSOPInstanceUID: sopInstanceUID,
	}

	if err := a.sendMessage(presContextID, command, data); err != nil {
		return "", fmt.Errorf("failed to send C-STORE request: %w", err)
	}

	msg, _, err := a.receiveMessage()
	if err != nil {
		return "", err
	}
	if msg.CommandField != dimse.CStoreRSP {
		return "", fmt.Errorf("%w: unexpected command 0x%04x, expected C-STORE-RSP", dicomerr.ErrInvalidMessage, msg.CommandField)
	}
	if msg.Status != dimse.StatusSuccess {
		return "", &dicomerr.OperationFailedError{Op: "C-STORE", Status: msg.Status}
	}

	a.logger.Info("C-STORE accepted",
		"sop_instance_uid", sopInstanceUID,
		"sop_class_uid", sopClassUID)
	return sopInstanceUID, nil
}
