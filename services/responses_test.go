package services

import (
	"testing"

	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

func TestResponseBuilderCEchoResponse(t *testing.T) {
	request := &types.Message{
		CommandField: dimse.CEchoRQ,
		MessageID:    42,
	}

	response := NewResponseBuilder(request).CEchoResponse(dimse.StatusSuccess)

	if response.CommandField != dimse.CEchoRSP {
		t.Errorf("CommandField = 0x%04x, want C-ECHO-RSP", response.CommandField)
	}
	if response.MessageIDBeingRespondedTo != 42 {
		t.Errorf("MessageIDBeingRespondedTo = %d, want 42", response.MessageIDBeingRespondedTo)
	}
	if response.AffectedSOPClassUID != types.VerificationSOPClass {
		t.Errorf("AffectedSOPClassUID = %s, want verification", response.AffectedSOPClassUID)
	}
	if response.HasDataset() {
		t.Error("C-ECHO response must not announce a dataset")
	}
}

func TestResponseBuilderCFindResponses(t *testing.T) {
	request := &types.Message{
		CommandField:        dimse.CFindRQ,
		MessageID:           10,
		AffectedSOPClassUID: types.ModalityWorklistInformationFind,
	}

	pending := NewCFindPendingResponse(request)
	if pending.CommandField != dimse.CFindRSP {
		t.Errorf("pending command = 0x%04x, want C-FIND-RSP", pending.CommandField)
	}
	if pending.Status != dimse.StatusPending {
		t.Errorf("pending status = 0x%04x, want pending", pending.Status)
	}
	if !pending.HasDataset() {
		t.Error("pending response must announce its match dataset")
	}
	if pending.AffectedSOPClassUID != request.AffectedSOPClassUID {
		t.Error("AffectedSOPClassUID not preserved from request")
	}

	success := NewCFindSuccessResponse(request)
	if success.Status != dimse.StatusSuccess {
		t.Errorf("success status = 0x%04x, want success", success.Status)
	}
	if success.HasDataset() {
		t.Error("final response must not announce a dataset")
	}

	failure := NewCFindErrorResponse(request, 0xA700)
	if failure.Status != 0xA700 {
		t.Errorf("failure status = 0x%04x, want 0xA700", failure.Status)
	}
	if failure.HasDataset() {
		t.Error("failure response must not announce a dataset")
	}
}

func TestResponseBuilderCStoreResponse(t *testing.T) {
	request := &types.Message{
		CommandField:        dimse.CStoreRQ,
		MessageID:           7,
		AffectedSOPClassUID: types.SecondaryCaptureImageStorage,
	}

	response := NewCStoreResponse(request, dimse.StatusSuccess)
	if response.CommandField != dimse.CStoreRSP {
		t.Errorf("command = 0x%04x, want C-STORE-RSP", response.CommandField)
	}
	if response.MessageIDBeingRespondedTo != 7 {
		t.Errorf("MessageIDBeingRespondedTo = %d, want 7", response.MessageIDBeingRespondedTo)
	}
	if response.AffectedSOPClassUID != request.AffectedSOPClassUID {
		t.Error("AffectedSOPClassUID not preserved from request")
	}
}
