package dimse

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/bexahealth/dicomwl/types"
)

// mockPDULayer records the responses a handler sends.
type mockPDULayer struct {
	commands [][]byte
	datasets [][]byte
	ctxIDs   []byte
}

func (m *mockPDULayer) SendDIMSEResponse(presContextID byte, commandData []byte) error {
	return m.SendDIMSEResponseWithDataset(presContextID, commandData, nil)
}

func (m *mockPDULayer) SendDIMSEResponseWithDataset(presContextID byte, commandData []byte, datasetData []byte) error {
	m.ctxIDs = append(m.ctxIDs, presContextID)
	m.commands = append(m.commands, commandData)
	m.datasets = append(m.datasets, datasetData)
	return nil
}

// echoBackHandler responds to any message with a success response and
// records what it saw.
type echoBackHandler struct {
	gotMsg  *types.Message
	gotData []byte
}

func (h *echoBackHandler) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	h.gotMsg = msg
	h.gotData = data
	return &types.Message{
		CommandField:              types.ResponseCommandFor(msg.CommandField),
		MessageIDBeingRespondedTo: msg.MessageID,
		CommandDataSetType:        types.NoDataSet,
		Status:                    StatusSuccess,
	}, nil, nil
}

// streamingHandler emits two responses per message.
type streamingHandler struct {
	echoBackHandler
}

func (h *streamingHandler) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, sender ResponseSender) error {
	h.gotMsg = msg
	h.gotData = data

	pending := &types.Message{
		CommandField:              types.ResponseCommandFor(msg.CommandField),
		MessageIDBeingRespondedTo: msg.MessageID,
		CommandDataSetType:        types.DataSetPresent,
		Status:                    StatusPending,
	}
	if err := sender.SendResponse(pending, []byte{0x01, 0x02}); err != nil {
		return err
	}
	final := &types.Message{
		CommandField:              types.ResponseCommandFor(msg.CommandField),
		MessageIDBeingRespondedTo: msg.MessageID,
		CommandDataSetType:        types.NoDataSet,
		Status:                    StatusSuccess,
	}
	return sender.SendResponse(final, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceDispatchesCommandOnlyMessage(t *testing.T) {
	handler := &echoBackHandler{}
	service := NewService(handler, discardLogger())
	layer := &mockPDULayer{}

	command := EncodeCommand(&types.Message{
		CommandField:        CEchoRQ,
		MessageID:           5,
		CommandDataSetType:  types.NoDataSet,
		AffectedSOPClassUID: types.VerificationSOPClass,
	})

	if err := service.HandleDIMSEMessage(1, pdvCommand|pdvLastFragment, command, layer); err != nil {
		t.Fatalf("HandleDIMSEMessage failed: %v", err)
	}

	if handler.gotMsg == nil || handler.gotMsg.MessageID != 5 {
		t.Fatalf("handler saw %+v, want message ID 5", handler.gotMsg)
	}
	if len(layer.commands) != 1 {
		t.Fatalf("got %d responses, want 1", len(layer.commands))
	}

	resp, err := DecodeCommand(layer.commands[0])
	if err != nil {
		t.Fatalf("response command undecodable: %v", err)
	}
	if resp.CommandField != CEchoRSP || resp.MessageIDBeingRespondedTo != 5 {
		t.Errorf("response = %+v, want C-ECHO-RSP to message 5", resp)
	}
}

func TestServiceReassemblesFragmentedCommand(t *testing.T) {
	handler := &echoBackHandler{}
	service := NewService(handler, discardLogger())
	layer := &mockPDULayer{}

	command := EncodeCommand(&types.Message{
		CommandField:        CEchoRQ,
		MessageID:           6,
		CommandDataSetType:  types.NoDataSet,
		AffectedSOPClassUID: types.VerificationSOPClass,
	})

	half := len(command) / 2
	if err := service.HandleDIMSEMessage(1, pdvCommand, command[:half], layer); err != nil {
		t.Fatalf("first fragment failed: %v", err)
	}
	if handler.gotMsg != nil {
		t.Fatal("handler invoked before the final fragment")
	}
	if err := service.HandleDIMSEMessage(1, pdvCommand|pdvLastFragment, command[half:], layer); err != nil {
		t.Fatalf("final fragment failed: %v", err)
	}
	if handler.gotMsg == nil || handler.gotMsg.MessageID != 6 {
		t.Fatalf("handler saw %+v, want message ID 6", handler.gotMsg)
	}
}

func TestServiceWaitsForDataset(t *testing.T) {
	handler := &echoBackHandler{}
	service := NewService(handler, discardLogger())
	layer := &mockPDULayer{}

	command := EncodeCommand(&types.Message{
		CommandField:        CFindRQ,
		MessageID:           7,
		CommandDataSetType:  types.DataSetPresent,
		AffectedSOPClassUID: types.ModalityWorklistInformationFind,
	})

	if err := service.HandleDIMSEMessage(3, pdvCommand|pdvLastFragment, command, layer); err != nil {
		t.Fatalf("command fragment failed: %v", err)
	}
	if handler.gotMsg != nil {
		t.Fatal("handler invoked before the dataset arrived")
	}

	dataset := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	if err := service.HandleDIMSEMessage(3, 0, dataset[:2], layer); err != nil {
		t.Fatalf("dataset fragment failed: %v", err)
	}
	if err := service.HandleDIMSEMessage(3, pdvLastFragment, dataset[2:], layer); err != nil {
		t.Fatalf("final dataset fragment failed: %v", err)
	}

	if handler.gotMsg == nil || handler.gotMsg.MessageID != 7 {
		t.Fatalf("handler saw %+v, want message ID 7", handler.gotMsg)
	}
	if len(handler.gotData) != 4 {
		t.Errorf("handler got %d dataset bytes, want 4", len(handler.gotData))
	}
}

func TestServiceStreamingHandlerSendsMultipleResponses(t *testing.T) {
	handler := &streamingHandler{}
	service := NewService(handler, discardLogger())
	layer := &mockPDULayer{}

	command := EncodeCommand(&types.Message{
		CommandField:        CFindRQ,
		MessageID:           8,
		CommandDataSetType:  types.DataSetPresent,
		AffectedSOPClassUID: types.ModalityWorklistInformationFind,
	})

	if err := service.HandleDIMSEMessage(3, pdvCommand|pdvLastFragment, command, layer); err != nil {
		t.Fatalf("command fragment failed: %v", err)
	}
	if err := service.HandleDIMSEMessage(3, pdvLastFragment, []byte{0x01}, layer); err != nil {
		t.Fatalf("dataset fragment failed: %v", err)
	}

	if len(layer.commands) != 2 {
		t.Fatalf("got %d responses, want pending + final", len(layer.commands))
	}

	pending, err := DecodeCommand(layer.commands[0])
	if err != nil {
		t.Fatalf("pending response undecodable: %v", err)
	}
	if pending.Status != StatusPending {
		t.Errorf("first response status = 0x%04X, want pending", pending.Status)
	}
	if len(layer.datasets[0]) == 0 {
		t.Error("pending response carries no dataset")
	}

	final, err := DecodeCommand(layer.commands[1])
	if err != nil {
		t.Fatalf("final response undecodable: %v", err)
	}
	if final.Status != StatusSuccess {
		t.Errorf("final response status = 0x%04X, want success", final.Status)
	}
}
