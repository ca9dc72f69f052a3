package dimse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bexahealth/dicomwl/types"
)

// PDULayer sends responses back over the association.
type PDULayer interface {
	SendDIMSEResponse(presContextID byte, commandData []byte) error
	SendDIMSEResponseWithDataset(presContextID byte, commandData []byte, datasetData []byte) error
}

// Service reassembles incoming DIMSE fragments and routes complete messages
// to a handler. One Service instance serves one association.
type Service struct {
	handler     ServiceHandler
	commandData []byte
	datasetData []byte
	currentMsg  *types.Message
	logger      *slog.Logger
}

// NewService creates a DIMSE service around a handler.
func NewService(handler ServiceHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{handler: handler, logger: logger}
}

// responseHandler adapts the PDU layer into a ResponseSender for streaming
// handlers.
type responseHandler struct {
	service       *Service
	presContextID byte
	pduLayer      PDULayer
}

func (r *responseHandler) SendResponse(msg *types.Message, data []byte) error {
	return r.service.sendResponse(msg, data, r.presContextID, r.pduLayer)
}

// HandleDIMSEMessage accumulates PDV fragments and dispatches the message
// once the final fragment arrives.
func (d *Service) HandleDIMSEMessage(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer PDULayer) error {
	ctx := context.Background()

	isCommand := msgCtrlHeader&pdvCommand != 0
	isLastFragment := msgCtrlHeader&pdvLastFragment != 0

	if isCommand {
		d.commandData = append(d.commandData, data...)
		if !isLastFragment {
			return nil
		}
		msg, err := DecodeCommand(d.commandData)
		if err != nil {
			return fmt.Errorf("failed to parse DIMSE command: %w", err)
		}
		d.commandData = nil
		d.currentMsg = msg

		if !msg.HasDataset() {
			return d.processCompleteMessage(ctx, presContextID, pduLayer)
		}
		return nil
	}

	d.datasetData = append(d.datasetData, data...)
	if isLastFragment {
		return d.processCompleteMessage(ctx, presContextID, pduLayer)
	}
	return nil
}

func (d *Service) processCompleteMessage(ctx context.Context, presContextID byte, pduLayer PDULayer) error {
	if d.currentMsg == nil {
		return fmt.Errorf("no current message to process")
	}

	msg, data := d.currentMsg, d.datasetData
	d.currentMsg = nil
	d.datasetData = nil

	d.logger.InfoContext(ctx, "Processing DIMSE message",
		"command_field", fmt.Sprintf("0x%04x", msg.CommandField),
		"message_id", msg.MessageID,
		"dataset_size", len(data))

	if streamingHandler, ok := d.handler.(StreamingServiceHandler); ok {
		responder := &responseHandler{
			service:       d,
			presContextID: presContextID,
			pduLayer:      pduLayer,
		}
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, responder)
	}

	responseMsg, responseData, err := d.handler.HandleDIMSE(ctx, msg, data)
	if err != nil {
		return fmt.Errorf("service handler failed: %w", err)
	}

	return d.sendResponse(responseMsg, responseData, presContextID, pduLayer)
}

func (d *Service) sendResponse(msg *types.Message, data []byte, presContextID byte, pduLayer PDULayer) error {
	return pduLayer.SendDIMSEResponseWithDataset(presContextID, EncodeCommand(msg), data)
}
