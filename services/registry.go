package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

// Registry routes incoming DIMSE messages to service handlers by command
// field. It supports both single-response and streaming (multi-response)
// operations.
//
// Example usage:
//
//	registry := services.NewRegistry()
//	registry.RegisterHandler(dimse.CEchoRQ, echoService)
//	registry.RegisterHandler(dimse.CFindRQ, worklistService)
type Registry struct {
	handlers map[uint16]dimse.ServiceHandler
}

// NewRegistry creates an empty registry. Use RegisterHandler to add
// service handlers.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[uint16]dimse.ServiceHandler),
	}
}

// RegisterHandler registers a handler for a DIMSE command field. Only one
// handler can be registered per command; registering again replaces the
// previous one.
func (r *Registry) RegisterHandler(commandField uint16, handler dimse.ServiceHandler) {
	r.handlers[commandField] = handler
}

// UnregisterHandler removes the handler for a command field. Messages with
// this command then fail with an unsupported-command error.
func (r *Registry) UnregisterHandler(commandField uint16) {
	delete(r.handlers, commandField)
}

// HandleDIMSE routes a message to its handler and returns the single
// response. For multi-response operations prefer HandleDIMSEStreaming.
func (r *Registry) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	slog.DebugContext(ctx, "Routing DIMSE message",
		"command_field", fmt.Sprintf("0x%04x", msg.CommandField),
		"message_id", msg.MessageID)

	handler, ok := r.handlers[msg.CommandField]
	if !ok {
		slog.WarnContext(ctx, "No handler registered for DIMSE command",
			"command_field", fmt.Sprintf("0x%04x", msg.CommandField))
		return nil, nil, fmt.Errorf("unsupported DIMSE command: 0x%04x", msg.CommandField)
	}

	return handler.HandleDIMSE(ctx, msg, data)
}

// HandleDIMSEStreaming routes a message to its handler using the streaming
// interface when available, falling back to a single response otherwise.
func (r *Registry) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, responder dimse.ResponseSender) error {
	slog.DebugContext(ctx, "Routing streaming DIMSE message",
		"command_field", fmt.Sprintf("0x%04x", msg.CommandField),
		"message_id", msg.MessageID)

	handler, ok := r.handlers[msg.CommandField]
	if !ok {
		slog.WarnContext(ctx, "No handler registered for DIMSE command",
			"command_field", fmt.Sprintf("0x%04x", msg.CommandField))
		return fmt.Errorf("unsupported DIMSE command: 0x%04x", msg.CommandField)
	}

	if streamingHandler, ok := handler.(dimse.StreamingServiceHandler); ok {
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, responder)
	}

	responseMsg, responseData, err := handler.HandleDIMSE(ctx, msg, data)
	if err != nil {
		return err
	}
	return responder.SendResponse(responseMsg, responseData)
}

// HasHandler reports whether a handler is registered for the command field.
func (r *Registry) HasHandler(commandField uint16) bool {
	_, ok := r.handlers[commandField]
	return ok
}

// RegisteredCommands returns the command fields with registered handlers.
func (r *Registry) RegisteredCommands() []uint16 {
	commands := make([]uint16, 0, len(r.handlers))
	for cmd := range r.handlers {
		commands = append(commands, cmd)
	}
	return commands
}

// CreateErrorResponse builds a standard DIMSE error response for a failed
// request: response command field (request | 0x8000), the message ID being
// responded to and the given status, with no dataset.
func CreateErrorResponse(req *types.Message, status uint16) *types.Message {
	return &types.Message{
		CommandField:              types.ResponseCommandFor(req.CommandField),
		MessageIDBeingRespondedTo: req.MessageID,
		AffectedSOPClassUID:       req.AffectedSOPClassUID,
		CommandDataSetType:        types.NoDataSet,
		Status:                    status,
	}
}
