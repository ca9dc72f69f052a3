package dimse

import (
	"context"

	"github.com/bexahealth/dicomwl/types"
)

// ServiceHandler processes a complete DIMSE request and produces a single
// response.
type ServiceHandler interface {
	HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error)
}

// ResponseSender emits intermediate responses during a streaming operation.
type ResponseSender interface {
	SendResponse(msg *types.Message, data []byte) error
}

// StreamingServiceHandler processes requests that yield multiple responses,
// such as C-FIND with its pending match stream.
type StreamingServiceHandler interface {
	ServiceHandler
	HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, sender ResponseSender) error
}
