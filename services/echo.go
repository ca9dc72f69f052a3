// Package services provides the DICOM service implementations exposed by
// the worklist server: verification and worklist query.
package services

import (
	"context"
	"log/slog"

	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

// EchoService handles C-ECHO verification requests.
//
// C-ECHO verifies connectivity and application-level communication between
// two application entities. The service is stateless and always reports
// success.
type EchoService struct{}

// NewEchoService creates a C-ECHO service instance.
func NewEchoService() *EchoService {
	return &EchoService{}
}

// HandleDIMSE processes a C-ECHO request and returns a success response.
func (s *EchoService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	slog.DebugContext(ctx, "Processing C-ECHO request",
		"message_id", msg.MessageID,
		"affected_sop_class", msg.AffectedSOPClassUID)

	response := &types.Message{
		CommandField:              dimse.CEchoRSP,
		MessageIDBeingRespondedTo: msg.MessageID,
		AffectedSOPClassUID:       types.VerificationSOPClass,
		CommandDataSetType:        types.NoDataSet,
		Status:                    dimse.StatusSuccess,
	}

	slog.InfoContext(ctx, "C-ECHO request successful", "message_id", msg.MessageID)
	return response, nil, nil
}

// HealthCheck reports whether the echo service is operational. It has no
// dependencies, so it always is.
func (s *EchoService) HealthCheck(ctx context.Context) error {
	return nil
}
