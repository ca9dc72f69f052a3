package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/types"
)

// WorklistStore holds the worklist items served to C-FIND clients. Safe for
// concurrent use.
type WorklistStore struct {
	mu    sync.RWMutex
	items []*dataset.Dataset
}

// NewWorklistStore creates an empty store.
func NewWorklistStore() *WorklistStore {
	return &WorklistStore{}
}

// Add appends a worklist item.
func (s *WorklistStore) Add(item *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// Items returns a snapshot of the stored worklist items.
func (s *WorklistStore) Items() []*dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*dataset.Dataset(nil), s.items...)
}

// Len returns the number of stored items.
func (s *WorklistStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// LoadDir reads every .wl and .dcm file under dir into the store. Files
// that fail to parse are skipped with a warning.
func (s *WorklistStore) LoadDir(dir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read worklist directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".wl" && ext != ".dcm" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		item, _, err := dataset.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable worklist file", "path", path, "error", err)
			continue
		}
		s.Add(item)
		loaded++
	}

	logger.Info("Loaded worklist items", "dir", dir, "count", loaded)
	return loaded, nil
}

// WorklistService answers modality worklist C-FIND requests from a store.
// Each matching item is streamed as a pending response, followed by a final
// success response.
type WorklistService struct {
	store  *WorklistStore
	logger *slog.Logger
}

// NewWorklistService creates a worklist C-FIND service over a store.
func NewWorklistService(store *WorklistStore, logger *slog.Logger) *WorklistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorklistService{store: store, logger: logger}
}

// HandleDIMSE satisfies dimse.ServiceHandler for single-response dispatch.
// C-FIND is inherently multi-response, so the non-streaming path reports
// only the terminal status.
func (s *WorklistService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	matches, _, err := s.match(ctx, msg, data)
	if err != nil {
		return CreateErrorResponse(msg, 0xC000), nil, nil
	}
	s.logger.InfoContext(ctx, "Worklist query evaluated", "matches", len(matches))
	return NewCFindSuccessResponse(msg), nil, nil
}

// HandleDIMSEStreaming streams pending responses for each match, then the
// final success response.
func (s *WorklistService) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, sender dimse.ResponseSender) error {
	matches, transferSyntax, err := s.match(ctx, msg, data)
	if err != nil {
		s.logger.WarnContext(ctx, "Worklist query failed", "error", err)
		return sender.SendResponse(CreateErrorResponse(msg, 0xC000), nil)
	}

	for i, item := range matches {
		encoded, err := dataset.Encode(item, transferSyntax)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to encode worklist match",
				"match", i+1, "error", err)
			return sender.SendResponse(CreateErrorResponse(msg, 0xC000), nil)
		}
		if err := sender.SendResponse(NewCFindPendingResponse(msg), encoded); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "Worklist query complete",
		"message_id", msg.MessageID,
		"matches", len(matches))
	return sender.SendResponse(NewCFindSuccessResponse(msg), nil)
}

func (s *WorklistService) match(ctx context.Context, msg *types.Message, data []byte) ([]*dataset.Dataset, string, error) {
	if msg.CommandField != dimse.CFindRQ {
		return nil, "", fmt.Errorf("unexpected command 0x%04x", msg.CommandField)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("c-find request carries no identifier")
	}

	transferSyntax := dataset.SniffTransferSyntax(data)
	query, err := dataset.Decode(data, transferSyntax)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode query: %w", err)
	}

	s.logger.DebugContext(ctx, "Evaluating worklist query",
		"keys", query.Len(),
		"transfer_syntax", transferSyntax)

	var matches []*dataset.Dataset
	for _, item := range s.store.Items() {
		if MatchWorklist(query, item) {
			matches = append(matches, filterToQuery(query, item))
		}
	}
	return matches, transferSyntax, nil
}

// filterToQuery projects a matched item onto the query's return keys. Keys
// the item lacks come back empty, as C-FIND requires.
func filterToQuery(query, item *dataset.Dataset) *dataset.Dataset {
	result := dataset.New()
	for _, el := range query.Elements() {
		if el.Tag == types.TagQueryRetrieveLevel {
			result.SetWithVR(el.Tag, el.VR, el.Value)
			continue
		}

		if queryItems, ok := el.Value.([]*dataset.Dataset); ok {
			items := item.GetSequence(el.Tag)
			if len(items) == 0 {
				result.SetWithVR(el.Tag, el.VR, []*dataset.Dataset{})
				continue
			}
			var projected []*dataset.Dataset
			for _, candidate := range items {
				sub := candidate
				if len(queryItems) > 0 {
					sub = filterToQuery(queryItems[0], candidate)
				}
				projected = append(projected, sub)
			}
			result.SetWithVR(el.Tag, el.VR, projected)
			continue
		}

		if matched, ok := item.Get(el.Tag); ok {
			result.SetWithVR(matched.Tag, matched.VR, matched.Value)
		} else {
			result.SetWithVR(el.Tag, el.VR, "")
		}
	}
	return result
}
