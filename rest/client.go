// Package rest talks to an Orthanc-style HTTP API: instance upload,
// worklist queries via a modality, and instance inspection.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/mwl"
)

// Config holds REST client settings. Zero values select defaults.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration // default 30s
	Logger   *slog.Logger

	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a thin Orthanc REST API client.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a REST client for the given server.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     httpClient,
		logger:   logger,
	}
}

// APIError reports a non-2xx response from the server.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dicomerr.NewConnectError(c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(payload)),
		}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// UploadInstance posts a part-10 encoded instance and returns the server's
// instance ID.
func (c *Client) UploadInstance(ctx context.Context, data []byte) (string, error) {
	var result struct {
		ID string `json:"ID"`
	}
	if err := c.do(ctx, http.MethodPost, "/instances", "application/dicom", data, &result); err != nil {
		return "", err
	}
	c.logger.Debug("Uploaded instance", "id", result.ID, "size_bytes", len(data))
	return result.ID, nil
}

type findRequest struct {
	Level string         `json:"Level"`
	Query map[string]any `json:"Query"`
}

// worklistQueryBody mirrors the DIMSE worklist query in the server's JSON
// dialect: every return key present, empty strings as universal matches,
// scheduling constraints inside the sequence item.
func worklistQueryBody(f mwl.Filter) map[string]any {
	patientName := f.PatientName
	if patientName == "" {
		patientName = "*"
	}
	return map[string]any{
		"AccessionNumber":               "",
		"PatientName":                   patientName,
		"PatientID":                     "",
		"StudyInstanceUID":              "",
		"RequestedProcedureDescription": "",
		"ScheduledProcedureStepSequence": map[string]any{
			"Sequence": []any{
				map[string]any{
					"Modality":                        f.Modality,
					"ScheduledProcedureStepStartDate": f.DateRange(),
					"ScheduledProcedureStepStartTime": "",
				},
			},
		},
	}
}

// FindWorklist asks the server to query a configured modality's worklist.
// It returns the matching worklist instance identifiers.
func (c *Client) FindWorklist(ctx context.Context, modality string, filter mwl.Filter) ([]string, error) {
	if modality == "" {
		return nil, dicomerr.NewValidationError("modality", "modality name is required")
	}

	body, err := json.Marshal(findRequest{Level: "WorkList", Query: worklistQueryBody(filter)})
	if err != nil {
		return nil, err
	}

	var ids []string
	path := fmt.Sprintf("/modalities/%s/find-worklist", modality)
	if err := c.do(ctx, http.MethodPost, path, "application/json", body, &ids); err != nil {
		return nil, err
	}

	c.logger.Debug("Worklist query complete", "modality", modality, "matches", len(ids))
	return ids, nil
}

// Instance fetches an instance's resource document.
func (c *Client) Instance(ctx context.Context, id string) (map[string]any, error) {
	var doc map[string]any
	if err := c.do(ctx, http.MethodGet, "/instances/"+id, "", nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// InstanceTags fetches an instance's attributes as a flat name-to-value
// document.
func (c *Client) InstanceTags(ctx context.Context, id string) (map[string]any, error) {
	var tags map[string]any
	if err := c.do(ctx, http.MethodGet, "/instances/"+id+"/simplified-tags", "", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
