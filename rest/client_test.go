package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/mwl"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestUploadInstance(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	var gotPath, gotContentType string
	var gotBody []byte
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"ID":"inst-42","Status":"Success"}`))
	})

	id, err := c.UploadInstance(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "inst-42", id)
	assert.Equal(t, "POST /instances", gotPath)
	assert.Equal(t, "application/dicom", gotContentType)
	assert.Equal(t, payload, gotBody)
}

func TestFindWorklistRequestShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`["id-1","id-2"]`))
	})

	filter := mwl.Filter{
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		PatientName: "DOE*",
		Modality:    "US",
	}
	ids, err := c.FindWorklist(context.Background(), "orthanc", filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-2"}, ids)
	assert.Equal(t, "POST /modalities/orthanc/find-worklist", gotPath)

	assert.Equal(t, "WorkList", gotBody["Level"])
	query, ok := gotBody["Query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DOE*", query["PatientName"])
	assert.Equal(t, "", query["AccessionNumber"])
	assert.Equal(t, "", query["PatientID"])

	seqWrapper, ok := query["ScheduledProcedureStepSequence"].(map[string]any)
	require.True(t, ok)
	items, ok := seqWrapper["Sequence"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "US", item["Modality"])
	assert.Equal(t, "20250101-20250131", item["ScheduledProcedureStepStartDate"])
}

func TestFindWorklistDefaultsPatientNameWildcard(t *testing.T) {
	var gotBody findRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`[]`))
	})

	ids, err := c.FindWorklist(context.Background(), "orthanc", mwl.Filter{})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, "*", gotBody.Query["PatientName"])
}

func TestFindWorklistRequiresModality(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.FindWorklist(context.Background(), "", mwl.Filter{})
	var verr *dicomerr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "modality", verr.Field)
}

func TestInstanceTagsPath(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.Write([]byte(`{"PatientName":"DOE^JOHN","PatientID":"PID001"}`))
	})

	tags, err := c.InstanceTags(context.Background(), "inst-42")
	require.NoError(t, err)
	assert.Equal(t, "GET /instances/inst-42/simplified-tags", gotPath)
	assert.Equal(t, "DOE^JOHN", tags["PatientName"])
}

func TestInstancePath(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.Write([]byte(`{"ID":"inst-42","Type":"Instance"}`))
	})

	doc, err := c.Instance(context.Background(), "inst-42")
	require.NoError(t, err)
	assert.Equal(t, "GET /instances/inst-42", gotPath)
	assert.Equal(t, "Instance", doc["Type"])
}

func TestAPIErrorOnFailureStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such modality", http.StatusNotFound)
	})

	_, err := c.FindWorklist(context.Background(), "missing", mwl.Filter{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "/modalities/missing/find-worklist", apiErr.Path)
	assert.Equal(t, "no such modality", apiErr.Body)
	assert.Contains(t, apiErr.Error(), "returned 404")
}

func TestBasicAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "orthanc" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ID":"inst-1"}`))
	}))
	defer srv.Close()

	authed := NewClient(Config{
		BaseURL:  srv.URL,
		Username: "orthanc",
		Password: "secret",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	id, err := authed.UploadInstance(context.Background(), []byte{0x00})
	require.NoError(t, err)
	assert.Equal(t, "inst-1", id)

	anon := NewClient(Config{
		BaseURL: srv.URL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	_, err = anon.UploadInstance(context.Background(), []byte{0x00})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestConnectErrorWhenServerUnreachable(t *testing.T) {
	c := NewClient(Config{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := c.UploadInstance(context.Background(), []byte{0x00})
	var cerr *dicomerr.ConnectError
	require.ErrorAs(t, err, &cerr)
}
