package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/bexahealth/dicomwl/client"
	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/dimse"
	"github.com/bexahealth/dicomwl/mwl"
	"github.com/bexahealth/dicomwl/services"
	"github.com/bexahealth/dicomwl/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stageWorklistDir writes two part-10 worklist items into a temp directory.
func stageWorklistDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gen := &mwl.SequenceGenerator{Prefix: "1.999"}

	items := []mwl.ItemParams{
		{PatientName: "DOE^JOHN", PatientID: "PID001", AccessionNumber: "ACC001", Modality: "US"},
		{PatientName: "ROE^JANE", PatientID: "PID002", AccessionNumber: "ACC002", Modality: "CT"},
	}
	for i, params := range items {
		item, err := mwl.NewItem(params, gen)
		if err != nil {
			t.Fatalf("failed to build worklist item: %v", err)
		}
		meta := dataset.FileMeta{
			MediaStorageSOPClassUID:    types.ModalityWorklistInformationFind,
			MediaStorageSOPInstanceUID: gen.NewUID(),
			TransferSyntaxUID:          types.ExplicitVRLittleEndian,
		}
		name := filepath.Join(dir, string(rune('a'+i))+".wl")
		if err := dataset.WriteFile(name, item, meta); err != nil {
			t.Fatalf("failed to stage worklist file: %v", err)
		}
	}
	return dir
}

// startServer runs the SCP on a loopback listener and returns its address
// and a stop function that waits for Serve to return.
func startServer(t *testing.T, srv *Server) (string, func()) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancellation")
		}
	}
	return listener.Addr().String(), stop
}

func TestServerAnswersEchoAndWorklistFind(t *testing.T) {
	srv, err := New(Config{
		WorklistDir: stageWorklistDir(t),
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if srv.Store().Len() != 2 {
		t.Fatalf("store holds %d items, want 2", srv.Store().Len())
	}

	addr, stop := startServer(t, srv)
	defer stop()

	// A small receive limit forces the server to fragment its responses.
	assoc, err := client.Connect(addr, client.Config{
		MaxPDULength: 256,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer assoc.Close()

	if err := assoc.Echo(1); err != nil {
		t.Fatalf("Echo failed: %v", err)
	}

	matches, err := assoc.Find(&client.FindRequest{Query: mwl.BuildQuery(mwl.Filter{Modality: "US"})})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if got := matches[0].GetString(types.TagPatientName); got != "DOE^JOHN" {
		t.Errorf("match patient name = %q, want DOE^JOHN", got)
	}

	// A universal query returns every staged item.
	matches, err = assoc.Find(&client.FindRequest{Query: mwl.BuildQuery(mwl.Filter{})})
	if err != nil {
		t.Fatalf("universal Find failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2", len(matches))
	}

	if err := assoc.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestServerConfigDefaults(t *testing.T) {
	srv, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if srv.config.AETitle != DefaultAETitle {
		t.Errorf("AE title = %q, want %q", srv.config.AETitle, DefaultAETitle)
	}
	if srv.config.ReadTimeout != 60*time.Second || srv.config.WriteTimeout != 60*time.Second {
		t.Errorf("timeouts = %v/%v, want 60s/60s", srv.config.ReadTimeout, srv.config.WriteTimeout)
	}
	if srv.Store().Len() != 0 {
		t.Errorf("store holds %d items, want none without a worklist dir", srv.Store().Len())
	}
}

func TestServerNewFailsOnMissingWorklistDir(t *testing.T) {
	_, err := New(Config{
		WorklistDir: filepath.Join(t.TempDir(), "absent"),
		Logger:      quietLogger(),
	})
	if err == nil {
		t.Error("New should fail when the worklist directory cannot be read")
	}
}

func TestServeRequiresListener(t *testing.T) {
	srv, err := New(Config{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var valErr *dicomerr.ValidationError
	if err := srv.Serve(context.Background(), nil); !errors.As(err, &valErr) {
		t.Errorf("Serve(nil) error = %v, want *ValidationError", err)
	}
}

// failingEchoService answers every C-ECHO with a failure status.
type failingEchoService struct{}

func (failingEchoService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	return services.NewCEchoResponse(msg, 0xC000), nil, nil
}

func TestServerRegisterHandlerReplacesService(t *testing.T) {
	srv, err := New(Config{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv.RegisterHandler(dimse.CEchoRQ, failingEchoService{})

	addr, stop := startServer(t, srv)
	defer stop()

	assoc, err := client.Connect(addr, client.Config{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer assoc.Close()

	var opErr *dicomerr.OperationFailedError
	if err := assoc.Echo(1); !errors.As(err, &opErr) {
		t.Errorf("Echo error = %v, want *OperationFailedError", err)
	}
}
