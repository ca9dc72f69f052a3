// mwlserver serves a modality worklist over DICOM: C-ECHO for
// verification and C-FIND over worklist items staged as part-10 files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bexahealth/dicomwl/logging"
	"github.com/bexahealth/dicomwl/server"
)

func main() {
	port := flag.Int("port", 4242, "TCP port to listen on")
	aeTitle := flag.String("ae", "MERCURE", "Server AE title")
	worklistDir := flag.String("dir", "worklists", "Directory of part-10 worklist files (.wl, .dcm)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Optional rotating log file")
	flag.Parse()

	logger := logging.Setup(logging.Config{
		Level:  *logLevel,
		Format: "json",
		File:   *logFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(server.Config{
		AETitle:     *aeTitle,
		WorklistDir: *worklistDir,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to start worklist server", "error", err)
		os.Exit(1)
	}

	address := fmt.Sprintf(":%d", *port)
	err = srv.ListenAndServe(ctx, address)
	switch {
	case err == nil:
		logger.Info("Worklist server shutdown complete")
	case errors.Is(err, context.Canceled):
		logger.Info("Worklist server stopped", "reason", err.Error())
	default:
		logger.Error("Worklist server terminated unexpectedly", "error", err)
		os.Exit(1)
	}
}
