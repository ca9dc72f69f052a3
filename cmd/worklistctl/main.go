// worklistctl manages modality worklist items: create and stage them,
// query them over DIMSE or REST, and verify connectivity.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bexahealth/dicomwl/cmd/worklistctl/cmd"
)

func main() {
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()

	if err := cmd.NewRoot(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
