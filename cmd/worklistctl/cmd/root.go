package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/bexahealth/dicomwl/client"
	"github.com/bexahealth/dicomwl/logging"
)

// NewRoot builds the worklistctl command tree.
func NewRoot(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "worklistctl",
		Short:         "manage and query modality worklist items",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logging.Setup(logging.Config{Level: logLevel})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		NewEchoCmd(ctx),
		NewCreateCmd(ctx),
		NewListCmd(ctx),
		NewGetCmd(ctx),
		NewBatchCmd(ctx),
	)

	pf := cmd.PersistentFlags()
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.StringP("output", "o", "text", "output format (text|json)")
	return cmd
}

// addDIMSEFlags registers the flags shared by commands that open a DICOM
// association.
func addDIMSEFlags(cmd *cobra.Command) {
	pf := cmd.Flags()
	pf.String("addr", "localhost:4242", "SCP address (host:port)")
	pf.String("calling-ae", client.DefaultCallingAETitle, "calling AE title")
	pf.String("called-ae", client.DefaultCalledAETitle, "called AE title")
}

func dimseConfig(cmd *cobra.Command) (string, client.Config) {
	addr, _ := cmd.Flags().GetString("addr")
	callingAE, _ := cmd.Flags().GetString("calling-ae")
	calledAE, _ := cmd.Flags().GetString("called-ae")
	return addr, client.Config{
		CallingAETitle: callingAE,
		CalledAETitle:  calledAE,
	}
}

// parseDateFlag accepts anything dateparse understands, so operators can
// write 2025-01-07, 20250107 or "Jan 7 2025" interchangeably.
func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s value %q: %w", name, value, err)
	}
	return t, nil
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	if format != "json" {
		return "text"
	}
	return format
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
