package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bexahealth/dicomwl/client"
)

// NewEchoCmd builds the echo command: a C-ECHO round trip against an SCP.
func NewEchoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "verify connectivity with C-ECHO",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, config := dimseConfig(cmd)

			assoc, err := client.Connect(addr, config)
			if err != nil {
				return err
			}
			defer assoc.Close()

			if err := assoc.Echo(1); err != nil {
				return err
			}
			fmt.Printf("echo %s: ok\n", addr)
			return nil
		},
	}
	addDIMSEFlags(cmd)
	return cmd
}
