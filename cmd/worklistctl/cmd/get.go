package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bexahealth/dicomwl/rest"
)

// NewGetCmd builds the get command: fetch one instance's simplified tags
// from the REST API.
func NewGetCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <instance-id>",
		Short: "fetch an instance's tags from the REST API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, _ := cmd.Flags().GetString("rest-url")
			username, _ := cmd.Flags().GetString("rest-user")
			password, _ := cmd.Flags().GetString("rest-pass")

			c := rest.NewClient(rest.Config{
				BaseURL:  baseURL,
				Username: username,
				Password: password,
			})
			tags, err := c.InstanceTags(ctx, args[0])
			if err != nil {
				return err
			}

			switch outputFormat(cmd) {
			case "json":
				return printJSON(tags)
			default:
				keys := make([]string, 0, len(tags))
				for k := range tags {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("%s: %v\n", k, tags[k])
				}
			}
			return nil
		},
	}

	pf := cmd.Flags()
	pf.String("rest-url", "http://localhost:8042", "REST API base URL")
	pf.String("rest-user", "", "REST basic auth username")
	pf.String("rest-pass", "", "REST basic auth password")
	return cmd
}
