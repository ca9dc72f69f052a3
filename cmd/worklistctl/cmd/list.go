package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bexahealth/dicomwl/client"
	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/mwl"
	"github.com/bexahealth/dicomwl/rest"
)

// NewListCmd builds the list command: query worklist items over DIMSE
// C-FIND, or through a REST gateway when --rest-url is set.
func NewListCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "query scheduled worklist items",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := listFilter(cmd)
			if err != nil {
				return err
			}

			restURL, _ := cmd.Flags().GetString("rest-url")
			if restURL != "" {
				return listViaREST(ctx, cmd, restURL, filter)
			}
			return listViaDIMSE(cmd, filter)
		},
	}

	addDIMSEFlags(cmd)
	pf := cmd.Flags()
	pf.String("from", "", "earliest scheduled start date")
	pf.String("to", "", "latest scheduled start date")
	pf.String("patient", "", "patient name filter (wildcards allowed)")
	pf.String("modality", "", "modality filter (e.g. US)")
	pf.String("rest-url", "", "query through a REST gateway instead of DIMSE")
	pf.String("rest-modality", "", "gateway modality to query through")
	pf.String("rest-user", "", "REST basic auth username")
	pf.String("rest-pass", "", "REST basic auth password")
	return cmd
}

func listFilter(cmd *cobra.Command) (mwl.Filter, error) {
	from, err := parseDateFlag(cmd, "from")
	if err != nil {
		return mwl.Filter{}, err
	}
	to, err := parseDateFlag(cmd, "to")
	if err != nil {
		return mwl.Filter{}, err
	}
	patient, _ := cmd.Flags().GetString("patient")
	modality, _ := cmd.Flags().GetString("modality")
	return mwl.Filter{
		StartDate:   from,
		EndDate:     to,
		PatientName: patient,
		Modality:    modality,
	}, nil
}

func listViaDIMSE(cmd *cobra.Command, filter mwl.Filter) error {
	addr, config := dimseConfig(cmd)

	assoc, err := client.Connect(addr, config)
	if err != nil {
		return err
	}
	defer assoc.Close()

	matches, err := assoc.Find(&client.FindRequest{Query: mwl.BuildQuery(filter)})
	if err != nil {
		return err
	}

	policy := dataset.DefaultProjectionPolicy()
	switch outputFormat(cmd) {
	case "json":
		projections := make([]*dataset.Projection, 0, len(matches))
		for _, m := range matches {
			projections = append(projections, dataset.Project(m, policy))
		}
		return printJSON(projections)
	default:
		for i, m := range matches {
			fmt.Printf("--- match %d ---\n%s", i+1, dataset.Project(m, policy).Text())
		}
		fmt.Printf("%d item(s)\n", len(matches))
	}
	return nil
}

func listViaREST(ctx context.Context, cmd *cobra.Command, baseURL string, filter mwl.Filter) error {
	modality, _ := cmd.Flags().GetString("rest-modality")
	if modality == "" {
		return fmt.Errorf("--rest-modality is required with --rest-url")
	}
	username, _ := cmd.Flags().GetString("rest-user")
	password, _ := cmd.Flags().GetString("rest-pass")

	c := rest.NewClient(rest.Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})
	ids, err := c.FindWorklist(ctx, modality, filter)
	if err != nil {
		return err
	}

	switch outputFormat(cmd) {
	case "json":
		return printJSON(ids)
	default:
		for _, id := range ids {
			fmt.Println(id)
		}
		fmt.Printf("%d item(s)\n", len(ids))
	}
	return nil
}
