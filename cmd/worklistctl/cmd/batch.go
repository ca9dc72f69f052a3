package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bexahealth/dicomwl/client"
	"github.com/bexahealth/dicomwl/convert"
	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/mwl"
	"github.com/bexahealth/dicomwl/rest"
	"github.com/bexahealth/dicomwl/types"
)

// NewBatchCmd builds the batch command: convert a directory of attribute
// dump files into part-10 worklist files and optionally push each one to an
// SCP with C-STORE or to a REST gateway.
func NewBatchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "convert and distribute a directory of dump files",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			store, _ := cmd.Flags().GetBool("store")
			restURL, _ := cmd.Flags().GetString("rest-url")

			entries, err := os.ReadDir(in)
			if err != nil {
				return err
			}

			gen := mwl.UUIDGenerator{}
			var results []batchResult
			var failed int
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
					continue
				}
				src := filepath.Join(in, entry.Name())
				res := processDump(ctx, cmd, src, out, store, restURL, gen)
				if res.Error != "" {
					failed++
				}
				results = append(results, res)
			}

			switch outputFormat(cmd) {
			case "json":
				if err := printJSON(results); err != nil {
					return err
				}
			default:
				for _, r := range results {
					if r.Error != "" {
						fmt.Printf("%s: FAILED: %s\n", r.Source, r.Error)
						continue
					}
					fmt.Printf("%s: ok%s\n", r.Source, r.detail())
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
			}
			return nil
		},
	}

	addDIMSEFlags(cmd)
	pf := cmd.Flags()
	pf.String("in", ".", "directory of .txt dump files")
	pf.String("out", "worklists", "directory for converted .wl files")
	pf.Bool("store", false, "also send each item to the SCP with C-STORE")
	pf.String("rest-url", "", "also upload each item to this REST gateway")
	pf.String("rest-user", "", "REST basic auth username")
	pf.String("rest-pass", "", "REST basic auth password")
	return cmd
}

type batchResult struct {
	Source     string `json:"source"`
	Output     string `json:"output,omitempty"`
	SOPUID     string `json:"sopInstanceUID,omitempty"`
	InstanceID string `json:"instanceID,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (r batchResult) detail() string {
	var sb strings.Builder
	if r.SOPUID != "" {
		fmt.Fprintf(&sb, " stored as %s", r.SOPUID)
	}
	if r.InstanceID != "" {
		fmt.Fprintf(&sb, " uploaded as %s", r.InstanceID)
	}
	return sb.String()
}

func processDump(ctx context.Context, cmd *cobra.Command, src, out string, store bool, restURL string, gen mwl.UUIDGenerator) batchResult {
	res := batchResult{Source: src}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(out, base+".wl")
	if err := convert.ConvertFile(src, dst, gen); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = dst

	if !store && restURL == "" {
		return res
	}

	ds, _, err := dataset.ReadFile(dst)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if store {
		uid, err := storeDataset(cmd, ds, gen)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.SOPUID = uid
	}

	if restURL != "" {
		id, err := uploadDataset(ctx, cmd, restURL, ds, gen)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.InstanceID = id
	}
	return res
}

func storeDataset(cmd *cobra.Command, ds *dataset.Dataset, gen mwl.UUIDGenerator) (string, error) {
	addr, config := dimseConfig(cmd)
	assoc, err := client.Connect(addr, config)
	if err != nil {
		return "", err
	}
	defer assoc.Close()
	return assoc.Store(ds, gen)
}

func uploadDataset(ctx context.Context, cmd *cobra.Command, baseURL string, ds *dataset.Dataset, gen mwl.UUIDGenerator) (string, error) {
	username, _ := cmd.Flags().GetString("rest-user")
	password, _ := cmd.Flags().GetString("rest-pass")
	c := rest.NewClient(rest.Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})

	var buf bytes.Buffer
	meta := dataset.FileMeta{
		MediaStorageSOPClassUID:    types.SecondaryCaptureImageStorage,
		MediaStorageSOPInstanceUID: gen.NewUID(),
		TransferSyntaxUID:          types.ExplicitVRLittleEndian,
	}
	if err := dataset.WriteTo(&buf, ds, meta); err != nil {
		return "", err
	}
	return c.UploadInstance(ctx, buf.Bytes())
}
