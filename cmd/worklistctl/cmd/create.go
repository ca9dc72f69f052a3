package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/mwl"
	"github.com/bexahealth/dicomwl/types"
)

// NewCreateCmd builds the create command: mint a worklist item and write it
// as a part-10 .wl file into the server's worklist directory.
func NewCreateCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a worklist item file",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDateFlag(cmd, "start")
			if err != nil {
				return err
			}

			patientName, _ := cmd.Flags().GetString("patient-name")
			patientID, _ := cmd.Flags().GetString("patient-id")
			accession, _ := cmd.Flags().GetString("accession")
			birthDate, _ := cmd.Flags().GetString("birth-date")
			sex, _ := cmd.Flags().GetString("sex")
			modality, _ := cmd.Flags().GetString("modality")
			description, _ := cmd.Flags().GetString("description")
			station, _ := cmd.Flags().GetString("station")
			physician, _ := cmd.Flags().GetString("physician")
			referring, _ := cmd.Flags().GetString("referring-physician")
			alerts, _ := cmd.Flags().GetString("medical-alerts")
			allergies, _ := cmd.Flags().GetString("allergies")
			dir, _ := cmd.Flags().GetString("dir")

			gen := mwl.UUIDGenerator{}
			item, err := mwl.NewItem(mwl.ItemParams{
				PatientName:        patientName,
				PatientID:          patientID,
				AccessionNumber:    accession,
				PatientBirthDate:   birthDate,
				PatientSex:         sex,
				Modality:           modality,
				Description:        description,
				StationName:        station,
				Start:              start,
				ScheduledPhysician: physician,
				ReferringPhysician: referring,
				MedicalAlerts:      alerts,
				Allergies:          allergies,
			}, gen)
			if err != nil {
				return err
			}

			path := filepath.Join(dir, accession+".wl")
			meta := dataset.FileMeta{
				MediaStorageSOPClassUID:    types.ModalityWorklistInformationFind,
				MediaStorageSOPInstanceUID: gen.NewUID(),
				TransferSyntaxUID:          types.ExplicitVRLittleEndian,
			}
			if err := dataset.WriteFile(path, item, meta); err != nil {
				return err
			}

			switch outputFormat(cmd) {
			case "json":
				return printJSON(map[string]string{
					"path":             path,
					"studyInstanceUID": item.GetString(types.TagStudyInstanceUID),
				})
			default:
				fmt.Printf("created %s (study %s)\n", path, item.GetString(types.TagStudyInstanceUID))
			}
			return nil
		},
	}

	pf := cmd.Flags()
	pf.String("patient-name", "", "patient name, Last^First (required)")
	pf.String("patient-id", "", "patient ID (required)")
	pf.String("accession", "", "accession number (required)")
	pf.String("birth-date", "", "patient birth date, YYYYMMDD")
	pf.String("sex", "", "patient sex (M, F, O)")
	pf.String("modality", mwl.DefaultModality, "scheduled modality")
	pf.String("description", mwl.DefaultProcedureDescription, "procedure description")
	pf.String("station", mwl.DefaultStationName, "scheduled station name")
	pf.String("start", "", "scheduled start (any common date format, default now)")
	pf.String("physician", "", "scheduled performing physician")
	pf.String("referring-physician", "", "referring physician name")
	pf.String("medical-alerts", "", "patient medical alerts")
	pf.String("allergies", "", "patient contrast allergies")
	pf.String("dir", "worklists", "directory for the generated .wl file")
	return cmd
}
