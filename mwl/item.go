package mwl

import (
	"time"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

// Defaults applied to worklist items when the caller leaves fields empty.
const (
	DefaultModality             = "US"
	DefaultProcedureDescription = "Ultrasound"
	DefaultStationName          = "STATION1"
	DefaultCharacterSet         = "ISO_IR 100"
)

const timeLayout = "150405"

// ItemParams describes a scheduled procedure for a new worklist item.
// PatientName, PatientID and AccessionNumber are required.
type ItemParams struct {
	PatientName      string
	PatientID        string
	AccessionNumber  string
	PatientBirthDate string // YYYYMMDD, optional
	PatientSex       string // optional

	ReferringPhysician string // optional
	MedicalAlerts      string // optional
	Allergies          string // optional

	Modality    string // default US
	Description string // default Ultrasound
	StationName string // default STATION1

	// Start is the scheduled procedure step start. Zero means now.
	Start time.Time

	// StudyInstanceUID is minted from the generator when empty.
	StudyInstanceUID string

	ScheduledPhysician string
	RequestedProcID    string
}

// NewItem builds a complete worklist item dataset. Required fields are
// validated up front and reported as *dicomerr.ValidationError.
func NewItem(p ItemParams, gen UIDGenerator) (*dataset.Dataset, error) {
	if p.PatientName == "" {
		return nil, dicomerr.NewValidationError("patient_name", "patient name is required")
	}
	if p.PatientID == "" {
		return nil, dicomerr.NewValidationError("patient_id", "patient ID is required")
	}
	if p.AccessionNumber == "" {
		return nil, dicomerr.NewValidationError("accession_number", "accession number is required")
	}
	if gen == nil {
		return nil, dicomerr.NewValidationError("generator", "a UID generator is required")
	}

	if p.Modality == "" {
		p.Modality = DefaultModality
	}
	if p.Description == "" {
		p.Description = DefaultProcedureDescription
	}
	if p.StationName == "" {
		p.StationName = DefaultStationName
	}
	if p.Start.IsZero() {
		p.Start = time.Now()
	}
	if p.StudyInstanceUID == "" {
		p.StudyInstanceUID = gen.NewUID()
	}
	if p.RequestedProcID == "" {
		p.RequestedProcID = p.AccessionNumber
	}

	sps := dataset.New()
	sps.Set(types.TagModality, p.Modality)
	sps.Set(types.TagScheduledStationAETitle, p.StationName)
	sps.Set(types.TagSPSStartDate, p.Start.Format(dateLayout))
	sps.Set(types.TagSPSStartTime, p.Start.Format(timeLayout))
	sps.Set(types.TagScheduledPerformingPhysician, p.ScheduledPhysician)
	sps.Set(types.TagSPSDescription, p.Description)
	sps.Set(types.TagSPSID, p.RequestedProcID)
	sps.Set(types.TagScheduledStationName, p.StationName)

	item := dataset.New()
	item.Set(types.TagSpecificCharacterSet, DefaultCharacterSet)
	item.Set(types.TagAccessionNumber, p.AccessionNumber)
	item.Set(types.TagPatientName, p.PatientName)
	item.Set(types.TagPatientID, p.PatientID)
	item.Set(types.TagPatientBirthDate, p.PatientBirthDate)
	item.Set(types.TagPatientSex, p.PatientSex)
	if p.ReferringPhysician != "" {
		item.Set(types.TagReferringPhysician, p.ReferringPhysician)
	}
	if p.MedicalAlerts != "" {
		item.Set(types.TagMedicalAlerts, p.MedicalAlerts)
	}
	if p.Allergies != "" {
		item.Set(types.TagAllergies, p.Allergies)
	}
	item.Set(types.TagStudyInstanceUID, p.StudyInstanceUID)
	item.Set(types.TagRequestedProcedureDescription, p.Description)
	item.Set(types.TagScheduledProcedureStepSeq, []*dataset.Dataset{sps})
	item.Set(types.TagRequestedProcedureID, p.RequestedProcID)
	return item, nil
}
