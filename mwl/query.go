package mwl

import (
	"time"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/types"
)

// QueryRetrieveLevelWorklist marks a dataset as a worklist query on the
// DIMSE side.
const QueryRetrieveLevelWorklist = "WORKLIST"

const dateLayout = "20060102"

// Filter narrows a worklist query. Zero values turn into universal matches.
type Filter struct {
	// StartDate and EndDate bound the scheduled procedure step start date.
	// Equal dates (or EndDate left zero) query a single day; both zero
	// matches any date.
	StartDate time.Time
	EndDate   time.Time
	// PatientName defaults to the wildcard "*".
	PatientName string
	// Modality filters inside the scheduled procedure step sequence; empty
	// matches all modalities.
	Modality string
}

// DateRange renders the scheduled start date constraint: empty for any
// date, "YYYYMMDD" for one day, "YYYYMMDD-YYYYMMDD" for a closed range.
func (f Filter) DateRange() string {
	switch {
	case f.StartDate.IsZero() && f.EndDate.IsZero():
		return ""
	case f.EndDate.IsZero() || f.EndDate.Equal(f.StartDate):
		return f.StartDate.Format(dateLayout)
	case f.StartDate.IsZero():
		return "-" + f.EndDate.Format(dateLayout)
	default:
		return f.StartDate.Format(dateLayout) + "-" + f.EndDate.Format(dateLayout)
	}
}

// BuildQuery assembles a modality worklist C-FIND identifier. Every return
// key is present: requested attributes are sent as empty (universal)
// matches, and scheduling constraints live inside the scheduled procedure
// step sequence item.
func BuildQuery(f Filter) *dataset.Dataset {
	patientName := f.PatientName
	if patientName == "" {
		patientName = "*"
	}

	sps := dataset.New()
	sps.Set(types.TagModality, f.Modality)
	sps.Set(types.TagSPSStartDate, f.DateRange())
	sps.Set(types.TagSPSStartTime, "")

	q := dataset.New()
	q.Set(types.TagAccessionNumber, "")
	q.Set(types.TagQueryRetrieveLevel, QueryRetrieveLevelWorklist)
	q.Set(types.TagPatientName, patientName)
	q.Set(types.TagPatientID, "")
	q.Set(types.TagStudyInstanceUID, "")
	q.Set(types.TagRequestedProcedureDescription, "")
	q.Set(types.TagScheduledProcedureStepSeq, []*dataset.Dataset{sps})
	return q
}
