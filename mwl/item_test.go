package mwl

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

func validParams() ItemParams {
	return ItemParams{
		PatientName:     "DOE^JOHN",
		PatientID:       "PID001",
		AccessionNumber: "ACC001",
		Start:           time.Date(2025, 1, 7, 8, 30, 0, 0, time.UTC),
	}
}

func TestNewItemDefaults(t *testing.T) {
	gen := &SequenceGenerator{Prefix: "1.999"}
	item, err := NewItem(validParams(), gen)
	require.NoError(t, err)

	assert.Equal(t, DefaultCharacterSet, item.GetString(types.TagSpecificCharacterSet))
	assert.Equal(t, "ACC001", item.GetString(types.TagAccessionNumber))
	assert.Equal(t, "DOE^JOHN", item.GetString(types.TagPatientName))
	assert.Equal(t, "PID001", item.GetString(types.TagPatientID))
	assert.Equal(t, "1.999.1", item.GetString(types.TagStudyInstanceUID))
	assert.Equal(t, DefaultProcedureDescription, item.GetString(types.TagRequestedProcedureDescription))
	assert.Equal(t, "ACC001", item.GetString(types.TagRequestedProcedureID))

	sps := item.GetSequence(types.TagScheduledProcedureStepSeq)
	require.Len(t, sps, 1)
	assert.Equal(t, DefaultModality, sps[0].GetString(types.TagModality))
	assert.Equal(t, DefaultStationName, sps[0].GetString(types.TagScheduledStationAETitle))
	assert.Equal(t, DefaultStationName, sps[0].GetString(types.TagScheduledStationName))
	assert.Equal(t, "20250107", sps[0].GetString(types.TagSPSStartDate))
	assert.Equal(t, "083000", sps[0].GetString(types.TagSPSStartTime))
	assert.Equal(t, "ACC001", sps[0].GetString(types.TagSPSID))

	// optional demographics are omitted, not written empty
	assert.False(t, item.Has(types.TagReferringPhysician))
	assert.False(t, item.Has(types.TagMedicalAlerts))
	assert.False(t, item.Has(types.TagAllergies))
}

func TestNewItemExplicitFields(t *testing.T) {
	p := validParams()
	p.Modality = "CT"
	p.Description = "Chest CT"
	p.StationName = "CT_ROOM_2"
	p.StudyInstanceUID = "1.2.840.99.7"
	p.ScheduledPhysician = "SMITH^A"
	p.RequestedProcID = "RP42"
	p.PatientBirthDate = "19800115"
	p.PatientSex = "M"
	p.ReferringPhysician = "JONES^B"
	p.MedicalAlerts = "PACEMAKER"
	p.Allergies = "PENICILLIN"

	item, err := NewItem(p, &SequenceGenerator{Prefix: "1.999"})
	require.NoError(t, err)

	assert.Equal(t, "1.2.840.99.7", item.GetString(types.TagStudyInstanceUID))
	assert.Equal(t, "19800115", item.GetString(types.TagPatientBirthDate))
	assert.Equal(t, "M", item.GetString(types.TagPatientSex))
	assert.Equal(t, "Chest CT", item.GetString(types.TagRequestedProcedureDescription))
	assert.Equal(t, "RP42", item.GetString(types.TagRequestedProcedureID))
	assert.Equal(t, "JONES^B", item.GetString(types.TagReferringPhysician))
	assert.Equal(t, "PACEMAKER", item.GetString(types.TagMedicalAlerts))
	assert.Equal(t, "PENICILLIN", item.GetString(types.TagAllergies))

	sps := item.GetSequence(types.TagScheduledProcedureStepSeq)
	require.Len(t, sps, 1)
	assert.Equal(t, "CT", sps[0].GetString(types.TagModality))
	assert.Equal(t, "CT_ROOM_2", sps[0].GetString(types.TagScheduledStationAETitle))
	assert.Equal(t, "SMITH^A", sps[0].GetString(types.TagScheduledPerformingPhysician))
	assert.Equal(t, "Chest CT", sps[0].GetString(types.TagSPSDescription))
	assert.Equal(t, "RP42", sps[0].GetString(types.TagSPSID))
}

func TestNewItemValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ItemParams)
		field  string
	}{
		{"missing patient name", func(p *ItemParams) { p.PatientName = "" }, "patient_name"},
		{"missing patient id", func(p *ItemParams) { p.PatientID = "" }, "patient_id"},
		{"missing accession", func(p *ItemParams) { p.AccessionNumber = "" }, "accession_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := NewItem(p, &SequenceGenerator{Prefix: "1.999"})
			var verr *dicomerr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := NewItem(validParams(), nil)
	var verr *dicomerr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "generator", verr.Field)
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}
	first := gen.NewUID()
	second := gen.NewUID()

	assert.True(t, strings.HasPrefix(first, "2.25."), "got %q", first)
	assert.NotEqual(t, first, second)
	// the decimal arc value never carries leading zeros or signs
	assert.NotContains(t, first[5:], ".")
}

func TestSequenceGenerator(t *testing.T) {
	gen := &SequenceGenerator{Prefix: "1.2.3"}
	assert.Equal(t, "1.2.3.1", gen.NewUID())
	assert.Equal(t, "1.2.3.2", gen.NewUID())
}
