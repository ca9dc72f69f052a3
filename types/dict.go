package types

// DictEntry describes a tag known to the worklist workflow: its canonical
// attribute name (as used in JSON projections) and value representation.
type DictEntry struct {
	Name string
	VR   string
}

// dictionary is the static tag table. Unknown tags fall back to VR UN and
// the (gggg,eeee) rendering of the tag; they are still carried through the
// codec untouched.
var dictionary = map[Tag]DictEntry{
	TagFileMetaInformationGroupLength: {"FileMetaInformationGroupLength", VR_UL},
	TagFileMetaInformationVersion:     {"FileMetaInformationVersion", VR_OB},
	TagMediaStorageSOPClassUID:        {"MediaStorageSOPClassUID", VR_UI},
	TagMediaStorageSOPInstanceUID:     {"MediaStorageSOPInstanceUID", VR_UI},
	TagTransferSyntaxUID:              {"TransferSyntaxUID", VR_UI},
	TagImplementationClassUID:         {"ImplementationClassUID", VR_UI},
	TagImplementationVersionName:      {"ImplementationVersionName", VR_SH},

	TagSpecificCharacterSet: {"SpecificCharacterSet", VR_CS},
	TagSOPClassUID:          {"SOPClassUID", VR_UI},
	TagSOPInstanceUID:       {"SOPInstanceUID", VR_UI},
	TagAccessionNumber:      {"AccessionNumber", VR_SH},
	TagQueryRetrieveLevel:   {"QueryRetrieveLevel", VR_CS},
	TagModality:             {"Modality", VR_CS},
	TagReferringPhysician:   {"ReferringPhysicianName", VR_PN},

	TagPatientName:      {"PatientName", VR_PN},
	TagPatientID:        {"PatientID", VR_LO},
	TagPatientBirthDate: {"PatientBirthDate", VR_DA},
	TagPatientSex:       {"PatientSex", VR_CS},
	TagPatientSize:      {"PatientSize", VR_DS},
	TagPatientWeight:    {"PatientWeight", VR_DS},
	TagMedicalAlerts:    {"MedicalAlerts", VR_LO},
	TagAllergies:        {"Allergies", VR_LO},

	TagStudyInstanceUID:              {"StudyInstanceUID", VR_UI},
	TagRequestedProcedureDescription: {"RequestedProcedureDescription", VR_LO},

	TagScheduledStationAETitle:      {"ScheduledStationAETitle", VR_AE},
	TagSPSStartDate:                 {"ScheduledProcedureStepStartDate", VR_DA},
	TagSPSStartTime:                 {"ScheduledProcedureStepStartTime", VR_TM},
	TagScheduledPerformingPhysician: {"ScheduledPerformingPhysicianName", VR_PN},
	TagSPSDescription:               {"ScheduledProcedureStepDescription", VR_LO},
	TagSPSID:                        {"ScheduledProcedureStepID", VR_SH},
	TagScheduledStationName:         {"ScheduledStationName", VR_SH},
	TagScheduledProcedureStepSeq:    {"ScheduledProcedureStepSequence", VR_SQ},
	TagRequestedProcedureID:         {"RequestedProcedureID", VR_SH},

	TagPixelData: {"PixelData", VR_OW},
}

// Lookup returns the dictionary entry for a tag.
func Lookup(tag Tag) (DictEntry, bool) {
	entry, ok := dictionary[tag]
	return entry, ok
}

// NameOf returns the canonical attribute name for a tag, or the tag's
// (gggg,eeee) form when the tag is not in the dictionary.
func NameOf(tag Tag) string {
	if entry, ok := dictionary[tag]; ok {
		return entry.Name
	}
	return tag.String()
}

// VROf returns the dictionary VR for a tag, or UN when unknown. Used when
// decoding Implicit VR datasets, which carry no VR on the wire.
func VROf(tag Tag) string {
	if entry, ok := dictionary[tag]; ok {
		return entry.VR
	}
	return VR_UN
}

// TagByName resolves a canonical attribute name back to its tag.
func TagByName(name string) (Tag, bool) {
	for tag, entry := range dictionary {
		if entry.Name == name {
			return tag, true
		}
	}
	return Tag{}, false
}
