// Package types contains DICOM-related type definitions shared across the module.
package types

import "fmt"

// Tag represents a DICOM tag (group, element)
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (GGGG,EEEE) format
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Compare orders tags by group, then element.
func (t Tag) Compare(o Tag) int {
	switch {
	case t.Group != o.Group:
		if t.Group < o.Group {
			return -1
		}
		return 1
	case t.Element != o.Element:
		if t.Element < o.Element {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// IsFileMeta reports whether the tag belongs to the File Meta Information group.
func (t Tag) IsFileMeta() bool {
	return t.Group == 0x0002
}

// Tags used by the worklist workflow. The dictionary in dict.go carries the
// canonical name and VR for each.
var (
	// File Meta Information (group 0002)
	TagFileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	TagFileMetaInformationVersion     = Tag{0x0002, 0x0001}
	TagMediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	TagMediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TagTransferSyntaxUID              = Tag{0x0002, 0x0010}
	TagImplementationClassUID         = Tag{0x0002, 0x0012}
	TagImplementationVersionName      = Tag{0x0002, 0x0013}

	// Identification
	TagSpecificCharacterSet = Tag{0x0008, 0x0005}
	TagSOPClassUID          = Tag{0x0008, 0x0016}
	TagSOPInstanceUID       = Tag{0x0008, 0x0018}
	TagAccessionNumber      = Tag{0x0008, 0x0050}
	TagQueryRetrieveLevel   = Tag{0x0008, 0x0052}
	TagModality             = Tag{0x0008, 0x0060}
	TagReferringPhysician   = Tag{0x0008, 0x0090}

	// Patient
	TagPatientName      = Tag{0x0010, 0x0010}
	TagPatientID        = Tag{0x0010, 0x0020}
	TagPatientBirthDate = Tag{0x0010, 0x0030}
	TagPatientSex       = Tag{0x0010, 0x0040}
	TagPatientSize      = Tag{0x0010, 0x1020}
	TagPatientWeight    = Tag{0x0010, 0x1030}
	TagMedicalAlerts    = Tag{0x0010, 0x2000}
	TagAllergies        = Tag{0x0010, 0x2110}

	// Study / Requested Procedure
	TagStudyInstanceUID              = Tag{0x0020, 0x000D}
	TagRequestedProcedureDescription = Tag{0x0032, 0x1060}

	// Scheduled Procedure Step (nested inside the SPS sequence)
	TagScheduledStationAETitle      = Tag{0x0040, 0x0001}
	TagSPSStartDate                 = Tag{0x0040, 0x0002}
	TagSPSStartTime                 = Tag{0x0040, 0x0003}
	TagScheduledPerformingPhysician = Tag{0x0040, 0x0006}
	TagSPSDescription               = Tag{0x0040, 0x0007}
	TagSPSID                        = Tag{0x0040, 0x0009}
	TagScheduledStationName         = Tag{0x0040, 0x0010}
	TagScheduledProcedureStepSeq    = Tag{0x0040, 0x0100}
	TagRequestedProcedureID         = Tag{0x0040, 0x1001}

	// Pixel Data (never projected as text)
	TagPixelData = Tag{0x7FE0, 0x0010}

	// Sequence framing (DICOM PS3.5 section 7.5)
	TagItem              = Tag{0xFFFE, 0xE000}
	TagItemDelimiter     = Tag{0xFFFE, 0xE00D}
	TagSequenceDelimiter = Tag{0xFFFE, 0xE0DD}
)
