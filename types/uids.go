package types

// DICOM Application Context UID, fixed for all associations.
const ApplicationContextUID = "1.2.840.10008.3.1.1.1"

// SOP Class UIDs used by the worklist workflow (DICOM Part 4).
const (
	// Verification Service (C-ECHO)
	VerificationSOPClass = "1.2.840.10008.1.1"

	// Modality Worklist Information Model - FIND (C-FIND). The same UID is
	// used as the SOP class identity when a worklist item is stored or
	// staged as a part-10 file.
	ModalityWorklistInformationFind = "1.2.840.10008.5.1.4.31"

	// Secondary Capture Image Storage, used when converting plain images
	// into storable datasets.
	SecondaryCaptureImageStorage = "1.2.840.10008.5.1.4.1.1.7"
)

// Transfer Syntax UIDs (DICOM Part 5, Section 8). Only the uncompressed
// little-endian syntaxes are implemented by the dataset codec.
const (
	// ImplicitVRLittleEndian is the DICOM default transfer syntax.
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"

	// ExplicitVRLittleEndian is the preferred syntax for interchange.
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// DefaultTransferSyntaxes lists the syntaxes proposed during association
// negotiation, in preference order.
func DefaultTransferSyntaxes() []string {
	return []string{ExplicitVRLittleEndian, ImplicitVRLittleEndian}
}

// Implementation identity advertised in the association user information
// and written into part-10 file meta.
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.10.1528.1"
	ImplementationVersionName = "DICOMWL_GO_10"
)
