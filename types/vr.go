package types

// VR (Value Representation) constants for DICOM data elements
const (
	VR_AE = "AE" // Application Entity
	VR_AS = "AS" // Age String
	VR_AT = "AT" // Attribute Tag
	VR_CS = "CS" // Code String
	VR_DA = "DA" // Date
	VR_DS = "DS" // Decimal String
	VR_DT = "DT" // Date Time
	VR_FL = "FL" // Floating Point Single
	VR_FD = "FD" // Floating Point Double
	VR_IS = "IS" // Integer String
	VR_LO = "LO" // Long String
	VR_LT = "LT" // Long Text
	VR_OB = "OB" // Other Byte
	VR_OD = "OD" // Other Double
	VR_OF = "OF" // Other Float
	VR_OL = "OL" // Other Long
	VR_OV = "OV" // Other Very Long
	VR_OW = "OW" // Other Word
	VR_PN = "PN" // Person Name
	VR_SH = "SH" // Short String
	VR_SL = "SL" // Signed Long
	VR_SQ = "SQ" // Sequence of Items
	VR_SS = "SS" // Signed Short
	VR_ST = "ST" // Short Text
	VR_SV = "SV" // Signed Very Long
	VR_TM = "TM" // Time
	VR_UC = "UC" // Unlimited Characters
	VR_UI = "UI" // Unique Identifier
	VR_UL = "UL" // Unsigned Long
	VR_UN = "UN" // Unknown
	VR_UR = "UR" // Universal Resource
	VR_US = "US" // Unsigned Short
	VR_UT = "UT" // Unlimited Text
	VR_UV = "UV" // Unsigned Very Long
)

var knownVRs = map[string]bool{
	VR_AE: true, VR_AS: true, VR_AT: true, VR_CS: true, VR_DA: true,
	VR_DS: true, VR_DT: true, VR_FL: true, VR_FD: true, VR_IS: true,
	VR_LO: true, VR_LT: true, VR_OB: true, VR_OD: true, VR_OF: true,
	VR_OL: true, VR_OV: true, VR_OW: true, VR_PN: true, VR_SH: true,
	VR_SL: true, VR_SQ: true, VR_SS: true, VR_ST: true, VR_SV: true,
	VR_TM: true, VR_UC: true, VR_UI: true, VR_UL: true, VR_UN: true,
	VR_UR: true, VR_US: true, VR_UT: true, VR_UV: true,
}

// IsValidVR reports whether vr is a registered value representation.
func IsValidVR(vr string) bool {
	return knownVRs[vr]
}

// IsLongVR reports whether the VR uses the 12-byte explicit header
// (2 reserved bytes plus a 32-bit length) instead of a 16-bit length.
func IsLongVR(vr string) bool {
	switch vr {
	case VR_OB, VR_OD, VR_OF, VR_OL, VR_OV, VR_OW,
		VR_SQ, VR_UC, VR_UN, VR_UR, VR_UT, VR_SV, VR_UV:
		return true
	default:
		return false
	}
}

// IsBinaryVR reports whether values of the VR are raw byte payloads rather
// than character data.
func IsBinaryVR(vr string) bool {
	switch vr {
	case VR_OB, VR_OD, VR_OF, VR_OL, VR_OV, VR_OW, VR_UN:
		return true
	default:
		return false
	}
}
