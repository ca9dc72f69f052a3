package types

// Message represents a parsed DIMSE command set.
type Message struct {
	CommandField              uint16
	MessageID                 uint16
	MessageIDBeingRespondedTo uint16
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	Priority                  uint16
	CommandDataSetType        uint16
	Status                    uint16
}

// CommandDataSetType values (DICOM PS3.7 section 9.3).
const (
	// DataSetPresent marks a command followed by a dataset.
	DataSetPresent uint16 = 0x0000
	// NoDataSet marks a command with no dataset.
	NoDataSet uint16 = 0x0101
)

// HasDataset reports whether the command announces an accompanying dataset.
func (m *Message) HasDataset() bool {
	return m.CommandDataSetType != NoDataSet
}

// ResponseCommandFor maps a DIMSE request command to its response command.
func ResponseCommandFor(request uint16) uint16 {
	return request | 0x8000
}
