// Package dimse implements DIMSE command encoding and message exchange on
// top of the upper layer protocol.
package dimse

// Command fields
const (
	CStoreRQ  = 0x0001
	CStoreRSP = 0x8001
	CFindRQ   = 0x0020
	CFindRSP  = 0x8020
	CEchoRQ   = 0x0030
	CEchoRSP  = 0x8030
)

// Status codes
const (
	StatusSuccess        = 0x0000
	StatusCancel         = 0xFE00
	StatusPending        = 0xFF00
	StatusPendingWarning = 0xFF01
)

// IsPending reports whether a response status indicates more responses
// follow.
func IsPending(status uint16) bool {
	return status == StatusPending || status == StatusPendingWarning
}

// Priority values for request commands.
const (
	PriorityMedium uint16 = 0x0000
	PriorityHigh   uint16 = 0x0001
	PriorityLow    uint16 = 0x0002
)
