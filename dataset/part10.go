package dataset

import (
	"bytes"
	"io"
	"os"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

// FileMeta holds the part-10 File Meta Information written between the DICM
// prefix and the dataset body. The meta group itself is always encoded
// Explicit VR Little Endian; TransferSyntaxUID governs only the body.
type FileMeta struct {
	MediaStorageSOPClassUID    string
	MediaStorageSOPInstanceUID string
	TransferSyntaxUID          string
}

const preambleLength = 128

var dicmPrefix = []byte("DICM")

// WriteTo writes the dataset as a part-10 stream: a 128-byte zero preamble,
// the DICM prefix, the file meta group, then the dataset body encoded with
// meta.TransferSyntaxUID.
func WriteTo(w io.Writer, d *Dataset, meta FileMeta) error {
	if meta.TransferSyntaxUID == "" {
		meta.TransferSyntaxUID = types.ExplicitVRLittleEndian
	}

	body, err := Encode(d, meta.TransferSyntaxUID)
	if err != nil {
		return err
	}

	group := New()
	group.Set(types.TagFileMetaInformationVersion, []byte{0x00, 0x01})
	group.Set(types.TagMediaStorageSOPClassUID, meta.MediaStorageSOPClassUID)
	group.Set(types.TagMediaStorageSOPInstanceUID, meta.MediaStorageSOPInstanceUID)
	group.Set(types.TagTransferSyntaxUID, meta.TransferSyntaxUID)
	group.Set(types.TagImplementationClassUID, types.ImplementationClassUID)
	group.Set(types.TagImplementationVersionName, types.ImplementationVersionName)
	metaBytes, err := Encode(group, types.ExplicitVRLittleEndian)
	if err != nil {
		return err
	}

	// group length element precedes the rest of group 0002
	lengthEl := New()
	lengthEl.Set(types.TagFileMetaInformationGroupLength, len(metaBytes))
	lengthBytes, err := Encode(lengthEl, types.ExplicitVRLittleEndian)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, preambleLength))
	buf.Write(dicmPrefix)
	buf.Write(lengthBytes)
	buf.Write(metaBytes)
	buf.Write(body)
	_, err = w.Write(buf.Bytes())
	return err
}

// ReadFrom parses a part-10 stream, returning the dataset body and its file
// meta. The body transfer syntax is taken from the meta group.
func ReadFrom(r io.Reader) (*Dataset, FileMeta, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, FileMeta{}, err
	}
	return parsePart10(data)
}

// WriteFile writes the dataset to path in part-10 layout.
func WriteFile(path string, d *Dataset, meta FileMeta) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteTo(f, d, meta)
}

// ReadFile reads a part-10 file from path.
func ReadFile(path string) (*Dataset, FileMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FileMeta{}, err
	}
	defer f.Close()
	return ReadFrom(f)
}

// IsPart10 reports whether data carries the part-10 preamble and prefix.
func IsPart10(data []byte) bool {
	return len(data) >= preambleLength+4 &&
		bytes.Equal(data[preambleLength:preambleLength+4], dicmPrefix)
}

func parsePart10(data []byte) (*Dataset, FileMeta, error) {
	if !IsPart10(data) {
		return nil, FileMeta{}, dicomerr.NewEncodingError(0, "missing DICM prefix at offset 128")
	}

	offset := preambleLength + 4
	metaStart := offset

	// The meta group is Explicit VR LE; walk it element by element until the
	// group changes, collecting what we need.
	group := New()
	for offset < len(data) {
		el, next, err := decodeElement(data, offset, 0, true)
		if err != nil {
			return nil, FileMeta{}, err
		}
		if !el.Tag.IsFileMeta() {
			break
		}
		group.SetWithVR(el.Tag, el.VR, el.Value)
		offset = next
	}
	if offset == metaStart {
		return nil, FileMeta{}, dicomerr.NewEncodingError(offset, "file meta group missing")
	}

	meta := FileMeta{
		MediaStorageSOPClassUID:    group.GetString(types.TagMediaStorageSOPClassUID),
		MediaStorageSOPInstanceUID: group.GetString(types.TagMediaStorageSOPInstanceUID),
		TransferSyntaxUID:          group.GetString(types.TagTransferSyntaxUID),
	}
	if meta.TransferSyntaxUID == "" {
		meta.TransferSyntaxUID = types.ExplicitVRLittleEndian
	}

	body, err := Decode(data[offset:], meta.TransferSyntaxUID)
	if err != nil {
		return nil, FileMeta{}, err
	}
	return body, meta, nil
}
