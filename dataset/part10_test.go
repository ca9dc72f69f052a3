package dataset

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

func TestWriteToLayout(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")

	var buf bytes.Buffer
	err := WriteTo(&buf, d, FileMeta{
		MediaStorageSOPClassUID:    types.ModalityWorklistInformationFind,
		MediaStorageSOPInstanceUID: "1.2.840.99.1",
	})
	require.NoError(t, err)

	data := buf.Bytes()
	require.True(t, IsPart10(data))
	assert.Equal(t, make([]byte, 128), data[:128], "preamble must be zeroed")
	assert.Equal(t, []byte("DICM"), data[128:132])
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	sps := New()
	sps.Set(types.TagModality, "US")
	body := New()
	body.Set(types.TagPatientName, "DOE^JOHN")
	body.Set(types.TagScheduledProcedureStepSeq, []*Dataset{sps})

	path := filepath.Join(t.TempDir(), "item.wl")
	meta := FileMeta{
		MediaStorageSOPClassUID:    types.ModalityWorklistInformationFind,
		MediaStorageSOPInstanceUID: "1.2.840.99.1",
		TransferSyntaxUID:          types.ExplicitVRLittleEndian,
	}
	require.NoError(t, WriteFile(path, body, meta))

	decoded, gotMeta, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)
	assert.True(t, decoded.Equal(body))
}

func TestWriteToDefaultsToExplicitVR(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, d, FileMeta{
		MediaStorageSOPClassUID:    types.SecondaryCaptureImageStorage,
		MediaStorageSOPInstanceUID: "1.2.840.99.2",
	}))

	_, meta, err := ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.ExplicitVRLittleEndian, meta.TransferSyntaxUID)
}

func TestWriteToImplicitBody(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, d, FileMeta{
		MediaStorageSOPClassUID:    types.ModalityWorklistInformationFind,
		MediaStorageSOPInstanceUID: "1.2.840.99.3",
		TransferSyntaxUID:          types.ImplicitVRLittleEndian,
	}))

	decoded, meta, err := ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.ImplicitVRLittleEndian, meta.TransferSyntaxUID)
	assert.Equal(t, "DOE^JOHN", decoded.GetString(types.TagPatientName))
}

func TestReadFromRejectsMissingPrefix(t *testing.T) {
	var encErr *dicomerr.EncodingError

	_, _, err := ReadFrom(bytes.NewReader(make([]byte, 200)))
	require.ErrorAs(t, err, &encErr)

	_, _, err = ReadFrom(bytes.NewReader([]byte("DICM")))
	require.ErrorAs(t, err, &encErr)
}

func TestIsPart10(t *testing.T) {
	good := append(make([]byte, 128), []byte("DICM")...)
	assert.True(t, IsPart10(good))
	assert.False(t, IsPart10(good[:131]))
	assert.False(t, IsPart10(make([]byte, 140)))
}
