package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

func worklistDataset() *Dataset {
	sps := New()
	sps.Set(types.TagModality, "US")
	sps.Set(types.TagSPSStartDate, "20250107")
	sps.Set(types.TagSPSStartTime, "083000")

	d := New()
	d.Set(types.TagSpecificCharacterSet, "ISO_IR 100")
	d.Set(types.TagAccessionNumber, "ACC001")
	d.Set(types.TagPatientName, "DOE^JOHN")
	d.Set(types.TagPatientID, "PID001")
	d.Set(types.TagPatientBirthDate, "")
	d.Set(types.TagStudyInstanceUID, "1.2.840.99.1")
	d.Set(types.TagScheduledProcedureStepSeq, []*Dataset{sps})
	return d
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ts   string
	}{
		{"explicit", types.ExplicitVRLittleEndian},
		{"implicit", types.ImplicitVRLittleEndian},
		{"default", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := worklistDataset()
			data, err := Encode(original, tt.ts)
			require.NoError(t, err)

			decoded, err := Decode(data, tt.ts)
			require.NoError(t, err)
			assert.True(t, decoded.Equal(original), "decoded dataset differs from original")

			seq := decoded.GetSequence(types.TagScheduledProcedureStepSeq)
			require.Len(t, seq, 1)
			assert.Equal(t, "US", seq[0].GetString(types.TagModality))
		})
	}
}

func TestEncodeDecodeBinaryValue(t *testing.T) {
	d := New()
	d.Set(types.TagFileMetaInformationVersion, []byte{0x00, 0x01})
	d.Set(types.TagPixelData, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	data, err := Encode(d, types.ExplicitVRLittleEndian)
	require.NoError(t, err)

	decoded, err := Decode(data, types.ExplicitVRLittleEndian)
	require.NoError(t, err)

	el, ok := decoded.Get(types.TagPixelData)
	require.True(t, ok)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, el.Value)
}

func TestEncodeDecodeNumericValues(t *testing.T) {
	d := New()
	d.Set(types.TagFileMetaInformationGroupLength, 194)
	d.Set(types.TagPatientSize, "1.80")

	for _, ts := range []string{types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian} {
		data, err := Encode(d, ts)
		require.NoError(t, err)

		decoded, err := Decode(data, ts)
		require.NoError(t, err)

		el, ok := decoded.Get(types.TagFileMetaInformationGroupLength)
		require.True(t, ok)
		assert.Equal(t, 194, el.Value)
		assert.Equal(t, "1.80", decoded.GetString(types.TagPatientSize))
	}
}

func TestEncodeWritesTagOrder(t *testing.T) {
	d := New()
	d.Set(types.TagPatientID, "PID001")
	d.Set(types.TagSpecificCharacterSet, "ISO_IR 100")
	d.Set(types.TagAccessionNumber, "ACC001")

	data, err := Encode(d, types.ExplicitVRLittleEndian)
	require.NoError(t, err)

	var tags []types.Tag
	decoded, err := Decode(data, types.ExplicitVRLittleEndian)
	require.NoError(t, err)
	for _, el := range decoded.Elements() {
		tags = append(tags, el.Tag)
	}
	assert.Equal(t, []types.Tag{
		types.TagSpecificCharacterSet,
		types.TagAccessionNumber,
		types.TagPatientID,
	}, tags)

	// insertion order on the dataset itself is untouched
	assert.Equal(t, types.TagPatientID, d.Elements()[0].Tag)
}

func TestEncodePadsOddLengthValues(t *testing.T) {
	uid := New()
	uid.Set(types.TagSOPInstanceUID, "1.2.3")
	data, err := Encode(uid, types.ExplicitVRLittleEndian)
	require.NoError(t, err)
	assert.Zero(t, len(data)%2)
	assert.Equal(t, byte(0x00), data[len(data)-1], "UI values are null padded")

	name := New()
	name.Set(types.TagPatientName, "DOE")
	data, err = Encode(name, types.ExplicitVRLittleEndian)
	require.NoError(t, err)
	assert.Zero(t, len(data)%2)
	assert.Equal(t, byte(0x20), data[len(data)-1], "text values are space padded")
}

func TestDecodeStripsPadding(t *testing.T) {
	d := New()
	d.Set(types.TagSOPInstanceUID, "1.2.3")
	d.Set(types.TagPatientName, "DOE")

	data, err := Encode(d, types.ExplicitVRLittleEndian)
	require.NoError(t, err)

	decoded, err := Decode(data, types.ExplicitVRLittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", decoded.GetString(types.TagSOPInstanceUID))
	assert.Equal(t, "DOE", decoded.GetString(types.TagPatientName))
}

func TestEncodeRejectsUnsupportedTransferSyntax(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")

	_, err := Encode(d, "1.2.840.10008.1.2.4.50")
	assert.Error(t, err)

	_, err = Decode(nil, "1.2.840.10008.1.2.4.50")
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")
	data, err := Encode(d, types.ExplicitVRLittleEndian)
	require.NoError(t, err)

	var encErr *dicomerr.EncodingError
	_, err = Decode(data[:len(data)-3], types.ExplicitVRLittleEndian)
	require.ErrorAs(t, err, &encErr)

	_, err = Decode(data[:5], types.ExplicitVRLittleEndian)
	require.ErrorAs(t, err, &encErr)
}

func TestSniffTransferSyntax(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")

	explicit, err := Encode(d, types.ExplicitVRLittleEndian)
	require.NoError(t, err)
	implicit, err := Encode(d, types.ImplicitVRLittleEndian)
	require.NoError(t, err)

	assert.Equal(t, types.ExplicitVRLittleEndian, SniffTransferSyntax(explicit))
	assert.Equal(t, types.ImplicitVRLittleEndian, SniffTransferSyntax(implicit))
	assert.Equal(t, types.ImplicitVRLittleEndian, SniffTransferSyntax(nil))
}

func TestEqualIgnoresInsertionOrder(t *testing.T) {
	a := New()
	a.Set(types.TagPatientName, "DOE^JOHN")
	a.Set(types.TagPatientID, "PID001")

	b := New()
	b.Set(types.TagPatientID, "PID001")
	b.Set(types.TagPatientName, "DOE^JOHN")

	assert.True(t, a.Equal(b))

	b.Set(types.TagPatientID, "PID002")
	assert.False(t, a.Equal(b))
}

func TestCloneIsDeep(t *testing.T) {
	original := worklistDataset()
	clone := original.Clone()
	require.True(t, clone.Equal(original))

	clone.Set(types.TagPatientName, "ROE^JANE")
	clone.GetSequence(types.TagScheduledProcedureStepSeq)[0].Set(types.TagModality, "CT")

	assert.Equal(t, "DOE^JOHN", original.GetString(types.TagPatientName))
	seq := original.GetSequence(types.TagScheduledProcedureStepSeq)
	assert.Equal(t, "US", seq[0].GetString(types.TagModality))
}

func TestSetOverwritesInPlace(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")
	d.Set(types.TagPatientID, "PID001")
	d.Set(types.TagPatientName, "ROE^JANE")

	require.Equal(t, 2, d.Len())
	assert.Equal(t, types.TagPatientName, d.Elements()[0].Tag)
	assert.Equal(t, "ROE^JANE", d.GetString(types.TagPatientName))
}

func TestDelete(t *testing.T) {
	d := New()
	d.Set(types.TagPatientName, "DOE^JOHN")
	d.Set(types.TagPatientID, "PID001")
	d.Set(types.TagAccessionNumber, "ACC001")

	d.Delete(types.TagPatientID)
	assert.False(t, d.Has(types.TagPatientID))
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "ACC001", d.GetString(types.TagAccessionNumber))

	// deleting an absent tag is a no-op
	d.Delete(types.TagPatientID)
	assert.Equal(t, 2, d.Len())
}
