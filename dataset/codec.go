package dataset

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/types"
)

// undefinedLength marks sequences and items whose extent is closed by a
// delimiter element instead of a byte count.
const undefinedLength uint32 = 0xFFFFFFFF

// Encode serializes the dataset using the given transfer syntax. Elements
// are written in ascending tag order as DICOM requires; nested sequences are
// written with defined lengths so the output needs no delimiter items.
func Encode(d *Dataset, transferSyntaxUID string) ([]byte, error) {
	switch transferSyntaxUID {
	case "", types.ExplicitVRLittleEndian:
		return encode(d, true)
	case types.ImplicitVRLittleEndian:
		return encode(d, false)
	default:
		return nil, fmt.Errorf("unsupported transfer syntax %q", transferSyntaxUID)
	}
}

// Decode parses a dataset from raw bytes using the given transfer syntax.
func Decode(data []byte, transferSyntaxUID string) (*Dataset, error) {
	switch transferSyntaxUID {
	case "", types.ExplicitVRLittleEndian:
		return decode(data, 0, true)
	case types.ImplicitVRLittleEndian:
		return decode(data, 0, false)
	default:
		return nil, fmt.Errorf("unsupported transfer syntax %q", transferSyntaxUID)
	}
}

// SniffTransferSyntax guesses the encoding of a raw dataset by checking
// whether the first element header carries a plausible VR. Useful on the
// acceptor side where the presentation context is not threaded through.
func SniffTransferSyntax(data []byte) string {
	if len(data) >= 6 && types.IsValidVR(string(data[4:6])) {
		return types.ExplicitVRLittleEndian
	}
	return types.ImplicitVRLittleEndian
}

func sortedElements(d *Dataset) []*Element {
	els := append([]*Element(nil), d.Elements()...)
	sort.SliceStable(els, func(i, j int) bool {
		return els[i].Tag.Compare(els[j].Tag) < 0
	})
	return els
}

func encode(d *Dataset, explicit bool) ([]byte, error) {
	var buf []byte
	for _, el := range sortedElements(d) {
		value, err := encodeValue(el, explicit)
		if err != nil {
			return nil, err
		}
		buf = appendElementHeader(buf, el.Tag, el.VR, uint32(len(value)), explicit)
		buf = append(buf, value...)
	}
	return buf, nil
}

func appendElementHeader(buf []byte, tag types.Tag, vr string, length uint32, explicit bool) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, tag.Group)
	buf = binary.LittleEndian.AppendUint16(buf, tag.Element)
	if !explicit {
		return binary.LittleEndian.AppendUint32(buf, length)
	}
	buf = append(buf, vr...)
	if types.IsLongVR(vr) {
		buf = append(buf, 0x00, 0x00) // reserved
		return binary.LittleEndian.AppendUint32(buf, length)
	}
	return binary.LittleEndian.AppendUint16(buf, uint16(length))
}

func encodeValue(el *Element, explicit bool) ([]byte, error) {
	switch v := el.Value.(type) {
	case string:
		return padString(v, el.VR), nil
	case int:
		return encodeNumeric(v, el.VR), nil
	case []byte:
		out := v
		if len(out)%2 == 1 {
			out = append(append([]byte(nil), out...), 0x00)
		}
		return out, nil
	case []*Dataset:
		var buf []byte
		for _, item := range v {
			content, err := encode(item, explicit)
			if err != nil {
				return nil, err
			}
			buf = binary.LittleEndian.AppendUint16(buf, types.TagItem.Group)
			buf = binary.LittleEndian.AppendUint16(buf, types.TagItem.Element)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(content)))
			buf = append(buf, content...)
		}
		return buf, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("element %s: unsupported value type %T", el.Tag, el.Value)
	}
}

func padString(s, vr string) []byte {
	s = strings.TrimRight(s, "\x00")
	if len(s)%2 == 0 {
		return []byte(s)
	}
	// UI values are null-padded, text values space-padded (PS3.5 6.2)
	if vr == types.VR_UI {
		return append([]byte(s), 0x00)
	}
	return append([]byte(s), 0x20)
}

func encodeNumeric(v int, vr string) []byte {
	switch vr {
	case types.VR_US:
		return binary.LittleEndian.AppendUint16(nil, uint16(v))
	case types.VR_UL:
		return binary.LittleEndian.AppendUint32(nil, uint32(v))
	default:
		return padString(fmt.Sprintf("%d", v), vr)
	}
}

// decode parses elements until data is exhausted. base is the absolute
// offset of data within the original buffer, used for error reporting.
func decode(data []byte, base int, explicit bool) (*Dataset, error) {
	d := New()
	offset := 0
	for offset < len(data) {
		el, next, err := decodeElement(data, offset, base, explicit)
		if err != nil {
			return nil, err
		}
		d.SetWithVR(el.Tag, el.VR, el.Value)
		offset = next
	}
	return d, nil
}

func decodeElement(data []byte, offset, base int, explicit bool) (*Element, int, error) {
	if offset+8 > len(data) {
		return nil, 0, dicomerr.NewEncodingError(base+offset, "truncated element header")
	}
	tag := types.Tag{
		Group:   binary.LittleEndian.Uint16(data[offset : offset+2]),
		Element: binary.LittleEndian.Uint16(data[offset+2 : offset+4]),
	}

	var vr string
	var length uint32
	var valueOffset int
	switch {
	case !explicit || tag.Group == 0xFFFE:
		// implicit header, also used by item/delimiter tags in explicit sets
		vr = types.VROf(tag)
		length = binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		valueOffset = offset + 8
	default:
		vr = string(data[offset+4 : offset+6])
		if types.IsLongVR(vr) {
			if offset+12 > len(data) {
				return nil, 0, dicomerr.NewEncodingError(base+offset, "truncated long-VR header")
			}
			length = binary.LittleEndian.Uint32(data[offset+8 : offset+12])
			valueOffset = offset + 12
		} else {
			length = uint32(binary.LittleEndian.Uint16(data[offset+6 : offset+8]))
			valueOffset = offset + 8
		}
	}

	if vr == types.VR_SQ || (!explicit && length == undefinedLength) {
		items, next, err := decodeSequence(data, valueOffset, base, length, explicit)
		if err != nil {
			return nil, 0, err
		}
		return &Element{Tag: tag, VR: types.VR_SQ, Value: items}, next, nil
	}

	if length == undefinedLength {
		return nil, 0, dicomerr.NewEncodingError(base+offset, "undefined length on non-sequence element %s", tag)
	}
	end := valueOffset + int(length)
	if end > len(data) {
		return nil, 0, dicomerr.NewEncodingError(base+offset, "element %s value exceeds buffer", tag)
	}
	value := decodeValue(tag, vr, data[valueOffset:end])
	return &Element{Tag: tag, VR: vr, Value: value}, end, nil
}

func decodeSequence(data []byte, offset, base int, length uint32, explicit bool) ([]*Dataset, int, error) {
	end := len(data)
	delimited := length == undefinedLength
	if !delimited {
		end = offset + int(length)
		if end > len(data) {
			return nil, 0, dicomerr.NewEncodingError(base+offset, "sequence exceeds buffer")
		}
	}

	var items []*Dataset
	for offset < end {
		if offset+8 > len(data) {
			return nil, 0, dicomerr.NewEncodingError(base+offset, "truncated sequence item header")
		}
		itemTag := types.Tag{
			Group:   binary.LittleEndian.Uint16(data[offset : offset+2]),
			Element: binary.LittleEndian.Uint16(data[offset+2 : offset+4]),
		}
		itemLen := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8

		switch itemTag {
		case types.TagSequenceDelimiter:
			if !delimited {
				return nil, 0, dicomerr.NewEncodingError(base+offset, "unexpected sequence delimiter")
			}
			return items, offset, nil
		case types.TagItem:
			item, next, err := decodeItem(data, offset, base, itemLen, explicit)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, item)
			offset = next
		default:
			return nil, 0, dicomerr.NewEncodingError(base+offset-8, "unexpected tag %s inside sequence", itemTag)
		}
	}
	if delimited {
		return nil, 0, dicomerr.NewEncodingError(base+offset, "sequence delimiter missing")
	}
	return items, end, nil
}

func decodeItem(data []byte, offset, base int, length uint32, explicit bool) (*Dataset, int, error) {
	if length != undefinedLength {
		end := offset + int(length)
		if end > len(data) {
			return nil, 0, dicomerr.NewEncodingError(base+offset, "sequence item exceeds buffer")
		}
		item, err := decode(data[offset:end], base+offset, explicit)
		if err != nil {
			return nil, 0, err
		}
		return item, end, nil
	}

	// undefined-length item: parse until the item delimiter
	item := New()
	for {
		if offset+8 > len(data) {
			return nil, 0, dicomerr.NewEncodingError(base+offset, "item delimiter missing")
		}
		tag := types.Tag{
			Group:   binary.LittleEndian.Uint16(data[offset : offset+2]),
			Element: binary.LittleEndian.Uint16(data[offset+2 : offset+4]),
		}
		if tag == types.TagItemDelimiter {
			return item, offset + 8, nil
		}
		el, next, err := decodeElement(data, offset, base, explicit)
		if err != nil {
			return nil, 0, err
		}
		item.SetWithVR(el.Tag, el.VR, el.Value)
		offset = next
	}
}

func decodeValue(tag types.Tag, vr string, raw []byte) any {
	if types.IsBinaryVR(vr) || tag == types.TagPixelData {
		return append([]byte(nil), raw...)
	}
	switch vr {
	case types.VR_US:
		if len(raw) == 2 {
			return int(binary.LittleEndian.Uint16(raw))
		}
	case types.VR_UL:
		if len(raw) == 4 {
			return int(binary.LittleEndian.Uint32(raw))
		}
	}
	value := string(raw)
	if i := strings.IndexByte(value, 0); i != -1 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}
