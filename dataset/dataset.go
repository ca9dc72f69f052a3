// Package dataset implements the hierarchical DICOM attribute dataset: an
// insertion-ordered mapping from tag to value, where a value may itself be a
// sequence of nested datasets. It also provides the binary codec for the
// uncompressed little-endian transfer syntaxes, part-10 file framing, and
// the JSON/text projection used for display.
package dataset

import (
	"fmt"
	"strings"

	"github.com/bexahealth/dicomwl/types"
)

// Element is one attribute: a tag, its value representation, and a value.
// Value is one of string, int, []byte, or []*Dataset (sequence).
type Element struct {
	Tag   types.Tag
	VR    string
	Value any
}

// Dataset is an ordered collection of elements. Tags are unique; Set on an
// existing tag overwrites in place, keeping the original position.
// Re-iterating yields the same order. Datasets are value objects: nested
// datasets are owned exclusively by their parent sequence.
type Dataset struct {
	elements []*Element
	index    map[types.Tag]int
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{index: make(map[types.Tag]int)}
}

// Set inserts or overwrites the element for tag, taking the VR from the
// static dictionary (UN for unknown tags).
func (d *Dataset) Set(tag types.Tag, value any) {
	d.SetWithVR(tag, types.VROf(tag), value)
}

// SetWithVR inserts or overwrites the element for tag with an explicit VR.
func (d *Dataset) SetWithVR(tag types.Tag, vr string, value any) {
	if i, ok := d.index[tag]; ok {
		d.elements[i].VR = vr
		d.elements[i].Value = value
		return
	}
	d.index[tag] = len(d.elements)
	d.elements = append(d.elements, &Element{Tag: tag, VR: vr, Value: value})
}

// Get returns the element for tag. The second return value is false when the
// tag is absent; Get never panics on a missing tag.
func (d *Dataset) Get(tag types.Tag) (*Element, bool) {
	i, ok := d.index[tag]
	if !ok {
		return nil, false
	}
	return d.elements[i], true
}

// GetString returns the trimmed string value for tag, or "" when the tag is
// absent or not a string.
func (d *Dataset) GetString(tag types.Tag) string {
	el, ok := d.Get(tag)
	if !ok {
		return ""
	}
	switch v := el.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// GetSequence returns the nested datasets for a sequence tag, or nil.
func (d *Dataset) GetSequence(tag types.Tag) []*Dataset {
	el, ok := d.Get(tag)
	if !ok {
		return nil
	}
	seq, _ := el.Value.([]*Dataset)
	return seq
}

// Has reports whether tag is present.
func (d *Dataset) Has(tag types.Tag) bool {
	_, ok := d.index[tag]
	return ok
}

// Delete removes the element for tag if present.
func (d *Dataset) Delete(tag types.Tag) {
	i, ok := d.index[tag]
	if !ok {
		return
	}
	d.elements = append(d.elements[:i], d.elements[i+1:]...)
	delete(d.index, tag)
	for j := i; j < len(d.elements); j++ {
		d.index[d.elements[j].Tag] = j
	}
}

// Len returns the number of elements.
func (d *Dataset) Len() int {
	return len(d.elements)
}

// Elements returns the elements in insertion order. The slice is shared;
// callers must not reorder it.
func (d *Dataset) Elements() []*Element {
	return d.elements
}

// Clone returns a deep copy of the dataset, including nested sequences.
// Binary payloads are copied.
func (d *Dataset) Clone() *Dataset {
	out := New()
	for _, el := range d.elements {
		switch v := el.Value.(type) {
		case []*Dataset:
			items := make([]*Dataset, len(v))
			for i, item := range v {
				items[i] = item.Clone()
			}
			out.SetWithVR(el.Tag, el.VR, items)
		case []byte:
			out.SetWithVR(el.Tag, el.VR, append([]byte(nil), v...))
		default:
			out.SetWithVR(el.Tag, el.VR, v)
		}
	}
	return out
}

// Equal reports whether two datasets hold the same tags, VRs and values,
// recursing into sequences. Insertion order is not significant: the wire
// form is tag-ordered, so a decoded dataset compares equal to the dataset
// it was encoded from regardless of build order.
func (d *Dataset) Equal(o *Dataset) bool {
	if d.Len() != o.Len() {
		return false
	}
	for _, el := range d.elements {
		oel, ok := o.Get(el.Tag)
		if !ok || el.VR != oel.VR {
			return false
		}
		switch v := el.Value.(type) {
		case []*Dataset:
			ov, ok := oel.Value.([]*Dataset)
			if !ok || len(v) != len(ov) {
				return false
			}
			for j := range v {
				if !v[j].Equal(ov[j]) {
					return false
				}
			}
		case []byte:
			ov, ok := oel.Value.([]byte)
			if !ok || string(v) != string(ov) {
				return false
			}
		default:
			if el.Value != oel.Value {
				return false
			}
		}
	}
	return true
}
