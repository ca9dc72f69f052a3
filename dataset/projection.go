package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bexahealth/dicomwl/types"
)

// ProjectionPolicy controls how binary payloads are rendered. The zero value
// elides nothing beyond Pixel Data.
type ProjectionPolicy struct {
	// AlwaysElide lists tags whose binary payloads are always shown as a
	// length placeholder, even when they decode as clean text.
	AlwaysElide map[types.Tag]bool
}

// DefaultProjectionPolicy elides Pixel Data only.
func DefaultProjectionPolicy() ProjectionPolicy {
	return ProjectionPolicy{AlwaysElide: map[types.Tag]bool{types.TagPixelData: true}}
}

// Projection is an ordered attribute-name to display-value mapping. Values
// are string, nil (absent/empty), or []*Projection for sequences. It
// marshals to a JSON object preserving element order, with nil rendered as
// JSON null; the text rendering shows nil as "N/A".
type Projection struct {
	keys   []string
	values map[string]any
}

func newProjection() *Projection {
	return &Projection{values: make(map[string]any)}
}

func (p *Projection) set(key string, value any) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Keys returns the attribute names in dataset order.
func (p *Projection) Keys() []string {
	return p.keys
}

// Get returns the display value for an attribute name.
func (p *Projection) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// GetString returns the string value for key, or "" when absent or not text.
func (p *Projection) GetString(key string) string {
	if s, ok := p.values[key].(string); ok {
		return s
	}
	return ""
}

// Project walks the dataset and produces its display projection. Projecting
// the same dataset twice yields identical output; the dataset is not
// mutated.
func Project(d *Dataset, policy ProjectionPolicy) *Projection {
	p := newProjection()
	for _, el := range d.Elements() {
		p.set(types.NameOf(el.Tag), projectValue(el, policy))
	}
	return p
}

func projectValue(el *Element, policy ProjectionPolicy) any {
	switch v := el.Value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return v
	case int:
		return fmt.Sprintf("%d", v)
	case []byte:
		if policy.AlwaysElide[el.Tag] {
			return binaryPlaceholder(v)
		}
		if text, ok := decodeText(v); ok {
			return text
		}
		return binaryPlaceholder(v)
	case []*Dataset:
		items := make([]*Projection, len(v))
		for i, item := range v {
			items[i] = Project(item, policy)
		}
		return items
	case nil:
		return nil
	default:
		return fmt.Sprintf("%v", v)
	}
}

func binaryPlaceholder(v []byte) string {
	return fmt.Sprintf("[Binary data with length %d bytes]", len(v))
}

// decodeText accepts a binary payload as text when it is valid UTF-8 with no
// control bytes other than padding.
func decodeText(v []byte) (string, bool) {
	trimmed := bytes.TrimRight(v, "\x00 ")
	if !utf8.Valid(trimmed) {
		return "", false
	}
	for _, b := range trimmed {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return "", false
		}
	}
	return string(trimmed), true
}

// MarshalJSON renders the projection as a JSON object in dataset order.
func (p *Projection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Text renders the projection as indented display text, with absent values
// shown as the literal N/A.
func (p *Projection) Text() string {
	var sb strings.Builder
	p.writeText(&sb, 0)
	return sb.String()
}

func (p *Projection) writeText(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, key := range p.keys {
		switch v := p.values[key].(type) {
		case nil:
			fmt.Fprintf(sb, "%s%s: N/A\n", indent, key)
		case string:
			fmt.Fprintf(sb, "%s%s: %s\n", indent, key, v)
		case []*Projection:
			fmt.Fprintf(sb, "%s%s:\n", indent, key)
			for i, item := range v {
				fmt.Fprintf(sb, "%s  Item %d:\n", indent, i+1)
				item.writeText(sb, depth+2)
			}
		default:
			fmt.Fprintf(sb, "%s%s: %v\n", indent, key, v)
		}
	}
}
