// Package convert turns textual attribute dumps into part-10 worklist
// files. The input format is one element per line:
//
//	(0010,0010) PN [DOE^JOHN]       # optional comment
//
// Sequences open with an SQ element, items with (fffe,e000), and close with
// the item and sequence delimiters.
package convert

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/dicomerr"
	"github.com/bexahealth/dicomwl/mwl"
	"github.com/bexahealth/dicomwl/types"
)

var elementRe = regexp.MustCompile(`^\(([0-9a-fA-F]{4}),([0-9a-fA-F]{4})\)\s+([A-Za-z]{2})(?:\s+\[([^\]]*)\])?`)

type seqFrame struct {
	parent *dataset.Dataset
	tag    types.Tag
	items  []*dataset.Dataset
}

// ParseDump reads a textual dump into a dataset. Lines that are empty or
// start with # are skipped; anything else must be a well-formed element.
func ParseDump(r io.Reader) (*dataset.Dataset, error) {
	root := dataset.New()
	cur := root
	var stack []*seqFrame

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := elementRe.FindStringSubmatch(line)
		if m == nil {
			return nil, dicomerr.NewEncodingError(lineNo, "unparseable dump line %q", line)
		}

		group, _ := strconv.ParseUint(m[1], 16, 16)
		element, _ := strconv.ParseUint(m[2], 16, 16)
		tag := types.Tag{Group: uint16(group), Element: uint16(element)}
		vr := strings.ToUpper(m[3])
		value := m[4]

		switch {
		case vr == types.VR_SQ:
			stack = append(stack, &seqFrame{parent: cur, tag: tag})
			cur = nil
		case tag == types.TagItem:
			if len(stack) == 0 {
				return nil, dicomerr.NewEncodingError(lineNo, "item outside a sequence")
			}
			top := stack[len(stack)-1]
			item := dataset.New()
			top.items = append(top.items, item)
			cur = item
		case tag == types.TagItemDelimiter:
			cur = nil
		case tag == types.TagSequenceDelimiter:
			if len(stack) == 0 {
				return nil, dicomerr.NewEncodingError(lineNo, "sequence delimiter outside a sequence")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.parent.SetWithVR(top.tag, types.VR_SQ, top.items)
			cur = top.parent
		default:
			if cur == nil {
				return nil, dicomerr.NewEncodingError(lineNo, "element %s outside an item", tag)
			}
			cur.SetWithVR(tag, vr, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(stack) > 0 {
		return nil, dicomerr.NewEncodingError(lineNo, "unterminated sequence %s", stack[len(stack)-1].tag)
	}
	return root, nil
}

// ConvertFile parses a dump file and writes it as a part-10 worklist file.
// Missing Study Instance UIDs are minted from the generator.
func ConvertFile(src, dst string, gen mwl.UIDGenerator) error {
	if gen == nil {
		return dicomerr.NewValidationError("generator", "a UID generator is required")
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	ds, err := ParseDump(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", src, err)
	}

	if ds.GetString(types.TagStudyInstanceUID) == "" {
		ds.Set(types.TagStudyInstanceUID, gen.NewUID())
	}

	meta := dataset.FileMeta{
		MediaStorageSOPClassUID:    types.ModalityWorklistInformationFind,
		MediaStorageSOPInstanceUID: gen.NewUID(),
		TransferSyntaxUID:          types.ExplicitVRLittleEndian,
	}
	return dataset.WriteFile(dst, ds, meta)
}
