package services

import (
	"strings"

	"github.com/bexahealth/dicomwl/dataset"
	"github.com/bexahealth/dicomwl/types"
)

// MatchWorklist reports whether a worklist item satisfies a C-FIND query.
// Query attributes with empty values are universal matches; strings support
// the * and ? wildcards; date attributes support range matching.
func MatchWorklist(query, item *dataset.Dataset) bool {
	for _, el := range query.Elements() {
		if !matchElement(el, item) {
			return false
		}
	}
	return true
}

func matchElement(el *dataset.Element, item *dataset.Dataset) bool {
	// The level marker steers dispatch, it is not a matching key.
	if el.Tag == types.TagQueryRetrieveLevel || el.Tag == types.TagSpecificCharacterSet {
		return true
	}

	switch v := el.Value.(type) {
	case nil:
		return true
	case string:
		if v == "" {
			return true
		}
		candidate, _ := item.Get(el.Tag)
		actual := ""
		if candidate != nil {
			actual, _ = candidate.Value.(string)
		}
		return matchString(el, v, actual)
	case []*dataset.Dataset:
		items := item.GetSequence(el.Tag)
		if len(items) == 0 {
			// Every key in the query item would have to be universal for
			// a missing sequence to match.
			return sequenceIsUniversal(v)
		}
		for _, queryItem := range v {
			if !anyItemMatches(queryItem, items) {
				return false
			}
		}
		return true
	default:
		candidate, ok := item.Get(el.Tag)
		return ok && candidate.Value == el.Value
	}
}

func sequenceIsUniversal(queryItems []*dataset.Dataset) bool {
	for _, qi := range queryItems {
		for _, el := range qi.Elements() {
			if s, ok := el.Value.(string); !ok || s != "" {
				return false
			}
		}
	}
	return true
}

func anyItemMatches(queryItem *dataset.Dataset, items []*dataset.Dataset) bool {
	for _, candidate := range items {
		if MatchWorklist(queryItem, candidate) {
			return true
		}
	}
	return false
}

func matchString(el *dataset.Element, pattern, actual string) bool {
	if el.VR == types.VR_DA || el.VR == types.VR_TM || el.VR == types.VR_DT {
		if strings.Contains(pattern, "-") {
			return matchRange(pattern, actual)
		}
	}
	return matchWildcard(pattern, actual)
}

// matchRange handles "lo-hi", "lo-" and "-hi" range constraints. DICOM
// dates and times compare correctly as strings.
func matchRange(pattern, actual string) bool {
	if actual == "" {
		return false
	}
	lo, hi, _ := strings.Cut(pattern, "-")
	if lo != "" && actual < lo {
		return false
	}
	if hi != "" && actual > hi {
		return false
	}
	return true
}

// matchWildcard implements DICOM wildcard matching: * matches any run of
// characters, ? matches exactly one.
func matchWildcard(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	return wildcardMatch(pattern, value)
}

func wildcardMatch(pattern, value string) bool {
	if pattern == "" {
		return value == ""
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(value); i++ {
			if wildcardMatch(pattern[1:], value[i:]) {
				return true
			}
		}
		return false
	case '?':
		return value != "" && wildcardMatch(pattern[1:], value[1:])
	default:
		return value != "" && value[0] == pattern[0] && wildcardMatch(pattern[1:], value[1:])
	}
}
