// Package mwl builds modality worklist queries and worklist items.
package mwl

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// UIDGenerator mints DICOM unique identifiers.
type UIDGenerator interface {
	NewUID() string
}

// UUIDGenerator derives UIDs from random UUIDs under the 2.25 OID arc, so
// no registered org root is needed.
type UUIDGenerator struct{}

// NewUID returns a fresh "2.25.<decimal uuid>" UID.
func (UUIDGenerator) NewUID() string {
	id := uuid.New()
	value := new(big.Int).SetBytes(id[:])
	return fmt.Sprintf("2.25.%s", value.String())
}

// SequenceGenerator yields deterministic UIDs from a fixed prefix and a
// counter. Intended for tests and reproducible fixtures.
type SequenceGenerator struct {
	Prefix string
	next   int
}

func (g *SequenceGenerator) NewUID() string {
	g.next++
	return fmt.Sprintf("%s.%d", g.Prefix, g.next)
}
