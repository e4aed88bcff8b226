package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSignatureNoGenericsIsUID(t *testing.T) {
	unit := ArchitectureID("work", "adder", "rtl")
	sig, err := ComputeSignature(unit, nil)
	require.NoError(t, err)
	assert.Equal(t, Signature("WORK.ADDER(RTL)"), sig)
	assert.Equal(t, "WORK.ADDER(RTL)", sig.UnitUID())
}

func TestComputeSignatureDeterminism(t *testing.T) {
	unit := ArchitectureID("work", "adder", "rtl")
	gens := []GenericActual{{Name: "WIDTH", Value: `{"t":"integer","v":"8"}`}}

	a := MustComputeSignature(unit, gens)
	b := MustComputeSignature(unit, gens)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "WORK.ADDER(RTL)#"))
	assert.Len(t, strings.TrimPrefix(string(a), "WORK.ADDER(RTL)#"), signatureHexLen)
	assert.Equal(t, "WORK.ADDER(RTL)", a.UnitUID())
}

func TestComputeSignatureGenericNameCaseInsensitive(t *testing.T) {
	unit := ArchitectureID("work", "adder", "rtl")
	a := MustComputeSignature(unit, []GenericActual{{Name: "width", Value: "8"}})
	b := MustComputeSignature(unit, []GenericActual{{Name: "WIDTH", Value: "8"}})
	assert.Equal(t, a, b)
}

func TestComputeSignatureChangesWithInput(t *testing.T) {
	unit := ArchitectureID("work", "adder", "rtl")
	base := MustComputeSignature(unit, []GenericActual{{Name: "W", Value: "8"}})

	otherValue := MustComputeSignature(unit, []GenericActual{{Name: "W", Value: "9"}})
	otherUnit := MustComputeSignature(ArchitectureID("work", "adder", "beh"), []GenericActual{{Name: "W", Value: "8"}})
	reordered := MustComputeSignature(unit, []GenericActual{{Name: "A", Value: "1"}, {Name: "W", Value: "8"}})
	swapped := MustComputeSignature(unit, []GenericActual{{Name: "W", Value: "8"}, {Name: "A", Value: "1"}})

	assert.NotEqual(t, base, otherValue)
	assert.NotEqual(t, base, otherUnit)
	assert.NotEqual(t, reordered, swapped, "generic order is part of the signature")
}

func TestHashWithDomainSeparation(t *testing.T) {
	a := hashWithDomain("d1", []byte("x"))
	b := hashWithDomain("d2", []byte("x"))
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}
