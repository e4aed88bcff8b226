package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefix for signature hashing. The version suffix leaves room for a
// future algorithm change.
const DomainSignature = "hdlelab/signature/v1"

// signatureHexLen is the number of hex digits kept from the digest.
const signatureHexLen = 16

// Signature identifies one elaborated variant of a design unit: the unit
// plus the values of its actual generics. At most one module is stored per
// signature.
type Signature string

// GenericActual is one (formal name, value encoding) pair of a signature.
// Value is the canonical encoding produced by the value engine.
type GenericActual struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeSignature returns the signature of unit bound with the ordered
// generic actuals. A unit without generics has its bare UID as signature.
func ComputeSignature(unit DesignUnitID, generics []GenericActual) (Signature, error) {
	if len(generics) == 0 {
		return Signature(unit.UID()), nil
	}
	list := make([]any, len(generics))
	for i, g := range generics {
		list[i] = map[string]any{
			"name":  NormalizeIdent(g.Name),
			"value": g.Value,
		}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"unit":     unit.UID(),
		"generics": list,
	})
	if err != nil {
		return "", fmt.Errorf("ComputeSignature: failed to marshal: %w", err)
	}
	return Signature(unit.UID() + "#" + hashWithDomain(DomainSignature, canonical)[:signatureHexLen]), nil
}

// MustComputeSignature is like ComputeSignature but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustComputeSignature(unit DesignUnitID, generics []GenericActual) Signature {
	sig, err := ComputeSignature(unit, generics)
	if err != nil {
		panic(err)
	}
	return sig
}

// UnitUID returns the UID part of the signature.
func (s Signature) UnitUID() string {
	str := string(s)
	if i := strings.IndexByte(str, '#'); i >= 0 {
		return str[:i]
	}
	return str
}

func (s Signature) String() string { return string(s) }
