// Package ir provides the foundational identity types shared by every other
// hdlelab package: source locations, design-unit identifiers and elaboration
// signatures.
//
// This package imports nothing internal. All other internal packages may
// import ir; ir never imports them back.
//
// Key design constraints:
//   - Identifiers are case-insensitive. They are normalized to NFC upper case
//     at construction so that UIDs compare byte-for-byte.
//   - Signatures are content-addressed: the same unit with the same ordered
//     generic values always yields the same signature, across processes and
//     across runs.
//   - Canonical JSON (sorted keys, NFC strings, no HTML escaping) is the ONLY
//     serialization used for signature hashing.
package ir
