package ir

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultLibrary is the library assumed when a unit reference omits one.
const DefaultLibrary = "WORK"

// UnitKind distinguishes the kinds of design units.
type UnitKind int

const (
	// UnitEntity is an entity declaration (interface: generics and ports).
	UnitEntity UnitKind = iota + 1
	// UnitArchitecture is an architecture body of an entity.
	UnitArchitecture
	// UnitPackage is a package of subprogram declarations.
	UnitPackage
)

func (k UnitKind) String() string {
	switch k {
	case UnitEntity:
		return "entity"
	case UnitArchitecture:
		return "architecture"
	case UnitPackage:
		return "package"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}

// DesignUnitID is the stable structural key of a design unit.
//
// Identifiers are stored normalized (see NormalizeIdent), so two IDs built
// from differently cased source text compare equal with ==.
type DesignUnitID struct {
	Kind    UnitKind `json:"kind"`
	Library string   `json:"library"`
	Entity  string   `json:"entity"`
	Arch    string   `json:"arch,omitempty"`
}

// NormalizeIdent folds an identifier to its canonical form: NFC, upper case,
// surrounding whitespace removed.
//
// A fresh Caser is created per call because cases.Caser is stateful and
// must not be shared between goroutines.
func NormalizeIdent(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	return cases.Upper(language.Und).String(s)
}

// EntityID builds the ID of an entity.
func EntityID(library, entity string) DesignUnitID {
	return DesignUnitID{Kind: UnitEntity, Library: normLib(library), Entity: NormalizeIdent(entity)}
}

// ArchitectureID builds the ID of an architecture of an entity.
func ArchitectureID(library, entity, arch string) DesignUnitID {
	return DesignUnitID{
		Kind:    UnitArchitecture,
		Library: normLib(library),
		Entity:  NormalizeIdent(entity),
		Arch:    NormalizeIdent(arch),
	}
}

// PackageID builds the ID of a package.
func PackageID(library, pkg string) DesignUnitID {
	return DesignUnitID{Kind: UnitPackage, Library: normLib(library), Entity: NormalizeIdent(pkg)}
}

func normLib(library string) string {
	if strings.TrimSpace(library) == "" {
		return DefaultLibrary
	}
	return NormalizeIdent(library)
}

// IsZero reports whether the ID is unset.
func (id DesignUnitID) IsZero() bool {
	return id.Kind == 0 && id.Library == "" && id.Entity == ""
}

// EntityOf returns the entity ID an architecture belongs to.
// For entity and package IDs it returns the ID unchanged.
func (id DesignUnitID) EntityOf() DesignUnitID {
	if id.Kind != UnitArchitecture {
		return id
	}
	return DesignUnitID{Kind: UnitEntity, Library: id.Library, Entity: id.Entity}
}

// UID returns the unique string key of the unit, e.g. "WORK.ADDER" for an
// entity and "WORK.ADDER(RTL)" for one of its architectures.
//
// Entities and packages share a namespace within a library, so they need no
// kind prefix.
func (id DesignUnitID) UID() string {
	if id.Kind == UnitArchitecture {
		return id.Library + "." + id.Entity + "(" + id.Arch + ")"
	}
	return id.Library + "." + id.Entity
}

func (id DesignUnitID) String() string {
	return id.UID()
}

// ParseUnitRef parses a textual unit reference.
//
// Accepted forms:
//
//	entity               -> WORK.ENTITY
//	lib.entity           -> LIB.ENTITY
//	lib.entity(arch)     -> LIB.ENTITY(ARCH)
//	entity(arch)         -> WORK.ENTITY(ARCH)
func ParseUnitRef(ref string) (DesignUnitID, error) {
	s := strings.TrimSpace(ref)
	if s == "" {
		return DesignUnitID{}, fmt.Errorf("empty unit reference")
	}

	arch := ""
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return DesignUnitID{}, fmt.Errorf("unit reference %q: unterminated architecture", ref)
		}
		arch = strings.TrimSpace(s[open+1 : len(s)-1])
		if arch == "" {
			return DesignUnitID{}, fmt.Errorf("unit reference %q: empty architecture", ref)
		}
		s = strings.TrimSpace(s[:open])
	}

	lib, ent := "", s
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		lib, ent = s[:dot], s[dot+1:]
	}
	if ent == "" || strings.ContainsAny(ent, ".() ") {
		return DesignUnitID{}, fmt.Errorf("unit reference %q: invalid entity name", ref)
	}

	if arch != "" {
		return ArchitectureID(lib, ent, arch), nil
	}
	return EntityID(lib, ent), nil
}
