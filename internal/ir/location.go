package ir

import "fmt"

// Location identifies a position in a design source file.
// The zero value means "unknown location".
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// IsValid reports whether the location carries any position information.
func (l Location) IsValid() bool {
	return l.File != "" || l.Line > 0
}

// String renders file:line:col, omitting unknown parts.
func (l Location) String() string {
	switch {
	case !l.IsValid():
		return "<unknown>"
	case l.Col > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
	case l.Line > 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return l.File
	}
}
