package intercept

import (
	"fmt"
	"strings"
)

// SymbolID is the structural identity of a framework member
type SymbolID struct {
	Class  string // fully qualified class name, e.g. android.os.Build
	Member string // member signature, e.g. getRadioVersion()
}

// Symbol creates a SymbolID
func Symbol(class, member string) SymbolID {
	return SymbolID{Class: class, Member: member}
}

// ParseSymbol parses the Class#member form produced by String
func ParseSymbol(s string) (SymbolID, error) {
	class, member, ok := strings.Cut(s, "#")
	if !ok || class == "" || member == "" {
		return SymbolID{}, fmt.Errorf("invalid symbol %q: want Class#member", s)
	}
	return SymbolID{Class: class, Member: member}, nil
}

// String returns Class#member
func (s SymbolID) String() string {
	return s.Class + "#" + s.Member
}

// IsZero reports whether the identity is incomplete
func (s SymbolID) IsZero() bool {
	return s.Class == "" || s.Member == ""
}
