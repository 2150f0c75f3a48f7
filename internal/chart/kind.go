package chart

import (
	"fmt"
	"strings"
)

// Kind selects how projected points are rendered. It never changes the points.
type Kind string

const (
	Bar     Kind = "bar"
	Line    Kind = "line"
	Pie     Kind = "pie"
	Scatter Kind = "scatter"
)

// Kinds lists every supported chart kind in display order.
func Kinds() []Kind {
	return []Kind{Bar, Line, Pie, Scatter}
}

// ParseKind parses a chart kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// IsValid reports whether k is one of the supported kinds.
func (k Kind) IsValid() bool {
	switch k {
	case Bar, Line, Pie, Scatter:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Title returns a human label such as "Bar Chart".
func (k Kind) Title() string {
	switch k {
	case Bar:
		return "Bar Chart"
	case Line:
		return "Line Chart"
	case Pie:
		return "Pie Chart"
	case Scatter:
		return "Scatter Plot"
	default:
		return string(k)
	}
}
