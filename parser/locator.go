package parser

import (
	"fmt"
	"strings"
)

// LocatorKind selects the query language of a Locator.
type LocatorKind int

const (
	// CSS locators are evaluated with goquery.
	CSS LocatorKind = iota
	// XPath locators are evaluated with htmlquery.
	XPath
)

func (k LocatorKind) String() string {
	switch k {
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	default:
		return "unknown"
	}
}

// Locator addresses elements in a rendered page. When Attr is set the
// attribute value is read instead of the element text.
type Locator struct {
	Kind LocatorKind
	Expr string
	Attr string
}

// CSSLocator builds a CSS locator.
func CSSLocator(expr string) Locator {
	return Locator{Kind: CSS, Expr: expr}
}

// XPathLocator builds an XPath locator.
func XPathLocator(expr string) Locator {
	return Locator{Kind: XPath, Expr: expr}
}

// WithAttr returns a copy of l that reads attr.
func (l Locator) WithAttr(attr string) Locator {
	l.Attr = attr
	return l
}

// IsZero reports whether the locator has no expression.
func (l Locator) IsZero() bool {
	return strings.TrimSpace(l.Expr) == ""
}

func (l Locator) String() string {
	s := l.Kind.String() + ":" + l.Expr
	if l.Attr != "" {
		s += "@" + l.Attr
	}
	return s
}

// ParseLocator reads "css:<selector>", "xpath:<expr>" or "x:<expr>".
// A string without a prefix is treated as CSS.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("locator is empty")
	}

	var loc Locator
	switch {
	case strings.HasPrefix(s, "css:"):
		loc = CSSLocator(strings.TrimPrefix(s, "css:"))
	case strings.HasPrefix(s, "xpath:"):
		loc = XPathLocator(strings.TrimPrefix(s, "xpath:"))
	case strings.HasPrefix(s, "x:"):
		loc = XPathLocator(strings.TrimPrefix(s, "x:"))
	default:
		loc = CSSLocator(s)
	}
	if loc.IsZero() {
		return Locator{}, fmt.Errorf("locator %q has no expression", s)
	}
	return loc, nil
}

// MustLocator is ParseLocator for static definitions; it panics on error.
func MustLocator(s string) Locator {
	loc, err := ParseLocator(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// FieldSpec is the fallback chain for one semantic field. Locators are tried
// in order until one yields a non-empty value.
type FieldSpec struct {
	Name     string
	Locators []Locator

	// All joins every match with Separator instead of taking the first.
	All       bool
	Separator string
	// Exclude is a CSS selector whose matches are removed from an element
	// before its text is read.
	Exclude    string
	TrimPrefix string
}

// Field builds a FieldSpec from locator strings.
func Field(name string, locators ...string) FieldSpec {
	spec := FieldSpec{Name: name}
	for _, l := range locators {
		spec.Locators = append(spec.Locators, MustLocator(l))
	}
	return spec
}
