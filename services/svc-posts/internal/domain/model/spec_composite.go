package model

import "slices"

// compositeSpec joins its children with AND (must) or OR (should), or negates
// its single child (must_not).
type compositeSpec struct {
	op       SpecOperator
	children []Specification
}

func Must(specs ...Specification) Specification {
	return &compositeSpec{op: SpecOpMust, children: specs}
}

func Should(specs ...Specification) Specification {
	return &compositeSpec{op: SpecOpShould, children: specs}
}

func MustNot(spec Specification) Specification {
	return &compositeSpec{op: SpecOpMustNot, children: []Specification{spec}}
}

func (s *compositeSpec) Must(other Specification) Specification   { return s.join(SpecOpMust, other) }
func (s *compositeSpec) Should(other Specification) Specification { return s.join(SpecOpShould, other) }

// join appends to a copy of s instead of nesting when the connective matches.
func (s *compositeSpec) join(op SpecOperator, other Specification) Specification {
	if s.op == op {
		return &compositeSpec{op: op, children: append(slices.Clip(s.children), other)}
	}

	return &compositeSpec{op: op, children: []Specification{s, other}}
}

// MustNot of a negation yields the original spec.
func (s *compositeSpec) MustNot() Specification {
	if s.op == SpecOpMustNot {
		return s.children[0]
	}

	return MustNot(s)
}

func (s *compositeSpec) IsComposite() bool         { return true }
func (s *compositeSpec) Children() []Specification { return s.children }
func (s *compositeSpec) Operator() SpecOperator    { return s.op }
func (s *compositeSpec) Field() string             { return "" }
func (s *compositeSpec) Value() any                { return nil }
