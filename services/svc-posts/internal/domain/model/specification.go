package model

import "slices"

// SpecOperator names the predicate of a leaf or the connective of a
// composite specification.
type SpecOperator string

// Leaf comparisons.
const (
	SpecOpEq      SpecOperator = "eq"
	SpecOpNotEq   SpecOperator = "neq"
	SpecOpIn      SpecOperator = "in"
	SpecOpLike    SpecOperator = "like"
	SpecOpNotLike SpecOperator = "not_like"
	SpecOpGt      SpecOperator = "gt"
	SpecOpGte     SpecOperator = "gte"
	SpecOpLt      SpecOperator = "lt"
	SpecOpLte     SpecOperator = "lte"
	SpecOpIsNull  SpecOperator = "is_null"
	SpecOpNotNull SpecOperator = "not_null"
)

// Connectives.
const (
	SpecOpMust    SpecOperator = "must"
	SpecOpShould  SpecOperator = "should"
	SpecOpMustNot SpecOperator = "must_not"
)

// Specification is a predicate tree that knows nothing about the store it is
// evaluated by. The SQL translator and both search adapters walk it.
type Specification interface {
	Must(other Specification) Specification
	Should(other Specification) Specification
	MustNot() Specification
	IsComposite() bool
	Children() []Specification
	Operator() SpecOperator
	Field() string
	Value() any
}

// Fields lists the distinct fields spec compares, in first-seen order.
func Fields(spec Specification) []string {
	return collectFields(spec, nil)
}

func collectFields(spec Specification, names []string) []string {
	switch {
	case spec == nil:
		return names
	case spec.IsComposite():
		for _, child := range spec.Children() {
			names = collectFields(child, names)
		}

		return names
	case slices.Contains(names, spec.Field()):
		return names
	default:
		return append(names, spec.Field())
	}
}
