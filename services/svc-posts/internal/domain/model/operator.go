package model

import "fmt"

// Operator is a comparison applicable to a single field.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpIn                 Operator = "in"
	OpSpecified          Operator = "specified"
	OpContains           Operator = "contains"
	OpDoesNotContain     Operator = "doesNotContain"
	OpGreaterThan        Operator = "greaterThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
)

// operatorOrder is the canonical order used when rendering and compiling filters.
var operatorOrder = []Operator{
	OpEquals,
	OpNotEquals,
	OpIn,
	OpSpecified,
	OpContains,
	OpDoesNotContain,
	OpGreaterThan,
	OpGreaterThanOrEqual,
	OpLessThan,
	OpLessThanOrEqual,
}

// ParseOperator resolves the operator token used in query parameters.
func ParseOperator(token string) (Operator, error) {
	for _, op := range operatorOrder {
		if string(op) == token {
			return op, nil
		}
	}

	return "", fmt.Errorf("%w: unknown operator %q", ErrMalformedFilter, token)
}

func (o Operator) String() string {
	return string(o)
}
