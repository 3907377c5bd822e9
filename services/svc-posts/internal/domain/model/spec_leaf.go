package model

type baseSpec struct {
	self Specification
}

func (b *baseSpec) setSelf(s Specification) { b.self = s }

func (b *baseSpec) Must(other Specification) Specification   { return Must(b.self, other) }
func (b *baseSpec) Should(other Specification) Specification { return Should(b.self, other) }
func (b *baseSpec) MustNot() Specification                   { return MustNot(b.self) }
func (b *baseSpec) IsComposite() bool         { return false }
func (b *baseSpec) Children() []Specification { return nil }

// compareSpec covers the single operand comparisons.
type compareSpec struct {
	baseSpec
	op    SpecOperator
	field string
	value any
}

func newCompare(op SpecOperator, field string, value any) Specification {
	s := &compareSpec{op: op, field: field, value: value}
	s.setSelf(s)

	return s
}

func Eq(field string, value any) Specification    { return newCompare(SpecOpEq, field, value) }
func NotEq(field string, value any) Specification { return newCompare(SpecOpNotEq, field, value) }
func Gt(field string, value any) Specification    { return newCompare(SpecOpGt, field, value) }
func Gte(field string, value any) Specification   { return newCompare(SpecOpGte, field, value) }
func Lt(field string, value any) Specification    { return newCompare(SpecOpLt, field, value) }
func Lte(field string, value any) Specification   { return newCompare(SpecOpLte, field, value) }

func (s *compareSpec) Operator() SpecOperator { return s.op }
func (s *compareSpec) Field() string          { return s.field }
func (s *compareSpec) Value() any             { return s.value }

type inSpec struct {
	baseSpec
	field  string
	values []any
}

func In(field string, values ...any) Specification {
	s := &inSpec{field: field, values: values}
	s.setSelf(s)

	return s
}

func (s *inSpec) Operator() SpecOperator { return SpecOpIn }
func (s *inSpec) Field() string          { return s.field }
func (s *inSpec) Value() any             { return s.values }

// likeSpec matches a LIKE pattern where % and _ are wildcards and backslash escapes.
type likeSpec struct {
	baseSpec
	field   string
	pattern string
	negated bool
}

func Like(field, pattern string) Specification {
	s := &likeSpec{field: field, pattern: pattern}
	s.setSelf(s)

	return s
}

func NotLike(field, pattern string) Specification {
	s := &likeSpec{field: field, pattern: pattern, negated: true}
	s.setSelf(s)

	return s
}

func (s *likeSpec) Operator() SpecOperator {
	if s.negated {
		return SpecOpNotLike
	}

	return SpecOpLike
}
func (s *likeSpec) Field() string { return s.field }
func (s *likeSpec) Value() any    { return s.pattern }

type nullSpec struct {
	baseSpec
	field   string
	present bool
}

func IsNull(field string) Specification {
	s := &nullSpec{field: field}
	s.setSelf(s)

	return s
}

func NotNull(field string) Specification {
	s := &nullSpec{field: field, present: true}
	s.setSelf(s)

	return s
}

func (s *nullSpec) Operator() SpecOperator {
	if s.present {
		return SpecOpNotNull
	}

	return SpecOpIsNull
}
func (s *nullSpec) Field() string { return s.field }
func (s *nullSpec) Value() any    { return nil }
