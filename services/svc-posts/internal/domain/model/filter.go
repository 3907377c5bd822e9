package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type (
	// Condition is one active operator of a filter with its operand(s).
	// Values is used by OpIn only; Value holds the bool flag for OpSpecified.
	Condition struct {
		Operator Operator
		Value    any
		Values   []any
	}

	// FieldFilter is implemented by the typed filters of this package only.
	FieldFilter interface {
		Conditions() []Condition
		IsEmpty() bool
		String() string
		sealed()
	}

	// Filter holds the operators every field type supports.
	Filter[T comparable] struct {
		Equals    *T
		NotEquals *T
		In        []T
		Specified *bool
	}

	// StringFilter adds substring matching for text fields.
	StringFilter struct {
		Filter[string]
		Contains       *string
		DoesNotContain *string
	}

	// RangeFilter adds ordering comparisons for orderable fields.
	RangeFilter[T comparable] struct {
		Filter[T]
		GreaterThan        *T
		GreaterThanOrEqual *T
		LessThan           *T
		LessThanOrEqual    *T
	}

	IntegerFilter = RangeFilter[int32]
	LongFilter    = RangeFilter[int64]
	DateFilter    = RangeFilter[time.Time]
	InstantFilter = RangeFilter[time.Time]
	BooleanFilter = Filter[bool]
)

func (f *Filter[T]) sealed() {}

func (f *Filter[T]) Conditions() []Condition {
	if f == nil {
		return nil
	}

	var conds []Condition

	if f.Equals != nil {
		conds = append(conds, Condition{Operator: OpEquals, Value: *f.Equals})
	}

	if f.NotEquals != nil {
		conds = append(conds, Condition{Operator: OpNotEquals, Value: *f.NotEquals})
	}

	if f.In != nil {
		values := make([]any, len(f.In))
		for i, v := range f.In {
			values[i] = v
		}

		conds = append(conds, Condition{Operator: OpIn, Values: values})
	}

	if f.Specified != nil {
		conds = append(conds, Condition{Operator: OpSpecified, Value: *f.Specified})
	}

	return conds
}

func (f *Filter[T]) IsEmpty() bool { return len(f.Conditions()) == 0 }

func (f *Filter[T]) String() string { return formatConditions(f.Conditions()) }

func (f *Filter[T]) Copy() *Filter[T] {
	if f == nil {
		return nil
	}

	c := cloneFilter(*f)

	return &c
}

func (f *Filter[T]) Equal(other *Filter[T]) bool {
	return equalConditions(f.Conditions(), other.Conditions())
}

func (f *Filter[T]) apply(op Operator, raw string, parse func(string) (T, error)) error {
	switch op {
	case OpEquals:
		v, err := parse(raw)
		if err != nil {
			return err
		}

		f.Equals = &v
	case OpNotEquals:
		v, err := parse(raw)
		if err != nil {
			return err
		}

		f.NotEquals = &v
	case OpIn:
		values, err := parseList(raw, parse)
		if err != nil {
			return err
		}

		f.In = values
	case OpSpecified:
		flag, err := parseBoolean(raw)
		if err != nil {
			return err
		}

		f.Specified = &flag
	default:
		return ErrInvalidFilterKind
	}

	return nil
}

func (f *StringFilter) Conditions() []Condition {
	if f == nil {
		return nil
	}

	conds := f.Filter.Conditions()

	if f.Contains != nil {
		conds = append(conds, Condition{Operator: OpContains, Value: *f.Contains})
	}

	if f.DoesNotContain != nil {
		conds = append(conds, Condition{Operator: OpDoesNotContain, Value: *f.DoesNotContain})
	}

	return conds
}

func (f *StringFilter) IsEmpty() bool { return len(f.Conditions()) == 0 }

func (f *StringFilter) String() string { return formatConditions(f.Conditions()) }

func (f *StringFilter) Copy() *StringFilter {
	if f == nil {
		return nil
	}

	return &StringFilter{
		Filter:         cloneFilter(f.Filter),
		Contains:       clonePtr(f.Contains),
		DoesNotContain: clonePtr(f.DoesNotContain),
	}
}

func (f *StringFilter) Equal(other *StringFilter) bool {
	return equalConditions(f.Conditions(), other.Conditions())
}

func (f *StringFilter) apply(op Operator, raw string) error {
	switch op {
	case OpContains:
		f.Contains = &raw
	case OpDoesNotContain:
		f.DoesNotContain = &raw
	default:
		return f.Filter.apply(op, raw, parseText)
	}

	return nil
}

func (f *RangeFilter[T]) Conditions() []Condition {
	if f == nil {
		return nil
	}

	conds := f.Filter.Conditions()

	bounds := []struct {
		op    Operator
		value *T
	}{
		{OpGreaterThan, f.GreaterThan},
		{OpGreaterThanOrEqual, f.GreaterThanOrEqual},
		{OpLessThan, f.LessThan},
		{OpLessThanOrEqual, f.LessThanOrEqual},
	}

	for _, b := range bounds {
		if b.value != nil {
			conds = append(conds, Condition{Operator: b.op, Value: *b.value})
		}
	}

	return conds
}

func (f *RangeFilter[T]) IsEmpty() bool { return len(f.Conditions()) == 0 }

func (f *RangeFilter[T]) String() string { return formatConditions(f.Conditions()) }

func (f *RangeFilter[T]) Copy() *RangeFilter[T] {
	if f == nil {
		return nil
	}

	return &RangeFilter[T]{
		Filter:             cloneFilter(f.Filter),
		GreaterThan:        clonePtr(f.GreaterThan),
		GreaterThanOrEqual: clonePtr(f.GreaterThanOrEqual),
		LessThan:           clonePtr(f.LessThan),
		LessThanOrEqual:    clonePtr(f.LessThanOrEqual),
	}
}

func (f *RangeFilter[T]) Equal(other *RangeFilter[T]) bool {
	return equalConditions(f.Conditions(), other.Conditions())
}

func (f *RangeFilter[T]) apply(op Operator, raw string, parse func(string) (T, error)) error {
	var target **T

	switch op {
	case OpGreaterThan:
		target = &f.GreaterThan
	case OpGreaterThanOrEqual:
		target = &f.GreaterThanOrEqual
	case OpLessThan:
		target = &f.LessThan
	case OpLessThanOrEqual:
		target = &f.LessThanOrEqual
	default:
		return f.Filter.apply(op, raw, parse)
	}

	v, err := parse(raw)
	if err != nil {
		return err
	}

	*target = &v

	return nil
}

func cloneFilter[T comparable](f Filter[T]) Filter[T] {
	return Filter[T]{
		Equals:    clonePtr(f.Equals),
		NotEquals: clonePtr(f.NotEquals),
		In:        slices.Clone(f.In),
		Specified: clonePtr(f.Specified),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}

func equalConditions(a, b []Condition) bool {
	return slices.EqualFunc(a, b, func(x, y Condition) bool {
		return x.Operator == y.Operator &&
			equalValues(x.Value, y.Value) &&
			slices.EqualFunc(x.Values, y.Values, equalValues)
	})
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)

		return ok && ta.Equal(tb)
	}

	return a == b
}

func formatConditions(conds []Condition) string {
	parts := make([]string, 0, len(conds))

	for _, c := range conds {
		parts = append(parts, formatCondition(c))
	}

	return strings.Join(parts, ", ")
}

func formatCondition(c Condition) string {
	if c.Operator != OpIn {
		return fmt.Sprintf("%s=%s", c.Operator, formatValue(c.Value))
	}

	values := make([]string, len(c.Values))
	for i, v := range c.Values {
		values[i] = formatValue(v)
	}

	return fmt.Sprintf("%s=[%s]", c.Operator, strings.Join(values, ","))
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		return strconv.Quote(value)
	case time.Time:
		return value.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(value)
	}
}

func parseList[T any](raw string, parse func(string) (T, error)) ([]T, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty list", ErrMalformedFilter)
	}

	parts := strings.Split(raw, ",")
	values := make([]T, 0, len(parts))

	for _, part := range parts {
		v, err := parse(part)
		if err != nil {
			return nil, err
		}

		values = append(values, v)
	}

	return values, nil
}

func parseText(raw string) (string, error) {
	return raw, nil
}

func parseInteger(raw string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformedFilter, raw)
	}

	return int32(v), nil
}

func parseLong(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a long", ErrMalformedFilter, raw)
	}

	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	v, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrMalformedFilter, raw)
	}

	return v, nil
}

func parseInstant(raw string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a timestamp", ErrMalformedFilter, raw)
	}

	return v.UTC(), nil
}

func parseBoolean(raw string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", ErrMalformedFilter, raw)
	}

	return v, nil
}
