package model

import (
	"fmt"
	"strings"
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"

	defaultSortField = "id"
)

type (
	SortField struct {
		Field     string
		Direction SortDirection
	}

	// Pageable selects a window of an ordered result. Page is zero based and
	// a zero Size means unpaged.
	Pageable struct {
		Page uint
		Size uint
		Sort []SortField
	}

	// Criteria is a compiled query: predicate, validated ordering and window.
	Criteria struct {
		spec    Specification
		sorting []SortField
		page    uint
		size    uint
	}
)

func (c Criteria) Spec() Specification  { return c.spec }
func (c Criteria) Sorting() []SortField { return c.sorting }
func (c Criteria) Page() uint           { return c.page }
func (c Criteria) Size() uint           { return c.size }
func (c Criteria) Offset() uint         { return c.page * c.size }
func (c Criteria) HasSpec() bool        { return c.spec != nil }
func (c Criteria) HasSorting() bool     { return len(c.sorting) > 0 }
func (c Criteria) HasPagination() bool  { return c.size > 0 }

// Unpaged requests every match in default order.
func Unpaged() Pageable {
	return Pageable{}
}

// ParseSortField parses "field" or "field,direction" where direction is asc or desc.
func ParseSortField(raw string) (SortField, error) {
	name, dir, hasDir := strings.Cut(strings.TrimSpace(raw), ",")

	field := SortField{Field: strings.TrimSpace(name), Direction: SortAsc}

	if hasDir {
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "asc", "":
			field.Direction = SortAsc
		case "desc":
			field.Direction = SortDesc
		default:
			return SortField{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, dir)
		}
	}

	if field.Field == "" {
		return SortField{}, fmt.Errorf("%w: empty sort field", ErrInvalidSort)
	}

	return field, nil
}

// NewPostQuery compiles post criteria and a page request into a Criteria.
// Sorting on a field that is not a post field fails with ErrInvalidSort.
// Results are always ordered by id last so pages are stable.
func NewPostQuery(criteria PostCriteria, pageable Pageable) (Criteria, error) {
	builder := NewCriteria().WhereSpec(criteria.Specification())

	hasID := false

	for _, sort := range pageable.Sort {
		if _, ok := LookupPostField(sort.Field); !ok {
			return Criteria{}, fmt.Errorf("%w: unknown field %q", ErrInvalidSort, sort.Field)
		}

		if sort.Field == defaultSortField {
			hasID = true
		}

		builder.OrderBy(sort.Field, sort.Direction)
	}

	if !hasID {
		builder.OrderBy(defaultSortField, SortAsc)
	}

	builder.Paginate(pageable.Page, pageable.Size)

	return builder.Build(), nil
}
