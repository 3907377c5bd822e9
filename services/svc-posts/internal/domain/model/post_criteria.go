package model

import (
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// PostCriteria holds at most one typed filter per filterable post field.
// A nil filter leaves the field unconstrained.
type PostCriteria struct {
	ID            *LongFilter
	Title         *StringFilter
	Slug          *StringFilter
	Summary       *StringFilter
	CreatedAt     *InstantFilter
	CreatedBy     *StringFilter
	PublishedDate *DateFilter
	State         *IntegerFilter
	Tags          *StringFilter
	UpdatedAt     *InstantFilter
	UpdatedBy     *StringFilter
	CategoryID    *LongFilter
}

type postFieldBinding struct {
	descriptor FieldDescriptor
	filter     func(*PostCriteria) FieldFilter
	apply      func(*PostCriteria, Operator, string) error
}

var postBindings = []postFieldBinding{
	bindRange("id", func(c *PostCriteria) **LongFilter { return &c.ID }, parseLong),
	bindText("title", func(c *PostCriteria) **StringFilter { return &c.Title }),
	bindText("slug", func(c *PostCriteria) **StringFilter { return &c.Slug }),
	bindText("summary", func(c *PostCriteria) **StringFilter { return &c.Summary }),
	bindRange("createdAt", func(c *PostCriteria) **InstantFilter { return &c.CreatedAt }, parseInstant),
	bindText("createdBy", func(c *PostCriteria) **StringFilter { return &c.CreatedBy }),
	bindRange("publishedDate", func(c *PostCriteria) **DateFilter { return &c.PublishedDate }, parseDate),
	bindRange("state", func(c *PostCriteria) **IntegerFilter { return &c.State }, parseInteger),
	bindText("tags", func(c *PostCriteria) **StringFilter { return &c.Tags }),
	bindRange("updatedAt", func(c *PostCriteria) **InstantFilter { return &c.UpdatedAt }, parseInstant),
	bindText("updatedBy", func(c *PostCriteria) **StringFilter { return &c.UpdatedBy }),
	bindRange("categoryId", func(c *PostCriteria) **LongFilter { return &c.CategoryID }, parseLong),
}

func bindText(name string, field func(*PostCriteria) **StringFilter) postFieldBinding {
	return postFieldBinding{
		descriptor: mustLookupPostField(name),
		filter: func(c *PostCriteria) FieldFilter {
			return *field(c)
		},
		apply: func(c *PostCriteria, op Operator, raw string) error {
			target := field(c)
			if *target == nil {
				*target = &StringFilter{}
			}

			return (*target).apply(op, raw)
		},
	}
}

func bindRange[T comparable](
	name string,
	field func(*PostCriteria) **RangeFilter[T],
	parse func(string) (T, error),
) postFieldBinding {
	return postFieldBinding{
		descriptor: mustLookupPostField(name),
		filter: func(c *PostCriteria) FieldFilter {
			return *field(c)
		},
		apply: func(c *PostCriteria, op Operator, raw string) error {
			target := field(c)
			if *target == nil {
				*target = &RangeFilter[T]{}
			}

			return (*target).apply(op, raw, parse)
		},
	}
}

func mustLookupPostField(name string) FieldDescriptor {
	d, ok := LookupPostField(name)
	if !ok {
		panic("unknown post field " + name)
	}

	return d
}

// ParsePostCriteria builds criteria from flat "field.operator" parameters.
// Parameters whose field part is not a post field are ignored so the same
// map may carry paging and other query options. Keys are visited in sorted
// order so the reported error does not depend on map iteration.
func ParsePostCriteria(params map[string]string) (PostCriteria, error) {
	var criteria PostCriteria

	for _, key := range slices.Sorted(maps.Keys(params)) {
		raw := params[key]
		name, token, hasOperator := strings.Cut(key, ".")

		binding, ok := lookupBinding(name)
		if !ok {
			continue
		}

		if !hasOperator || token == "" {
			return PostCriteria{}, &FilterError{Field: name, Err: ErrMalformedFilter}
		}

		op, err := ParseOperator(token)
		if err != nil {
			return PostCriteria{}, &FilterError{Field: name, Operator: token, Value: raw, Err: err}
		}

		if !binding.descriptor.Type.Supports(op) {
			return PostCriteria{}, &FilterError{Field: name, Operator: token, Value: raw, Err: ErrInvalidFilterKind}
		}

		if err := binding.apply(&criteria, op, raw); err != nil {
			return PostCriteria{}, &FilterError{Field: name, Operator: token, Value: raw, Err: err}
		}
	}

	return criteria, nil
}

func lookupBinding(name string) (postFieldBinding, bool) {
	for _, b := range postBindings {
		if b.descriptor.Name == name {
			return b, true
		}
	}

	return postFieldBinding{}, false
}

// IsEmpty reports whether no filter is active, in which case every post matches.
func (c PostCriteria) IsEmpty() bool {
	for _, b := range postBindings {
		if !b.filter(&c).IsEmpty() {
			return false
		}
	}

	return true
}

// Copy returns a deep copy; mutating either value never affects the other.
func (c PostCriteria) Copy() PostCriteria {
	return PostCriteria{
		ID:            c.ID.Copy(),
		Title:         c.Title.Copy(),
		Slug:          c.Slug.Copy(),
		Summary:       c.Summary.Copy(),
		CreatedAt:     c.CreatedAt.Copy(),
		CreatedBy:     c.CreatedBy.Copy(),
		PublishedDate: c.PublishedDate.Copy(),
		State:         c.State.Copy(),
		Tags:          c.Tags.Copy(),
		UpdatedAt:     c.UpdatedAt.Copy(),
		UpdatedBy:     c.UpdatedBy.Copy(),
		CategoryID:    c.CategoryID.Copy(),
	}
}

// Equal compares the active conditions field by field. A nil filter and an
// empty one are equal.
func (c PostCriteria) Equal(other PostCriteria) bool {
	for _, b := range postBindings {
		if !equalConditions(b.filter(&c).Conditions(), b.filter(&other).Conditions()) {
			return false
		}
	}

	return true
}

// String renders the active conditions in field order, e.g.
// PostCriteria{title.contains="go", state.in=[1,2]}.
func (c PostCriteria) String() string {
	var parts []string

	for _, b := range postBindings {
		for _, cond := range b.filter(&c).Conditions() {
			parts = append(parts, b.descriptor.Name+"."+formatCondition(cond))
		}
	}

	return "PostCriteria{" + strings.Join(parts, ", ") + "}"
}

// Hash is consistent with Equal.
func (c PostCriteria) Hash() uint64 {
	return xxhash.Sum64String(c.String())
}

// Specification compiles the criteria into a predicate tree, the conjunction
// of one leaf per active condition. It returns nil when nothing is filtered.
func (c PostCriteria) Specification() Specification {
	builder := NewCriteria()

	for _, b := range postBindings {
		for _, cond := range b.filter(&c).Conditions() {
			builder.WhereSpec(compileCondition(b.descriptor.Name, cond))
		}
	}

	return builder.Build().Spec()
}
