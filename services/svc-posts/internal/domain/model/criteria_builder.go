package model

// CriteriaBuilder accumulates an AND of specs plus ordering and paging.
type CriteriaBuilder struct {
	criteria Criteria
	specs    []Specification
}

func NewCriteria() *CriteriaBuilder {
	return &CriteriaBuilder{}
}

func (b *CriteriaBuilder) Where(field string, value any) *CriteriaBuilder {
	return b.WhereSpec(Eq(field, value))
}

func (b *CriteriaBuilder) WhereIn(field string, values ...any) *CriteriaBuilder {
	return b.WhereSpec(In(field, values...))
}

func (b *CriteriaBuilder) WhereShould(specs ...Specification) *CriteriaBuilder {
	return b.WhereSpec(Should(specs...))
}

// WhereSpec adds spec to the conjunction; nil is ignored.
func (b *CriteriaBuilder) WhereSpec(spec Specification) *CriteriaBuilder {
	if spec != nil {
		b.specs = append(b.specs, spec)
	}

	return b
}

func (b *CriteriaBuilder) OrderBy(field string, direction SortDirection) *CriteriaBuilder {
	b.criteria.sorting = append(b.criteria.sorting, SortField{Field: field, Direction: direction})

	return b
}

func (b *CriteriaBuilder) Paginate(page, size uint) *CriteriaBuilder {
	b.criteria.page, b.criteria.size = page, size

	return b
}

// Build returns the criteria; a single spec is used as is rather than
// wrapped in a one-child must.
func (b *CriteriaBuilder) Build() Criteria {
	built := b.criteria
	built.sorting = append([]SortField(nil), b.criteria.sorting...)

	switch len(b.specs) {
	case 0:
	case 1:
		built.spec = b.specs[0]
	default:
		built.spec = Must(append([]Specification(nil), b.specs...)...)
	}

	return built
}
