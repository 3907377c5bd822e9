package model

import "slices"

// FieldType classifies a filterable field and decides which operators apply to it.
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeLong      FieldType = "long"
	FieldTypeDate      FieldType = "date"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeBoolean   FieldType = "boolean"
)

var (
	equalityOperators = []Operator{OpEquals, OpNotEquals, OpIn, OpSpecified}
	textOperators     = []Operator{OpContains, OpDoesNotContain}
	rangeOperators    = []Operator{OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual}
)

// Orderable reports whether range operators apply to the type.
func (t FieldType) Orderable() bool {
	switch t {
	case FieldTypeInteger, FieldTypeLong, FieldTypeDate, FieldTypeTimestamp:
		return true
	default:
		return false
	}
}

// Supports reports whether op may be used on a field of this type.
func (t FieldType) Supports(op Operator) bool {
	if slices.Contains(equalityOperators, op) {
		return true
	}

	if slices.Contains(textOperators, op) {
		return t == FieldTypeText
	}

	if slices.Contains(rangeOperators, op) {
		return t.Orderable()
	}

	return false
}

type (
	// Relation describes a many-to-one association reached through a join.
	Relation struct {
		Table      string
		ForeignKey string
		TargetKey  string
	}

	// FieldDescriptor names a filterable field of an entity kind.
	FieldDescriptor struct {
		Name     string
		Type     FieldType
		Column   string
		Relation *Relation
	}
)

// IsRelation reports whether the field compiles against a joined table.
func (d FieldDescriptor) IsRelation() bool {
	return d.Relation != nil
}

// CategoryRelation joins post.category_id to category.id.
var CategoryRelation = Relation{
	Table:      "category",
	ForeignKey: "category_id",
	TargetKey:  "id",
}

// PostFields lists the filterable fields of a post in their canonical order.
var PostFields = []FieldDescriptor{
	{Name: "id", Type: FieldTypeLong, Column: "id"},
	{Name: "title", Type: FieldTypeText, Column: "title"},
	{Name: "slug", Type: FieldTypeText, Column: "slug"},
	{Name: "summary", Type: FieldTypeText, Column: "summary"},
	{Name: "createdAt", Type: FieldTypeTimestamp, Column: "created_at"},
	{Name: "createdBy", Type: FieldTypeText, Column: "created_by"},
	{Name: "publishedDate", Type: FieldTypeDate, Column: "published_date"},
	{Name: "state", Type: FieldTypeInteger, Column: "state"},
	{Name: "tags", Type: FieldTypeText, Column: "tags"},
	{Name: "updatedAt", Type: FieldTypeTimestamp, Column: "updated_at"},
	{Name: "updatedBy", Type: FieldTypeText, Column: "updated_by"},
	{Name: "categoryId", Type: FieldTypeLong, Column: "id", Relation: &CategoryRelation},
}

// LookupPostField returns the descriptor for a post field name.
func LookupPostField(name string) (FieldDescriptor, bool) {
	for _, d := range PostFields {
		if d.Name == name {
			return d, true
		}
	}

	return FieldDescriptor{}, false
}
