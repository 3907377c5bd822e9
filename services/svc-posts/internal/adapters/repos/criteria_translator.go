package repos

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

var errUnknownField = errors.New("unknown field")

// CriteriaTranslator turns model criteria into squirrel clauses over a table
// whose fields are described by a list of descriptors.
type CriteriaTranslator struct {
	logger *logger.Logger
	table  string
	fields map[string]model.FieldDescriptor
}

func NewCriteriaTranslator(log *logger.Logger) *CriteriaTranslator {
	return NewCriteriaTranslatorFor(postsTable, model.PostFields, log)
}

func NewCriteriaTranslatorFor(table string, descriptors []model.FieldDescriptor, log *logger.Logger) *CriteriaTranslator {
	fields := make(map[string]model.FieldDescriptor, len(descriptors))
	for _, d := range descriptors {
		fields[d.Name] = d
	}

	return &CriteriaTranslator{
		logger: log,
		table:  table,
		fields: fields,
	}
}

// ApplyToSelect adds joins, predicate, ordering and window. Relations in
// include are joined even when the criteria do not reference them.
func (t *CriteriaTranslator) ApplyToSelect(
	builder sq.SelectBuilder,
	criteria model.Criteria,
	include ...model.Relation,
) (sq.SelectBuilder, error) {
	sortFields := make([]string, 0, len(criteria.Sorting()))
	for _, s := range criteria.Sorting() {
		sortFields = append(sortFields, s.Field)
	}

	builder, err := t.applyPredicate(builder, criteria, sortFields, include)
	if err != nil {
		return builder, err
	}

	builder, err = t.applySorting(builder, criteria)
	if err != nil {
		return builder, err
	}

	return t.applyPagination(builder, criteria), nil
}

// ApplyConditionsOnly adds the joins and predicate, leaving order and window
// untouched. Counting with it yields exactly the rows ApplyToSelect pages over.
func (t *CriteriaTranslator) ApplyConditionsOnly(builder sq.SelectBuilder, criteria model.Criteria) (sq.SelectBuilder, error) {
	return t.applyPredicate(builder, criteria, nil, nil)
}

// Predicate compiles a specification into a squirrel condition.
func (t *CriteriaTranslator) Predicate(spec model.Specification) (sq.Sqlizer, error) {
	return t.translateSpec(spec)
}

func (t *CriteriaTranslator) applyPredicate(
	builder sq.SelectBuilder,
	criteria model.Criteria,
	extraFields []string,
	include []model.Relation,
) (sq.SelectBuilder, error) {
	relations, err := t.relations(append(model.Fields(criteria.Spec()), extraFields...), include)
	if err != nil {
		return builder, err
	}

	for _, rel := range relations {
		builder = builder.LeftJoin(fmt.Sprintf(
			"%s ON %s.%s = %s.%s",
			rel.Table, rel.Table, rel.TargetKey, t.table, rel.ForeignKey,
		))
	}

	if !criteria.HasSpec() {
		return builder, nil
	}

	where, err := t.translateSpec(criteria.Spec())
	if err != nil {
		return builder, err
	}

	return builder.Where(where), nil
}

// relations returns each relation needed by fields once, include first.
func (t *CriteriaTranslator) relations(fields []string, include []model.Relation) ([]model.Relation, error) {
	var (
		out  []model.Relation
		seen = make(map[string]struct{})
	)

	add := func(rel model.Relation) {
		if _, ok := seen[rel.Table]; ok {
			return
		}

		seen[rel.Table] = struct{}{}
		out = append(out, rel)
	}

	for _, rel := range include {
		add(rel)
	}

	for _, name := range fields {
		d, err := t.lookup(name)
		if err != nil {
			return nil, err
		}

		if d.IsRelation() {
			add(*d.Relation)
		}
	}

	return out, nil
}

func (t *CriteriaTranslator) translateSpec(spec model.Specification) (sq.Sqlizer, error) {
	if spec.IsComposite() {
		return t.translateComposite(spec)
	}

	col, err := t.col(spec.Field())
	if err != nil {
		return nil, err
	}

	switch spec.Operator() {
	case model.SpecOpEq, model.SpecOpIn:
		return sq.Eq{col: spec.Value()}, nil
	case model.SpecOpNotEq:
		return sq.NotEq{col: spec.Value()}, nil
	case model.SpecOpLike:
		return sq.Like{col: spec.Value()}, nil
	case model.SpecOpNotLike:
		return sq.NotLike{col: spec.Value()}, nil
	case model.SpecOpGt:
		return sq.Gt{col: spec.Value()}, nil
	case model.SpecOpGte:
		return sq.GtOrEq{col: spec.Value()}, nil
	case model.SpecOpLt:
		return sq.Lt{col: spec.Value()}, nil
	case model.SpecOpLte:
		return sq.LtOrEq{col: spec.Value()}, nil
	case model.SpecOpIsNull:
		return sq.Eq{col: nil}, nil
	case model.SpecOpNotNull:
		return sq.NotEq{col: nil}, nil
	}

	return nil, fmt.Errorf("unsupported operator %q on %s", spec.Operator(), spec.Field())
}

func (t *CriteriaTranslator) translateComposite(spec model.Specification) (sq.Sqlizer, error) {
	children := make([]sq.Sqlizer, 0, len(spec.Children()))

	for _, child := range spec.Children() {
		clause, err := t.translateSpec(child)
		if err != nil {
			return nil, err
		}

		children = append(children, clause)
	}

	switch spec.Operator() {
	case model.SpecOpMust:
		return sq.And(children), nil
	case model.SpecOpShould:
		return sq.Or(children), nil
	case model.SpecOpMustNot:
		if len(children) == 1 {
			return sq.Expr("NOT (?)", children[0]), nil
		}
	}

	return nil, fmt.Errorf("unsupported composite %q", spec.Operator())
}

func (t *CriteriaTranslator) lookup(field string) (model.FieldDescriptor, error) {
	d, ok := t.fields[field]
	if !ok {
		if t.logger != nil {
			t.logger.Warn().Str("field", field).Msg("rejecting criteria on unknown field")
		}

		return d, fmt.Errorf("%w: %q", errUnknownField, field)
	}

	return d, nil
}

func (t *CriteriaTranslator) col(field string) (string, error) {
	d, err := t.lookup(field)
	if err != nil {
		return "", err
	}

	if d.IsRelation() {
		return d.Relation.Table + "." + d.Column, nil
	}

	return t.table + "." + d.Column, nil
}

func (t *CriteriaTranslator) applySorting(builder sq.SelectBuilder, c model.Criteria) (sq.SelectBuilder, error) {
	for _, s := range c.Sorting() {
		col, err := t.col(s.Field)
		if err != nil {
			return builder, fmt.Errorf("%w: %v", model.ErrInvalidSort, err)
		}

		builder = builder.OrderBy(fmt.Sprintf("%s %s", col, s.Direction))
	}

	return builder, nil
}

func (t *CriteriaTranslator) applyPagination(builder sq.SelectBuilder, c model.Criteria) sq.SelectBuilder {
	if !c.HasPagination() {
		return builder
	}

	return builder.Limit(uint64(c.Size())).Offset(uint64(c.Offset()))
}
