package model

import (
	"strings"
	"time"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching s anywhere, with wildcards in s escaped.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// compileCondition maps one filter condition to its predicate. Negative
// operators also match rows where the field is null.
func compileCondition(field string, cond Condition) Specification {
	value := cond.Value
	if t, ok := value.(time.Time); ok {
		value = normalizeTime(t)
	}

	switch cond.Operator {
	case OpEquals:
		return Eq(field, value)
	case OpNotEquals:
		return Should(IsNull(field), NotEq(field, value))
	case OpIn:
		values := make([]any, len(cond.Values))
		for i, v := range cond.Values {
			if t, ok := v.(time.Time); ok {
				v = normalizeTime(t)
			}

			values[i] = v
		}

		return In(field, values...)
	case OpSpecified:
		if specified, _ := value.(bool); specified {
			return NotNull(field)
		}

		return IsNull(field)
	case OpContains:
		return Like(field, ContainsPattern(value.(string)))
	case OpDoesNotContain:
		return Should(IsNull(field), NotLike(field, ContainsPattern(value.(string))))
	case OpGreaterThan:
		return Gt(field, value)
	case OpGreaterThanOrEqual:
		return Gte(field, value)
	case OpLessThan:
		return Lt(field, value)
	case OpLessThanOrEqual:
		return Lte(field, value)
	default:
		return nil
	}
}

// normalizeTime keeps instants comparable across time zones.
func normalizeTime(t time.Time) time.Time {
	return t.UTC()
}
