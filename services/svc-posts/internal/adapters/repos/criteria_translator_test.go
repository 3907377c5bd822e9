package repos_test

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/repos"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/stretchr/testify/require"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func ptr[T any](v T) *T { return &v }

func mustQuery(t *testing.T, criteria model.PostCriteria, pageable model.Pageable) model.Criteria {
	t.Helper()

	query, err := model.NewPostQuery(criteria, pageable)
	require.NoError(t, err)

	return query
}

func TestCriteriaTranslator_Conditions(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		criteria model.PostCriteria
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filter selects everything",
			criteria: model.PostCriteria{},
			wantSQL:  "SELECT COUNT(*) FROM post",
		},
		{
			name:     "equals",
			criteria: model.PostCriteria{Title: &model.StringFilter{Filter: model.Filter[string]{Equals: ptr("Hello")}}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE post.title = $1",
			wantArgs: []any{"Hello"},
		},
		{
			name:     "notEquals keeps nulls",
			criteria: model.PostCriteria{State: &model.IntegerFilter{Filter: model.Filter[int32]{NotEquals: ptr(int32(2))}}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE (post.state IS NULL OR post.state <> $1)",
			wantArgs: []any{int32(2)},
		},
		{
			name:     "in",
			criteria: model.PostCriteria{ID: &model.LongFilter{Filter: model.Filter[int64]{In: []int64{1, 2}}}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE post.id IN ($1,$2)",
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:     "contains",
			criteria: model.PostCriteria{Tags: &model.StringFilter{Contains: ptr("go")}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE post.tags LIKE $1",
			wantArgs: []any{"%go%"},
		},
		{
			name:     "doesNotContain keeps nulls",
			criteria: model.PostCriteria{Summary: &model.StringFilter{DoesNotContain: ptr("draft")}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE (post.summary IS NULL OR post.summary NOT LIKE $1)",
			wantArgs: []any{"%draft%"},
		},
		{
			name:     "specified true",
			criteria: model.PostCriteria{Slug: &model.StringFilter{Filter: model.Filter[string]{Specified: ptr(true)}}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE post.slug IS NOT NULL",
		},
		{
			name: "range on date",
			criteria: model.PostCriteria{PublishedDate: &model.DateFilter{
				GreaterThanOrEqual: &published,
				LessThan:           ptr(published.AddDate(0, 1, 0)),
			}},
			wantSQL:  "SELECT COUNT(*) FROM post WHERE (post.published_date >= $1 AND post.published_date < $2)",
			wantArgs: []any{published, published.AddDate(0, 1, 0)},
		},
		{
			name:     "relationship field joins the category once",
			criteria: model.PostCriteria{CategoryID: &model.LongFilter{Filter: model.Filter[int64]{Equals: ptr(int64(7)), NotEquals: ptr(int64(8))}}},
			wantSQL: "SELECT COUNT(*) FROM post LEFT JOIN category ON category.id = post.category_id " +
				"WHERE (category.id = $1 AND (category.id IS NULL OR category.id <> $2))",
			wantArgs: []any{int64(7), int64(8)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			translator := repos.NewCriteriaTranslator(nil)

			builder, err := translator.ApplyConditionsOnly(
				psql.Select("COUNT(*)").From("post"),
				mustQuery(t, tc.criteria, model.Unpaged()),
			)
			require.NoError(t, err)

			sql, args, err := builder.ToSql()
			require.NoError(t, err)
			require.Equal(t, tc.wantSQL, sql)
			require.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestCriteriaTranslator_SelectAndCountSharePredicate(t *testing.T) {
	t.Parallel()

	translator := repos.NewCriteriaTranslator(nil)
	query := mustQuery(t, model.PostCriteria{
		Title: &model.StringFilter{Contains: ptr("go")},
		State: &model.IntegerFilter{GreaterThan: ptr(int32(0))},
	}, model.Pageable{Page: 2, Size: 10, Sort: []model.SortField{{Field: "createdAt", Direction: model.SortDesc}}})

	selectBuilder, err := translator.ApplyToSelect(psql.Select("post.id").From("post"), query, model.CategoryRelation)
	require.NoError(t, err)

	countBuilder, err := translator.ApplyConditionsOnly(psql.Select("COUNT(*)").From("post"), query)
	require.NoError(t, err)

	selectSQL, selectArgs, err := selectBuilder.ToSql()
	require.NoError(t, err)

	countSQL, countArgs, err := countBuilder.ToSql()
	require.NoError(t, err)

	const where = "WHERE (post.title LIKE $1 AND post.state > $2)"

	require.Equal(t,
		"SELECT post.id FROM post LEFT JOIN category ON category.id = post.category_id "+where+
			" ORDER BY post.created_at DESC, post.id ASC LIMIT 10 OFFSET 20",
		selectSQL,
	)
	require.Equal(t, "SELECT COUNT(*) FROM post "+where, countSQL)
	require.Equal(t, countArgs, selectArgs)
}

func TestCriteriaTranslator_SortOnRelationJoins(t *testing.T) {
	t.Parallel()

	translator := repos.NewCriteriaTranslator(nil)
	query := mustQuery(t, model.PostCriteria{}, model.Pageable{
		Sort: []model.SortField{{Field: "categoryId", Direction: model.SortAsc}},
	})

	builder, err := translator.ApplyToSelect(psql.Select("post.id").From("post"), query)
	require.NoError(t, err)

	sql, _, err := builder.ToSql()
	require.NoError(t, err)
	require.Equal(t,
		"SELECT post.id FROM post LEFT JOIN category ON category.id = post.category_id ORDER BY category.id ASC, post.id ASC",
		sql,
	)
}

func TestCriteriaTranslator_RejectsUnknownField(t *testing.T) {
	t.Parallel()

	translator := repos.NewCriteriaTranslator(nil)
	criteria := model.NewCriteria().Where("popularity", 3).Build()

	_, err := translator.ApplyConditionsOnly(psql.Select("COUNT(*)").From("post"), criteria)
	require.Error(t, err)

	sorted := model.NewCriteria().OrderBy("popularity", model.SortAsc).Build()

	_, err = translator.ApplyToSelect(psql.Select("post.id").From("post"), sorted)
	require.Error(t, err)
}

func TestCriteriaTranslator_MustNot(t *testing.T) {
	t.Parallel()

	translator := repos.NewCriteriaTranslator(nil)

	clause, err := translator.Predicate(model.MustNot(model.Eq("slug", "a")))
	require.NoError(t, err)

	sql, args, err := clause.ToSql()
	require.NoError(t, err)
	require.Equal(t, "NOT (post.slug = ?)", sql)
	require.Equal(t, []any{"a"}, args)
}
