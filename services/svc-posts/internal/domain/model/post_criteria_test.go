package model_test

import (
	"testing"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestParsePostCriteria(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		params  map[string]string
		want    model.PostCriteria
		wantErr error
	}{
		{
			name:   "empty parameters select everything",
			params: map[string]string{},
			want:   model.PostCriteria{},
		},
		{
			name: "text operators",
			params: map[string]string{
				"title.contains":           "Go",
				"slug.in":                  "a,b",
				"summary.specified":        "false",
				"tags.notEquals":           "draft",
				"createdBy.equals":         "admin",
				"updatedBy.doesNotContain": "bot",
			},
			want: model.PostCriteria{
				Title:     &model.StringFilter{Contains: ptr("Go")},
				Slug:      &model.StringFilter{Filter: model.Filter[string]{In: []string{"a", "b"}}},
				Summary:   &model.StringFilter{Filter: model.Filter[string]{Specified: ptr(false)}},
				Tags:      &model.StringFilter{Filter: model.Filter[string]{NotEquals: ptr("draft")}},
				CreatedBy: &model.StringFilter{Filter: model.Filter[string]{Equals: ptr("admin")}},
				UpdatedBy: &model.StringFilter{DoesNotContain: ptr("bot")},
			},
		},
		{
			name: "range operators on numbers and dates",
			params: map[string]string{
				"id.greaterThan":                   "10",
				"state.lessThanOrEqual":            "3",
				"publishedDate.greaterThanOrEqual": "2024-01-31",
				"createdAt.lessThan":               "2024-02-01T10:00:00+02:00",
				"categoryId.equals":                "7",
			},
			want: model.PostCriteria{
				ID:            &model.LongFilter{GreaterThan: ptr(int64(10))},
				State:         &model.IntegerFilter{LessThanOrEqual: ptr(int32(3))},
				PublishedDate: &model.DateFilter{GreaterThanOrEqual: ptr(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))},
				CreatedAt:     &model.InstantFilter{LessThan: ptr(time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC))},
				CategoryID:    &model.LongFilter{Filter: model.Filter[int64]{Equals: ptr(int64(7))}},
			},
		},
		{
			name: "several operators on one field are combined",
			params: map[string]string{
				"state.greaterThan": "1",
				"state.lessThan":    "5",
			},
			want: model.PostCriteria{
				State: &model.IntegerFilter{GreaterThan: ptr(int32(1)), LessThan: ptr(int32(5))},
			},
		},
		{
			name: "unknown fields and paging options are ignored",
			params: map[string]string{
				"page":          "2",
				"sort":          "id,desc",
				"body.contains": "x",
				"title.equals":  "t",
			},
			want: model.PostCriteria{
				Title: &model.StringFilter{Filter: model.Filter[string]{Equals: ptr("t")}},
			},
		},
		{
			name:    "contains on a number field",
			params:  map[string]string{"state.contains": "1"},
			wantErr: model.ErrInvalidFilterKind,
		},
		{
			name:    "range on a text field",
			params:  map[string]string{"title.greaterThan": "a"},
			wantErr: model.ErrInvalidFilterKind,
		},
		{
			name:    "unknown operator",
			params:  map[string]string{"title.startsWith": "a"},
			wantErr: model.ErrMalformedFilter,
		},
		{
			name:    "field without operator",
			params:  map[string]string{"title": "a"},
			wantErr: model.ErrMalformedFilter,
		},
		{
			name:    "non numeric operand",
			params:  map[string]string{"id.equals": "abc"},
			wantErr: model.ErrMalformedFilter,
		},
		{
			name:    "integer overflow",
			params:  map[string]string{"state.equals": "4294967296"},
			wantErr: model.ErrMalformedFilter,
		},
		{
			name:    "empty in list",
			params:  map[string]string{"id.in": ""},
			wantErr: model.ErrMalformedFilter,
		},
		{
			name:    "invalid specified flag",
			params:  map[string]string{"slug.specified": "maybe"},
			wantErr: model.ErrMalformedFilter,
		},
		{
			name:    "bad date",
			params:  map[string]string{"publishedDate.equals": "31/01/2024"},
			wantErr: model.ErrMalformedFilter,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := model.ParsePostCriteria(tc.params)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				var filterErr *model.FilterError
				require.ErrorAs(t, err, &filterErr)

				return
			}

			require.NoError(t, err)
			require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestParsePostCriteria_ReportsFirstKeyInOrder(t *testing.T) {
	t.Parallel()

	_, err := model.ParsePostCriteria(map[string]string{
		"title.greaterThan": "a",
		"id.equals":         "x",
	})

	var filterErr *model.FilterError
	require.ErrorAs(t, err, &filterErr)
	require.Equal(t, "id", filterErr.Field)
	require.ErrorIs(t, err, model.ErrMalformedFilter)
}

func TestPostCriteria_CopyIsDeepAndEqual(t *testing.T) {
	t.Parallel()

	original, err := model.ParsePostCriteria(map[string]string{
		"title.contains":        "go",
		"state.in":              "1,2",
		"createdAt.greaterThan": "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	copied := original.Copy()
	require.True(t, original.Equal(copied))
	require.Equal(t, original.String(), copied.String())
	require.Equal(t, original.Hash(), copied.Hash())

	*copied.Title.Contains = "rust"
	copied.State.In = append(copied.State.In, 3)
	copied.ID = &model.LongFilter{Filter: model.Filter[int64]{Equals: ptr(int64(1))}}

	require.Equal(t, "go", *original.Title.Contains)
	require.Equal(t, []int32{1, 2}, original.State.In)
	require.Nil(t, original.ID)
	require.False(t, original.Equal(copied))
}

func TestPostCriteria_EqualTreatsNilAndEmptyFiltersAlike(t *testing.T) {
	t.Parallel()

	a := model.PostCriteria{}
	b := model.PostCriteria{Title: &model.StringFilter{}, State: &model.IntegerFilter{}}

	require.True(t, a.Equal(b))
	require.True(t, b.IsEmpty())
	require.Equal(t, a.Hash(), b.Hash())
}

func TestPostCriteria_String(t *testing.T) {
	t.Parallel()

	criteria := model.PostCriteria{
		CategoryID: &model.LongFilter{Filter: model.Filter[int64]{Specified: ptr(false)}},
		Title:      &model.StringFilter{Contains: ptr("go")},
		State:      &model.IntegerFilter{Filter: model.Filter[int32]{In: []int32{1, 2}}},
	}

	require.Equal(t,
		`PostCriteria{title.contains="go", state.in=[1,2], categoryId.specified=false}`,
		criteria.String(),
	)
	require.Equal(t, "PostCriteria{}", model.PostCriteria{}.String())
}

func TestPostCriteria_HashDistinguishesOperands(t *testing.T) {
	t.Parallel()

	a := model.PostCriteria{Slug: &model.StringFilter{Filter: model.Filter[string]{In: []string{"a,b"}}}}
	b := model.PostCriteria{Slug: &model.StringFilter{Filter: model.Filter[string]{In: []string{"a", "b"}}}}

	require.False(t, a.Equal(b))
	require.NotEqual(t, a.Hash(), b.Hash())
}

func TestPostCriteria_Specification(t *testing.T) {
	t.Parallel()

	t.Run("empty criteria compile to nil", func(t *testing.T) {
		t.Parallel()

		require.Nil(t, model.PostCriteria{}.Specification())
	})

	t.Run("single condition compiles to a leaf", func(t *testing.T) {
		t.Parallel()

		spec := model.PostCriteria{
			State: &model.IntegerFilter{Filter: model.Filter[int32]{Equals: ptr(int32(1))}},
		}.Specification()

		require.Equal(t, model.SpecOpEq, spec.Operator())
		require.Equal(t, "state", spec.Field())
		require.Equal(t, int32(1), spec.Value())
	})

	t.Run("notEquals includes nulls", func(t *testing.T) {
		t.Parallel()

		spec := model.PostCriteria{
			Title: &model.StringFilter{Filter: model.Filter[string]{NotEquals: ptr("x")}},
		}.Specification()

		require.Equal(t, model.SpecOpShould, spec.Operator())
		require.Len(t, spec.Children(), 2)
		require.Equal(t, model.SpecOpIsNull, spec.Children()[0].Operator())
		require.Equal(t, model.SpecOpNotEq, spec.Children()[1].Operator())
	})

	t.Run("doesNotContain includes nulls and escapes wildcards", func(t *testing.T) {
		t.Parallel()

		spec := model.PostCriteria{
			Summary: &model.StringFilter{DoesNotContain: ptr("50%_off")},
		}.Specification()

		require.Equal(t, model.SpecOpShould, spec.Operator())
		notLike := spec.Children()[1]
		require.Equal(t, model.SpecOpNotLike, notLike.Operator())
		require.Equal(t, `%50\%\_off%`, notLike.Value())
	})

	t.Run("specified maps to null checks", func(t *testing.T) {
		t.Parallel()

		present := model.PostCriteria{Slug: &model.StringFilter{Filter: model.Filter[string]{Specified: ptr(true)}}}
		absent := model.PostCriteria{Slug: &model.StringFilter{Filter: model.Filter[string]{Specified: ptr(false)}}}

		require.Equal(t, model.SpecOpNotNull, present.Specification().Operator())
		require.Equal(t, model.SpecOpIsNull, absent.Specification().Operator())
	})

	t.Run("conditions across fields are conjoined", func(t *testing.T) {
		t.Parallel()

		spec := model.PostCriteria{
			ID:         &model.LongFilter{GreaterThanOrEqual: ptr(int64(2)), LessThan: ptr(int64(9))},
			CategoryID: &model.LongFilter{Filter: model.Filter[int64]{In: []int64{1, 2}}},
		}.Specification()

		require.Equal(t, model.SpecOpMust, spec.Operator())
		require.Len(t, spec.Children(), 3)
		require.Equal(t, []string{"id", "categoryId"}, model.Fields(spec))
		require.Equal(t, []any{int64(1), int64(2)}, spec.Children()[2].Value())
	})
}
