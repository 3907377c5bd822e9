package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestPost_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		post    model.Post
		wantErr bool
	}{
		{name: "valid", post: model.Post{Title: "Hello"}},
		{name: "missing title", post: model.Post{Title: "  "}, wantErr: true},
		{name: "title too long", post: model.Post{Title: strings.Repeat("a", 256)}, wantErr: true},
		{name: "slug too long", post: model.Post{Title: "a", Slug: ptr(strings.Repeat("s", 256))}, wantErr: true},
		{name: "category without id", post: model.Post{Title: "a", Category: &model.Category{}}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.post.Validate()

			if !tc.wantErr {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, model.ErrInvalidPost)

			var validationErrs *model.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
			require.True(t, validationErrs.HasErrors())
		})
	}
}

func TestPost_Clone(t *testing.T) {
	t.Parallel()

	original := &model.Post{
		ID:       1,
		Title:    "Hello",
		State:    ptr(int32(1)),
		Category: &model.Category{ID: 3, Name: ptr("news")},
	}

	clone := original.Clone()
	*clone.State = 2
	*clone.Category.Name = "sports"

	require.Equal(t, int32(1), *original.State)
	require.Equal(t, "news", *original.Category.Name)
	require.Equal(t, int64(3), *clone.CategoryID())
	require.Nil(t, (&model.Post{}).CategoryID())
}

func TestPostPatch_Apply(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	post := &model.Post{
		ID:        1,
		Title:     "Hello",
		Slug:      ptr("hello"),
		Summary:   ptr("old"),
		CreatedAt: &created,
		State:     ptr(int32(1)),
		Category:  &model.Category{ID: 3, Name: ptr("news")},
	}

	model.PostPatch{
		State:   model.Some(int32(2)),
		Summary: model.Null[string](),
		Title:   model.Null[string](),
	}.Apply(post)

	require.Equal(t, "Hello", post.Title)
	require.Equal(t, int32(2), *post.State)
	require.Nil(t, post.Summary)
	require.Equal(t, "hello", *post.Slug)
	require.Equal(t, created, *post.CreatedAt)
	require.Equal(t, "news", *post.Category.Name)

	model.PostPatch{CategoryID: model.Some(int64(4))}.Apply(post)
	require.Equal(t, int64(4), post.Category.ID)
	require.Nil(t, post.Category.Name)

	model.PostPatch{CategoryID: model.Null[int64]()}.Apply(post)
	require.Nil(t, post.Category)
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var body struct {
		Title   model.Optional[string] `json:"title"`
		Summary model.Optional[string] `json:"summary"`
		State   model.Optional[int32]  `json:"state"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"summary":null,"state":3}`), &body))

	require.False(t, body.Title.Set)
	require.True(t, body.Summary.Set)
	require.True(t, body.Summary.Null)
	require.True(t, body.State.Set)
	require.Equal(t, int32(3), body.State.Value)

	patch := model.PostPatch{Title: body.Title, Summary: body.Summary, State: body.State}
	require.False(t, patch.IsEmpty())
	require.True(t, model.PostPatch{}.IsEmpty())
}
