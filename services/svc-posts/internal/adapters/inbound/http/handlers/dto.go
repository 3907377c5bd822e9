package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

type (
	// localDate is a calendar date rendered as "2006-01-02".
	localDate time.Time

	categoryDTO struct {
		ID   int64   `json:"id"`
		Name *string `json:"name,omitempty"`
		Slug *string `json:"slug,omitempty"`
	}

	postDTO struct {
		ID            *int64       `json:"id"`
		Title         string       `json:"title"`
		Slug          *string      `json:"slug"`
		Summary       *string      `json:"summary"`
		Body          *string      `json:"body"`
		CreatedAt     *time.Time   `json:"createdAt"`
		CreatedBy     *string      `json:"createdBy"`
		PublishedDate *localDate   `json:"publishedDate"`
		State         *int32       `json:"state"`
		Tags          *string      `json:"tags"`
		UpdatedAt     *time.Time   `json:"updatedAt"`
		UpdatedBy     *string      `json:"updatedBy"`
		Category      *categoryDTO `json:"category"`
	}

	// patchPostDTO keeps absent and null members apart.
	patchPostDTO struct {
		ID            model.Optional[int64]       `json:"id"`
		Title         model.Optional[string]      `json:"title"`
		Slug          model.Optional[string]      `json:"slug"`
		Summary       model.Optional[string]      `json:"summary"`
		Body          model.Optional[string]      `json:"body"`
		CreatedAt     model.Optional[time.Time]   `json:"createdAt"`
		CreatedBy     model.Optional[string]      `json:"createdBy"`
		PublishedDate model.Optional[localDate]   `json:"publishedDate"`
		State         model.Optional[int32]       `json:"state"`
		Tags          model.Optional[string]      `json:"tags"`
		UpdatedAt     model.Optional[time.Time]   `json:"updatedAt"`
		UpdatedBy     model.Optional[string]      `json:"updatedBy"`
		Category      model.Optional[categoryDTO] `json:"category"`
	}
)

func (d localDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(time.DateOnly))
}

func (d *localDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("%q is not a date: %w", raw, err)
	}

	*d = localDate(t)

	return nil
}

func toPostDTO(post *model.Post) postDTO {
	id := post.ID

	dto := postDTO{
		ID:        &id,
		Title:     post.Title,
		Slug:      post.Slug,
		Summary:   post.Summary,
		Body:      post.Body,
		CreatedAt: post.CreatedAt,
		CreatedBy: post.CreatedBy,
		State:     post.State,
		Tags:      post.Tags,
		UpdatedAt: post.UpdatedAt,
		UpdatedBy: post.UpdatedBy,
	}

	if post.PublishedDate != nil {
		d := localDate(*post.PublishedDate)
		dto.PublishedDate = &d
	}

	if post.Category != nil {
		dto.Category = &categoryDTO{
			ID:   post.Category.ID,
			Name: post.Category.Name,
			Slug: post.Category.Slug,
		}
	}

	return dto
}

func toPostDTOs(posts []*model.Post) []postDTO {
	out := make([]postDTO, len(posts))
	for i, p := range posts {
		out[i] = toPostDTO(p)
	}

	return out
}

func (d postDTO) toDomain() *model.Post {
	post := &model.Post{
		Title:     d.Title,
		Slug:      d.Slug,
		Summary:   d.Summary,
		Body:      d.Body,
		CreatedAt: d.CreatedAt,
		CreatedBy: d.CreatedBy,
		State:     d.State,
		Tags:      d.Tags,
		UpdatedAt: d.UpdatedAt,
		UpdatedBy: d.UpdatedBy,
	}

	if d.ID != nil {
		post.ID = *d.ID
	}

	if d.PublishedDate != nil {
		t := time.Time(*d.PublishedDate)
		post.PublishedDate = &t
	}

	if d.Category != nil {
		post.Category = &model.Category{ID: d.Category.ID}
	}

	return post
}

func (d patchPostDTO) bodyID() int64 {
	if d.ID.Set && !d.ID.Null {
		return d.ID.Value
	}

	return 0
}

func (d patchPostDTO) toDomain() model.PostPatch {
	patch := model.PostPatch{
		Title:     d.Title,
		Slug:      d.Slug,
		Summary:   d.Summary,
		Body:      d.Body,
		CreatedAt: d.CreatedAt,
		CreatedBy: d.CreatedBy,
		State:     d.State,
		Tags:      d.Tags,
		UpdatedAt: d.UpdatedAt,
		UpdatedBy: d.UpdatedBy,
	}

	switch {
	case !d.PublishedDate.Set:
	case d.PublishedDate.Null:
		patch.PublishedDate = model.Null[time.Time]()
	default:
		patch.PublishedDate = model.Some(time.Time(d.PublishedDate.Value))
	}

	switch {
	case !d.Category.Set:
	case d.Category.Null:
		patch.CategoryID = model.Null[int64]()
	default:
		patch.CategoryID = model.Some(d.Category.Value.ID)
	}

	return patch
}
