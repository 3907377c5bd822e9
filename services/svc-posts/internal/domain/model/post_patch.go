package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional distinguishes an absent field from an explicit null in a merge patch.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true

		return nil
	}

	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) applyTo(target **T) {
	switch {
	case !o.Set:
	case o.Null:
		*target = nil
	default:
		v := o.Value
		*target = &v
	}
}

// PostPatch carries the fields of a merge patch. Absent fields are left as is,
// null clears a nullable field.
type PostPatch struct {
	Title         Optional[string]
	Slug          Optional[string]
	Summary       Optional[string]
	Body          Optional[string]
	CreatedAt     Optional[time.Time]
	CreatedBy     Optional[string]
	PublishedDate Optional[time.Time]
	State         Optional[int32]
	Tags          Optional[string]
	UpdatedAt     Optional[time.Time]
	UpdatedBy     Optional[string]
	CategoryID    Optional[int64]
}

// Apply merges the patch into post. A null title is ignored since the column
// is required; Validate reports an empty one.
func (p PostPatch) Apply(post *Post) {
	if p.Title.Set && !p.Title.Null {
		post.Title = p.Title.Value
	}

	p.Slug.applyTo(&post.Slug)
	p.Summary.applyTo(&post.Summary)
	p.Body.applyTo(&post.Body)
	p.CreatedAt.applyTo(&post.CreatedAt)
	p.CreatedBy.applyTo(&post.CreatedBy)
	p.PublishedDate.applyTo(&post.PublishedDate)
	p.State.applyTo(&post.State)
	p.Tags.applyTo(&post.Tags)
	p.UpdatedAt.applyTo(&post.UpdatedAt)
	p.UpdatedBy.applyTo(&post.UpdatedBy)

	switch {
	case !p.CategoryID.Set:
	case p.CategoryID.Null:
		post.Category = nil
	case post.Category == nil || post.Category.ID != p.CategoryID.Value:
		post.Category = &Category{ID: p.CategoryID.Value}
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p PostPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Slug.Set && !p.Summary.Set && !p.Body.Set &&
		!p.CreatedAt.Set && !p.CreatedBy.Set && !p.PublishedDate.Set && !p.State.Set &&
		!p.Tags.Set && !p.UpdatedAt.Set && !p.UpdatedBy.Set && !p.CategoryID.Set
}
