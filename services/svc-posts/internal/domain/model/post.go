package model

import (
	"strings"
	"time"
)

const (
	maxTitleLength = 255
	maxSlugLength  = 255
)

type (
	Category struct {
		ID   int64
		Name *string
		Slug *string
	}

	// Post is a blog post. Nullable columns are pointers.
	Post struct {
		ID            int64
		Title         string
		Slug          *string
		Summary       *string
		Body          *string
		CreatedAt     *time.Time
		CreatedBy     *string
		PublishedDate *time.Time
		State         *int32
		Tags          *string
		UpdatedAt     *time.Time
		UpdatedBy     *string
		Category      *Category
	}
)

// CategoryID returns the referenced category id, or nil when unset.
func (p *Post) CategoryID() *int64 {
	if p.Category == nil {
		return nil
	}

	id := p.Category.ID

	return &id
}

// Validate checks the column constraints enforced before any write.
func (p *Post) Validate() error {
	errs := NewValidationErrors()

	switch title := strings.TrimSpace(p.Title); {
	case title == "":
		errs.Add("title", "title is required", "required")
	case len(p.Title) > maxTitleLength:
		errs.Add("title", "title is too long", "max_length")
	}

	if p.Slug != nil && len(*p.Slug) > maxSlugLength {
		errs.Add("slug", "slug is too long", "max_length")
	}

	if p.Category != nil && p.Category.ID <= 0 {
		errs.Add("category", "category id must be positive", "invalid")
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}

	c := *p
	c.Slug = clonePtr(p.Slug)
	c.Summary = clonePtr(p.Summary)
	c.Body = clonePtr(p.Body)
	c.CreatedAt = clonePtr(p.CreatedAt)
	c.CreatedBy = clonePtr(p.CreatedBy)
	c.PublishedDate = clonePtr(p.PublishedDate)
	c.State = clonePtr(p.State)
	c.Tags = clonePtr(p.Tags)
	c.UpdatedAt = clonePtr(p.UpdatedAt)
	c.UpdatedBy = clonePtr(p.UpdatedBy)

	if p.Category != nil {
		c.Category = &Category{
			ID:   p.Category.ID,
			Name: clonePtr(p.Category.Name),
			Slug: clonePtr(p.Category.Slug),
		}
	}

	return &c
}
