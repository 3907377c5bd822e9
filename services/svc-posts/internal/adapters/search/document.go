// Package search holds the representation shared by the search index adapters.
package search

import (
	"strconv"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

// Document is the JSON body of an indexed post.
type Document struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          *string    `json:"slug,omitempty"`
	Summary       *string    `json:"summary,omitempty"`
	Body          *string    `json:"body,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	CreatedBy     *string    `json:"createdBy,omitempty"`
	PublishedDate *string    `json:"publishedDate,omitempty"`
	State         *int32     `json:"state,omitempty"`
	Tags          *string    `json:"tags,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy     *string    `json:"updatedBy,omitempty"`
	CategoryID    *int64     `json:"categoryId,omitempty"`
	CategoryName  *string    `json:"categoryName,omitempty"`
}

func NewDocument(post model.IndexedPost) Document {
	doc := Document{
		ID:           post.ID,
		Title:        post.Title,
		Slug:         post.Slug,
		Summary:      post.Summary,
		Body:         post.Body,
		CreatedAt:    post.CreatedAt,
		CreatedBy:    post.CreatedBy,
		State:        post.State,
		Tags:         post.Tags,
		UpdatedAt:    post.UpdatedAt,
		UpdatedBy:    post.UpdatedBy,
		CategoryID:   post.CategoryID,
		CategoryName: post.CategoryName,
	}

	if post.PublishedDate != nil {
		date := post.PublishedDate.Format(time.DateOnly)
		doc.PublishedDate = &date
	}

	return doc
}

// IndexedPost converts the document back. An unparsable published date is dropped.
func (d Document) IndexedPost() model.IndexedPost {
	post := model.IndexedPost{
		ID:           d.ID,
		Title:        d.Title,
		Slug:         d.Slug,
		Summary:      d.Summary,
		Body:         d.Body,
		CreatedAt:    d.CreatedAt,
		CreatedBy:    d.CreatedBy,
		State:        d.State,
		Tags:         d.Tags,
		UpdatedAt:    d.UpdatedAt,
		UpdatedBy:    d.UpdatedBy,
		CategoryID:   d.CategoryID,
		CategoryName: d.CategoryName,
	}

	if d.PublishedDate != nil {
		if date, err := time.Parse(time.DateOnly, *d.PublishedDate); err == nil {
			post.PublishedDate = &date
		}
	}

	return post
}

// DocumentID renders a post id as the document key.
func DocumentID(id int64) string {
	return strconv.FormatInt(id, 10)
}
