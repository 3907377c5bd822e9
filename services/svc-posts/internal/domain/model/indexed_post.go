package model

import "time"

type (
	// IndexedPost is the denormalized projection of a Post kept in the
	// search index. It can always be rebuilt from the primary store.
	IndexedPost struct {
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
		CategoryID    *int64
		CategoryName  *string
	}

	// SearchResult is one page of full-text matches and the overall hit count.
	SearchResult struct {
		Posts []IndexedPost
		Total int64
	}
)

func NewIndexedPost(post *Post) IndexedPost {
	doc := IndexedPost{
		ID:            post.ID,
		Title:         post.Title,
		Slug:          post.Slug,
		Summary:       post.Summary,
		Body:          post.Body,
		CreatedAt:     post.CreatedAt,
		CreatedBy:     post.CreatedBy,
		PublishedDate: post.PublishedDate,
		State:         post.State,
		Tags:          post.Tags,
		UpdatedAt:     post.UpdatedAt,
		UpdatedBy:     post.UpdatedBy,
	}

	if post.Category != nil {
		doc.CategoryID = post.CategoryID()
		doc.CategoryName = post.Category.Name
	}

	return doc
}

// Post rebuilds the post the record was projected from. The category slug
// is not indexed and comes back empty.
func (d IndexedPost) Post() *Post {
	post := &Post{
		ID:            d.ID,
		Title:         d.Title,
		Slug:          d.Slug,
		Summary:       d.Summary,
		Body:          d.Body,
		CreatedAt:     d.CreatedAt,
		CreatedBy:     d.CreatedBy,
		PublishedDate: d.PublishedDate,
		State:         d.State,
		Tags:          d.Tags,
		UpdatedAt:     d.UpdatedAt,
		UpdatedBy:     d.UpdatedBy,
	}

	if d.CategoryID != nil {
		post.Category = &Category{ID: *d.CategoryID, Name: d.CategoryName}
	}

	return post
}
