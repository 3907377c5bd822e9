package ports

import (
	"context"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

//counterfeiter:generate -o ../mocks/post_search_index.go . PostSearchIndex

// PostSearchIndex is the secondary full-text index mirroring the primary store.
type PostSearchIndex interface {
	// EnsureIndex creates the index and its mapping when missing.
	EnsureIndex(ctx context.Context) error

	// Save creates or replaces the record keyed by its post id.
	Save(ctx context.Context, post model.IndexedPost) error

	// Delete removes the record. Removing a missing record is not an error.
	Delete(ctx context.Context, id int64) error

	// FindByID returns model.ErrPostNotFound when no record exists.
	FindByID(ctx context.Context, id int64) (model.IndexedPost, error)

	// Search runs a free-text query and returns one page of records.
	Search(ctx context.Context, query string, pageable model.Pageable) (model.SearchResult, error)

	Ping(ctx context.Context) error
}
