//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

import (
	"context"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

//counterfeiter:generate -o ../mocks/post_repository.go . PostRepository

type (
	Saver interface {
		// Create inserts a new post and returns it as stored, with its generated id.
		Create(ctx context.Context, post *model.Post) (*model.Post, error)
	}

	Fetcher interface {
		// FetchByID retrieves a post by its id.
		FetchByID(ctx context.Context, id int64) (*model.Post, error)
	}

	Finder interface {
		// FindAll retrieves the page of posts selected by criteria.
		FindAll(ctx context.Context, criteria model.Criteria) ([]*model.Post, error)
	}

	Counter interface {
		// Count returns the number of posts matching criteria, ignoring its window.
		Count(ctx context.Context, criteria model.Criteria) (int64, error)
	}

	Updater interface {
		// Update overwrites every column of an existing post.
		Update(ctx context.Context, post *model.Post) (*model.Post, error)
	}

	Patcher interface {
		// Patch applies a mutation to the locked current row and stores the result.
		Patch(ctx context.Context, id int64, apply func(post *model.Post) error) (*model.Post, error)
	}

	Deleter interface {
		// Delete removes a post by its id.
		Delete(ctx context.Context, id int64) error
	}

	// PostRepository is the primary, authoritative store of posts.
	PostRepository interface {
		Saver
		Fetcher
		Finder
		Counter
		Updater
		Patcher
		Deleter
		DatabaseHealthChecker
	}
)
