package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/architeacher/posts/pkg/circuitbreaker"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/pkg/metrics/noop"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultBatchSize    = 500

	metricIndexWriteFailure = "search_index.write.failure"
	metricIndexWriteSuccess = "search_index.write.success"
	metricReindexed         = "search_index.reindexed"

	opIndexSave   = "save"
	opIndexDelete = "delete"
)

var _ ports.PostsService = (*PostsService)(nil)

type (
	// PostsService writes posts to the primary store and mirrors every
	// committed change into the search index.
	PostsService struct {
		repo          ports.PostRepository
		index         ports.PostSearchIndex
		cache         ports.PostCache
		breaker       *circuitbreaker.CircuitBreaker[struct{}]
		metricsClient metrics.Client
		logger        logger.Logger
		writeTimeout  time.Duration
	}

	Option func(*PostsService)
)

// WithCache invalidates cached reads after every committed mutation.
func WithCache(cache ports.PostCache) Option {
	return func(s *PostsService) {
		s.cache = cache
	}
}

// WithCircuitBreaker guards index writes. A nil breaker lets every call through.
func WithCircuitBreaker(breaker *circuitbreaker.CircuitBreaker[struct{}]) Option {
	return func(s *PostsService) {
		s.breaker = breaker
	}
}

func WithMetrics(client metrics.Client) Option {
	return func(s *PostsService) {
		s.metricsClient = client
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *PostsService) {
		s.logger = log
	}
}

// WithWriteTimeout bounds each index write issued after a commit.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *PostsService) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

func NewPostsService(repo ports.PostRepository, index ports.PostSearchIndex, opts ...Option) *PostsService {
	s := &PostsService{
		repo:          repo,
		index:         index,
		metricsClient: noop.NewMetricsClient(),
		logger:        logger.NewWithWriter(logger.LogLevelError, logger.JSONLoggingFormat, io.Discard),
		writeTimeout:  defaultWriteTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Component("posts_service")

	return s
}

func (s *PostsService) CreatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	if post.ID != 0 {
		return nil, model.ErrIdentityConflict
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.repo.Create(ctx, post)
	if err != nil {
		return nil, err
	}

	s.propagateSave(ctx, saved)

	return saved, nil
}

// UpdatePost replaces every column of an existing post, audit columns included.
func (s *PostsService) UpdatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	if post.ID <= 0 {
		return nil, fmt.Errorf("%w: id is required", model.ErrInvalidPost)
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.repo.Update(ctx, post)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, saved.ID)
	s.propagateSave(ctx, saved)

	return saved, nil
}

// PatchPost merges patch into the locked current row. The index receives the
// whole merged record.
func (s *PostsService) PatchPost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	saved, err := s.repo.Patch(ctx, id, func(post *model.Post) error {
		patch.Apply(post)

		return post.Validate()
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, saved.ID)
	s.propagateSave(ctx, saved)

	return saved, nil
}

func (s *PostsService) DeletePost(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.propagate(ctx, opIndexDelete, id, func(ctx context.Context) error {
		return s.index.Delete(ctx, id)
	})

	return nil
}

func (s *PostsService) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	return s.repo.FetchByID(ctx, id)
}

func (s *PostsService) FindByCriteria(ctx context.Context, criteria model.PostCriteria, pageable model.Pageable) ([]*model.Post, error) {
	query, err := model.NewPostQuery(criteria, pageable)
	if err != nil {
		return nil, err
	}

	return s.repo.FindAll(ctx, query)
}

func (s *PostsService) CountByCriteria(ctx context.Context, criteria model.PostCriteria) (int64, error) {
	query := model.NewCriteria().WhereSpec(criteria.Specification()).Build()

	return s.repo.Count(ctx, query)
}

// SearchPosts serves records straight from the index; it never reads the
// primary store.
func (s *PostsService) SearchPosts(ctx context.Context, query string, pageable model.Pageable) (model.SearchResult, error) {
	for _, sort := range pageable.Sort {
		if _, ok := model.LookupPostField(sort.Field); !ok {
			return model.SearchResult{}, fmt.Errorf("%w: unknown field %q", model.ErrInvalidSort, sort.Field)
		}
	}

	result, err := s.index.Search(ctx, query, pageable)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: %w", model.ErrSearchQuery, err)
	}

	return result, nil
}

// ReindexAll walks the primary store in id order and overwrites the index
// record of every post. It returns the number of posts written.
func (s *PostsService) ReindexAll(ctx context.Context, batchSize uint) (int, error) {
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}

	if err := s.index.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensuring search index: %w", err)
	}

	var (
		lastID  int64
		written int
	)

	for {
		batch := model.NewCriteria().
			WhereSpec(model.Gt("id", lastID)).
			OrderBy("id", model.SortAsc).
			Paginate(0, batchSize).
			Build()

		posts, err := s.repo.FindAll(ctx, batch)
		if err != nil {
			return written, fmt.Errorf("reading posts after id %d: %w", lastID, err)
		}

		for _, post := range posts {
			if err := s.index.Save(ctx, model.NewIndexedPost(post)); err != nil {
				return written, fmt.Errorf("%w: post %d: %w", model.ErrSecondaryIndexWriteFailed, post.ID, err)
			}

			lastID = post.ID
			written++
		}

		s.logger.WithContext(ctx).Info().
			Int("batch", len(posts)).
			Int("written", written).
			Int64("last_id", lastID).
			Msg("reindexed batch")

		if uint(len(posts)) < batchSize {
			break
		}
	}

	s.metricsClient.Inc(ctx, metricReindexed, written)

	return written, nil
}

func (s *PostsService) propagateSave(ctx context.Context, post *model.Post) {
	record := model.NewIndexedPost(post)

	s.propagate(ctx, opIndexSave, post.ID, func(ctx context.Context) error {
		return s.index.Save(ctx, record)
	})
}

// propagate mirrors a committed change into the index. It runs detached from
// the caller's cancellation and never fails the request.
func (s *PostsService) propagate(ctx context.Context, op string, id int64, write func(ctx context.Context) error) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	_, err := circuitbreaker.Execute(s.breaker, func() (struct{}, error) {
		return struct{}{}, write(writeCtx)
	})

	opAttr := attribute.String("operation", op)

	if err == nil {
		s.metricsClient.Inc(writeCtx, metricIndexWriteSuccess, 1, opAttr)

		return
	}

	err = fmt.Errorf("%w: %s post %d: %w", model.ErrSecondaryIndexWriteFailed, op, id, err)

	s.metricsClient.Inc(writeCtx, metricIndexWriteFailure, 1, opAttr)

	event := s.logger.WithContext(ctx).Error().
		Err(err).
		Int64("post_id", id).
		Str("operation", op)

	if errors.Is(err, circuitbreaker.ErrRejected) {
		event = event.Bool("circuit_open", true)
	}

	event.Msg("failed to propagate post to search index")
}

func (s *PostsService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(context.WithoutCancel(ctx), id); err != nil {
		s.logger.WithContext(ctx).Warn().
			Err(err).
			Int64("post_id", id).
			Msg("failed to invalidate cached post")
	}
}
