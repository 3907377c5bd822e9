package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/infrastructure"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
)

const (
	postCacheVersion = "v1"
	postKeyPrefix    = "post:" + postCacheVersion + ":"

	// epochTTL outlives any read that can race an invalidation.
	epochTTL = 24 * time.Hour
)

var _ ports.PostCache = (*PostsCacheRepository)(nil)

type (
	cachedCategory struct {
		ID   int64   `json:"id"`
		Name *string `json:"name,omitempty"`
		Slug *string `json:"slug,omitempty"`
	}

	// cachedPost represents a post in JSON format for caching.
	cachedPost struct {
		ID            int64           `json:"id"`
		Title         string          `json:"title"`
		Slug          *string         `json:"slug,omitempty"`
		Summary       *string         `json:"summary,omitempty"`
		Body          *string         `json:"body,omitempty"`
		CreatedAt     *time.Time      `json:"created_at,omitempty"`
		CreatedBy     *string         `json:"created_by,omitempty"`
		PublishedDate *time.Time      `json:"published_date,omitempty"`
		State         *int32          `json:"state,omitempty"`
		Tags          *string         `json:"tags,omitempty"`
		UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
		UpdatedBy     *string         `json:"updated_by,omitempty"`
		Category      *cachedCategory `json:"category,omitempty"`
	}

	// PostsCacheRepository implements ports.PostCache on KeyDB/Redis.
	PostsCacheRepository struct {
		client *infrastructure.CacheClient
		logger logger.Logger
	}
)

func NewPostsCacheRepository(client *infrastructure.CacheClient, log logger.Logger) *PostsCacheRepository {
	return &PostsCacheRepository{
		client: client,
		logger: log,
	}
}

// Get returns the cached post and whether it was found.
func (r *PostsCacheRepository) Get(ctx context.Context, id int64) (*model.Post, bool, error) {
	data, err := r.client.Get(ctx, postKey(id))
	if err != nil {
		if errors.Is(err, infrastructure.ErrCacheMiss) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("getting cached post: %w", err)
	}

	var cached cachedPost
	if err := json.Unmarshal(data, &cached); err != nil {
		r.logger.Warn().Err(err).Int64("post_id", id).Msg("dropping undecodable cache entry")

		return nil, false, r.Invalidate(ctx, id)
	}

	return cached.toDomain(), true, nil
}

// Epoch returns how many times id was invalidated within epochTTL.
func (r *PostsCacheRepository) Epoch(ctx context.Context, id int64) (int64, error) {
	epoch, _, err := r.client.GetInt64(ctx, epochKey(id))
	if err != nil {
		return 0, fmt.Errorf("reading post cache epoch: %w", err)
	}

	return max(epoch, 0), nil
}

// Set stores post unless it was invalidated since epoch was read.
func (r *PostsCacheRepository) Set(ctx context.Context, post *model.Post, epoch int64, ttl time.Duration) error {
	data, err := json.Marshal(toCachedPost(post))
	if err != nil {
		return fmt.Errorf("marshalling post: %w", err)
	}

	stored, err := r.client.SetIfCounter(ctx, epochKey(post.ID), epoch, postKey(post.ID), data, ttl)
	if err != nil {
		return fmt.Errorf("setting cached post: %w", err)
	}

	if !stored {
		r.logger.Debug().Int64("post_id", post.ID).Msg("skipping cache fill overtaken by an invalidation")
	}

	return nil
}

// Invalidate advances the epoch before dropping the entry, so a fill that
// started earlier is refused.
func (r *PostsCacheRepository) Invalidate(ctx context.Context, id int64) error {
	if _, err := r.client.Incr(ctx, epochKey(id), epochTTL); err != nil {
		return fmt.Errorf("invalidating cached post: %w", err)
	}

	if err := r.client.Delete(ctx, postKey(id)); err != nil {
		return fmt.Errorf("invalidating cached post: %w", err)
	}

	return nil
}

// IsHealthy checks if the cache is available.
func (r *PostsCacheRepository) IsHealthy(ctx context.Context) bool {
	return r.client.IsHealthy(ctx)
}

func postKey(id int64) string {
	return postKeyPrefix + strconv.FormatInt(id, 10)
}

func epochKey(id int64) string {
	return postKey(id) + ":epoch"
}

func toCachedPost(post *model.Post) cachedPost {
	cached := cachedPost{
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
		cached.Category = &cachedCategory{
			ID:   post.Category.ID,
			Name: post.Category.Name,
			Slug: post.Category.Slug,
		}
	}

	return cached
}

func (c cachedPost) toDomain() *model.Post {
	post := &model.Post{
		ID:            c.ID,
		Title:         c.Title,
		Slug:          c.Slug,
		Summary:       c.Summary,
		Body:          c.Body,
		CreatedAt:     c.CreatedAt,
		CreatedBy:     c.CreatedBy,
		PublishedDate: c.PublishedDate,
		State:         c.State,
		Tags:          c.Tags,
		UpdatedAt:     c.UpdatedAt,
		UpdatedBy:     c.UpdatedBy,
	}

	if c.Category != nil {
		post.Category = &model.Category{
			ID:   c.Category.ID,
			Name: c.Category.Name,
			Slug: c.Category.Slug,
		}
	}

	return post
}
