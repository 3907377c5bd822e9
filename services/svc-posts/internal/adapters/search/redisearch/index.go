// Package redisearch mirrors posts as JSON documents indexed by RediSearch.
package redisearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/search"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/redis/rueidis"
)

const (
	defaultIndexName = "idx:posts"
	defaultKeyPrefix = "post:"

	// maxPageSize bounds an unpaged search.
	maxPageSize = 10000

	jsonRootPath = "$"
)

var (
	_ ports.PostSearchIndex = (*PostIndex)(nil)

	schema = []string{
		"$.id", "AS", "id", "NUMERIC", "SORTABLE",
		"$.title", "AS", "title", "TEXT",
		"$.slug", "AS", "slug", "TAG",
		"$.summary", "AS", "summary", "TEXT",
		"$.body", "AS", "body", "TEXT",
		"$.createdBy", "AS", "createdBy", "TAG",
		"$.state", "AS", "state", "NUMERIC", "SORTABLE",
		"$.tags", "AS", "tags", "TEXT",
		"$.updatedBy", "AS", "updatedBy", "TAG",
		"$.categoryId", "AS", "categoryId", "NUMERIC", "SORTABLE",
		"$.categoryName", "AS", "categoryName", "TEXT",
	}

	sortableFields = map[string]struct{}{
		"id":         {},
		"state":      {},
		"categoryId": {},
	}
)

type (
	// Config configures the RediSearch connection and naming.
	Config struct {
		Addrs     []string
		Username  string
		Password  string
		DB        int
		IndexName string
		KeyPrefix string
	}

	// PostIndex keeps one JSON document per post under KeyPrefix+id.
	PostIndex struct {
		client    rueidis.Client
		indexName string
		keyPrefix string
		logger    logger.Logger
	}
)

// NewClient connects with RESP2 so FT.SEARCH replies keep their array shape.
func NewClient(cfg Config) (rueidis.Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redisearch: addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redisearch client: %w", err)
	}

	return client, nil
}

func NewPostIndex(client rueidis.Client, cfg Config, log logger.Logger) *PostIndex {
	indexName := cfg.IndexName
	if indexName == "" {
		indexName = defaultIndexName
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &PostIndex{
		client:    client,
		indexName: indexName,
		keyPrefix: keyPrefix,
		logger:    log,
	}
}

func (i *PostIndex) EnsureIndex(ctx context.Context) error {
	info := i.client.B().Arbitrary("FT.INFO").Args(i.indexName).Build()

	err := i.client.Do(ctx, info).Error()
	if err == nil {
		return nil
	}

	if !isRedisErr(err, "unknown index name") {
		return fmt.Errorf("failed to inspect index %s: %w", i.indexName, err)
	}

	args := append([]string{i.indexName, "ON", "JSON", "PREFIX", "1", i.keyPrefix, "SCHEMA"}, schema...)

	create := i.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := i.client.Do(ctx, create).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}

		return fmt.Errorf("failed to create index %s: %w", i.indexName, err)
	}

	i.logger.Info().Str("index", i.indexName).Msg("created search index")

	return nil
}

func (i *PostIndex) Save(ctx context.Context, post model.IndexedPost) error {
	body, err := json.Marshal(search.NewDocument(post))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	cmd := i.client.B().Arbitrary("JSON.SET").Keys(i.key(post.ID)).Args(jsonRootPath, string(body)).Build()
	if err := i.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to index post %d: %w", post.ID, err)
	}

	return nil
}

// Delete removes the document. DEL on a missing key is a no-op.
func (i *PostIndex) Delete(ctx context.Context, id int64) error {
	cmd := i.client.B().Del().Key(i.key(id)).Build()
	if err := i.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}

	return nil
}

func (i *PostIndex) FindByID(ctx context.Context, id int64) (model.IndexedPost, error) {
	cmd := i.client.B().Arbitrary("JSON.GET").Keys(i.key(id)).Build()

	raw, err := i.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return model.IndexedPost{}, model.ErrPostNotFound
		}

		return model.IndexedPost{}, fmt.Errorf("%w: %v", model.ErrSearchQuery, err)
	}

	var doc search.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return model.IndexedPost{}, fmt.Errorf("%w: decode: %v", model.ErrSearchQuery, err)
	}

	return doc.IndexedPost(), nil
}

// Search runs query in the RediSearch query syntax. An empty query matches
// every post. Only numeric fields can order the result.
func (i *PostIndex) Search(ctx context.Context, query string, pageable model.Pageable) (model.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	size := pageable.Size
	if size == 0 || size > maxPageSize {
		size = maxPageSize
	}

	args := []string{i.indexName, q}

	for _, s := range pageable.Sort {
		if _, ok := sortableFields[s.Field]; ok {
			args = append(args, "SORTBY", s.Field, string(s.Direction))

			break
		}
	}

	args = append(args,
		"LIMIT", strconv.FormatUint(uint64(pageable.Page*size), 10), strconv.FormatUint(uint64(size), 10),
		"DIALECT", "2",
	)

	cmd := i.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()

	raw, err := i.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: %v", model.ErrSearchQuery, err)
	}

	return parseSearchResult(raw)
}

func (i *PostIndex) Ping(ctx context.Context) error {
	if err := i.client.Do(ctx, i.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	return nil
}

func (i *PostIndex) key(id int64) string {
	return i.keyPrefix + search.DocumentID(id)
}

// parseSearchResult reads [total, key1, [field, value, ...], key2, ...].
func parseSearchResult(raw []rueidis.RedisMessage) (model.SearchResult, error) {
	if len(raw) == 0 {
		return model.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: parse total: %v", model.ErrSearchQuery, err)
	}

	result := model.SearchResult{
		Posts: make([]model.IndexedPost, 0, len(raw)/2),
		Total: total,
	}

	for idx := 1; idx+1 < len(raw); idx += 2 {
		fields, err := raw[idx+1].ToArray()
		if err != nil {
			continue
		}

		for j := 0; j+1 < len(fields); j += 2 {
			name, err := fields[j].ToString()
			if err != nil || name != jsonRootPath {
				continue
			}

			value, err := fields[j+1].ToString()
			if err != nil {
				continue
			}

			var doc search.Document
			if err := json.Unmarshal([]byte(value), &doc); err != nil {
				return model.SearchResult{}, fmt.Errorf("%w: decode: %v", model.ErrSearchQuery, err)
			}

			result.Posts = append(result.Posts, doc.IndexedPost())
		}
	}

	return result, nil
}

func isRedisErr(err error, substr string) bool {
	redisErr, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}

	return strings.Contains(strings.ToLower(redisErr.Error()), substr)
}
