package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/adapters/search"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// maxResultWindow is the default index.max_result_window of Elasticsearch.
const maxResultWindow = 10000

var (
	_ ports.PostSearchIndex = (*PostIndex)(nil)

	// sortableFields are the mapped fields that are not analyzed text.
	sortableFields = map[string]struct{}{
		"id":            {},
		"slug":          {},
		"createdAt":     {},
		"createdBy":     {},
		"publishedDate": {},
		"state":         {},
		"updatedAt":     {},
		"updatedBy":     {},
		"categoryId":    {},
	}
)

// indexMapping keeps free text analyzed and identifiers exact.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "title":         {"type": "text"},
      "slug":          {"type": "keyword"},
      "summary":       {"type": "text"},
      "body":          {"type": "text"},
      "createdAt":     {"type": "date"},
      "createdBy":     {"type": "keyword"},
      "publishedDate": {"type": "date", "format": "strict_date"},
      "state":         {"type": "integer"},
      "tags":          {"type": "text"},
      "updatedAt":     {"type": "date"},
      "updatedBy":     {"type": "keyword"},
      "categoryId":    {"type": "long"},
      "categoryName":  {"type": "text"}
    }
  }
}`

type (
	// Config configures the Elasticsearch client.
	Config struct {
		Addresses []string
		Username  string
		Password  string
		Index     string
		// Refresh makes writes visible to search before they return.
		Refresh bool
		// Transport overrides the HTTP transport, mainly for tests.
		Transport http.RoundTripper
	}

	// PostIndex stores post documents in one Elasticsearch index.
	PostIndex struct {
		client  *elasticsearch.Client
		index   string
		refresh bool
		logger  logger.Logger
	}

	searchResponse struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source search.Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	getResponse struct {
		Found  bool            `json:"found"`
		Source search.Document `json:"_source"`
	}

	errorResponse struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
)

func NewPostIndex(cfg Config, log logger.Logger) (*PostIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &PostIndex{
		client:  client,
		index:   cfg.Index,
		refresh: cfg.Refresh,
		logger:  log,
	}, nil
}

func (i *PostIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists(
		[]string{i.index},
		i.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", i.index, err)
	}
	drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("failed to check index %s: status %d", i.index, res.StatusCode)
	}

	res, err = i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		apiErr := decodeError(res)
		if apiErr.Error.Type == "resource_already_exists_exception" {
			return nil
		}

		return fmt.Errorf("failed to create index %s: %s", i.index, apiErr.Error.Reason)
	}

	i.logger.Info().Str("index", i.index).Msg("created search index")

	return nil
}

func (i *PostIndex) Save(ctx context.Context, post model.IndexedPost) error {
	body, err := json.Marshal(search.NewDocument(post))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		i.client.Index.WithDocumentID(search.DocumentID(post.ID)),
		i.client.Index.WithContext(ctx),
	}
	if i.refresh {
		opts = append(opts, i.client.Index.WithRefresh("true"))
	}

	res, err := i.client.Index(i.index, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("failed to index post %d: %w", post.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index post %d: %s", post.ID, decodeError(res).Error.Reason)
	}

	return nil
}

func (i *PostIndex) Delete(ctx context.Context, id int64) error {
	opts := []func(*esapi.DeleteRequest){i.client.Delete.WithContext(ctx)}
	if i.refresh {
		opts = append(opts, i.client.Delete.WithRefresh("true"))
	}

	res, err := i.client.Delete(i.index, search.DocumentID(id), opts...)
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}

	if res.IsError() {
		return fmt.Errorf("failed to delete post %d: %s", id, decodeError(res).Error.Reason)
	}

	return nil
}

func (i *PostIndex) FindByID(ctx context.Context, id int64) (model.IndexedPost, error) {
	res, err := i.client.Get(i.index, search.DocumentID(id), i.client.Get.WithContext(ctx))
	if err != nil {
		return model.IndexedPost{}, fmt.Errorf("%w: %v", model.ErrSearchQuery, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return model.IndexedPost{}, model.ErrPostNotFound
	}

	if res.IsError() {
		return model.IndexedPost{}, fmt.Errorf("%w: %s", model.ErrSearchQuery, decodeError(res).Error.Reason)
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return model.IndexedPost{}, fmt.Errorf("%w: decode: %v", model.ErrSearchQuery, err)
	}

	if !doc.Found {
		return model.IndexedPost{}, model.ErrPostNotFound
	}

	return doc.Source.IndexedPost(), nil
}

// Search matches query with the query_string syntax over every text field.
// An empty query matches every post. Sorting on analyzed text is skipped and
// leaves relevance order.
func (i *PostIndex) Search(ctx context.Context, query string, pageable model.Pageable) (model.SearchResult, error) {
	search, err := buildSearchBody(query, pageable)
	if err != nil {
		return model.SearchResult{}, err
	}

	body, err := json.Marshal(search)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: encode: %v", model.ErrSearchQuery, err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: %v", model.ErrSearchQuery, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return model.SearchResult{}, fmt.Errorf("%w: %s", model.ErrSearchQuery, decodeError(res).Error.Reason)
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return model.SearchResult{}, fmt.Errorf("%w: decode: %v", model.ErrSearchQuery, err)
	}

	result := model.SearchResult{
		Posts: make([]model.IndexedPost, 0, len(decoded.Hits.Hits)),
		Total: decoded.Hits.Total.Value,
	}

	for _, hit := range decoded.Hits.Hits {
		result.Posts = append(result.Posts, hit.Source.IndexedPost())
	}

	return result, nil
}

func (i *PostIndex) Ping(ctx context.Context) error {
	res, err := i.client.Info(i.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch unreachable: %w", err)
	}
	drain(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch unhealthy: status %d", res.StatusCode)
	}

	return nil
}

// searchWindow refuses pages that end past maxResultWindow, which
// Elasticsearch would reject.
func searchWindow(pageable model.Pageable) (from, size uint, err error) {
	size = pageable.Size
	if size == 0 || size > maxResultWindow {
		size = maxResultWindow
	}

	if pageable.Page > (maxResultWindow-size)/size {
		return 0, 0, fmt.Errorf("%w: page %d of size %d ends past result %d",
			model.ErrResultWindowTooLarge, pageable.Page, size, maxResultWindow)
	}

	return pageable.Page * size, size, nil
}

func buildSearchBody(query string, pageable model.Pageable) (map[string]any, error) {
	from, size, err := searchWindow(pageable)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"track_total_hits": true,
	}

	if q := strings.TrimSpace(query); q != "" {
		body["query"] = map[string]any{
			"query_string": map[string]any{"query": q},
		}
	} else {
		body["query"] = map[string]any{"match_all": map[string]any{}}
	}

	body["from"] = from
	body["size"] = size

	var sorts []map[string]any

	for _, s := range pageable.Sort {
		if _, ok := sortableFields[s.Field]; !ok {
			continue
		}

		sorts = append(sorts, map[string]any{
			s.Field: map[string]any{"order": strings.ToLower(string(s.Direction))},
		})
	}

	if len(sorts) > 0 {
		body["sort"] = sorts
	}

	return body, nil
}

func decodeError(res *esapi.Response) errorResponse {
	var apiErr errorResponse

	raw, err := io.ReadAll(res.Body)
	if err == nil {
		err = json.Unmarshal(raw, &apiErr)
	}

	if err != nil || apiErr.Error.Reason == "" {
		apiErr.Error.Reason = fmt.Sprintf("status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	return apiErr
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
