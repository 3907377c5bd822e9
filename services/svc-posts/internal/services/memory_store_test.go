package services_test

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/ports"
)

var (
	_ ports.PostRepository  = (*memoryStore)(nil)
	_ ports.PostSearchIndex = (*memoryIndex)(nil)
	_ ports.PostCache       = (*memoryCache)(nil)
)

// memoryStore is a primary store that evaluates specifications in process.
// Nulls sort last ascending and first descending, as in PostgreSQL.
type memoryStore struct {
	mu         sync.Mutex
	posts      map[int64]*model.Post
	categories map[int64]string
	nextID     int64
	findCalls  int
}

func newMemoryStore(categories map[int64]string) *memoryStore {
	return &memoryStore{
		posts:      make(map[int64]*model.Post),
		categories: categories,
	}
}

func (m *memoryStore) Create(_ context.Context, post *model.Post) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkConstraints(post); err != nil {
		return nil, err
	}

	m.nextID++

	stored := post.Clone()
	stored.ID = m.nextID
	m.resolveCategory(stored)
	m.posts[stored.ID] = stored

	return stored.Clone(), nil
}

func (m *memoryStore) FetchByID(_ context.Context, id int64) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, model.ErrPostNotFound
	}

	return post.Clone(), nil
}

func (m *memoryStore) FindAll(_ context.Context, criteria model.Criteria) ([]*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.findCalls++

	matched := m.match(criteria.Spec())

	slices.SortStableFunc(matched, func(a, b *model.Post) int {
		for _, sort := range criteria.Sorting() {
			if c := compareField(a, b, sort); c != 0 {
				return c
			}
		}

		return 0
	})

	if criteria.HasPagination() {
		offset := min(int(criteria.Offset()), len(matched))
		end := min(offset+int(criteria.Size()), len(matched))
		matched = matched[offset:end]
	}

	result := make([]*model.Post, len(matched))
	for i, post := range matched {
		result[i] = post.Clone()
	}

	return result, nil
}

func (m *memoryStore) Count(_ context.Context, criteria model.Criteria) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.match(criteria.Spec()))), nil
}

func (m *memoryStore) Update(_ context.Context, post *model.Post) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[post.ID]; !ok {
		return nil, model.ErrPostNotFound
	}

	if err := m.checkConstraints(post); err != nil {
		return nil, err
	}

	stored := post.Clone()
	m.resolveCategory(stored)
	m.posts[stored.ID] = stored

	return stored.Clone(), nil
}

func (m *memoryStore) Patch(_ context.Context, id int64, apply func(post *model.Post) error) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.posts[id]
	if !ok {
		return nil, model.ErrPostNotFound
	}

	working := current.Clone()
	if err := apply(working); err != nil {
		return nil, err
	}

	if err := m.checkConstraints(working); err != nil {
		return nil, err
	}

	m.resolveCategory(working)
	m.posts[id] = working

	return working.Clone(), nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return model.ErrPostNotFound
	}

	delete(m.posts, id)

	return nil
}

func (m *memoryStore) Ping(context.Context) error {
	return nil
}

func (m *memoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.posts)
}

func (m *memoryStore) checkConstraints(post *model.Post) error {
	if post.Category != nil {
		if _, ok := m.categories[post.Category.ID]; !ok {
			return model.ErrCategoryNotFound
		}
	}

	if post.Slug == nil {
		return nil
	}

	for id, other := range m.posts {
		if id != post.ID && other.Slug != nil && *other.Slug == *post.Slug {
			return model.ErrDuplicatePost
		}
	}

	return nil
}

func (m *memoryStore) resolveCategory(post *model.Post) {
	if post.Category == nil {
		return
	}

	name := m.categories[post.Category.ID]
	post.Category.Name = &name
}

func (m *memoryStore) match(spec model.Specification) []*model.Post {
	var matched []*model.Post

	for _, post := range m.posts {
		if spec == nil || evaluate(spec, post) {
			matched = append(matched, post)
		}
	}

	slices.SortFunc(matched, func(a, b *model.Post) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return matched
}

func evaluate(spec model.Specification, post *model.Post) bool {
	switch spec.Operator() {
	case model.SpecOpMust:
		for _, child := range spec.Children() {
			if !evaluate(child, post) {
				return false
			}
		}

		return true
	case model.SpecOpShould:
		for _, child := range spec.Children() {
			if evaluate(child, post) {
				return true
			}
		}

		return false
	case model.SpecOpMustNot:
		return !evaluate(spec.Children()[0], post)
	}

	value, present := fieldValue(post, spec.Field())

	switch spec.Operator() {
	case model.SpecOpIsNull:
		return !present
	case model.SpecOpNotNull:
		return present
	}

	if !present {
		return false
	}

	switch spec.Operator() {
	case model.SpecOpEq:
		return compareValues(value, spec.Value()) == 0
	case model.SpecOpNotEq:
		return compareValues(value, spec.Value()) != 0
	case model.SpecOpGt:
		return compareValues(value, spec.Value()) > 0
	case model.SpecOpGte:
		return compareValues(value, spec.Value()) >= 0
	case model.SpecOpLt:
		return compareValues(value, spec.Value()) < 0
	case model.SpecOpLte:
		return compareValues(value, spec.Value()) <= 0
	case model.SpecOpIn:
		return slices.ContainsFunc(spec.Value().([]any), func(v any) bool {
			return compareValues(value, v) == 0
		})
	case model.SpecOpLike:
		return strings.Contains(value.(string), unescapeContains(spec.Value().(string)))
	case model.SpecOpNotLike:
		return !strings.Contains(value.(string), unescapeContains(spec.Value().(string)))
	default:
		return false
	}
}

var likeUnescaper = strings.NewReplacer(`\\`, `\`, `\%`, `%`, `\_`, `_`)

func unescapeContains(pattern string) string {
	return likeUnescaper.Replace(strings.TrimSuffix(strings.TrimPrefix(pattern, "%"), "%"))
}

func fieldValue(post *model.Post, field string) (any, bool) {
	switch field {
	case "id":
		return post.ID, true
	case "title":
		return post.Title, true
	case "slug":
		return deref(post.Slug)
	case "summary":
		return deref(post.Summary)
	case "createdAt":
		return deref(post.CreatedAt)
	case "createdBy":
		return deref(post.CreatedBy)
	case "publishedDate":
		return deref(post.PublishedDate)
	case "state":
		return deref(post.State)
	case "tags":
		return deref(post.Tags)
	case "updatedAt":
		return deref(post.UpdatedAt)
	case "updatedBy":
		return deref(post.UpdatedBy)
	case "categoryId":
		return deref(post.CategoryID())
	default:
		return nil, false
	}
}

func deref[T any](v *T) (any, bool) {
	if v == nil {
		return nil, false
	}

	return *v, true
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case int64:
		return cmp.Compare(av, b.(int64))
	case int32:
		return cmp.Compare(av, b.(int32))
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	default:
		panic("unsupported value type")
	}
}

func compareField(a, b *model.Post, sort model.SortField) int {
	av, aok := fieldValue(a, sort.Field)
	bv, bok := fieldValue(b, sort.Field)

	var c int

	switch {
	case !aok && !bok:
		return 0
	case !aok:
		c = 1
	case !bok:
		c = -1
	default:
		c = compareValues(av, bv)
	}

	if sort.Direction == model.SortDesc {
		return -c
	}

	return c
}

// memoryIndex records every write and can be told to fail.
type memoryIndex struct {
	mu        sync.Mutex
	records   map[int64]model.IndexedPost
	saves     int
	deletes   int
	failWith  error
	searchErr error
	ctxErrs   []error
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{records: make(map[int64]model.IndexedPost)}
}

func (i *memoryIndex) EnsureIndex(context.Context) error {
	return nil
}

func (i *memoryIndex) Save(ctx context.Context, post model.IndexedPost) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.saves++
	i.ctxErrs = append(i.ctxErrs, ctx.Err())

	if i.failWith != nil {
		return i.failWith
	}

	i.records[post.ID] = post

	return nil
}

func (i *memoryIndex) Delete(ctx context.Context, id int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.deletes++
	i.ctxErrs = append(i.ctxErrs, ctx.Err())

	if i.failWith != nil {
		return i.failWith
	}

	delete(i.records, id)

	return nil
}

func (i *memoryIndex) FindByID(_ context.Context, id int64) (model.IndexedPost, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	record, ok := i.records[id]
	if !ok {
		return model.IndexedPost{}, model.ErrPostNotFound
	}

	return record, nil
}

func (i *memoryIndex) Search(_ context.Context, query string, _ model.Pageable) (model.SearchResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.searchErr != nil {
		return model.SearchResult{}, i.searchErr
	}

	var result model.SearchResult

	for _, record := range i.records {
		if query == "" || strings.Contains(record.Title, query) {
			result.Posts = append(result.Posts, record)
		}
	}

	slices.SortFunc(result.Posts, func(a, b model.IndexedPost) int {
		return cmp.Compare(a.ID, b.ID)
	})

	result.Total = int64(len(result.Posts))

	return result, nil
}

func (i *memoryIndex) Ping(context.Context) error {
	return nil
}

func (i *memoryIndex) writes() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.saves + i.deletes
}

type memoryCache struct {
	mu          sync.Mutex
	posts       map[int64]*model.Post
	epochs      map[int64]int64
	invalidated []int64
	failWith    error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{posts: make(map[int64]*model.Post), epochs: make(map[int64]int64)}
}

func (c *memoryCache) Epoch(_ context.Context, id int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epochs[id], nil
}

func (c *memoryCache) Get(_ context.Context, id int64) (*model.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	post, ok := c.posts[id]

	return post, ok, nil
}

func (c *memoryCache) Set(_ context.Context, post *model.Post, epoch int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epochs[post.ID] != epoch {
		return nil
	}

	c.posts[post.ID] = post

	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidated = append(c.invalidated, id)
	c.epochs[id]++
	delete(c.posts, id)

	if c.failWith != nil {
		return c.failWith
	}

	return nil
}

var errIndexDown = errors.New("index unavailable")
