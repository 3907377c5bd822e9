package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	postsTable = "post"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	postColumns = []string{
		"post.id",
		"post.title",
		"post.slug",
		"post.summary",
		"post.body",
		"post.created_at",
		"post.created_by",
		"post.published_date",
		"post.state",
		"post.tags",
		"post.updated_at",
		"post.updated_by",
		"post.category_id",
		"category.name AS category_name",
		"category.slug AS category_slug",
	}

	writableColumns = []string{
		"title",
		"slug",
		"summary",
		"body",
		"created_at",
		"created_by",
		"published_date",
		"state",
		"tags",
		"updated_at",
		"updated_by",
		"category_id",
	}
)

type (
	querier interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
		Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	}

	// PoolOps defines the interface for database operations.
	// This allows injecting mock implementations for testing.
	PoolOps interface {
		querier
		Begin(ctx context.Context) (pgx.Tx, error)
		Ping(ctx context.Context) error
	}

	// PostsRepository is the primary store of posts.
	PostsRepository struct {
		pool       PoolOps
		scanner    Scanner
		logger     logger.Logger
		translator *CriteriaTranslator
	}

	postRow struct {
		ID            int64      `db:"id"`
		Title         string     `db:"title"`
		Slug          *string    `db:"slug"`
		Summary       *string    `db:"summary"`
		Body          *string    `db:"body"`
		CreatedAt     *time.Time `db:"created_at"`
		CreatedBy     *string    `db:"created_by"`
		PublishedDate *time.Time `db:"published_date"`
		State         *int32     `db:"state"`
		Tags          *string    `db:"tags"`
		UpdatedAt     *time.Time `db:"updated_at"`
		UpdatedBy     *string    `db:"updated_by"`
		CategoryID    *int64     `db:"category_id"`
		CategoryName  *string    `db:"category_name"`
		CategorySlug  *string    `db:"category_slug"`
	}
)

// NewPostsRepository creates a new PostsRepository with the given dependencies.
func NewPostsRepository(
	pool PoolOps,
	scanner Scanner,
	translator *CriteriaTranslator,
	log logger.Logger,
) *PostsRepository {
	return &PostsRepository{
		pool:       pool,
		scanner:    scanner,
		translator: translator,
		logger:     log,
	}
}

// Create inserts post and returns the stored row with its generated id.
func (r *PostsRepository) Create(ctx context.Context, post *model.Post) (*model.Post, error) {
	query, args, err := psql.Insert(postsTable).
		Columns(writableColumns...).
		Values(writableValues(post)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	var stored *model.Post

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		var id int64
		if scanErr := tx.QueryRow(ctx, query, args...).Scan(&id); scanErr != nil {
			return mapWriteError(scanErr)
		}

		var fetchErr error
		stored, fetchErr = r.fetch(ctx, tx, id, false)

		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// Update overwrites every column of an existing post.
func (r *PostsRepository) Update(ctx context.Context, post *model.Post) (*model.Post, error) {
	var stored *model.Post

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.overwrite(ctx, tx, post); err != nil {
			return err
		}

		var err error
		stored, err = r.fetch(ctx, tx, post.ID, false)

		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// Patch locks the post, lets apply mutate it and writes the merged result
// back in the same transaction.
func (r *PostsRepository) Patch(
	ctx context.Context,
	id int64,
	apply func(post *model.Post) error,
) (*model.Post, error) {
	var stored *model.Post

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		current, err := r.fetch(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := apply(current); err != nil {
			return err
		}

		current.ID = id

		if err := r.overwrite(ctx, tx, current); err != nil {
			return err
		}

		stored, err = r.fetch(ctx, tx, id, false)

		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

func (r *PostsRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(postsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}

	return nil
}

func (r *PostsRepository) FetchByID(ctx context.Context, id int64) (*model.Post, error) {
	return r.fetch(ctx, r.pool, id, false)
}

// FindAll returns the page of posts selected by criteria.
func (r *PostsRepository) FindAll(ctx context.Context, criteria model.Criteria) ([]*model.Post, error) {
	builder, err := r.translator.ApplyToSelect(
		psql.Select(postColumns...).From(postsTable),
		criteria,
		model.CategoryRelation,
	)
	if err != nil {
		return nil, err
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var postRows []postRow
	if err := r.scanner.ScanAll(&postRows, rows); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	posts := make([]*model.Post, 0, len(postRows))
	for index := range postRows {
		posts = append(posts, postRows[index].toModel())
	}

	return posts, nil
}

// Count returns the number of posts matching criteria, ignoring its window.
func (r *PostsRepository) Count(ctx context.Context, criteria model.Criteria) (int64, error) {
	builder, err := r.translator.ApplyConditionsOnly(
		psql.Select("COUNT(*)").From(postsTable),
		criteria,
	)
	if err != nil {
		return 0, err
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	return total, nil
}

func (r *PostsRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostsRepository) overwrite(ctx context.Context, tx pgx.Tx, post *model.Post) error {
	builder := psql.Update(postsTable)

	for i, value := range writableValues(post) {
		builder = builder.Set(writableColumns[i], value)
	}

	query, args, err := builder.
		Where(sq.Eq{"id": post.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}

	return nil
}

func (r *PostsRepository) fetch(ctx context.Context, q querier, id int64, forUpdate bool) (*model.Post, error) {
	builder := psql.Select(postColumns...).
		From(postsTable).
		LeftJoin("category ON category.id = post.category_id").
		Where(sq.Eq{"post.id": id})

	if forUpdate {
		builder = builder.Suffix("FOR UPDATE OF " + postsTable)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var row postRow
	if err := r.scanner.ScanOne(&row, rows); err != nil {
		if r.scanner.IsNotFound(err) {
			return nil, model.ErrPostNotFound
		}

		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	return row.toModel(), nil
}

func (r *PostsRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDatabaseConnection, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Warn().Err(rbErr).Msg("failed to roll back transaction")
		}

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", model.ErrDatabaseQuery, err)
	}

	return nil
}

func writableValues(post *model.Post) []any {
	return []any{
		post.Title,
		post.Slug,
		post.Summary,
		post.Body,
		post.CreatedAt,
		post.CreatedBy,
		post.PublishedDate,
		post.State,
		post.Tags,
		post.UpdatedAt,
		post.UpdatedBy,
		post.CategoryID(),
	}
}

func (row postRow) toModel() *model.Post {
	post := &model.Post{
		ID:            row.ID,
		Title:         row.Title,
		Slug:          row.Slug,
		Summary:       row.Summary,
		Body:          row.Body,
		CreatedAt:     utc(row.CreatedAt),
		CreatedBy:     row.CreatedBy,
		PublishedDate: utc(row.PublishedDate),
		State:         row.State,
		Tags:          row.Tags,
		UpdatedAt:     utc(row.UpdatedAt),
		UpdatedBy:     row.UpdatedBy,
	}

	if row.CategoryID != nil {
		post.Category = &model.Category{
			ID:   *row.CategoryID,
			Name: row.CategoryName,
			Slug: row.CategorySlug,
		}
	}

	return post
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := t.UTC()

	return &v
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrDuplicatePost, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", model.ErrCategoryNotFound, pgErr.Detail)
		}
	}

	return fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
}
