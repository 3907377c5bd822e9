package commands_test

import (
	"context"
	"testing"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics/noop"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
	"github.com/architeacher/posts/services/svc-posts/internal/infrastructure"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/commands"
	"github.com/stretchr/testify/require"
)

type mockPostsService struct {
	createPostFn func(ctx context.Context, post *model.Post) (*model.Post, error)
	updatePostFn func(ctx context.Context, post *model.Post) (*model.Post, error)
	patchPostFn  func(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error)
	deletePostFn func(ctx context.Context, id int64) error
	reindexFn    func(ctx context.Context, batchSize uint) (int, error)
	calls        int
}

func (m *mockPostsService) CreatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	m.calls++

	if m.createPostFn != nil {
		return m.createPostFn(ctx, post)
	}

	saved := post.Clone()
	saved.ID = 1

	return saved, nil
}

func (m *mockPostsService) UpdatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	m.calls++

	if m.updatePostFn != nil {
		return m.updatePostFn(ctx, post)
	}

	return post, nil
}

func (m *mockPostsService) PatchPost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error) {
	m.calls++

	if m.patchPostFn != nil {
		return m.patchPostFn(ctx, id, patch)
	}

	post := &model.Post{ID: id, Title: "current"}
	patch.Apply(post)

	return post, nil
}

func (m *mockPostsService) DeletePost(ctx context.Context, id int64) error {
	m.calls++

	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, id)
	}

	return model.ErrPostNotFound
}

func (m *mockPostsService) GetPost(context.Context, int64) (*model.Post, error) {
	return nil, model.ErrPostNotFound
}

func (m *mockPostsService) FindByCriteria(context.Context, model.PostCriteria, model.Pageable) ([]*model.Post, error) {
	return nil, nil
}

func (m *mockPostsService) CountByCriteria(context.Context, model.PostCriteria) (int64, error) {
	return 0, nil
}

func (m *mockPostsService) SearchPosts(context.Context, string, model.Pageable) (model.SearchResult, error) {
	return model.SearchResult{}, nil
}

func (m *mockPostsService) ReindexAll(ctx context.Context, batchSize uint) (int, error) {
	m.calls++

	if m.reindexFn != nil {
		return m.reindexFn(ctx, batchSize)
	}

	return 0, nil
}

func TestCreatePostCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	cases := []struct {
		name        string
		cmd         commands.CreatePostCommand
		setupSvc    func(*mockPostsService)
		expectError error
	}{
		{
			name: "successfully create post",
			cmd:  commands.CreatePostCommand{Post: &model.Post{Title: "Hello"}},
		},
		{
			name: "create post with duplicate slug",
			cmd:  commands.CreatePostCommand{Post: &model.Post{Title: "Hello"}},
			setupSvc: func(m *mockPostsService) {
				m.createPostFn = func(context.Context, *model.Post) (*model.Post, error) {
					return nil, model.ErrDuplicatePost
				}
			},
			expectError: model.ErrDuplicatePost,
		},
		{
			name: "create post with an id",
			cmd:  commands.CreatePostCommand{Post: &model.Post{ID: 3, Title: "Hello"}},
			setupSvc: func(m *mockPostsService) {
				m.createPostFn = func(context.Context, *model.Post) (*model.Post, error) {
					return nil, model.ErrIdentityConflict
				}
			},
			expectError: model.ErrIdentityConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockPostsService{}
			if tc.setupSvc != nil {
				tc.setupSvc(svc)
			}

			handler := commands.NewCreatePostCommandHandler(svc, log, mc, tp)

			post, err := handler.Handle(context.Background(), tc.cmd)

			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)
				require.Nil(t, post)

				return
			}

			require.NoError(t, err)
			require.NotZero(t, post.ID)
			require.Equal(t, tc.cmd.Post.Title, post.Title)
		})
	}
}

func TestUpdatePostCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	cases := []struct {
		name        string
		cmd         commands.UpdatePostCommand
		setupSvc    func(*mockPostsService)
		expectError error
		expectCalls int
	}{
		{
			name:        "successfully update post",
			cmd:         commands.UpdatePostCommand{ID: 4, Post: &model.Post{ID: 4, Title: "new"}},
			expectCalls: 1,
		},
		{
			name:        "body id differs from path id",
			cmd:         commands.UpdatePostCommand{ID: 4, Post: &model.Post{ID: 5, Title: "new"}},
			expectError: model.ErrInvalidPost,
		},
		{
			name: "post not found",
			cmd:  commands.UpdatePostCommand{ID: 4, Post: &model.Post{ID: 4, Title: "new"}},
			setupSvc: func(m *mockPostsService) {
				m.updatePostFn = func(context.Context, *model.Post) (*model.Post, error) {
					return nil, model.ErrPostNotFound
				}
			},
			expectError: model.ErrPostNotFound,
			expectCalls: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockPostsService{}
			if tc.setupSvc != nil {
				tc.setupSvc(svc)
			}

			handler := commands.NewUpdatePostCommandHandler(svc, log, mc, tp)

			post, err := handler.Handle(context.Background(), tc.cmd)

			require.Equal(t, tc.expectCalls, svc.calls)

			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)
				require.Nil(t, post)

				return
			}

			require.NoError(t, err)
			require.Equal(t, "new", post.Title)
		})
	}
}

func TestPatchPostCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	cases := []struct {
		name        string
		cmd         commands.PatchPostCommand
		expectError error
		expectCalls int
	}{
		{
			name:        "patch without body id",
			cmd:         commands.PatchPostCommand{ID: 7, Patch: model.PostPatch{State: model.Some(int32(2))}},
			expectCalls: 1,
		},
		{
			name:        "patch with matching body id",
			cmd:         commands.PatchPostCommand{ID: 7, BodyID: 7, Patch: model.PostPatch{State: model.Some(int32(2))}},
			expectCalls: 1,
		},
		{
			name:        "patch with mismatching body id",
			cmd:         commands.PatchPostCommand{ID: 7, BodyID: 8, Patch: model.PostPatch{State: model.Some(int32(2))}},
			expectError: model.ErrInvalidPost,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockPostsService{}
			handler := commands.NewPatchPostCommandHandler(svc, log, mc, tp)

			post, err := handler.Handle(context.Background(), tc.cmd)

			require.Equal(t, tc.expectCalls, svc.calls)

			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)

				return
			}

			require.NoError(t, err)
			require.Equal(t, int32(2), *post.State)
			require.Equal(t, "current", post.Title)
		})
	}
}

func TestDeletePostCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	cases := []struct {
		name        string
		setupSvc    func(*mockPostsService)
		expectError error
	}{
		{
			name: "successfully delete post",
			setupSvc: func(m *mockPostsService) {
				m.deletePostFn = func(context.Context, int64) error {
					return nil
				}
			},
		},
		{
			name:        "post not found",
			expectError: model.ErrPostNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockPostsService{}
			if tc.setupSvc != nil {
				tc.setupSvc(svc)
			}

			handler := commands.NewDeletePostCommandHandler(svc, log, mc, tp)

			_, err := handler.Handle(context.Background(), commands.DeletePostCommand{ID: 1})

			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestReindexPostsCommandHandler(t *testing.T) {
	t.Parallel()

	var gotBatch uint

	svc := &mockPostsService{
		reindexFn: func(_ context.Context, batchSize uint) (int, error) {
			gotBatch = batchSize

			return 12, nil
		},
	}

	handler := commands.NewReindexPostsCommandHandler(svc, logger.NewTestLogger(), noop.NewMetricsClient(), infrastructure.NewNoopTracerProvider())

	written, err := handler.Handle(context.Background(), commands.ReindexPostsCommand{BatchSize: 50})

	require.NoError(t, err)
	require.Equal(t, 12, written)
	require.Equal(t, uint(50), gotBatch)
}
