package service

import (
	"context"
	"testing"

	"quill/internal/models"
	"quill/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, models.KindOf(err), "unexpected error: %v", err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertKind(t, err, models.KindInvalidArgument)
}

// inlineTx runs fn without a transaction.
type inlineTx struct{}

func (inlineTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// thumbnailStub is a stub for ThumbnailStore.
type thumbnailStub struct {
	saved   []string
	removed []string
	saveErr error
}

func (s *thumbnailStub) Save(_ context.Context, in storage.Upload) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	path := storage.PublicPrefix + in.Filename
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *thumbnailStub) Remove(url string) error {
	s.removed = append(s.removed, url)
	return nil
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	existsFn  func(context.Context, uint) (bool, error)
	listFn    func(context.Context, int, int) ([]*models.Post, error)
	updateFn  func(context.Context, uint, map[string]interface{}) error
	deleteFn  func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFn(ctx, id, fields)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) (int64, error) {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id, UserID: 1}, nil },
		existsFn:  func(_ context.Context, _ uint) (bool, error) { return true, nil },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		updateFn:  func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) (int64, error) { return 1, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]models.CommentView, error)
	updateTextFn func(context.Context, uint, string) error
	deleteFn     func(context.Context, uint) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.CommentView, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) UpdateText(ctx context.Context, id uint, text string) error {
	return s.updateTextFn(ctx, id, text)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) (int64, error) {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:    func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id, UserID: 1}, nil },
		listByPostFn: func(_ context.Context, _ uint) ([]models.CommentView, error) { return nil, nil },
		updateTextFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) (int64, error) { return 1, nil },
	}
}

// assocStoreStub is a stub for associationStore.
type assocStoreStub struct {
	existsFn func(context.Context, uint, uint) (bool, error)
	createFn func(context.Context, uint, uint) error
	deleteFn func(context.Context, uint, uint) (int64, error)
}

func (s *assocStoreStub) Exists(ctx context.Context, a, b uint) (bool, error) {
	return s.existsFn(ctx, a, b)
}
func (s *assocStoreStub) Create(ctx context.Context, a, b uint) error {
	return s.createFn(ctx, a, b)
}
func (s *assocStoreStub) Delete(ctx context.Context, a, b uint) (int64, error) {
	return s.deleteFn(ctx, a, b)
}

var storageUpload = storage.Upload{Filename: "new.png", ContentType: "image/png", Content: []byte{1}}

var (
	alice = models.Identity{ID: 1, Username: "alice", Email: "alice@example.com"}
	bob   = models.Identity{ID: 2, Username: "bob", Email: "bob@example.com"}
)
