package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/slug"
	"quill/internal/storage"
	"quill/internal/validation"
)

const maxTitleLength = 255

// ThumbnailStore persists uploaded thumbnails.
type ThumbnailStore interface {
	Save(ctx context.Context, in storage.Upload) (string, error)
	Remove(publicURL string) error
}

type PostService struct {
	posts      repository.PostRepository
	thumbnails ThumbnailStore
	gate       ownershipGate[models.Post]
	audit      *observability.MutationLogger
	now        func() time.Time
}

type CreatePostInput struct {
	Caller    models.Identity
	Title     string
	Content   string
	Thumbnail *storage.Upload
	// BaseURL prefixes the stored thumbnail path, e.g. "https://blog.example.com".
	BaseURL string
}

// UpdatePostInput is a partial update; nil fields are left unchanged.
type UpdatePostInput struct {
	Caller    models.Identity
	PostID    uint
	Title     *string
	Content   *string
	Thumbnail *storage.Upload
	BaseURL   string
}

type DeletePostInput struct {
	Caller models.Identity
	PostID uint
}

func NewPostService(posts repository.PostRepository, thumbnails ThumbnailStore) *PostService {
	return &PostService{
		posts:      posts,
		thumbnails: thumbnails,
		gate: ownershipGate[models.Post]{
			resource: "post",
			load:     posts.GetByID,
			owner:    func(p *models.Post) uint { return p.UserID },
			notFound: func(id uint) *models.AppError {
				return models.NewNotFoundError("Post", id)
			},
			denied: func(uint) *models.AppError {
				return models.NewForbiddenError("You are not allowed to modify this blog post.")
			},
		},
		audit: observability.NewMutationLogger("post"),
		now:   time.Now,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := requireCaller(in.Caller); err != nil {
		return nil, err
	}

	title := validation.SanitizeText(in.Title)
	content := validation.SanitizeRichText(in.Content)
	if title == "" || content == "" {
		return nil, models.NewValidationError("Title and content are required.")
	}
	postSlug, err := deriveSlug(title)
	if err != nil {
		return nil, err
	}
	if in.Thumbnail == nil || len(in.Thumbnail.Content) == 0 {
		return nil, models.NewValidationError("Thumbnail image is required.")
	}

	path, err := s.thumbnails.Save(ctx, *in.Thumbnail)
	if err != nil {
		return nil, internalError(err)
	}
	thumbnailURL := in.BaseURL + path

	post := &models.Post{
		Title:        title,
		Slug:         postSlug,
		Content:      content,
		Author:       in.Caller.Username,
		UserID:       in.Caller.ID,
		ThumbnailURL: thumbnailURL,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.discardThumbnail(ctx, thumbnailURL)
		return nil, internalError(err)
	}

	observability.PostsCreated.Inc()
	s.audit.LogCreate(ctx, "post_id", post.ID, "slug", post.Slug)
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.gate.authorize(ctx, in.PostID, in.Caller)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Title != nil {
		title := validation.SanitizeText(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title cannot be empty.")
		}
		postSlug, err := deriveSlug(title)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
		fields["slug"] = postSlug
	}
	if in.Content != nil {
		content := validation.SanitizeRichText(*in.Content)
		if content == "" {
			return nil, models.NewValidationError("Content cannot be empty.")
		}
		fields["content"] = content
	}
	hasThumbnail := in.Thumbnail != nil && len(in.Thumbnail.Content) > 0
	if len(fields) == 0 && !hasThumbnail {
		return nil, models.NewValidationError("No fields to update.")
	}

	newThumbnail := ""
	if hasThumbnail {
		path, err := s.thumbnails.Save(ctx, *in.Thumbnail)
		if err != nil {
			return nil, internalError(err)
		}
		newThumbnail = in.BaseURL + path
		fields["thumbnail_url"] = newThumbnail
	}

	now := s.now()
	fields["updated_at"] = now

	if err := s.posts.Update(ctx, post.ID, fields); err != nil {
		if newThumbnail != "" {
			s.discardThumbnail(ctx, newThumbnail)
		}
		return nil, internalError(err)
	}

	oldThumbnail := post.ThumbnailURL
	applyPostFields(post, fields)
	post.UpdatedAt = now
	if newThumbnail != "" && oldThumbnail != "" {
		s.discardThumbnail(ctx, oldThumbnail)
	}

	s.audit.LogUpdate(ctx, "post_id", post.ID)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.gate.authorize(ctx, in.PostID, in.Caller)
	if err != nil {
		return err
	}

	rows, err := s.posts.Delete(ctx, post.ID)
	if err != nil {
		return internalError(err)
	}
	if rows == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}

	if post.ThumbnailURL != "" {
		s.discardThumbnail(ctx, post.ThumbnailURL)
	}
	s.audit.LogDelete(ctx, "post_id", post.ID)
	return nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, models.NewNotFoundError("Post", id))
	}
	return post, nil
}

// ListPosts returns posts newest first.
func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, limit, offset)
	if err != nil {
		return nil, internalError(err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *PostService) discardThumbnail(ctx context.Context, url string) {
	if err := s.thumbnails.Remove(url); err != nil {
		observability.Logger.WarnContext(ctx, "failed to remove thumbnail", "url", url, "error", err)
	}
}

func deriveSlug(title string) (string, error) {
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", models.NewValidationError(fmt.Sprintf("Title must not exceed %d characters.", maxTitleLength))
	}
	s := slug.Derive(title)
	if s == "" {
		return "", models.NewValidationError("Title must contain at least one letter or digit.")
	}
	if len(s) > maxTitleLength {
		s = strings.TrimSuffix(s[:maxTitleLength], "-")
	}
	return s, nil
}

func applyPostFields(post *models.Post, fields map[string]interface{}) {
	if v, ok := fields["title"].(string); ok {
		post.Title = v
	}
	if v, ok := fields["slug"].(string); ok {
		post.Slug = v
	}
	if v, ok := fields["content"].(string); ok {
		post.Content = v
	}
	if v, ok := fields["thumbnail_url"].(string); ok {
		post.ThumbnailURL = v
	}
}
