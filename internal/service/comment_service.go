package service

import (
	"context"
	"fmt"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/validation"
)

const maxCommentLen = 10000

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	gate     ownershipGate[models.Comment]
}

type CreateCommentInput struct {
	Caller models.Identity
	PostID uint
	Text   string
}

type UpdateCommentInput struct {
	Caller    models.Identity
	CommentID uint
	Text      string
}

type DeleteCommentInput struct {
	Caller    models.Identity
	CommentID uint
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) *CommentService {
	missing := func(id uint) *models.AppError {
		return models.NewNotFoundMessage(fmt.Sprintf("Comment with ID %d does not exist or does not belong to the user.", id))
	}
	return &CommentService{
		comments: comments,
		posts:    posts,
		gate: ownershipGate[models.Comment]{
			resource: "comment",
			load:     comments.GetByID,
			owner:    func(c *models.Comment) uint { return c.UserID },
			notFound: missing,
			denied:   missing,
		},
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := requireCaller(in.Caller); err != nil {
		return nil, err
	}
	text, err := commentText(in.Text)
	if err != nil {
		return nil, err
	}
	if in.PostID == 0 {
		return nil, models.NewValidationError("Post ID and comment are required.")
	}
	if err := s.requirePost(ctx, in.PostID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  in.PostID,
		UserID:  in.Caller.ID,
		Comment: text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, internalError(err)
	}
	return comment, nil
}

// ListComments returns a post's comments with their authors' usernames.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.CommentView, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	views, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, internalError(err)
	}
	if views == nil {
		views = []models.CommentView{}
	}
	return views, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.gate.authorize(ctx, in.CommentID, in.Caller)
	if err != nil {
		return nil, err
	}
	text, err := commentText(in.Text)
	if err != nil {
		return nil, err
	}

	if err := s.comments.UpdateText(ctx, comment.ID, text); err != nil {
		return nil, internalError(err)
	}
	comment.Comment = text
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.gate.authorize(ctx, in.CommentID, in.Caller)
	if err != nil {
		return err
	}

	rows, err := s.comments.Delete(ctx, comment.ID)
	if err != nil {
		return internalError(err)
	}
	if rows == 0 {
		return s.gate.notFound(comment.ID)
	}
	return nil
}

func (s *CommentService) requirePost(ctx context.Context, postID uint) error {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func commentText(raw string) (string, error) {
	text := validation.SanitizeText(raw)
	if text == "" {
		return "", models.NewValidationError("Comment is required.")
	}
	if len(text) > maxCommentLen {
		return "", models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", maxCommentLen))
	}
	return text, nil
}
