package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// LikeService records at most one like per user and post.
type LikeService struct {
	likes   repository.LikeRepository
	posts   repository.PostRepository
	manager *associationManager
}

func NewLikeService(tx repository.Transactor, likes repository.LikeRepository, posts repository.PostRepository) *LikeService {
	s := &LikeService{likes: likes, posts: posts}
	s.manager = &associationManager{
		name:      "like",
		tx:        tx,
		store:     likes,
		verify:    s.verifyPost,
		duplicate: "Post already liked by this user.",
		missing:   "Like not found for this user and post.",
	}
	return s
}

func (s *LikeService) Like(ctx context.Context, caller models.Identity, postID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if postID == 0 {
		return models.NewValidationError("Post ID is required.")
	}
	if err := s.manager.add(ctx, postID, caller.ID); err != nil {
		return err
	}
	observability.LikeEvents.WithLabelValues("like").Inc()
	return nil
}

func (s *LikeService) Unlike(ctx context.Context, caller models.Identity, postID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := s.manager.remove(ctx, postID, caller.ID); err != nil {
		return err
	}
	observability.LikeEvents.WithLabelValues("unlike").Inc()
	return nil
}

func (s *LikeService) Count(ctx context.Context, postID uint) (int64, error) {
	n, err := s.likes.Count(ctx, postID)
	if err != nil {
		return 0, internalError(err)
	}
	return n, nil
}

func (s *LikeService) IsLiked(ctx context.Context, caller models.Identity, postID uint) (bool, error) {
	if err := requireCaller(caller); err != nil {
		return false, err
	}
	return s.manager.linked(ctx, postID, caller.ID)
}

// Likers lists the users who liked a post.
func (s *LikeService) Likers(ctx context.Context, postID uint) ([]models.LikerView, error) {
	users, err := s.likes.ListUsers(ctx, postID)
	if err != nil {
		return nil, internalError(err)
	}
	if users == nil {
		users = []models.LikerView{}
	}
	return users, nil
}

func (s *LikeService) verifyPost(ctx context.Context, postID, _ uint) error {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}
