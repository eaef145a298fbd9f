package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/repository"
)

// PostTagService links tags to posts.
type PostTagService struct {
	links   repository.PostTagRepository
	posts   repository.PostRepository
	tags    repository.TagRepository
	manager *associationManager
}

func NewPostTagService(
	tx repository.Transactor,
	links repository.PostTagRepository,
	posts repository.PostRepository,
	tags repository.TagRepository,
) *PostTagService {
	s := &PostTagService{links: links, posts: posts, tags: tags}
	s.manager = &associationManager{
		name:      "post_tag",
		tx:        tx,
		store:     links,
		verify:    s.verifyRefs,
		duplicate: "Tag already associated with this post.",
		missing:   "Tag not associated with this post.",
	}
	return s
}

func (s *PostTagService) AddTag(ctx context.Context, caller models.Identity, postID, tagID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if postID == 0 || tagID == 0 {
		return models.NewValidationError("Post ID and Tag ID are required.")
	}
	return s.manager.add(ctx, postID, tagID)
}

func (s *PostTagService) RemoveTag(ctx context.Context, caller models.Identity, postID, tagID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	return s.manager.remove(ctx, postID, tagID)
}

func (s *PostTagService) TagsForPost(ctx context.Context, postID uint) ([]models.Tag, error) {
	tags, err := s.links.TagsForPost(ctx, postID)
	if err != nil {
		return nil, internalError(err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

func (s *PostTagService) PostsForTag(ctx context.Context, tagID uint) ([]models.PostSummary, error) {
	posts, err := s.links.PostsForTag(ctx, tagID)
	if err != nil {
		return nil, internalError(err)
	}
	if posts == nil {
		posts = []models.PostSummary{}
	}
	return posts, nil
}

func (s *PostTagService) verifyRefs(ctx context.Context, postID, tagID uint) error {
	postOK, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return internalError(err)
	}
	tagOK, err := s.tags.Exists(ctx, tagID)
	if err != nil {
		return internalError(err)
	}
	if !postOK || !tagOK {
		return models.NewNotFoundMessage("Post or Tag not found.")
	}
	return nil
}
