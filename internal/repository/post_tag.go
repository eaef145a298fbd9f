package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// PostTagRepository stores post-tag links, one row per (post, tag).
type PostTagRepository interface {
	Exists(ctx context.Context, postID, tagID uint) (bool, error)
	Create(ctx context.Context, postID, tagID uint) error
	Delete(ctx context.Context, postID, tagID uint) (int64, error)
	DeleteByTag(ctx context.Context, tagID uint) error
	TagsForPost(ctx context.Context, postID uint) ([]models.Tag, error)
	PostsForTag(ctx context.Context, tagID uint) ([]models.PostSummary, error)
}

type postTagRepository struct {
	db *gorm.DB
}

// NewPostTagRepository creates a new PostTagRepository
func NewPostTagRepository(db *gorm.DB) PostTagRepository {
	return &postTagRepository{db: db}
}

func (r *postTagRepository) Exists(ctx context.Context, postID, tagID uint) (bool, error) {
	return exists(conn(ctx, r.db).Model(&models.PostTag{}).Where("post_id = ? AND tag_id = ?", postID, tagID))
}

func (r *postTagRepository) Create(ctx context.Context, postID, tagID uint) error {
	return conn(ctx, r.db).Create(&models.PostTag{PostID: postID, TagID: tagID}).Error
}

func (r *postTagRepository) Delete(ctx context.Context, postID, tagID uint) (int64, error) {
	result := conn(ctx, r.db).Where("post_id = ? AND tag_id = ?", postID, tagID).Delete(&models.PostTag{})
	return result.RowsAffected, result.Error
}

// DeleteByTag removes every link to a tag.
func (r *postTagRepository) DeleteByTag(ctx context.Context, tagID uint) error {
	return conn(ctx, r.db).Where("tag_id = ?", tagID).Delete(&models.PostTag{}).Error
}

func (r *postTagRepository) TagsForPost(ctx context.Context, postID uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := conn(ctx, r.db).
		Table("post_tags").
		Select("tags.id, tags.name").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("post_tags.post_id = ?", postID).
		Order("tags.name ASC").
		Scan(&tags).Error
	return tags, err
}

func (r *postTagRepository) PostsForTag(ctx context.Context, tagID uint) ([]models.PostSummary, error) {
	posts := []models.PostSummary{}
	err := conn(ctx, r.db).
		Table("post_tags").
		Select("posts.id, posts.title, posts.content").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("post_tags.tag_id = ?", tagID).
		Order("posts.id DESC").
		Scan(&posts).Error
	return posts, err
}
