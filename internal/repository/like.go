package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// LikeRepository stores post likes, one row per (post, user).
type LikeRepository interface {
	Exists(ctx context.Context, postID, userID uint) (bool, error)
	Create(ctx context.Context, postID, userID uint) error
	Delete(ctx context.Context, postID, userID uint) (int64, error)
	Count(ctx context.Context, postID uint) (int64, error)
	ListUsers(ctx context.Context, postID uint) ([]models.LikerView, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Exists(ctx context.Context, postID, userID uint) (bool, error) {
	return exists(conn(ctx, r.db).Model(&models.Like{}).Where("post_id = ? AND user_id = ?", postID, userID))
}

func (r *likeRepository) Create(ctx context.Context, postID, userID uint) error {
	return conn(ctx, r.db).Create(&models.Like{PostID: postID, UserID: userID}).Error
}

func (r *likeRepository) Delete(ctx context.Context, postID, userID uint) (int64, error) {
	result := conn(ctx, r.db).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	return result.RowsAffected, result.Error
}

func (r *likeRepository) Count(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// ListUsers returns the users who liked a post.
func (r *likeRepository) ListUsers(ctx context.Context, postID uint) ([]models.LikerView, error) {
	users := []models.LikerView{}
	err := conn(ctx, r.db).
		Table("post_likes").
		Select("users.id, users.username, users.email").
		Joins("JOIN users ON users.id = post_likes.user_id").
		Where("post_likes.post_id = ?", postID).
		Order("post_likes.id ASC").
		Scan(&users).Error
	return users, err
}
