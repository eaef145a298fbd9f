package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]models.CommentView, error)
	UpdateText(ctx context.Context, id uint, text string) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return conn(ctx, r.db).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := conn(ctx, r.db).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns the comments on a post joined with their authors' usernames.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.CommentView, error) {
	views := []models.CommentView{}
	err := conn(ctx, r.db).
		Table("comments").
		Select("comments.id, comments.comment, comments.created_at, users.username").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.id ASC").
		Scan(&views).Error
	return views, err
}

func (r *commentRepository) UpdateText(ctx context.Context, id uint, text string) error {
	return conn(ctx, r.db).Model(&models.Comment{}).Where("id = ?", id).Update("comment", text).Error
}

func (r *commentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := conn(ctx, r.db).Delete(&models.Comment{}, id)
	return result.RowsAffected, result.Error
}
