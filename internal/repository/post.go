package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return conn(ctx, r.db).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := conn(ctx, r.db).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	return exists(conn(ctx, r.db).Model(&models.Post{}).Where("id = ?", id))
}

// List returns posts newest first.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := conn(ctx, r.db).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// Update applies fields to one post in a single UPDATE statement.
func (r *postRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return conn(ctx, r.db).Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes a post. Comments, likes and tag links go with it through
// ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := conn(ctx, r.db).Delete(&models.Post{}, id)
	return result.RowsAffected, result.Error
}

// exists runs a LIMIT 1 query against the given scope.
func exists(q *gorm.DB) (bool, error) {
	var found []uint
	if err := q.Limit(1).Pluck("id", &found).Error; err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
