package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	FindByNames(ctx context.Context, names []string) ([]models.Tag, error)
	CreateMany(ctx context.Context, tags []*models.Tag) error
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context) ([]models.Tag, error)
	NameTakenByOther(ctx context.Context, name string, id uint) (bool, error)
	Rename(ctx context.Context, id uint, name string) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// FindByNames looks up all given names with one IN query.
func (r *tagRepository) FindByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := []models.Tag{}
	if len(names) == 0 {
		return tags, nil
	}
	err := conn(ctx, r.db).Where("name IN ?", names).Find(&tags).Error
	return tags, err
}

func (r *tagRepository) CreateMany(ctx context.Context, tags []*models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return conn(ctx, r.db).Create(&tags).Error
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := conn(ctx, r.db).First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) Exists(ctx context.Context, id uint) (bool, error) {
	return exists(conn(ctx, r.db).Model(&models.Tag{}).Where("id = ?", id))
}

// List returns every tag ordered by name.
func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := conn(ctx, r.db).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *tagRepository) NameTakenByOther(ctx context.Context, name string, id uint) (bool, error) {
	return exists(conn(ctx, r.db).Model(&models.Tag{}).Where("name = ? AND id <> ?", name, id))
}

func (r *tagRepository) Rename(ctx context.Context, id uint, name string) error {
	return conn(ctx, r.db).Model(&models.Tag{}).Where("id = ?", id).Update("name", name).Error
}

func (r *tagRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := conn(ctx, r.db).Delete(&models.Tag{}, id)
	return result.RowsAffected, result.Error
}
