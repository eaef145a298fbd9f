// Package seed creates demo data for development databases. It is not used
// by the API at runtime.
package seed

import (
	"fmt"
	"strings"

	"quill/internal/auth"
	"quill/internal/models"
	"quill/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password given to every seeded user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them.
type Factory struct {
	db     *gorm.DB
	faker  *gofakeit.Faker
	hasher *auth.Hasher
	// hash of DefaultPassword, computed once
	passwordHash string
}

// NewFactory creates a Factory bound to db. A zero seed picks a random one.
func NewFactory(db *gorm.DB, hasher *auth.Hasher, seed int64) *Factory {
	return &Factory{db: db, faker: gofakeit.New(seed), hasher: hasher}
}

// CreateUser constructs and persists a user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	if f.passwordHash == "" {
		hash, err := f.hasher.Hash(DefaultPassword)
		if err != nil {
			return nil, err
		}
		f.passwordHash = hash
	}

	username := strings.ToLower(f.faker.FirstName() + "_" + f.faker.LetterN(6))
	bio := f.faker.Sentence(10)
	user := &models.User{
		Username: username,
		Email:    username + "@" + f.faker.DomainName(),
		Password: f.passwordHash,
		Bio:      &bio,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a post authored by user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:        strings.TrimSuffix(f.faker.Sentence(5), "."),
		Content:      f.faker.Paragraph(2, 4, 12, "\n\n"),
		Author:       user.Username,
		UserID:       user.ID,
		ThumbnailURL: fmt.Sprintf("https://picsum.photos/seed/%s/800/450", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(post)
	}
	post.Slug = slug.Derive(post.Title)

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Comment: f.faker.Sentence(f.faker.Number(4, 16)),
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records that user likes post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Create(&models.Like{PostID: post.ID, UserID: user.ID}).Error
}

// CreateTag persists a tag with the given name.
func (f *Factory) CreateTag(name string) (*models.Tag, error) {
	tag := &models.Tag{Name: name}
	if err := f.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// TagPost attaches tag to post.
func (f *Factory) TagPost(post *models.Post, tag *models.Tag) error {
	return f.db.Create(&models.PostTag{PostID: post.ID, TagID: tag.ID}).Error
}
