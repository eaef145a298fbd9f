package seed

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// Options controls how much data Seed generates.
type Options struct {
	NumUsers int
	NumPosts int
	// Comments and likes per post are drawn from [0, MaxCommentsPerPost]
	// and [0, NumUsers].
	MaxCommentsPerPost int
	ShouldClean        bool
}

// Summary counts what Seed created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Tags     int
}

var tagNames = []string{
	"Go", "Databases", "DevOps", "Frontend", "Backend", "Cloud",
	"Security", "Testing", "Career", "Open Source", "Linux", "AI",
}

// Seed populates db. All rows are written in one transaction.
func Seed(ctx context.Context, f *Factory, opts Options) (Summary, error) {
	var summary Summary
	log := observability.Logger.With(slog.String("component", "seed"))
	log.InfoContext(ctx, "starting database seeding", "users", opts.NumUsers, "posts", opts.NumPosts)

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txf := *f
		txf.db = tx

		if opts.ShouldClean {
			if err := Clean(tx); err != nil {
				return err
			}
			log.InfoContext(ctx, "cleared existing data")
		}

		users := make([]*models.User, 0, opts.NumUsers)
		for i := 0; i < opts.NumUsers; i++ {
			u, err := txf.CreateUser()
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			users = append(users, u)
		}
		summary.Users = len(users)
		if len(users) == 0 {
			return nil
		}

		tags := make([]*models.Tag, 0, len(tagNames))
		for _, name := range tagNames {
			var existing models.Tag
			if err := tx.Where("name = ?", name).First(&existing).Error; err == nil {
				tags = append(tags, &existing)
				continue
			}
			t, err := txf.CreateTag(name)
			if err != nil {
				return fmt.Errorf("failed to create tag: %w", err)
			}
			tags = append(tags, t)
			summary.Tags++
		}

		for i := 0; i < opts.NumPosts; i++ {
			author := users[f.faker.Number(0, len(users)-1)]
			post, err := txf.CreatePost(author)
			if err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
			summary.Posts++

			for _, j := range pick(f, len(tags), f.faker.Number(1, 3)) {
				if err := txf.TagPost(post, tags[j]); err != nil {
					return fmt.Errorf("failed to tag post: %w", err)
				}
			}

			for c := f.faker.Number(0, opts.MaxCommentsPerPost); c > 0; c-- {
				if _, err := txf.CreateComment(users[f.faker.Number(0, len(users)-1)], post); err != nil {
					return fmt.Errorf("failed to create comment: %w", err)
				}
				summary.Comments++
			}

			for _, j := range pick(f, len(users), f.faker.Number(0, len(users))) {
				if err := txf.CreateLike(users[j], post); err != nil {
					return fmt.Errorf("failed to create like: %w", err)
				}
				summary.Likes++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	log.InfoContext(ctx, "database seeding completed",
		"users", summary.Users, "posts", summary.Posts,
		"comments", summary.Comments, "likes", summary.Likes, "tags", summary.Tags)
	return summary, nil
}

// Clean removes all rows, children first.
func Clean(db *gorm.DB) error {
	for _, model := range []any{
		&models.PostTag{}, &models.Like{}, &models.Comment{},
		&models.Post{}, &models.Tag{}, &models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", model, err)
		}
	}
	return nil
}

// pick returns k distinct indexes in [0, n).
func pick(f *Factory, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	f.faker.ShuffleAnySlice(idx)
	return idx[:k]
}
