package command

import (
	"fmt"

	"quill/internal/auth"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedOpts struct {
	users    int
	posts    int
	comments int
	clean    bool
	sqlite   string
	seed     int64
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo data",
	Long: `Create demo users, posts, comments, likes and tags. Every seeded user
has the password "` + seed.DefaultPassword + `".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedOpts.users < 0 || seedOpts.posts < 0 || seedOpts.comments < 0 {
			return fmt.Errorf("counts must not be negative")
		}

		db, cfg, err := openDatabase()
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		factory := seed.NewFactory(db, auth.NewHasher(cfg.BcryptCost), seedOpts.seed)
		summary, err := seed.Seed(cmd.Context(), factory, seed.Options{
			NumUsers:           seedOpts.users,
			NumPosts:           seedOpts.posts,
			MaxCommentsPerPost: seedOpts.comments,
			ShouldClean:        seedOpts.clean,
		})
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Seeded %d users, %d posts, %d comments, %d likes, %d new tags\n",
			summary.Users, summary.Posts, summary.Comments, summary.Likes, summary.Tags)
		fmt.Fprintf(out, "All seeded users have the password: %s\n", seed.DefaultPassword)
		return nil
	},
}

// openDatabase connects using --sqlite when given, otherwise the configured
// database.
func openDatabase() (*gorm.DB, *config.Config, error) {
	if seedOpts.sqlite != "" {
		db, err := database.OpenSQLite(seedOpts.sqlite)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, &config.Config{BcryptCost: auth.DefaultCost}, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.IsProduction() {
		// Connect skips migrations in production.
		if err := database.Migrate(db); err != nil {
			return nil, nil, err
		}
	}
	return db, cfg, nil
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.users, "users", 20, "number of users to create")
	seedCmd.Flags().IntVar(&seedOpts.posts, "posts", 60, "number of posts to create")
	seedCmd.Flags().IntVar(&seedOpts.comments, "comments", 5, "maximum comments per post")
	seedCmd.Flags().BoolVar(&seedOpts.clean, "clean", false, "delete existing data before seeding")
	seedCmd.Flags().StringVar(&seedOpts.sqlite, "sqlite", "", "seed this SQLite file instead of the configured database")
	seedCmd.Flags().Int64Var(&seedOpts.seed, "seed", 0, "random seed (0 picks one)")

	rootCmd.AddCommand(seedCmd)
}
