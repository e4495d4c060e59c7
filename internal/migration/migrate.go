package migration

import (
	"time"

	"github.com/damoang/angple-branch/internal/domain"
	"gorm.io/gorm"
)

// Run creates the post, branch, merge and change-log tables via AutoMigrate.
// This is safe to run multiple times (AutoMigrate is idempotent).
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Post{},
		&domain.Branch{},
		&domain.MergeRecord{},
		&domain.ChangeLogEntry{},
	)
}

// SeedDemoPost inserts a sample post when blog_posts is empty.
// Returns the id of the first post either way.
func SeedDemoPost(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&domain.Post{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		var first domain.Post
		if err := db.Order("id ASC").First(&first).Error; err != nil {
			return 0, err
		}
		return first.ID, nil
	}

	now := time.Now().UTC()
	post := &domain.Post{
		Title:       "Hello, branches",
		Slug:        "hello-branches",
		Content:     "Every branch starts as a full copy of this post.",
		Excerpt:     "A post to branch from",
		Author:      "admin",
		Status:      "published",
		Tags:        "demo,branches",
		PublishedAt: &now,
	}
	if err := db.Create(post).Error; err != nil {
		return 0, err
	}
	return post.ID, nil
}
