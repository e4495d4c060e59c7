package repository

import (
	"context"
	"fmt"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/store"
)

// PostRepository 원본 게시글(main) 조회
type PostRepository interface {
	// FindByID returns the primary post record; ErrPostNotFound when absent
	FindByID(ctx context.Context, postID int64) (*domain.Post, error)
}

type postRepository struct {
	exec store.Executor
}

// NewPostRepository 생성자
func NewPostRepository(exec store.Executor) PostRepository {
	return &postRepository{exec: exec}
}

// FindByID 게시글 조회
func (r *postRepository) FindByID(ctx context.Context, postID int64) (*domain.Post, error) {
	rs, err := r.exec.Execute(ctx, store.Q(`
		SELECT id, title, slug, content, excerpt, author, status, tags,
			published_at, scheduled_date, is_scheduled, created_at, updated_at
		FROM blog_posts WHERE id = ?`, postID))
	if err != nil {
		return nil, err
	}
	row := rs.First()
	if row == nil {
		return nil, fmt.Errorf("%w: %d", common.ErrPostNotFound, postID)
	}

	post := &domain.Post{
		ID:            row.Int64("id"),
		Title:         row.String("title"),
		Slug:          row.String("slug"),
		Content:       row.String("content"),
		Excerpt:       row.String("excerpt"),
		Author:        row.String("author"),
		Status:        row.String("status"),
		Tags:          row.String("tags"),
		PublishedAt:   row.Time("published_at"),
		ScheduledDate: row.Time("scheduled_date"),
		IsScheduled:   row.Bool("is_scheduled"),
	}
	if t := row.Time("created_at"); t != nil {
		post.CreatedAt = *t
	}
	if t := row.Time("updated_at"); t != nil {
		post.UpdatedAt = *t
	}
	return post, nil
}
