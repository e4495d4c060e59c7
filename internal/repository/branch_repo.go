package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/store"
)

// BranchRepository handles blog_post_branches rows
type BranchRepository interface {
	// Insert stores a new branch row
	Insert(ctx context.Context, branch *domain.Branch) error
	// FindByID returns a branch regardless of is_active; ErrBranchNotFound when absent
	FindByID(ctx context.Context, postID int64, branchID string) (*domain.Branch, error)
	// ListActive returns active branches of a post, most recently created first
	ListActive(ctx context.Context, postID int64) ([]*domain.Branch, error)
	// UpdateFields patches the supplied tracked fields and stamps modified_by/modified_date
	UpdateFields(ctx context.Context, postID int64, branchID string, changes domain.BranchChanges, modifiedBy string, at time.Time) error
	// SoftDelete sets is_active = false
	SoftDelete(ctx context.Context, postID int64, branchID, deletedBy string, at time.Time) error
	// MarkMerged sets is_merged = true; the branch stays active
	MarkMerged(ctx context.Context, postID int64, branchID, mergedBy string, at time.Time) error
}

type branchRepository struct {
	exec store.Executor
}

// NewBranchRepository creates a new BranchRepository
func NewBranchRepository(exec store.Executor) BranchRepository {
	return &branchRepository{exec: exec}
}

const branchColumns = `branch_id, post_id, branch_name, parent_branch_id, branch_type,
	title, slug, content, excerpt, author, status, tags,
	published_at, scheduled_date, is_scheduled,
	created_by, created_date, modified_by, modified_date,
	is_active, is_merged, merged_date, merged_by`

func (r *branchRepository) Insert(ctx context.Context, b *domain.Branch) error {
	_, err := r.exec.Execute(ctx, store.Q(`
		INSERT INTO blog_post_branches (
			branch_id, post_id, branch_name, parent_branch_id, branch_type,
			title, slug, content, excerpt, author, status, tags,
			published_at, scheduled_date, is_scheduled,
			created_by, created_date, modified_by, modified_date,
			is_active, is_merged
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BranchID, b.PostID, b.BranchName, b.ParentBranchID, string(b.BranchType),
		b.Title, b.Slug, b.Content, b.Excerpt, b.Author, b.Status, b.Tags,
		b.PublishedAt, b.ScheduledDate, b.IsScheduled,
		b.CreatedBy, b.CreatedDate, b.ModifiedBy, b.ModifiedDate,
		b.IsActive, b.IsMerged,
	))
	if err != nil {
		return fmt.Errorf("insert branch %s: %w", b.BranchID, err)
	}
	return nil
}

func (r *branchRepository) FindByID(ctx context.Context, postID int64, branchID string) (*domain.Branch, error) {
	rs, err := r.exec.Execute(ctx, store.Q(
		`SELECT `+branchColumns+` FROM blog_post_branches WHERE post_id = ? AND branch_id = ?`,
		postID, branchID,
	))
	if err != nil {
		return nil, err
	}
	row := rs.First()
	if row == nil {
		return nil, fmt.Errorf("%w: %s (post %d)", common.ErrBranchNotFound, branchID, postID)
	}
	return mapRowToBranch(row), nil
}

func (r *branchRepository) ListActive(ctx context.Context, postID int64) ([]*domain.Branch, error) {
	rs, err := r.exec.Execute(ctx, store.Q(
		`SELECT `+branchColumns+` FROM blog_post_branches
		WHERE post_id = ? AND is_active = ?
		ORDER BY created_date DESC, branch_id DESC`,
		postID, true,
	))
	if err != nil {
		return nil, err
	}
	branches := make([]*domain.Branch, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		branches = append(branches, mapRowToBranch(row))
	}
	return branches, nil
}

func (r *branchRepository) UpdateFields(ctx context.Context, postID int64, branchID string, changes domain.BranchChanges, modifiedBy string, at time.Time) error {
	var sets []string
	var args []interface{}
	// 필드명은 domain.TrackedFields 상수이므로 컬럼명으로 그대로 사용
	for _, fv := range changes.Fields() {
		sets = append(sets, fv.Field+" = ?")
		args = append(args, fv.Value)
	}
	sets = append(sets, "modified_by = ?", "modified_date = ?")
	args = append(args, modifiedBy, at, postID, branchID)

	_, err := r.exec.Execute(ctx, store.Q(
		`UPDATE blog_post_branches SET `+strings.Join(sets, ", ")+` WHERE post_id = ? AND branch_id = ?`,
		args...,
	))
	if err != nil {
		return fmt.Errorf("update branch %s: %w", branchID, err)
	}
	return nil
}

func (r *branchRepository) SoftDelete(ctx context.Context, postID int64, branchID, deletedBy string, at time.Time) error {
	_, err := r.exec.Execute(ctx, store.Q(`
		UPDATE blog_post_branches
		SET is_active = ?, modified_by = ?, modified_date = ?
		WHERE post_id = ? AND branch_id = ?`,
		false, deletedBy, at, postID, branchID,
	))
	if err != nil {
		return fmt.Errorf("delete branch %s: %w", branchID, err)
	}
	return nil
}

func (r *branchRepository) MarkMerged(ctx context.Context, postID int64, branchID, mergedBy string, at time.Time) error {
	_, err := r.exec.Execute(ctx, store.Q(`
		UPDATE blog_post_branches
		SET is_merged = ?, merged_date = ?, merged_by = ?
		WHERE post_id = ? AND branch_id = ?`,
		true, at, mergedBy, postID, branchID,
	))
	if err != nil {
		return fmt.Errorf("mark branch %s merged: %w", branchID, err)
	}
	return nil
}

func mapRowToBranch(row store.Row) *domain.Branch {
	b := &domain.Branch{
		BranchID:       row.String("branch_id"),
		PostID:         row.Int64("post_id"),
		BranchName:     row.String("branch_name"),
		ParentBranchID: row.NullString("parent_branch_id"),
		BranchType:     domain.BranchType(row.String("branch_type")),
		Title:          row.String("title"),
		Slug:           row.String("slug"),
		Content:        row.String("content"),
		Excerpt:        row.String("excerpt"),
		Author:         row.String("author"),
		Status:         row.String("status"),
		Tags:           row.String("tags"),
		PublishedAt:    row.Time("published_at"),
		ScheduledDate:  row.Time("scheduled_date"),
		IsScheduled:    row.Bool("is_scheduled"),
		CreatedBy:      row.String("created_by"),
		ModifiedBy:     row.String("modified_by"),
		ModifiedDate:   row.Time("modified_date"),
		IsActive:       row.Bool("is_active"),
		IsMerged:       row.Bool("is_merged"),
		MergedDate:     row.Time("merged_date"),
		MergedBy:       row.String("merged_by"),
	}
	if t := row.Time("created_date"); t != nil {
		b.CreatedDate = *t
	}
	if b.ParentBranchID != nil && *b.ParentBranchID == "" {
		b.ParentBranchID = nil
	}
	return b
}
