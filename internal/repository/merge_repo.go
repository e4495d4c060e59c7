package repository

import (
	"context"
	"fmt"

	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/store"
)

// MergeRepository handles blog_post_merges rows
type MergeRepository interface {
	Insert(ctx context.Context, m *domain.MergeRecord) error
	// FindByPost returns merge records newest first
	FindByPost(ctx context.Context, postID int64) ([]*domain.MergeRecord, error)
}

type mergeRepository struct {
	exec store.Executor
}

// NewMergeRepository creates a new MergeRepository
func NewMergeRepository(exec store.Executor) MergeRepository {
	return &mergeRepository{exec: exec}
}

func (r *mergeRepository) Insert(ctx context.Context, m *domain.MergeRecord) error {
	_, err := r.exec.Execute(ctx, store.Q(`
		INSERT INTO blog_post_merges (
			merge_id, post_id, from_branch_id, to_branch_id, merge_strategy,
			conflict_resolution, merged_by, merged_date, merge_commit_message, changes_summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MergeID, m.PostID, m.FromBranchID, m.ToBranchID, string(m.MergeStrategy),
		m.ConflictResolution, m.MergedBy, m.MergedDate, m.CommitMessage, m.ChangesSummary,
	))
	if err != nil {
		return fmt.Errorf("insert merge %s: %w", m.MergeID, err)
	}
	return nil
}

func (r *mergeRepository) FindByPost(ctx context.Context, postID int64) ([]*domain.MergeRecord, error) {
	rs, err := r.exec.Execute(ctx, store.Q(`
		SELECT merge_id, post_id, from_branch_id, to_branch_id, merge_strategy,
			conflict_resolution, merged_by, merged_date, merge_commit_message, changes_summary
		FROM blog_post_merges
		WHERE post_id = ?
		ORDER BY merged_date DESC, merge_id DESC`, postID))
	if err != nil {
		return nil, err
	}

	records := make([]*domain.MergeRecord, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		m := &domain.MergeRecord{
			MergeID:            row.String("merge_id"),
			PostID:             row.Int64("post_id"),
			FromBranchID:       row.String("from_branch_id"),
			ToBranchID:         row.String("to_branch_id"),
			MergeStrategy:      domain.MergeStrategy(row.String("merge_strategy")),
			ConflictResolution: row.String("conflict_resolution"),
			MergedBy:           row.String("merged_by"),
			CommitMessage:      row.String("merge_commit_message"),
			ChangesSummary:     row.String("changes_summary"),
		}
		if t := row.Time("merged_date"); t != nil {
			m.MergedDate = *t
		}
		records = append(records, m)
	}
	return records, nil
}
