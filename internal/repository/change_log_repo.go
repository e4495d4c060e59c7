package repository

import (
	"context"
	"fmt"

	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/store"
)

// ChangeLogRepository is append-only: there is no update or delete path
type ChangeLogRepository interface {
	Append(ctx context.Context, entry *domain.ChangeLogEntry) error
	// FindByPost returns entries newest first (change_id breaks ties); branchID "" means every branch
	FindByPost(ctx context.Context, postID int64, branchID string) ([]*domain.ChangeLogEntry, error)
}

type changeLogRepository struct {
	exec store.Executor
}

// NewChangeLogRepository creates a new ChangeLogRepository
func NewChangeLogRepository(exec store.Executor) ChangeLogRepository {
	return &changeLogRepository{exec: exec}
}

func (r *changeLogRepository) Append(ctx context.Context, e *domain.ChangeLogEntry) error {
	_, err := r.exec.Execute(ctx, store.Q(`
		INSERT INTO blog_post_change_log (
			change_id, post_id, branch_id, change_type, field_name,
			old_value, new_value, changed_by, changed_date, change_description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ChangeID, e.PostID, e.BranchID, string(e.ChangeType), e.FieldName,
		e.OldValue, e.NewValue, e.ChangedBy, e.ChangedDate, e.Description,
	))
	if err != nil {
		return fmt.Errorf("append change log %s: %w", e.ChangeType, err)
	}
	return nil
}

func (r *changeLogRepository) FindByPost(ctx context.Context, postID int64, branchID string) ([]*domain.ChangeLogEntry, error) {
	stmt := store.Q(`
		SELECT change_id, post_id, branch_id, change_type, field_name,
			old_value, new_value, changed_by, changed_date, change_description
		FROM blog_post_change_log
		WHERE post_id = ?
		ORDER BY changed_date DESC, change_id DESC`, postID)
	if branchID != "" {
		stmt = store.Q(`
		SELECT change_id, post_id, branch_id, change_type, field_name,
			old_value, new_value, changed_by, changed_date, change_description
		FROM blog_post_change_log
		WHERE post_id = ? AND branch_id = ?
		ORDER BY changed_date DESC, change_id DESC`, postID, branchID)
	}

	rs, err := r.exec.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.ChangeLogEntry, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		e := &domain.ChangeLogEntry{
			ChangeID:    row.String("change_id"),
			PostID:      row.Int64("post_id"),
			BranchID:    row.NullString("branch_id"),
			ChangeType:  domain.ChangeType(row.String("change_type")),
			FieldName:   row.NullString("field_name"),
			OldValue:    row.NullString("old_value"),
			NewValue:    row.NullString("new_value"),
			ChangedBy:   row.String("changed_by"),
			Description: row.String("change_description"),
		}
		if t := row.Time("changed_date"); t != nil {
			e.ChangedDate = *t
		}
		entries = append(entries, e)
	}
	return entries, nil
}
