package domain

import "time"

// ChangeType 변경 로그 유형
type ChangeType string

const (
	ChangeBranchCreated   ChangeType = "branch_created"
	ChangeContentModified ChangeType = "content_modified"
	ChangeBranchDeleted   ChangeType = "branch_deleted"
)

// ChangeLogEntry is an append-only audit row; never updated or deleted
type ChangeLogEntry struct {
	ChangeID    string     `gorm:"column:change_id;type:varchar(64);primaryKey" json:"change_id"`
	PostID      int64      `gorm:"column:post_id;index" json:"post_id"`
	BranchID    *string    `gorm:"column:branch_id;type:varchar(64);index" json:"branch_id,omitempty"`
	ChangeType  ChangeType `gorm:"column:change_type;type:varchar(50)" json:"change_type"`
	FieldName   *string    `gorm:"column:field_name;type:varchar(50)" json:"field_name,omitempty"`
	OldValue    *string    `gorm:"column:old_value;type:text" json:"old_value,omitempty"`
	NewValue    *string    `gorm:"column:new_value;type:text" json:"new_value,omitempty"`
	ChangedBy   string     `gorm:"column:changed_by;type:varchar(255)" json:"changed_by"`
	ChangedDate time.Time  `gorm:"column:changed_date;index" json:"changed_date"`
	Description string     `gorm:"column:change_description;type:text" json:"description"`
}

func (ChangeLogEntry) TableName() string { return "blog_post_change_log" }

// DiffChangeType how a field differs between two snapshots
type DiffChangeType string

const (
	DiffAdded    DiffChangeType = "added"
	DiffModified DiffChangeType = "modified"
	DiffRemoved  DiffChangeType = "removed"
)

// BranchDiff a single differing tracked field. Not persisted.
type BranchDiff struct {
	Field         string         `json:"field"`
	OriginalValue string         `json:"original_value"`
	NewValue      string         `json:"new_value"`
	ChangeType    DiffChangeType `json:"change_type"`
	Conflicted    bool           `json:"conflicted"`
}

// DiffResult is what the diff endpoint returns and caches
type DiffResult struct {
	Diffs    []BranchDiff   `json:"diffs"`
	Analysis AnalysisResult `json:"analysis"`
}
