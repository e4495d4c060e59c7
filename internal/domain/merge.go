package domain

import "time"

// MergeStrategy 머지 전략 (auto 만 구현됨)
type MergeStrategy string

const (
	MergeStrategyAuto       MergeStrategy = "auto"
	MergeStrategyManual     MergeStrategy = "manual"
	MergeStrategyAIAssisted MergeStrategy = "ai-assisted"
)

// IsValid reports whether s is a known merge strategy
func (s MergeStrategy) IsValid() bool {
	switch s {
	case MergeStrategyAuto, MergeStrategyManual, MergeStrategyAIAssisted:
		return true
	}
	return false
}

// MergeRecord is the immutable audit row of a completed merge
type MergeRecord struct {
	MergeID            string        `gorm:"column:merge_id;type:varchar(64);primaryKey" json:"merge_id"`
	PostID             int64         `gorm:"column:post_id;index" json:"post_id"`
	FromBranchID       string        `gorm:"column:from_branch_id;type:varchar(64)" json:"from_branch_id"`
	ToBranchID         string        `gorm:"column:to_branch_id;type:varchar(64)" json:"to_branch_id"`
	MergeStrategy      MergeStrategy `gorm:"column:merge_strategy;type:varchar(20)" json:"merge_strategy"`
	ConflictResolution string        `gorm:"column:conflict_resolution;type:text" json:"conflict_resolution,omitempty"`
	MergedBy           string        `gorm:"column:merged_by;type:varchar(255)" json:"merged_by"`
	MergedDate         time.Time     `gorm:"column:merged_date" json:"merged_date"`
	CommitMessage      string        `gorm:"column:merge_commit_message;type:text" json:"commit_message,omitempty"`
	ChangesSummary     string        `gorm:"column:changes_summary;type:text" json:"changes_summary,omitempty"`
}

func (MergeRecord) TableName() string { return "blog_post_merges" }

// MergeRequest 머지 요청
type MergeRequest struct {
	PostID             int64         `json:"post_id"`
	FromBranch         string        `json:"from_branch" binding:"required"`
	ToBranch           string        `json:"to_branch" binding:"required"`
	MergedBy           string        `json:"-"`
	Strategy           MergeStrategy `json:"strategy,omitempty"`
	CommitMessage      string        `json:"commit_message,omitempty"`
	ConflictResolution string        `json:"conflict_resolution,omitempty"`
}

// MergeResult outcome of MergeBranches.
// Conflicts carries the pre-merge diffs when the merge did not complete.
type MergeResult struct {
	Success   bool         `json:"success"`
	MergeID   string       `json:"merge_id,omitempty"`
	Conflicts []BranchDiff `json:"conflicts,omitempty"`
}

// AnalysisResult a thin summary built from a diff
type AnalysisResult struct {
	ChangesSummary     string   `json:"changes_summary"`
	ImpactScore        int      `json:"impact_score"`
	ChangeTypes        []string `json:"change_types"`
	RecommendedActions []string `json:"recommended_actions"`
}
