package domain

import "time"

// MainBranchID is the sentinel identifier for the primary post record.
// It is never stored in blog_post_branches.
const MainBranchID = "main"

// BranchType 브랜치 유형
type BranchType string

const (
	BranchTypeMain    BranchType = "main"
	BranchTypeFeature BranchType = "feature"
	BranchTypeHotfix  BranchType = "hotfix"
	BranchTypeDraft   BranchType = "draft"
	BranchTypeReview  BranchType = "review"
)

// IsValid reports whether t is a known branch type
func (t BranchType) IsValid() bool {
	switch t {
	case BranchTypeMain, BranchTypeFeature, BranchTypeHotfix, BranchTypeDraft, BranchTypeReview:
		return true
	}
	return false
}

// Post is the primary (main) blog post record
type Post struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title         string     `gorm:"column:title;type:varchar(500)" json:"title"`
	Slug          string     `gorm:"column:slug;type:varchar(500)" json:"slug"`
	Content       string     `gorm:"column:content;type:text" json:"content"`
	Excerpt       string     `gorm:"column:excerpt;type:text" json:"excerpt"`
	Author        string     `gorm:"column:author;type:varchar(255)" json:"author"`
	Status        string     `gorm:"column:status;type:varchar(50);default:'draft'" json:"status"`
	Tags          string     `gorm:"column:tags;type:varchar(1000)" json:"tags"`
	PublishedAt   *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	ScheduledDate *time.Time `gorm:"column:scheduled_date" json:"scheduled_date,omitempty"`
	IsScheduled   bool       `gorm:"column:is_scheduled;default:false" json:"is_scheduled"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Post) TableName() string { return "blog_posts" }

// Snapshot returns the tracked content fields of the post
func (p *Post) Snapshot() Snapshot {
	return Snapshot{
		Title:   p.Title,
		Content: p.Content,
		Excerpt: p.Excerpt,
		Tags:    p.Tags,
		Status:  p.Status,
	}
}

// Branch is a full content snapshot of a post, not a delta
type Branch struct {
	BranchID       string     `gorm:"column:branch_id;type:varchar(64);primaryKey" json:"branch_id"`
	PostID         int64      `gorm:"column:post_id;index" json:"post_id"`
	BranchName     string     `gorm:"column:branch_name;type:varchar(255)" json:"branch_name"`
	ParentBranchID *string    `gorm:"column:parent_branch_id;type:varchar(64)" json:"parent_branch_id,omitempty"`
	BranchType     BranchType `gorm:"column:branch_type;type:varchar(20);default:'feature'" json:"branch_type"`

	Title         string     `gorm:"column:title;type:varchar(500)" json:"title"`
	Slug          string     `gorm:"column:slug;type:varchar(500)" json:"slug,omitempty"`
	Content       string     `gorm:"column:content;type:text" json:"content,omitempty"`
	Excerpt       string     `gorm:"column:excerpt;type:text" json:"excerpt,omitempty"`
	Author        string     `gorm:"column:author;type:varchar(255)" json:"author,omitempty"`
	Status        string     `gorm:"column:status;type:varchar(50)" json:"status,omitempty"`
	Tags          string     `gorm:"column:tags;type:varchar(1000)" json:"tags,omitempty"`
	PublishedAt   *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	ScheduledDate *time.Time `gorm:"column:scheduled_date" json:"scheduled_date,omitempty"`
	IsScheduled   bool       `gorm:"column:is_scheduled;default:false" json:"is_scheduled"`

	CreatedBy    string     `gorm:"column:created_by;type:varchar(255)" json:"created_by,omitempty"`
	CreatedDate  time.Time  `gorm:"column:created_date;index" json:"created_date"`
	ModifiedBy   string     `gorm:"column:modified_by;type:varchar(255)" json:"modified_by,omitempty"`
	ModifiedDate *time.Time `gorm:"column:modified_date" json:"modified_date,omitempty"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
	IsMerged     bool       `gorm:"column:is_merged;default:false" json:"is_merged"`
	MergedDate   *time.Time `gorm:"column:merged_date" json:"merged_date,omitempty"`
	MergedBy     string     `gorm:"column:merged_by;type:varchar(255)" json:"merged_by,omitempty"`
}

func (Branch) TableName() string { return "blog_post_branches" }

// Snapshot returns the tracked content fields of the branch
func (b *Branch) Snapshot() Snapshot {
	return Snapshot{
		Title:   b.Title,
		Content: b.Content,
		Excerpt: b.Excerpt,
		Tags:    b.Tags,
		Status:  b.Status,
	}
}

// BranchChanges is a partial update of the tracked fields.
// nil means "not supplied"; an empty string is a real value.
type BranchChanges struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Excerpt *string `json:"excerpt,omitempty"`
	Tags    *string `json:"tags,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// IsEmpty reports whether no field was supplied
func (c BranchChanges) IsEmpty() bool {
	return c.Title == nil && c.Content == nil && c.Excerpt == nil && c.Tags == nil && c.Status == nil
}

// Fields returns the supplied fields in tracked-field order
func (c BranchChanges) Fields() []FieldValue {
	var out []FieldValue
	for _, f := range []struct {
		name  string
		value *string
	}{
		{FieldTitle, c.Title},
		{FieldContent, c.Content},
		{FieldExcerpt, c.Excerpt},
		{FieldTags, c.Tags},
		{FieldStatus, c.Status},
	} {
		if f.value != nil {
			out = append(out, FieldValue{Field: f.name, Value: *f.value})
		}
	}
	return out
}

// ChangesFromSnapshot builds a full overwrite of every tracked field
func ChangesFromSnapshot(s Snapshot) BranchChanges {
	return BranchChanges{
		Title:   &s.Title,
		Content: &s.Content,
		Excerpt: &s.Excerpt,
		Tags:    &s.Tags,
		Status:  &s.Status,
	}
}

// FieldValue a single tracked field with its value
type FieldValue struct {
	Field string
	Value string
}

// CreateBranchRequest 브랜치 생성 요청
type CreateBranchRequest struct {
	PostID         int64         `json:"post_id"`
	BranchName     string        `json:"branch_name" binding:"required"`
	ParentBranchID string        `json:"parent_branch_id,omitempty"`
	BranchType     BranchType    `json:"branch_type,omitempty"`
	CreatedBy      string        `json:"-"`
	InitialChanges BranchChanges `json:"initial_changes"`
}
