package domain

// Tracked content fields, in diff order
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldExcerpt = "excerpt"
	FieldTags    = "tags"
	FieldStatus  = "status"
)

// TrackedFields is the fixed field-iteration order used by diff and merge
var TrackedFields = []string{FieldTitle, FieldContent, FieldExcerpt, FieldTags, FieldStatus}

// Snapshot is the complete set of tracked content fields at a point in time
type Snapshot struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
	Tags    string `json:"tags"`
	Status  string `json:"status"`
}

// Field returns the value of a tracked field, or "" for an unknown name
func (s Snapshot) Field(name string) string {
	switch name {
	case FieldTitle:
		return s.Title
	case FieldContent:
		return s.Content
	case FieldExcerpt:
		return s.Excerpt
	case FieldTags:
		return s.Tags
	case FieldStatus:
		return s.Status
	}
	return ""
}

// Apply overlays the supplied changes onto the snapshot
func (s Snapshot) Apply(c BranchChanges) Snapshot {
	if c.Title != nil {
		s.Title = *c.Title
	}
	if c.Content != nil {
		s.Content = *c.Content
	}
	if c.Excerpt != nil {
		s.Excerpt = *c.Excerpt
	}
	if c.Tags != nil {
		s.Tags = *c.Tags
	}
	if c.Status != nil {
		s.Status = *c.Status
	}
	return s
}
