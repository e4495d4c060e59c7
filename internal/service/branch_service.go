package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/repository"
	"github.com/damoang/angple-branch/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultBranchTitle  = "Untitled Branch"
	defaultBranchStatus = "draft"

	// DefaultSettleDelay 생성 후 재조회 전 대기 시간 (복제 지연 대비)
	DefaultSettleDelay = 100 * time.Millisecond
)

// BranchService branch lifecycle: create, read, update, soft-delete, history
type BranchService interface {
	CreateBranch(ctx context.Context, req *domain.CreateBranchRequest) (*domain.Branch, error)
	ListBranches(ctx context.Context, postID int64) ([]*domain.Branch, error)
	GetBranch(ctx context.Context, postID int64, branchID string) (*domain.Branch, error)
	UpdateBranch(ctx context.Context, postID int64, branchID string, changes domain.BranchChanges, modifiedBy string) (*domain.Branch, error)
	DeleteBranch(ctx context.Context, postID int64, branchID, deletedBy string) (bool, error)
	GetBranchHistory(ctx context.Context, postID int64, branchID string) ([]*domain.ChangeLogEntry, error)
	// ResolveSnapshot maps a branch id (or "main") to its tracked fields
	ResolveSnapshot(ctx context.Context, postID int64, branchID string) (domain.Snapshot, error)
}

// Option configures services (clock, settle delay, id generator)
type Option func(*options)

type options struct {
	now         func() time.Time
	newID       func() string
	settleDelay time.Duration
}

func defaultOptions() options {
	return options{
		now:         func() time.Time { return time.Now().UTC() },
		newID:       newTimeOrderedID,
		settleDelay: DefaultSettleDelay,
	}
}

// newTimeOrderedID uuid v7 so ids written in one call sort in write order
func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// WithClock overrides time.Now (tests)
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides uuid generation
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithSettleDelay sets the pause between insert and read-back on create
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) { o.settleDelay = d }
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type branchService struct {
	branches  repository.BranchRepository
	posts     repository.PostRepository
	changeLog repository.ChangeLogRepository
	opts      options
}

// NewBranchService creates a new BranchService
func NewBranchService(
	branches repository.BranchRepository,
	posts repository.PostRepository,
	changeLog repository.ChangeLogRepository,
	opts ...Option,
) BranchService {
	return &branchService{
		branches:  branches,
		posts:     posts,
		changeLog: changeLog,
		opts:      applyOptions(opts),
	}
}

// CreateBranch copies the parent (main post or another branch), overlays the
// initial changes, stores the row and reads it back.
func (s *branchService) CreateBranch(ctx context.Context, req *domain.CreateBranchRequest) (*domain.Branch, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", common.ErrInvalidInput)
	}
	name := strings.TrimSpace(req.BranchName)
	if name == "" {
		return nil, fmt.Errorf("%w: branch_name is required", common.ErrInvalidInput)
	}
	if req.CreatedBy == "" {
		return nil, fmt.Errorf("%w: created_by is required", common.ErrInvalidInput)
	}
	branchType := req.BranchType
	if branchType == "" {
		branchType = domain.BranchTypeFeature
	}
	if !branchType.IsValid() {
		return nil, fmt.Errorf("%w: unknown branch_type %q", common.ErrInvalidInput, branchType)
	}

	branch, err := s.copyParent(ctx, req.PostID, req.ParentBranchID)
	if err != nil {
		return nil, err
	}

	snap := branch.Snapshot().Apply(req.InitialChanges)
	if snap.Title == "" {
		snap.Title = defaultBranchTitle
	}
	if snap.Status == "" {
		snap.Status = defaultBranchStatus
	}

	now := s.opts.now()
	branch.BranchID = s.opts.newID()
	branch.PostID = req.PostID
	branch.BranchName = name
	branch.BranchType = branchType
	branch.Title = snap.Title
	branch.Content = snap.Content
	branch.Excerpt = snap.Excerpt
	branch.Tags = snap.Tags
	branch.Status = snap.Status
	branch.CreatedBy = req.CreatedBy
	branch.CreatedDate = now
	branch.IsActive = true

	if err := s.branches.Insert(ctx, branch); err != nil {
		return nil, err
	}

	branchID := branch.BranchID
	if err := s.changeLog.Append(ctx, &domain.ChangeLogEntry{
		ChangeID:    s.opts.newID(),
		PostID:      req.PostID,
		BranchID:    &branchID,
		ChangeType:  domain.ChangeBranchCreated,
		NewValue:    &branchID,
		ChangedBy:   req.CreatedBy,
		ChangedDate: now,
		Description: fmt.Sprintf("Created branch '%s' of type '%s'", name, branchType),
	}); err != nil {
		return nil, err
	}

	if s.opts.settleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.settleDelay):
		}
	}

	created, err := s.branches.FindByID(ctx, req.PostID, branchID)
	if err != nil {
		if errors.Is(err, common.ErrBranchNotFound) {
			return nil, fmt.Errorf("created branch %s not readable after %s: %w", branchID, s.opts.settleDelay, err)
		}
		return nil, err
	}

	log := logger.WithPost(req.PostID)
	log.Info().
		Str("branch_id", branchID).
		Str("branch_type", string(branchType)).
		Str("created_by", req.CreatedBy).
		Msg("branch created")

	return created, nil
}

// copyParent returns a fresh Branch carrying the parent's content fields.
// "main" or "" copies the primary post; a missing post yields empty fields.
func (s *branchService) copyParent(ctx context.Context, postID int64, parentID string) (*domain.Branch, error) {
	if parentID == "" || parentID == domain.MainBranchID {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, common.ErrPostNotFound) {
				log := logger.WithPost(postID)
				log.Warn().Msg("primary post not found, branching from empty content")
				return &domain.Branch{}, nil
			}
			return nil, err
		}
		return &domain.Branch{
			Title:         post.Title,
			Slug:          post.Slug,
			Content:       post.Content,
			Excerpt:       post.Excerpt,
			Author:        post.Author,
			Status:        post.Status,
			Tags:          post.Tags,
			PublishedAt:   post.PublishedAt,
			ScheduledDate: post.ScheduledDate,
			IsScheduled:   post.IsScheduled,
		}, nil
	}

	parent, err := s.branches.FindByID(ctx, postID, parentID)
	if err != nil {
		return nil, err
	}
	pid := parent.BranchID
	return &domain.Branch{
		ParentBranchID: &pid,
		Title:          parent.Title,
		Slug:           parent.Slug,
		Content:        parent.Content,
		Excerpt:        parent.Excerpt,
		Author:         parent.Author,
		Status:         parent.Status,
		Tags:           parent.Tags,
		PublishedAt:    parent.PublishedAt,
		ScheduledDate:  parent.ScheduledDate,
		IsScheduled:    parent.IsScheduled,
	}, nil
}

// ListBranches active branches, newest first
func (s *branchService) ListBranches(ctx context.Context, postID int64) ([]*domain.Branch, error) {
	return s.branches.ListActive(ctx, postID)
}

// GetBranch returns the branch even when soft-deleted
func (s *branchService) GetBranch(ctx context.Context, postID int64, branchID string) (*domain.Branch, error) {
	if branchID == "" {
		return nil, fmt.Errorf("%w: branch id is required", common.ErrInvalidInput)
	}
	return s.branches.FindByID(ctx, postID, branchID)
}

// UpdateBranch patches supplied fields and writes one content_modified entry per field
func (s *branchService) UpdateBranch(ctx context.Context, postID int64, branchID string, changes domain.BranchChanges, modifiedBy string) (*domain.Branch, error) {
	if modifiedBy == "" {
		return nil, fmt.Errorf("%w: modified_by is required", common.ErrInvalidInput)
	}
	current, err := s.GetBranch(ctx, postID, branchID)
	if err != nil {
		return nil, err
	}
	if changes.IsEmpty() {
		return current, nil
	}

	now := s.opts.now()
	if err := s.branches.UpdateFields(ctx, postID, branchID, changes, modifiedBy, now); err != nil {
		return nil, err
	}

	before := current.Snapshot()
	for _, fv := range changes.Fields() {
		field, oldValue, newValue := fv.Field, before.Field(fv.Field), fv.Value
		bid := branchID
		if err := s.changeLog.Append(ctx, &domain.ChangeLogEntry{
			ChangeID:    s.opts.newID(),
			PostID:      postID,
			BranchID:    &bid,
			ChangeType:  domain.ChangeContentModified,
			FieldName:   &field,
			OldValue:    &oldValue,
			NewValue:    &newValue,
			ChangedBy:   modifiedBy,
			ChangedDate: now,
			Description: "Modified " + field,
		}); err != nil {
			return nil, err
		}
	}

	return s.branches.FindByID(ctx, postID, branchID)
}

// DeleteBranch soft-deletes; "main" is protected
func (s *branchService) DeleteBranch(ctx context.Context, postID int64, branchID, deletedBy string) (bool, error) {
	if branchID == domain.MainBranchID {
		return false, common.ErrProtectedBranch
	}
	if deletedBy == "" {
		return false, fmt.Errorf("%w: deleted_by is required", common.ErrInvalidInput)
	}
	branch, err := s.GetBranch(ctx, postID, branchID)
	if err != nil {
		return false, err
	}

	now := s.opts.now()
	if err := s.branches.SoftDelete(ctx, postID, branchID, deletedBy, now); err != nil {
		return false, err
	}

	bid := branchID
	if err := s.changeLog.Append(ctx, &domain.ChangeLogEntry{
		ChangeID:    s.opts.newID(),
		PostID:      postID,
		BranchID:    &bid,
		ChangeType:  domain.ChangeBranchDeleted,
		ChangedBy:   deletedBy,
		ChangedDate: now,
		Description: fmt.Sprintf("Deleted branch '%s'", branch.BranchName),
	}); err != nil {
		return false, err
	}

	log := logger.WithPost(postID)
	log.Info().Str("branch_id", branchID).Str("deleted_by", deletedBy).Msg("branch deleted")
	return true, nil
}

// GetBranchHistory change log newest first; branchID "" returns the whole post
func (s *branchService) GetBranchHistory(ctx context.Context, postID int64, branchID string) ([]*domain.ChangeLogEntry, error) {
	return s.changeLog.FindByPost(ctx, postID, branchID)
}

// ResolveSnapshot "main" reads the primary post (empty when missing),
// anything else reads the branch row including soft-deleted ones.
func (s *branchService) ResolveSnapshot(ctx context.Context, postID int64, branchID string) (domain.Snapshot, error) {
	if branchID == domain.MainBranchID {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, common.ErrPostNotFound) {
				return domain.Snapshot{}, nil
			}
			return domain.Snapshot{}, err
		}
		return post.Snapshot(), nil
	}
	branch, err := s.GetBranch(ctx, postID, branchID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return branch.Snapshot(), nil
}
