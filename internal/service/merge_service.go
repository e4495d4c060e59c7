package service

import (
	"context"
	"fmt"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/repository"
	"github.com/damoang/angple-branch/pkg/logger"
)

// MergeService one-directional content copy between branches
type MergeService interface {
	MergeBranches(ctx context.Context, req *domain.MergeRequest) (*domain.MergeResult, error)
	ListMerges(ctx context.Context, postID int64) ([]*domain.MergeRecord, error)
}

type mergeService struct {
	branchSvc BranchService
	diffSvc   DiffService
	branches  repository.BranchRepository
	merges    repository.MergeRepository
	policy    ConflictPolicy
	opts      options
}

// NewMergeService creates a new MergeService; policy nil means NoConflictPolicy
func NewMergeService(
	branchSvc BranchService,
	diffSvc DiffService,
	branches repository.BranchRepository,
	merges repository.MergeRepository,
	policy ConflictPolicy,
	opts ...Option,
) MergeService {
	if policy == nil {
		policy = NoConflictPolicy{}
	}
	return &mergeService{
		branchSvc: branchSvc,
		diffSvc:   diffSvc,
		branches:  branches,
		merges:    merges,
		policy:    policy,
		opts:      applyOptions(opts),
	}
}

// MergeBranches copies every tracked field of FromBranch onto ToBranch.
//
// Validation errors return a nil result. Once the merge has started, a
// failure returns both a result (Success false, Conflicts = pre-merge diffs)
// and an error wrapping ErrMergeFailed and the cause.
func (s *mergeService) MergeBranches(ctx context.Context, req *domain.MergeRequest) (*domain.MergeResult, error) {
	if req == nil || req.FromBranch == "" || req.ToBranch == "" {
		return nil, fmt.Errorf("%w: from_branch and to_branch are required", common.ErrInvalidInput)
	}
	if req.MergedBy == "" {
		return nil, fmt.Errorf("%w: merged_by is required", common.ErrInvalidInput)
	}
	if req.ToBranch == domain.MainBranchID {
		return nil, common.ErrMergeIntoMain
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.MergeStrategyAuto
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", common.ErrInvalidInput, strategy)
	}

	log := logger.WithPost(req.PostID)
	if strategy != domain.MergeStrategyAuto {
		log.Warn().Str("strategy", string(strategy)).Msg("only auto merge is implemented, falling back")
	}

	mergeID := s.opts.newID()

	diffs, err := s.diffSvc.GenerateDiff(ctx, req.PostID, req.FromBranch, req.ToBranch)
	if err != nil {
		return s.fail(req, mergeID, nil, err)
	}
	if len(diffs) == 0 {
		// 변경 없음: 기록도 남기지 않으므로 MergeID 없음
		return &domain.MergeResult{Success: true}, nil
	}

	evaluated, err := s.policy.Evaluate(ctx, diffs, req.ConflictResolution)
	if err != nil {
		return s.fail(req, mergeID, diffs, err)
	}
	if flagged := conflicted(evaluated); len(flagged) > 0 {
		return s.fail(req, mergeID, flagged, common.ErrMergeConflict)
	}

	source, err := s.branchSvc.ResolveSnapshot(ctx, req.PostID, req.FromBranch)
	if err != nil {
		return s.fail(req, mergeID, diffs, err)
	}

	if _, err := s.branchSvc.UpdateBranch(ctx, req.PostID, req.ToBranch, domain.ChangesFromSnapshot(source), req.MergedBy); err != nil {
		return s.fail(req, mergeID, diffs, err)
	}

	now := s.opts.now()
	if req.FromBranch != domain.MainBranchID {
		if err := s.branches.MarkMerged(ctx, req.PostID, req.FromBranch, req.MergedBy, now); err != nil {
			return s.fail(req, mergeID, diffs, err)
		}
	}

	commitMessage := req.CommitMessage
	if commitMessage == "" {
		commitMessage = "Merged branch " + req.FromBranch
	}
	if err := s.merges.Insert(ctx, &domain.MergeRecord{
		MergeID:            mergeID,
		PostID:             req.PostID,
		FromBranchID:       req.FromBranch,
		ToBranchID:         req.ToBranch,
		MergeStrategy:      domain.MergeStrategyAuto,
		ConflictResolution: req.ConflictResolution,
		MergedBy:           req.MergedBy,
		MergedDate:         now,
		CommitMessage:      commitMessage,
		ChangesSummary:     fmt.Sprintf("Merged %d changes", len(diffs)),
	}); err != nil {
		return s.fail(req, mergeID, diffs, err)
	}

	log.Info().
		Str("merge_id", mergeID).
		Str("from", req.FromBranch).
		Str("to", req.ToBranch).
		Int("changes", len(diffs)).
		Msg("branches merged")

	return &domain.MergeResult{Success: true, MergeID: mergeID}, nil
}

func (s *mergeService) fail(req *domain.MergeRequest, mergeID string, diffs []domain.BranchDiff, cause error) (*domain.MergeResult, error) {
	log := logger.WithPost(req.PostID)
	log.Error().Err(cause).
		Str("merge_id", mergeID).
		Str("from", req.FromBranch).
		Str("to", req.ToBranch).
		Msg("merge failed")
	return &domain.MergeResult{Success: false, Conflicts: diffs},
		fmt.Errorf("%w: %s -> %s: %w", common.ErrMergeFailed, req.FromBranch, req.ToBranch, cause)
}

// ListMerges merge history newest first
func (s *mergeService) ListMerges(ctx context.Context, postID int64) ([]*domain.MergeRecord, error) {
	return s.merges.FindByPost(ctx, postID)
}
