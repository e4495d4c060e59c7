package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// recommendedActions 고정 권장 사항
var recommendedActions = []string{
	"Review changes carefully",
	"Test functionality after merge",
	"Update documentation if needed",
}

// SnapshotResolver maps a branch id (or "main") to tracked fields
type SnapshotResolver interface {
	ResolveSnapshot(ctx context.Context, postID int64, branchID string) (domain.Snapshot, error)
}

// DiffService field-level comparison between two branches
type DiffService interface {
	GenerateDiff(ctx context.Context, postID int64, fromBranch, toBranch string) ([]domain.BranchDiff, error)
	AnalyzeChanges(ctx context.Context, postID int64, fromBranch, toBranch string) (*domain.AnalysisResult, error)
}

type diffService struct {
	resolver SnapshotResolver
}

// NewDiffService creates a new DiffService
func NewDiffService(resolver SnapshotResolver) DiffService {
	return &diffService{resolver: resolver}
}

// GenerateDiff resolves both sides concurrently and compares the tracked fields
func (s *diffService) GenerateDiff(ctx context.Context, postID int64, fromBranch, toBranch string) ([]domain.BranchDiff, error) {
	if fromBranch == "" || toBranch == "" {
		return nil, fmt.Errorf("%w: from and to branches are required", common.ErrInvalidInput)
	}

	var from, to domain.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		from, err = s.resolver.ResolveSnapshot(gctx, postID, fromBranch)
		return err
	})
	g.Go(func() error {
		var err error
		to, err = s.resolver.ResolveSnapshot(gctx, postID, toBranch)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return CompareSnapshots(from, to), nil
}

// AnalyzeChanges summarizes the diff between two branches
func (s *diffService) AnalyzeChanges(ctx context.Context, postID int64, fromBranch, toBranch string) (*domain.AnalysisResult, error) {
	diffs, err := s.GenerateDiff(ctx, postID, fromBranch, toBranch)
	if err != nil {
		return nil, err
	}
	return Analyze(diffs), nil
}

// CompareSnapshots walks the tracked fields in order. `from` is the origin
// (OriginalValue) and `to` the destination (NewValue).
func CompareSnapshots(from, to domain.Snapshot) []domain.BranchDiff {
	diffs := make([]domain.BranchDiff, 0, len(domain.TrackedFields))
	for _, field := range domain.TrackedFields {
		original, newValue := from.Field(field), to.Field(field)
		if original == newValue {
			continue
		}
		changeType := domain.DiffModified
		switch {
		case original == "":
			changeType = domain.DiffAdded
		case newValue == "":
			changeType = domain.DiffRemoved
		}
		diffs = append(diffs, domain.BranchDiff{
			Field:         field,
			OriginalValue: original,
			NewValue:      newValue,
			ChangeType:    changeType,
		})
	}
	return diffs
}

// Analyze builds the thin analysis: count, 20 points per diff capped at 100,
// capitalized distinct change types in first-seen order.
func Analyze(diffs []domain.BranchDiff) *domain.AnalysisResult {
	caser := cases.Title(language.English)
	seen := make(map[domain.DiffChangeType]struct{}, 3)
	types := make([]string, 0, 3)
	for _, d := range diffs {
		if _, ok := seen[d.ChangeType]; ok {
			continue
		}
		seen[d.ChangeType] = struct{}{}
		types = append(types, caser.String(strings.ToLower(string(d.ChangeType))))
	}

	score := len(diffs) * 20
	if score > 100 {
		score = 100
	}

	actions := make([]string, len(recommendedActions))
	copy(actions, recommendedActions)

	return &domain.AnalysisResult{
		ChangesSummary:     fmt.Sprintf("%d changes detected across %d change types", len(diffs), len(types)),
		ImpactScore:        score,
		ChangeTypes:        types,
		RecommendedActions: actions,
	}
}
