package service

import (
	"context"

	"github.com/damoang/angple-branch/internal/domain"
)

// ConflictPolicy decides which pre-merge diffs are conflicts.
// Returned diffs with Conflicted set abort the merge.
type ConflictPolicy interface {
	Evaluate(ctx context.Context, diffs []domain.BranchDiff, resolution string) ([]domain.BranchDiff, error)
}

// ConflictPolicyFunc adapts a function to ConflictPolicy
type ConflictPolicyFunc func(ctx context.Context, diffs []domain.BranchDiff, resolution string) ([]domain.BranchDiff, error)

func (f ConflictPolicyFunc) Evaluate(ctx context.Context, diffs []domain.BranchDiff, resolution string) ([]domain.BranchDiff, error) {
	return f(ctx, diffs, resolution)
}

// NoConflictPolicy flags nothing: every merge is a theirs-wins overwrite
type NoConflictPolicy struct{}

func (NoConflictPolicy) Evaluate(_ context.Context, diffs []domain.BranchDiff, _ string) ([]domain.BranchDiff, error) {
	return diffs, nil
}

func conflicted(diffs []domain.BranchDiff) []domain.BranchDiff {
	var out []domain.BranchDiff
	for _, d := range diffs {
		if d.Conflicted {
			out = append(out, d)
		}
	}
	return out
}
