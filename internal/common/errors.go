package common

import (
	"errors"
	"fmt"
)

// Business logic errors
var (
	// General errors
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = errors.New("invalid operation")

	// Post / branch errors
	ErrPostNotFound   = fmt.Errorf("post %w", ErrNotFound)
	ErrBranchNotFound = fmt.Errorf("branch %w", ErrNotFound)

	// 보호된 main 브랜치 조작
	ErrProtectedBranch = fmt.Errorf("%w: main branch cannot be deleted", ErrInvalidOperation)
	ErrMergeIntoMain   = fmt.Errorf("%w: merging into main is not supported", ErrInvalidOperation)

	// Merge errors
	ErrMergeFailed   = errors.New("merge failed")
	ErrMergeConflict = fmt.Errorf("%w: conflicting changes", ErrMergeFailed)

	// Store errors (query executor failures, always propagated)
	ErrStoreFailure = errors.New("store failure")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)
