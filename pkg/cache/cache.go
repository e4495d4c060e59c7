package cache

import (
	"context"
	"errors"
	"time"
)

// TTL 상수 정의
const (
	TTLBranchList    = 5 * time.Minute  // 브랜치 목록
	TTLBranchContent = 10 * time.Minute // 브랜치 본문
	TTLDiff          = 2 * time.Minute  // diff 결과 (자주 바뀜)
	TTLMergeHistory  = 15 * time.Minute // 머지 이력
)

// 캐시 키 네임스페이스
const (
	NSBranches      = "branches"
	NSBranchContent = "branch_content"
	NSDiff          = "diff"
	NSMergeHistory  = "merge_history"
)

// ErrMiss is returned by Backend.Get for absent or expired keys
var ErrMiss = errors.New("cache miss")

// Backend stores serialized entries with a TTL.
// Keys returns every stored key with the given prefix, including entries
// that have expired but were not read since.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Flush(ctx context.Context) error
	Name() string
}
