package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "branch_cache_requests_total",
		Help: "Branch cache lookups by namespace and result",
	},
	[]string{"namespace", "result"},
)

// Config TTL per namespace
type Config struct {
	BranchListTTL    time.Duration
	BranchContentTTL time.Duration
	DiffTTL          time.Duration
	MergeHistoryTTL  time.Duration
}

// DefaultConfig 기본 캐시 설정
func DefaultConfig() Config {
	return Config{
		BranchListTTL:    TTLBranchList,
		BranchContentTTL: TTLBranchContent,
		DiffTTL:          TTLDiff,
		MergeHistoryTTL:  TTLMergeHistory,
	}
}

// BranchState latest known view of a branch. Never expires.
type BranchState struct {
	PostID       int64             `json:"post_id"`
	BranchID     string            `json:"branch_id"`
	BranchName   string            `json:"branch_name"`
	BranchType   domain.BranchType `json:"branch_type"`
	Title        string            `json:"title"`
	Status       string            `json:"status"`
	IsActive     bool              `json:"is_active"`
	IsMerged     bool              `json:"is_merged"`
	LastModified time.Time         `json:"last_modified"`
}

// Stats 캐시 현황
type Stats struct {
	Backend string   `json:"backend"`
	Entries int      `json:"entries"`
	States  int      `json:"states"`
	Keys    []string `json:"keys"`
}

// BranchCache namespaced TTL entries over a Backend plus the process-local
// branch-state projection. Callers invalidate after every write.
type BranchCache struct {
	backend Backend
	cfg     Config
	now     func() time.Time

	mu     sync.RWMutex
	states map[string]*BranchState
}

// NewBranchCache creates a BranchCache; zero TTLs fall back to defaults
func NewBranchCache(backend Backend, cfg Config) *BranchCache {
	def := DefaultConfig()
	if cfg.BranchListTTL <= 0 {
		cfg.BranchListTTL = def.BranchListTTL
	}
	if cfg.BranchContentTTL <= 0 {
		cfg.BranchContentTTL = def.BranchContentTTL
	}
	if cfg.DiffTTL <= 0 {
		cfg.DiffTTL = def.DiffTTL
	}
	if cfg.MergeHistoryTTL <= 0 {
		cfg.MergeHistoryTTL = def.MergeHistoryTTL
	}
	return &BranchCache{
		backend: backend,
		cfg:     cfg,
		now:     time.Now,
		states:  make(map[string]*BranchState),
	}
}

// SetClock overrides time.Now for the state projection (tests)
func (c *BranchCache) SetClock(now func() time.Time) {
	c.now = now
}

// Key builds "namespace:postId[:branchId][:extra]"
func Key(namespace string, postID int64, branchID, extra string) string {
	parts := []string{namespace, strconv.FormatInt(postID, 10)}
	if branchID != "" {
		parts = append(parts, branchID)
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, ":")
}

func stateKey(postID int64, branchID string) string {
	return strconv.FormatInt(postID, 10) + ":" + branchID
}

// ========================================
// 네임스페이스별 get/set
// ========================================

func (c *BranchCache) GetBranchList(ctx context.Context, postID int64) ([]*domain.Branch, bool) {
	var out []*domain.Branch
	if !c.get(ctx, NSBranches, Key(NSBranches, postID, "", ""), &out) {
		return nil, false
	}
	// 조회는 상태를 건드리지 않음 (MarkBranchAccessed 결과 유지)
	return out, true
}

func (c *BranchCache) SetBranchList(ctx context.Context, postID int64, branches []*domain.Branch) error {
	for _, b := range branches {
		c.NoteBranch(b)
	}
	return c.set(ctx, Key(NSBranches, postID, "", ""), branches, c.cfg.BranchListTTL)
}

func (c *BranchCache) GetBranchContent(ctx context.Context, postID int64, branchID string) (*domain.Branch, bool) {
	var out domain.Branch
	if !c.get(ctx, NSBranchContent, Key(NSBranchContent, postID, branchID, ""), &out) {
		return nil, false
	}
	return &out, true
}

func (c *BranchCache) SetBranchContent(ctx context.Context, postID int64, branchID string, branch *domain.Branch) error {
	c.NoteBranch(branch)
	return c.set(ctx, Key(NSBranchContent, postID, branchID, ""), branch, c.cfg.BranchContentTTL)
}

// diffExtra joins both sides with ":" since branch ids (uuid) contain "-"
func diffExtra(from, to string) string {
	return from + ":" + to
}

func (c *BranchCache) GetDiffResult(ctx context.Context, postID int64, from, to string) (*domain.DiffResult, bool) {
	var out domain.DiffResult
	if !c.get(ctx, NSDiff, Key(NSDiff, postID, "", diffExtra(from, to)), &out) {
		return nil, false
	}
	return &out, true
}

func (c *BranchCache) SetDiffResult(ctx context.Context, postID int64, from, to string, result *domain.DiffResult) error {
	return c.set(ctx, Key(NSDiff, postID, "", diffExtra(from, to)), result, c.cfg.DiffTTL)
}

func (c *BranchCache) GetMergeHistory(ctx context.Context, postID int64) ([]*domain.MergeRecord, bool) {
	var out []*domain.MergeRecord
	if !c.get(ctx, NSMergeHistory, Key(NSMergeHistory, postID, "", ""), &out) {
		return nil, false
	}
	return out, true
}

func (c *BranchCache) SetMergeHistory(ctx context.Context, postID int64, merges []*domain.MergeRecord) error {
	return c.set(ctx, Key(NSMergeHistory, postID, "", ""), merges, c.cfg.MergeHistoryTTL)
}

// get 백엔드 오류는 miss 로 취급 (캐시 장애가 요청을 실패시키지 않음)
func (c *BranchCache) get(ctx context.Context, namespace, key string, dest interface{}) bool {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.GetLogger().Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		cacheRequests.WithLabelValues(namespace, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.GetLogger().Warn().Err(err).Str("key", key).Msg("cache entry corrupt, dropping")
		_ = c.backend.Delete(ctx, key)
		cacheRequests.WithLabelValues(namespace, "miss").Inc()
		return false
	}
	cacheRequests.WithLabelValues(namespace, "hit").Inc()
	return true
}

func (c *BranchCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, key, data, ttl)
}

// ========================================
// 브랜치 상태 (TTL 없음, 프로세스 로컬)
// ========================================

// NoteBranch records the latest known fields of a branch
func (c *BranchCache) NoteBranch(b *domain.Branch) {
	if b == nil || b.BranchID == "" {
		return
	}
	modified := b.CreatedDate
	if b.ModifiedDate != nil {
		modified = *b.ModifiedDate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[stateKey(b.PostID, b.BranchID)] = &BranchState{
		PostID:       b.PostID,
		BranchID:     b.BranchID,
		BranchName:   b.BranchName,
		BranchType:   b.BranchType,
		Title:        b.Title,
		Status:       b.Status,
		IsActive:     b.IsActive,
		IsMerged:     b.IsMerged,
		LastModified: modified,
	}
}

// GetBranchState returns a copy of the state, or false when unknown
func (c *BranchCache) GetBranchState(postID int64, branchID string) (BranchState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.states[stateKey(postID, branchID)]
	if !ok {
		return BranchState{}, false
	}
	return *s, true
}

// AllBranchStates states of a post sorted by branch name
func (c *BranchCache) AllBranchStates(postID int64) []BranchState {
	c.mu.RLock()
	out := make([]BranchState, 0)
	for _, s := range c.states {
		if s.PostID == postID {
			out = append(out, *s)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].BranchName == out[j].BranchName {
			return out[i].BranchID < out[j].BranchID
		}
		return out[i].BranchName < out[j].BranchName
	})
	return out
}

// ActiveBranch a main-type state if present, otherwise the most recently modified
func (c *BranchCache) ActiveBranch(postID int64) (BranchState, bool) {
	var best *BranchState
	for _, s := range c.AllBranchStates(postID) {
		if s.BranchType == domain.BranchTypeMain {
			return s, true
		}
		if best == nil || s.LastModified.After(best.LastModified) {
			best = &s
		}
	}
	if best == nil {
		return BranchState{}, false
	}
	return *best, true
}

// MarkBranchAccessed bumps LastModified of a known state; unknown ids are ignored
func (c *BranchCache) MarkBranchAccessed(postID int64, branchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[stateKey(postID, branchID)]; ok {
		s.LastModified = c.now()
	}
}

// ========================================
// 무효화
// ========================================

// splitKey returns postID segment and the remainder after it
func splitKey(key string) (post, rest string) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return "", ""
	}
	if len(parts) == 3 {
		rest = parts[2]
	}
	return parts[1], rest
}

// namesBranch reports whether a key remainder ("b1" or "from:to") has branchID as a whole segment
func namesBranch(rest, branchID string) bool {
	if rest == "" {
		return false
	}
	for _, seg := range strings.Split(rest, ":") {
		if seg == branchID {
			return true
		}
	}
	return false
}

// InvalidatePost drops every entry and state of a post
func (c *BranchCache) InvalidatePost(ctx context.Context, postID int64) error {
	post := strconv.FormatInt(postID, 10)
	keys, err := c.backend.Keys(ctx, "")
	if err != nil {
		return err
	}
	var drop []string
	for _, k := range keys {
		if p, _ := splitKey(k); p == post {
			drop = append(drop, k)
		}
	}

	c.mu.Lock()
	for k, s := range c.states {
		if s.PostID == postID {
			delete(c.states, k)
		}
	}
	c.mu.Unlock()

	return c.backend.Delete(ctx, drop...)
}

// InvalidateBranch drops entries naming the branch (content and diffs on
// either side), its state, and the post's branch list.
func (c *BranchCache) InvalidateBranch(ctx context.Context, postID int64, branchID string) error {
	post := strconv.FormatInt(postID, 10)
	keys, err := c.backend.Keys(ctx, "")
	if err != nil {
		return err
	}
	drop := []string{Key(NSBranches, postID, "", "")}
	for _, k := range keys {
		if p, rest := splitKey(k); p == post && namesBranch(rest, branchID) {
			drop = append(drop, k)
		}
	}

	c.mu.Lock()
	delete(c.states, stateKey(postID, branchID))
	c.mu.Unlock()

	return c.backend.Delete(ctx, drop...)
}

// Clear drops everything
func (c *BranchCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.states = make(map[string]*BranchState)
	c.mu.Unlock()
	return c.backend.Flush(ctx)
}

// Stats entry and state counts; expired-but-unread entries are included
func (c *BranchCache) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.backend.Keys(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	sort.Strings(keys)
	c.mu.RLock()
	states := len(c.states)
	c.mu.RUnlock()
	return Stats{
		Backend: c.backend.Name(),
		Entries: len(keys),
		States:  states,
		Keys:    keys,
	}, nil
}
