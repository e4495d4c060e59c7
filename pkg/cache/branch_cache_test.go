package cache

import (
	"context"
	"testing"
	"time"

	"github.com/damoang/angple-branch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBranchCache(t *testing.T) (*BranchCache, *fakeClock) {
	t.Helper()
	m, clock := newMemory(t, 0)
	c := NewBranchCache(m, Config{})
	c.SetClock(clock.Now)
	return c, clock
}

func testBranch(id, name string, created time.Time) *domain.Branch {
	return &domain.Branch{
		BranchID:    id,
		PostID:      42,
		BranchName:  name,
		BranchType:  domain.BranchTypeFeature,
		Title:       "T-" + name,
		Status:      "draft",
		CreatedDate: created,
		IsActive:    true,
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "branches:42", Key(NSBranches, 42, "", ""))
	assert.Equal(t, "branch_content:42:b1", Key(NSBranchContent, 42, "b1", ""))
	assert.Equal(t, "diff:42:main-b1", Key(NSDiff, 42, "", "main-b1"))
}

func TestNewBranchCache_DefaultTTLs(t *testing.T) {
	c, _ := newBranchCache(t)
	assert.Equal(t, DefaultConfig(), c.cfg)
}

func TestBranchCache_NamespaceTTLs(t *testing.T) {
	c, clock := newBranchCache(t)
	ctx := context.Background()
	now := clock.Now()

	require.NoError(t, c.SetBranchList(ctx, 42, []*domain.Branch{testBranch("b1", "one", now)}))
	require.NoError(t, c.SetBranchContent(ctx, 42, "b1", testBranch("b1", "one", now)))
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "b1", &domain.DiffResult{
		Diffs: []domain.BranchDiff{{Field: "title", OriginalValue: "a", NewValue: "b", ChangeType: domain.DiffModified}},
	}))
	require.NoError(t, c.SetMergeHistory(ctx, 42, []*domain.MergeRecord{{MergeID: "m1", PostID: 42}}))

	// diff 만 2분 후 만료
	clock.Advance(2*time.Minute + time.Second)
	_, ok := c.GetDiffResult(ctx, 42, "main", "b1")
	assert.False(t, ok)
	list, ok := c.GetBranchList(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, "b1", list[0].BranchID)

	clock.Advance(3 * time.Minute)
	_, ok = c.GetBranchList(ctx, 42)
	assert.False(t, ok)
	b, ok := c.GetBranchContent(ctx, 42, "b1")
	require.True(t, ok)
	assert.Equal(t, "T-one", b.Title)

	clock.Advance(5 * time.Minute)
	_, ok = c.GetBranchContent(ctx, 42, "b1")
	assert.False(t, ok)
	merges, ok := c.GetMergeHistory(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, "m1", merges[0].MergeID)

	clock.Advance(5 * time.Minute)
	_, ok = c.GetMergeHistory(ctx, 42)
	assert.False(t, ok)
}

func TestBranchCache_DiffKeyIsDirectional(t *testing.T) {
	c, _ := newBranchCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetDiffResult(ctx, 42, "a", "b", &domain.DiffResult{}))

	_, ok := c.GetDiffResult(ctx, 42, "a", "b")
	assert.True(t, ok)
	_, ok = c.GetDiffResult(ctx, 42, "b", "a")
	assert.False(t, ok)
}

func TestBranchCache_DiffKeyKeepsHyphenatedIDsApart(t *testing.T) {
	c, _ := newBranchCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "1111-2222", &domain.DiffResult{}))

	_, ok := c.GetDiffResult(ctx, 42, "main-1111", "2222")
	assert.False(t, ok)
	_, ok = c.GetDiffResult(ctx, 42, "main", "1111-2222")
	assert.True(t, ok)
}

func TestBranchCache_InvalidateBranchMatchesWholeIDs(t *testing.T) {
	c, clock := newBranchCache(t)
	ctx := context.Background()
	now := clock.Now()

	require.NoError(t, c.SetBranchContent(ctx, 42, "b1", testBranch("b1", "one", now)))
	require.NoError(t, c.SetBranchContent(ctx, 42, "b10", testBranch("b10", "ten", now)))
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "b10", &domain.DiffResult{}))
	require.NoError(t, c.SetDiffResult(ctx, 42, "b1", "main", &domain.DiffResult{}))

	require.NoError(t, c.InvalidateBranch(ctx, 42, "b1"))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"branch_content:42:b10", "diff:42:main:b10"}, stats.Keys)
}

func TestBranchCache_CorruptEntryIsMiss(t *testing.T) {
	m, _ := newMemory(t, 0)
	c := NewBranchCache(m, Config{})
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, Key(NSBranches, 42, "", ""), []byte("{not json"), time.Minute))

	_, ok := c.GetBranchList(ctx, 42)
	assert.False(t, ok)
	keys, err := m.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBranchCache_States(t *testing.T) {
	c, clock := newBranchCache(t)
	base := clock.Now()

	older := testBranch("b1", "zeta", base)
	newer := testBranch("b2", "alpha", base.Add(-time.Hour))
	mod := base.Add(time.Minute)
	newer.ModifiedDate = &mod
	c.NoteBranch(older)
	c.NoteBranch(newer)
	c.NoteBranch(nil)
	c.NoteBranch(&domain.Branch{})

	other := testBranch("b9", "other", base)
	other.PostID = 7
	c.NoteBranch(other)

	s, ok := c.GetBranchState(42, "b2")
	require.True(t, ok)
	assert.Equal(t, mod, s.LastModified)

	states := c.AllBranchStates(42)
	require.Len(t, states, 2)
	assert.Equal(t, "alpha", states[0].BranchName)
	assert.Equal(t, "zeta", states[1].BranchName)

	active, ok := c.ActiveBranch(42)
	require.True(t, ok)
	assert.Equal(t, "b2", active.BranchID)

	// 조회로 LastModified 갱신
	clock.Advance(time.Hour)
	c.MarkBranchAccessed(42, "b1")
	c.MarkBranchAccessed(42, "unknown")
	active, ok = c.ActiveBranch(42)
	require.True(t, ok)
	assert.Equal(t, "b1", active.BranchID)

	_, ok = c.ActiveBranch(1000)
	assert.False(t, ok)
}

func TestBranchCache_ListHitKeepsAccessedState(t *testing.T) {
	c, clock := newBranchCache(t)
	ctx := context.Background()
	base := clock.Now()

	b1 := testBranch("b1", "one", base)
	b2 := testBranch("b2", "two", base)
	mod := base.Add(time.Minute)
	b2.ModifiedDate = &mod
	require.NoError(t, c.SetBranchList(ctx, 42, []*domain.Branch{b1, b2}))

	clock.Advance(time.Hour)
	c.MarkBranchAccessed(42, "b1")
	active, ok := c.ActiveBranch(42)
	require.True(t, ok)
	require.Equal(t, "b1", active.BranchID)

	_, ok = c.GetBranchList(ctx, 42)
	require.True(t, ok)

	active, ok = c.ActiveBranch(42)
	require.True(t, ok)
	assert.Equal(t, "b1", active.BranchID)
	s, ok := c.GetBranchState(42, "b1")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), s.LastModified)
}

func TestBranchCache_ActiveBranchPrefersMainType(t *testing.T) {
	c, clock := newBranchCache(t)
	base := clock.Now()

	m := testBranch("m", "main-line", base.Add(-24*time.Hour))
	m.BranchType = domain.BranchTypeMain
	c.NoteBranch(m)
	c.NoteBranch(testBranch("f", "feature", base))

	active, ok := c.ActiveBranch(42)
	require.True(t, ok)
	assert.Equal(t, "m", active.BranchID)
}

func TestBranchCache_InvalidatePost(t *testing.T) {
	c, clock := newBranchCache(t)
	ctx := context.Background()
	now := clock.Now()

	require.NoError(t, c.SetBranchList(ctx, 42, []*domain.Branch{testBranch("b1", "one", now)}))
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "b1", &domain.DiffResult{}))
	require.NoError(t, c.SetMergeHistory(ctx, 42, nil))
	require.NoError(t, c.SetMergeHistory(ctx, 420, nil))
	require.NoError(t, c.SetMergeHistory(ctx, 4, nil))
	c.NoteBranch(&domain.Branch{BranchID: "x", PostID: 420})

	require.NoError(t, c.InvalidatePost(ctx, 42))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"merge_history:4", "merge_history:420"}, stats.Keys)
	assert.Equal(t, 1, stats.States)
	assert.Empty(t, c.AllBranchStates(42))
}

func TestBranchCache_InvalidateBranch(t *testing.T) {
	c, clock := newBranchCache(t)
	ctx := context.Background()
	now := clock.Now()

	require.NoError(t, c.SetBranchList(ctx, 42, []*domain.Branch{testBranch("b1", "one", now), testBranch("b2", "two", now)}))
	require.NoError(t, c.SetBranchContent(ctx, 42, "b1", testBranch("b1", "one", now)))
	require.NoError(t, c.SetBranchContent(ctx, 42, "b2", testBranch("b2", "two", now)))
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "b1", &domain.DiffResult{}))
	require.NoError(t, c.SetDiffResult(ctx, 42, "b1", "b2", &domain.DiffResult{}))
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "b2", &domain.DiffResult{}))
	require.NoError(t, c.SetMergeHistory(ctx, 42, nil))
	require.NoError(t, c.SetBranchContent(ctx, 7, "b1", testBranch("b1", "elsewhere", now)))

	require.NoError(t, c.InvalidateBranch(ctx, 42, "b1"))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"branch_content:42:b2",
		"branch_content:7:b1",
		"diff:42:main:b2",
		"merge_history:42",
	}, stats.Keys)

	_, ok := c.GetBranchState(42, "b1")
	assert.False(t, ok)
	_, ok = c.GetBranchState(42, "b2")
	assert.True(t, ok)
}

func TestBranchCache_ClearAndStats(t *testing.T) {
	c, clock := newBranchCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetBranchContent(ctx, 42, "b1", testBranch("b1", "one", clock.Now())))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 1, stats.States)

	require.NoError(t, c.Clear(ctx))
	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 0, stats.States)
	assert.Empty(t, stats.Keys)
}

func TestBranchCache_OverRedis(t *testing.T) {
	r, _ := newRedis(t)
	c := NewBranchCache(r, Config{})
	ctx := context.Background()

	require.NoError(t, c.SetBranchContent(ctx, 42, "b1", testBranch("b1", "one", time.Now())))
	require.NoError(t, c.SetDiffResult(ctx, 42, "main", "b1", &domain.DiffResult{}))
	require.NoError(t, c.SetMergeHistory(ctx, 42, nil))

	b, ok := c.GetBranchContent(ctx, 42, "b1")
	require.True(t, ok)
	assert.Equal(t, "one", b.BranchName)

	require.NoError(t, c.InvalidateBranch(ctx, 42, "b1"))
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", stats.Backend)
	assert.Equal(t, []string{"merge_history:42"}, stats.Keys)
}
