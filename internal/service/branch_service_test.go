package service

import (
	"context"
	"testing"
	"time"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBranch_CopiesMain(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	post := env.seedPost(t)

	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	assert.NotEmpty(t, b.BranchID)
	assert.Equal(t, int64(42), b.PostID)
	assert.Equal(t, "feature-x", b.BranchName)
	assert.Equal(t, domain.BranchTypeFeature, b.BranchType)
	assert.Nil(t, b.ParentBranchID)
	assert.True(t, b.IsActive)
	assert.False(t, b.IsMerged)
	assert.Equal(t, post.Snapshot(), b.Snapshot())
	assert.Equal(t, "alice", b.CreatedBy)
}

func TestCreateBranch_LaterPostEditsDoNotLeak(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	post := env.seedPost(t)
	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	require.NoError(t, env.db.Exec(
		"UPDATE blog_posts SET title = ?, content = ? WHERE id = ?", "edited", "edited content", 42,
	).Error)

	got, err := env.branches.GetBranch(context.Background(), 42, b.BranchID)
	require.NoError(t, err)
	assert.Equal(t, post.Snapshot(), got.Snapshot())
	assert.Equal(t, "Original Title", got.Title)

	primary, err := env.branches.ResolveSnapshot(context.Background(), 42, domain.MainBranchID)
	require.NoError(t, err)
	assert.Equal(t, "edited", primary.Title)
}

func TestCreateBranch_InitialChangesOverlay(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)

	b := env.createBranch(t, "draft-1", domain.MainBranchID, domain.BranchChanges{
		Title:   strPtr("Overlay"),
		Excerpt: strPtr(""),
	})

	assert.Equal(t, "Overlay", b.Title)
	assert.Equal(t, "", b.Excerpt)
	assert.Equal(t, "Original content", b.Content)
}

func TestCreateBranch_MissingPostUsesDefaults(t *testing.T) {
	env := newTestEnv(t, envConfig{})

	b := env.createBranch(t, "orphan", "", domain.BranchChanges{})

	assert.Equal(t, "Untitled Branch", b.Title)
	assert.Equal(t, "draft", b.Status)
	assert.Equal(t, "", b.Content)
}

func TestCreateBranch_FromParentBranch(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)

	parent := env.createBranch(t, "parent", "", domain.BranchChanges{Content: strPtr("parent body")})
	child := env.createBranch(t, "child", parent.BranchID, domain.BranchChanges{})

	require.NotNil(t, child.ParentBranchID)
	assert.Equal(t, parent.BranchID, *child.ParentBranchID)
	assert.Equal(t, "parent body", child.Content)
	assert.Equal(t, parent.Title, child.Title)
}

func TestCreateBranch_MissingParentBranch(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)

	_, err := env.branches.CreateBranch(context.Background(), &domain.CreateBranchRequest{
		PostID:         42,
		BranchName:     "child",
		ParentBranchID: "does-not-exist",
		CreatedBy:      "alice",
	})
	assert.ErrorIs(t, err, common.ErrBranchNotFound)

	list, err := env.branches.ListBranches(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateBranch_Validation(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  *domain.CreateBranchRequest
	}{
		{"nil request", nil},
		{"blank name", &domain.CreateBranchRequest{PostID: 42, BranchName: "  ", CreatedBy: "alice"}},
		{"no creator", &domain.CreateBranchRequest{PostID: 42, BranchName: "x"}},
		{"bad type", &domain.CreateBranchRequest{PostID: 42, BranchName: "x", CreatedBy: "alice", BranchType: "experimental"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.branches.CreateBranch(ctx, tt.req)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestCreateBranch_WritesCreatedLog(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)

	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	history, err := env.branches.GetBranchHistory(context.Background(), 42, b.BranchID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeBranchCreated, history[0].ChangeType)
	assert.Equal(t, "Created branch 'feature-x' of type 'feature'", history[0].Description)
	assert.Equal(t, "alice", history[0].ChangedBy)
}

func TestCreateBranch_SettleDelayHonoursContext(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)
	svc := NewBranchService(
		repository.NewBranchRepository(env.exec),
		repository.NewPostRepository(env.exec),
		repository.NewChangeLogRepository(env.exec),
		WithSettleDelay(time.Hour),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.CreateBranch(ctx, &domain.CreateBranchRequest{PostID: 42, BranchName: "slow", CreatedBy: "alice"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpdateBranch_OneLogEntryPerField(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)
	ctx := context.Background()
	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	updated, err := env.branches.UpdateBranch(ctx, 42, b.BranchID, domain.BranchChanges{
		Title: strPtr("New Title"),
		Tags:  strPtr("go"),
	}, "bob")
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "go", updated.Tags)
	assert.Equal(t, "Original content", updated.Content)
	assert.Equal(t, "bob", updated.ModifiedBy)
	assert.NotNil(t, updated.ModifiedDate)

	history, err := env.branches.GetBranchHistory(ctx, 42, b.BranchID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	var modified []*domain.ChangeLogEntry
	for _, e := range history {
		if e.ChangeType == domain.ChangeContentModified {
			modified = append(modified, e)
		}
	}
	require.Len(t, modified, 2)
	fields := map[string]*domain.ChangeLogEntry{}
	for _, e := range modified {
		fields[*e.FieldName] = e
	}
	require.Contains(t, fields, "title")
	assert.Equal(t, "Original Title", *fields["title"].OldValue)
	assert.Equal(t, "New Title", *fields["title"].NewValue)
	assert.Equal(t, "Modified title", fields["title"].Description)
	require.Contains(t, fields, "tags")
	assert.Equal(t, "go,blog", *fields["tags"].OldValue)
}

func TestUpdateBranch_SameTimestampEntriesNewestFirst(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)
	ctx := context.Background()
	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	_, err := env.branches.UpdateBranch(ctx, 42, b.BranchID, domain.BranchChanges{
		Title:   strPtr("A"),
		Content: strPtr("B"),
		Status:  strPtr("review"),
	}, "bob")
	require.NoError(t, err)

	history, err := env.branches.GetBranchHistory(ctx, 42, b.BranchID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	// 한 번의 수정은 같은 시각, 기록 순서의 역순으로 반환
	assert.Equal(t, history[0].ChangedDate, history[2].ChangedDate)
	var fields []string
	for _, e := range history[:3] {
		fields = append(fields, *e.FieldName)
	}
	assert.Equal(t, []string{"status", "content", "title"}, fields)
	assert.Equal(t, domain.ChangeBranchCreated, history[3].ChangeType)
}

func TestUpdateBranch_EmptyChangesIsNoop(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)
	ctx := context.Background()
	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	got, err := env.branches.UpdateBranch(ctx, 42, b.BranchID, domain.BranchChanges{}, "bob")
	require.NoError(t, err)
	assert.Nil(t, got.ModifiedDate)

	history, err := env.branches.GetBranchHistory(ctx, 42, b.BranchID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateBranch_NotFound(t *testing.T) {
	env := newTestEnv(t, envConfig{})

	_, err := env.branches.UpdateBranch(context.Background(), 42, "missing", domain.BranchChanges{Title: strPtr("x")}, "bob")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteBranch(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)
	ctx := context.Background()
	b := env.createBranch(t, "feature-x", "", domain.BranchChanges{})

	ok, err := env.branches.DeleteBranch(ctx, 42, b.BranchID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := env.branches.ListBranches(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, list)

	// soft delete: 직접 조회는 가능
	got, err := env.branches.GetBranch(ctx, 42, b.BranchID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	history, err := env.branches.GetBranchHistory(ctx, 42, b.BranchID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, domain.ChangeBranchDeleted, history[0].ChangeType)
	assert.Equal(t, "Deleted branch 'feature-x'", history[0].Description)
}

func TestDeleteBranch_MainIsProtected(t *testing.T) {
	env := newTestEnv(t, envConfig{})

	ok, err := env.branches.DeleteBranch(context.Background(), 42, domain.MainBranchID, "bob")
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrProtectedBranch)
	assert.ErrorIs(t, err, common.ErrInvalidOperation)
}

func TestDeleteBranch_NotFound(t *testing.T) {
	env := newTestEnv(t, envConfig{})

	_, err := env.branches.DeleteBranch(context.Background(), 42, "missing", "bob")
	assert.ErrorIs(t, err, common.ErrBranchNotFound)
}

func TestListBranches_NewestFirst(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	env.seedPost(t)

	first := env.createBranch(t, "first", "", domain.BranchChanges{})
	second := env.createBranch(t, "second", "", domain.BranchChanges{})

	list, err := env.branches.ListBranches(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.BranchID, list[0].BranchID)
	assert.Equal(t, first.BranchID, list[1].BranchID)
}

func TestResolveSnapshot(t *testing.T) {
	env := newTestEnv(t, envConfig{})
	ctx := context.Background()

	// 게시글 없음 → 빈 스냅샷
	snap, err := env.branches.ResolveSnapshot(ctx, 42, domain.MainBranchID)
	require.NoError(t, err)
	assert.Equal(t, domain.Snapshot{}, snap)

	post := env.seedPost(t)
	snap, err = env.branches.ResolveSnapshot(ctx, 42, domain.MainBranchID)
	require.NoError(t, err)
	assert.Equal(t, post.Snapshot(), snap)

	_, err = env.branches.ResolveSnapshot(ctx, 42, "missing")
	assert.ErrorIs(t, err, common.ErrBranchNotFound)
}

func TestNewTimeOrderedID_SortsInCreationOrder(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = newTimeOrderedID()
	}
	assert.IsIncreasing(t, ids)
}
