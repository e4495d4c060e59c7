package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/migration"
	"github.com/damoang/angple-branch/internal/repository"
	"github.com/damoang/angple-branch/internal/store"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stepClock advances one second per call so ordering by timestamp is stable
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%03d", s.n)
}

type testEnv struct {
	db       *gorm.DB
	exec     store.Executor
	branches BranchService
	diffs    DiffService
	merges   MergeService
	mergeRep repository.MergeRepository
}

type envConfig struct {
	policy ConflictPolicy
	wrap   func(store.Executor) store.Executor
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.Run(db))
	return db
}

func newTestEnv(t *testing.T, cfg envConfig) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	var exec store.Executor = store.NewGormExecutor(db)
	if cfg.wrap != nil {
		exec = cfg.wrap(exec)
	}

	clock := &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	ids := &seqIDs{}
	opts := []Option{WithClock(clock.Now), WithIDGenerator(ids.Next), WithSettleDelay(0)}

	branchRepo := repository.NewBranchRepository(exec)
	mergeRepo := repository.NewMergeRepository(exec)
	branchSvc := NewBranchService(branchRepo, repository.NewPostRepository(exec), repository.NewChangeLogRepository(exec), opts...)
	diffSvc := NewDiffService(branchSvc)

	return &testEnv{
		db:       db,
		exec:     exec,
		branches: branchSvc,
		diffs:    diffSvc,
		merges:   NewMergeService(branchSvc, diffSvc, branchRepo, mergeRepo, cfg.policy, opts...),
		mergeRep: mergeRepo,
	}
}

// seedPost inserts post 42 with known tracked fields
func (e *testEnv) seedPost(t *testing.T) *domain.Post {
	t.Helper()
	post := &domain.Post{
		ID:      42,
		Title:   "Original Title",
		Content: "Original content",
		Excerpt: "Original excerpt",
		Tags:    "go,blog",
		Status:  "published",
	}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

func (e *testEnv) createBranch(t *testing.T, name, parent string, initial domain.BranchChanges) *domain.Branch {
	t.Helper()
	b, err := e.branches.CreateBranch(context.Background(), &domain.CreateBranchRequest{
		PostID:         42,
		BranchName:     name,
		ParentBranchID: parent,
		CreatedBy:      "alice",
		InitialChanges: initial,
	})
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

// failOn fails statements whose SQL starts with the given verb and table
func failOn(prefix string, cause error) func(store.Executor) store.Executor {
	return func(next store.Executor) store.Executor {
		return store.ExecutorFunc(func(ctx context.Context, stmt store.Statement) (*store.ResultSet, error) {
			if strings.HasPrefix(strings.Join(strings.Fields(stmt.SQL), " "), prefix) {
				return nil, cause
			}
			return next.Execute(ctx, stmt)
		})
	}
}
