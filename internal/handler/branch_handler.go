package handler

import (
	"errors"
	"net/http"

	"github.com/damoang/angple-branch/internal/common"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/middleware"
	"github.com/damoang/angple-branch/internal/service"
	"github.com/damoang/angple-branch/pkg/cache"
	"github.com/damoang/angple-branch/pkg/ginutil"
	"github.com/damoang/angple-branch/pkg/logger"
	"github.com/gin-gonic/gin"
)

// BranchHandler handles HTTP requests for post branches.
// Reads go through the cache; every write invalidates it afterwards.
type BranchHandler struct {
	branches service.BranchService
	diffs    service.DiffService
	merges   service.MergeService
	cache    *cache.BranchCache
}

// NewBranchHandler creates a new BranchHandler
func NewBranchHandler(
	branches service.BranchService,
	diffs service.DiffService,
	merges service.MergeService,
	branchCache *cache.BranchCache,
) *BranchHandler {
	return &BranchHandler{branches: branches, diffs: diffs, merges: merges, cache: branchCache}
}

// respondError maps the error taxonomy onto a status
func respondError(c *gin.Context, message string, err error) {
	common.ErrorResponse(c, common.StatusFromError(err), message, err)
}

func postID(c *gin.Context) (int64, bool) {
	id, err := ginutil.ParamPositiveInt64(c, "postId")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return 0, false
	}
	return id, true
}

// ListBranches GET /posts/:postId/branches
// @Summary 브랜치 목록
// @Tags branches
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param refresh query bool false "캐시 무시"
// @Success 200 {object} common.APIResponse
// @Router /posts/{postId}/branches [get]
func (h *BranchHandler) ListBranches(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if !ginutil.QueryBool(c, "refresh", false) {
		if branches, hit := h.cache.GetBranchList(ctx, pid); hit {
			common.SuccessResponse(c, branches, &common.Meta{PostID: pid, Total: int64(len(branches)), Cached: true})
			return
		}
	}

	branches, err := h.branches.ListBranches(ctx, pid)
	if err != nil {
		respondError(c, "Failed to fetch branches", err)
		return
	}
	if err := h.cache.SetBranchList(ctx, pid, branches); err != nil {
		logger.GetLogger().Warn().Err(err).Int64("post_id", pid).Msg("cache set branch list failed")
	}

	common.SuccessResponse(c, branches, &common.Meta{PostID: pid, Total: int64(len(branches))})
}

// CreateBranch POST /posts/:postId/branches
// @Summary 브랜치 생성
// @Tags branches
// @Accept json
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param request body domain.CreateBranchRequest true "브랜치 정보"
// @Success 201 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{postId}/branches [post]
func (h *BranchHandler) CreateBranch(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}

	var req domain.CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.PostID = pid
	req.CreatedBy = middleware.GetUserID(c)

	ctx := c.Request.Context()
	branch, err := h.branches.CreateBranch(ctx, &req)
	if err != nil {
		respondError(c, "Failed to create branch", err)
		return
	}

	h.invalidateBranch(c, pid, branch.BranchID)
	h.cache.NoteBranch(branch)

	common.CreatedResponse(c, branch)
}

// GetBranch GET /posts/:postId/branches/:branchId
// @Summary 브랜치 조회
// @Tags branches
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param branchId path string true "브랜치 ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /posts/{postId}/branches/{branchId} [get]
func (h *BranchHandler) GetBranch(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	branchID := c.Param("branchId")
	ctx := c.Request.Context()

	if branch, hit := h.cache.GetBranchContent(ctx, pid, branchID); hit {
		h.cache.MarkBranchAccessed(pid, branchID)
		common.SuccessResponse(c, branch, &common.Meta{PostID: pid, Cached: true})
		return
	}

	branch, err := h.branches.GetBranch(ctx, pid, branchID)
	if err != nil {
		respondError(c, "Failed to fetch branch", err)
		return
	}
	if err := h.cache.SetBranchContent(ctx, pid, branchID, branch); err != nil {
		logger.GetLogger().Warn().Err(err).Str("branch_id", branchID).Msg("cache set branch content failed")
	}
	h.cache.MarkBranchAccessed(pid, branchID)

	common.SuccessResponse(c, branch, &common.Meta{PostID: pid})
}

// UpdateBranch PUT /posts/:postId/branches/:branchId
// @Summary 브랜치 수정
// @Tags branches
// @Accept json
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param branchId path string true "브랜치 ID"
// @Param request body domain.BranchChanges true "변경 필드"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{postId}/branches/{branchId} [put]
func (h *BranchHandler) UpdateBranch(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	branchID := c.Param("branchId")

	var changes domain.BranchChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if changes.IsEmpty() {
		common.ErrorResponse(c, http.StatusBadRequest, "No fields to update", common.ErrInvalidInput)
		return
	}

	branch, err := h.branches.UpdateBranch(c.Request.Context(), pid, branchID, changes, middleware.GetUserID(c))
	if err != nil {
		respondError(c, "Failed to update branch", err)
		return
	}

	h.invalidateBranch(c, pid, branchID)
	h.cache.NoteBranch(branch)

	common.SuccessResponse(c, branch, &common.Meta{PostID: pid})
}

// DeleteBranch DELETE /posts/:postId/branches/:branchId
// @Summary 브랜치 삭제 (soft delete)
// @Tags branches
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param branchId path string true "브랜치 ID"
// @Success 200 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{postId}/branches/{branchId} [delete]
func (h *BranchHandler) DeleteBranch(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	branchID := c.Param("branchId")

	deleted, err := h.branches.DeleteBranch(c.Request.Context(), pid, branchID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, "Failed to delete branch", err)
		return
	}

	h.invalidateBranch(c, pid, branchID)

	common.SuccessResponse(c, gin.H{"deleted": deleted, "branch_id": branchID}, &common.Meta{PostID: pid})
}

// GetDiff GET /posts/:postId/diff?from=&to=
// @Summary 브랜치 비교
// @Tags diff
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param from query string true "기준 브랜치 (main 가능)"
// @Param to query string true "대상 브랜치 (main 가능)"
// @Success 200 {object} common.APIResponse
// @Router /posts/{postId}/diff [get]
func (h *BranchHandler) GetDiff(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "from and to are required", common.ErrInvalidInput)
		return
	}
	ctx := c.Request.Context()

	if result, hit := h.cache.GetDiffResult(ctx, pid, from, to); hit {
		common.SuccessResponse(c, result, &common.Meta{PostID: pid, Total: int64(len(result.Diffs)), Cached: true})
		return
	}

	diffs, err := h.diffs.GenerateDiff(ctx, pid, from, to)
	if err != nil {
		respondError(c, "Failed to generate diff", err)
		return
	}
	result := &domain.DiffResult{Diffs: diffs, Analysis: *service.Analyze(diffs)}
	if err := h.cache.SetDiffResult(ctx, pid, from, to, result); err != nil {
		logger.GetLogger().Warn().Err(err).Int64("post_id", pid).Msg("cache set diff failed")
	}

	common.SuccessResponse(c, result, &common.Meta{PostID: pid, Total: int64(len(diffs))})
}

// MergeBranches POST /posts/:postId/merge
// @Summary 브랜치 머지
// @Tags merge
// @Accept json
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param request body domain.MergeRequest true "머지 요청"
// @Success 200 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{postId}/merge [post]
func (h *BranchHandler) MergeBranches(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}

	var req domain.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.PostID = pid
	req.MergedBy = middleware.GetUserID(c)

	result, err := h.merges.MergeBranches(c.Request.Context(), &req)
	if err != nil {
		if result == nil {
			respondError(c, "Failed to merge branches", err)
			return
		}
		outcome := "failed"
		if errors.Is(err, common.ErrMergeConflict) {
			outcome = "conflict"
		}
		middleware.RecordMerge(outcome)
		// 부분 적용 가능성이 있으므로 게시글 캐시 폐기
		if err := h.cache.InvalidatePost(c.Request.Context(), pid); err != nil {
			logger.GetLogger().Warn().Err(err).Int64("post_id", pid).Msg("cache invalidate post failed")
		}
		status := common.StatusFromError(err)
		c.JSON(status, common.APIResponse{
			Success: false,
			Data:    result,
			Error: &common.ErrorInfo{
				Code:    "MERGE_FAILED",
				Message: "Merge did not complete",
				Details: err.Error(),
			},
		})
		return
	}

	if result.MergeID == "" {
		middleware.RecordMerge("noop")
		common.SuccessResponse(c, result, &common.Meta{PostID: pid})
		return
	}
	middleware.RecordMerge("merged")

	// 대상 브랜치 본문, diff, 머지 이력 모두 영향을 받으므로 게시글 단위 무효화
	if err := h.cache.InvalidatePost(c.Request.Context(), pid); err != nil {
		logger.GetLogger().Warn().Err(err).Int64("post_id", pid).Msg("cache invalidate post failed")
	}

	common.SuccessResponse(c, result, &common.Meta{PostID: pid})
}

// GetHistory GET /posts/:postId/history?branch=
// @Summary 변경 이력
// @Tags history
// @Produce json
// @Param postId path int true "게시글 ID"
// @Param branch query string false "브랜치 ID"
// @Success 200 {object} common.APIResponse
// @Router /posts/{postId}/history [get]
func (h *BranchHandler) GetHistory(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}

	entries, err := h.branches.GetBranchHistory(c.Request.Context(), pid, c.Query("branch"))
	if err != nil {
		respondError(c, "Failed to fetch history", err)
		return
	}

	common.SuccessResponse(c, entries, &common.Meta{PostID: pid, Total: int64(len(entries))})
}

// ListMerges GET /posts/:postId/merges
func (h *BranchHandler) ListMerges(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if merges, hit := h.cache.GetMergeHistory(ctx, pid); hit {
		common.SuccessResponse(c, merges, &common.Meta{PostID: pid, Total: int64(len(merges)), Cached: true})
		return
	}

	merges, err := h.merges.ListMerges(ctx, pid)
	if err != nil {
		respondError(c, "Failed to fetch merges", err)
		return
	}
	if err := h.cache.SetMergeHistory(ctx, pid, merges); err != nil {
		logger.GetLogger().Warn().Err(err).Int64("post_id", pid).Msg("cache set merge history failed")
	}

	common.SuccessResponse(c, merges, &common.Meta{PostID: pid, Total: int64(len(merges))})
}

// GetActiveBranch GET /posts/:postId/active-branch
// Falls back to loading the branch list once when no state is known.
func (h *BranchHandler) GetActiveBranch(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}

	state, found := h.cache.ActiveBranch(pid)
	if !found {
		branches, err := h.branches.ListBranches(c.Request.Context(), pid)
		if err != nil {
			respondError(c, "Failed to fetch branches", err)
			return
		}
		for _, b := range branches {
			h.cache.NoteBranch(b)
		}
		state, found = h.cache.ActiveBranch(pid)
	}
	if !found {
		common.ErrorResponse(c, http.StatusNotFound, "No active branch", common.ErrBranchNotFound)
		return
	}

	common.SuccessResponse(c, state, &common.Meta{PostID: pid})
}

// ListBranchStates GET /posts/:postId/branch-states
func (h *BranchHandler) ListBranchStates(c *gin.Context) {
	pid, ok := postID(c)
	if !ok {
		return
	}
	states := h.cache.AllBranchStates(pid)
	common.SuccessResponse(c, states, &common.Meta{PostID: pid, Total: int64(len(states))})
}

func (h *BranchHandler) invalidateBranch(c *gin.Context, pid int64, branchID string) {
	if err := h.cache.InvalidateBranch(c.Request.Context(), pid, branchID); err != nil {
		logger.GetLogger().Warn().Err(err).Int64("post_id", pid).Str("branch_id", branchID).Msg("cache invalidate branch failed")
	}
}

// CacheStats GET /cache/stats
func (h *BranchHandler) CacheStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to read cache stats", err)
		return
	}
	common.SuccessResponse(c, stats, &common.Meta{Total: int64(stats.Entries)})
}

// ClearCache DELETE /cache
func (h *BranchHandler) ClearCache(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		respondError(c, "Failed to clear cache", err)
		return
	}
	logger.GetLogger().Info().Str("user_id", middleware.GetUserID(c)).Msg("branch cache cleared")
	common.SuccessResponse(c, gin.H{"cleared": true}, nil)
}
