package routes

import (
	"github.com/damoang/angple-branch/internal/handler"
	"github.com/damoang/angple-branch/internal/middleware"
	"github.com/damoang/angple-branch/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Setup configures all API routes
func Setup(router *gin.Engine, branchHandler *handler.BranchHandler, jwtManager *jwt.Manager) {
	api := router.Group("/api/v2")
	auth := middleware.JWTAuth(jwtManager)

	// 게시글별 브랜치 (중첩 그룹 사용으로 Gin 라우팅 충돌 회피)
	posts := api.Group("/posts/:postId")
	{
		// 브랜치 목록/생성
		posts.GET("/branches", branchHandler.ListBranches)
		posts.POST("/branches", auth, branchHandler.CreateBranch)

		// 브랜치 상세/수정/삭제
		posts.GET("/branches/:branchId", branchHandler.GetBranch)
		posts.PUT("/branches/:branchId", auth, branchHandler.UpdateBranch)
		posts.DELETE("/branches/:branchId", auth, branchHandler.DeleteBranch)

		// diff / merge
		posts.GET("/diff", branchHandler.GetDiff)
		posts.POST("/merge", auth, branchHandler.MergeBranches)

		// 이력
		posts.GET("/history", branchHandler.GetHistory)
		posts.GET("/merges", branchHandler.ListMerges)

		// 브랜치 상태 (프로세스 로컬)
		posts.GET("/active-branch", branchHandler.GetActiveBranch)
		posts.GET("/branch-states", branchHandler.ListBranchStates)
	}

	// 캐시 관리 (인증 필요)
	cacheAdmin := api.Group("/cache", auth)
	cacheAdmin.GET("/stats", branchHandler.CacheStats)
	cacheAdmin.DELETE("", branchHandler.ClearCache)
}
