package main

import (
	"fmt"
	"os"
	"time"

	"github.com/damoang/angple-branch/internal/config"
	"github.com/damoang/angple-branch/internal/handler"
	"github.com/damoang/angple-branch/internal/middleware"
	"github.com/damoang/angple-branch/internal/migration"
	"github.com/damoang/angple-branch/internal/repository"
	"github.com/damoang/angple-branch/internal/routes"
	"github.com/damoang/angple-branch/internal/service"
	"github.com/damoang/angple-branch/internal/store"
	"github.com/damoang/angple-branch/pkg/cache"
	"github.com/damoang/angple-branch/pkg/jwt"
	pkglogger "github.com/damoang/angple-branch/pkg/logger"
	pkgredis "github.com/damoang/angple-branch/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Angple Branch API
// @version         1.0
// @description     Blog post branching, diff and merge engine
//
// @license.name    MIT
//
// @host            localhost:8082
// @BasePath        /api/v2
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	// 로거 초기화
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env, os.Getenv("LOG_LEVEL"))
	log := pkglogger.GetLogger()
	log.Info().Str("env", env).Strs("env_files", dotenvFiles).Msg("starting angple-branch")

	// 설정 로드
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}
	config.LogResolved(cfg)

	// DB 연결 (브랜치 엔진은 DB 없이 동작 불가)
	db, err := initDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	if err := migration.Run(db); err != nil {
		log.Warn().Err(err).Msg("migration warning")
	}
	go reportDBConnections(db)

	// 캐시 백엔드
	backend, err := initCacheBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init cache backend")
	}
	branchCache := cache.NewBranchCache(backend, cfg.Cache.TTLs())
	log.Info().Str("backend", backend.Name()).Msg("branch cache ready")

	// Repository → Service → Handler
	exec := store.NewGormExecutor(db)
	branchRepo := repository.NewBranchRepository(exec)
	postRepo := repository.NewPostRepository(exec)
	changeLogRepo := repository.NewChangeLogRepository(exec)
	mergeRepo := repository.NewMergeRepository(exec)

	opts := []service.Option{service.WithSettleDelay(cfg.Branch.SettleDelay())}
	branchService := service.NewBranchService(branchRepo, postRepo, changeLogRepo, opts...)
	diffService := service.NewDiffService(branchService)
	mergeService := service.NewMergeService(branchService, diffService, branchRepo, mergeRepo, nil, opts...)

	branchHandler := handler.NewBranchHandler(branchService, diffService, mergeService, branchCache)

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT secret is empty; write endpoints will reject every token")
	}
	jwtManager := jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second)

	// Gin 라우터 생성
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS 설정
	origins := cfg.CORS.Origins()
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           12 * time.Hour,
	}))

	// Middleware
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger UI (swag init 으로 생성한 문서)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
		}
		c.JSON(200, gin.H{"status": status, "cache": backend.Name(), "time": time.Now().Unix()})
	})

	routes.Setup(router, branchHandler, jwtManager)

	// 서버 시작
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

// initDB mysql 또는 sqlite 연결 초기화
func initDB(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if cfg.IsDevelopment() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	if cfg.Database.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.Database.Path), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite 는 단일 writer
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+00:00'"

	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), gormCfg)
	if err != nil {
		return nil, err
	}

	db.Exec("SET NAMES utf8mb4")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}

// initCacheBackend memory (단일 인스턴스) 또는 redis (다중 인스턴스)
func initCacheBackend(cfg *config.Config) (cache.Backend, error) {
	if cfg.Cache.Backend == "redis" {
		client, err := pkgredis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisBackend(client, cfg.Cache.KeyPrefix), nil
	}
	pkglogger.GetLogger().Warn().Msg("memory cache backend: each instance caches independently")
	mem, err := cache.NewMemoryBackend(cfg.Cache.MaxEntries)
	if err != nil {
		return nil, err
	}
	return mem, nil
}

// reportDBConnections DB 커넥션 게이지 주기적 갱신
func reportDBConnections(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		middleware.SetDBConnectionsActive(float64(sqlDB.Stats().InUse))
	}
}
