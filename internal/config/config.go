package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/damoang/angple-branch/pkg/cache"
	"github.com/damoang/angple-branch/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config 애플리케이션 설정
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Cache    CacheConfig    `yaml:"cache"`
	Branch   BranchConfig   `yaml:"branch"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig 서버 설정
type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

// DatabaseConfig 데이터베이스 설정. Driver is "mysql" or "sqlite".
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	Path            string `yaml:"path"` // sqlite 파일 경로
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN MySQL DSN 생성
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// RedisConfig Redis 설정
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// JWTConfig JWT 설정
type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

// CacheConfig 브랜치 캐시 설정. TTL 값은 초 단위.
type CacheConfig struct {
	Backend          string `yaml:"backend"` // memory | redis
	MaxEntries       int    `yaml:"max_entries"`
	KeyPrefix        string `yaml:"key_prefix"`
	BranchListTTL    int    `yaml:"branch_list_ttl"`
	BranchContentTTL int    `yaml:"branch_content_ttl"`
	DiffTTL          int    `yaml:"diff_ttl"`
	MergeHistoryTTL  int    `yaml:"merge_history_ttl"`
}

// TTLs converts the configured seconds into a cache.Config
func (c CacheConfig) TTLs() cache.Config {
	return cache.Config{
		BranchListTTL:    time.Duration(c.BranchListTTL) * time.Second,
		BranchContentTTL: time.Duration(c.BranchContentTTL) * time.Second,
		DiffTTL:          time.Duration(c.DiffTTL) * time.Second,
		MergeHistoryTTL:  time.Duration(c.MergeHistoryTTL) * time.Second,
	}
}

// BranchConfig 브랜치 엔진 설정
type BranchConfig struct {
	SettleDelayMS int `yaml:"settle_delay_ms"`
}

// SettleDelay 생성 후 재조회 대기 시간
func (b BranchConfig) SettleDelay() time.Duration {
	return time.Duration(b.SettleDelayMS) * time.Millisecond
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"` // comma separated
}

// Origins splits AllowOrigins
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// IsDevelopment 개발 환경 여부
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "", "local", "dev", "development":
		return true
	}
	return false
}

// Default 기본값 (원본 시스템과 동일한 TTL / settle delay)
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8082, Env: "local"},
		Database: DatabaseConfig{
			Driver:          "mysql",
			Host:            "localhost",
			Port:            3306,
			User:            "root",
			DBName:          "angple",
			Path:            "angple-branch.db",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 3600,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10},
		JWT:   JWTConfig{ExpiresIn: 86400},
		Cache: CacheConfig{
			Backend:          "memory",
			MaxEntries:       cache.DefaultMaxEntries,
			KeyPrefix:        cache.DefaultRedisKeyPrefix,
			BranchListTTL:    int(cache.TTLBranchList / time.Second),
			BranchContentTTL: int(cache.TTLBranchContent / time.Second),
			DiffTTL:          int(cache.TTLDiff / time.Second),
			MergeHistoryTTL:  int(cache.TTLMergeHistory / time.Second),
		},
		Branch: BranchConfig{SettleDelayMS: 100},
		CORS:   CORSConfig{AllowOrigins: "http://localhost:3000"},
	}
}

// Load reads the YAML file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// 환경 변수만으로 구성
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return cfg, nil
}

// applyEnv 환경 변수가 YAML 값보다 우선
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Env, "APP_ENV")
	setInt(&cfg.Server.Port, "SERVER_PORT")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Database.Path, "DB_PATH")

	setString(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.JWT.Secret, "JWT_SECRET")

	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setInt(&cfg.Branch.SettleDelayMS, "BRANCH_SETTLE_DELAY_MS")

	setString(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.GetLogger().Warn().Str("key", key).Str("value", v).Msg("ignoring non-integer env override")
		return
	}
	*dst = n
}

// LogResolved logs the effective configuration without secrets
func LogResolved(cfg *Config) {
	logger.GetLogger().Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Str("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)).
		Str("cache_backend", cfg.Cache.Backend).
		Dur("settle_delay", cfg.Branch.SettleDelay()).
		Bool("jwt_secret_set", cfg.JWT.Secret != "").
		Msg("config resolved")
}
