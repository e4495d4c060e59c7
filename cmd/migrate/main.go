package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/damoang/angple-branch/internal/config"
	"github.com/damoang/angple-branch/internal/domain"
	"github.com/damoang/angple-branch/internal/migration"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	seed := flag.Bool("seed", false, "insert a demo post when blog_posts is empty")
	verify := flag.Bool("verify", false, "print row counts of the branching tables and exit")
	dryRun := flag.Bool("dry-run", false, "show which tables would be migrated without executing")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	dotenvFiles := config.LoadDotEnv()
	if len(dotenvFiles) == 0 {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dryRun {
		for _, t := range tables() {
			log.Printf("[dry-run] would migrate %s (%s)", t.name, cfg.Database.Driver)
		}
		return
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := openDB(cfg, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if *verify {
		runVerify(db)
		return
	}

	if err := migration.Run(db); err != nil {
		log.Printf("[migrate] FAILED: %v", err)
		os.Exit(1)
	}
	log.Println("[migrate] branching tables ready")

	if *seed {
		id, err := migration.SeedDemoPost(db)
		if err != nil {
			log.Printf("[seed] FAILED: %v", err)
			os.Exit(1)
		}
		log.Printf("[seed] demo post id=%d", id)
	}
}

type table struct {
	name  string
	model interface{}
}

func tables() []table {
	return []table{
		{"blog_posts", &domain.Post{}},
		{"blog_post_branches", &domain.Branch{}},
		{"blog_post_merges", &domain.MergeRecord{}},
		{"blog_post_change_log", &domain.ChangeLogEntry{}},
	}
}

func openDB(cfg *config.Config, level gormlogger.LogLevel) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}
	if cfg.Database.Driver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.Database.Path), gormCfg)
	}
	return gorm.Open(mysql.Open(cfg.Database.GetDSN()), gormCfg)
}

// --- Verify ---

func runVerify(db *gorm.DB) {
	fmt.Println()
	fmt.Println("╔══════════════════════╦══════════════╦════════╗")
	fmt.Println("║ Table                ║         Rows ║ Exists ║")
	fmt.Println("╠══════════════════════╬══════════════╬════════╣")
	for _, t := range tables() {
		exists := db.Migrator().HasTable(t.model)
		var count int64
		mark := "✗"
		if exists {
			mark = "✓"
			db.Model(t.model).Count(&count)
		}
		fmt.Printf("║ %-20s ║ %12d ║   %s    ║\n", t.name, count, mark)
	}
	fmt.Println("╚══════════════════════╩══════════════╩════════╝")
	fmt.Println()
}
