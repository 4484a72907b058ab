package main

import (
	"flag"
	"log"
	"sort"

	"github.com/alumnihub/alumni-backend/internal/config"
	"github.com/alumnihub/alumni-backend/internal/migration"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	env := flag.String("env", "", "dotenv suffix to load (.env.<env>)")
	seed := flag.Bool("seed", false, "insert demo accounts when the users table is empty")
	verify := flag.Bool("verify", false, "print row counts instead of migrating")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	if loaded := config.LoadDotEnv(*env); len(loaded) == 0 {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
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
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Schema up to date")

	if *seed {
		n, err := migration.SeedDemo(db)
		if err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
		log.Printf("Seeded %d demo users", n)
	}
}

func runVerify(db *gorm.DB) {
	counts, err := migration.Counts(db)
	if err != nil {
		log.Fatalf("Verify failed: %v", err)
	}
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		log.Printf("%-14s %d rows", t, counts[t])
	}
}
