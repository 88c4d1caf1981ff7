package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/database"
	"github.com/pwcx/contract_go_server/internal/pkg/cron"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
	"github.com/pwcx/contract_go_server/internal/repository"
)

var (
	ttlHours = flag.Int("ttl-hours", 0, "Override parsed text TTL in hours (0 = use config)")
	logTTL   = flag.Int("log-ttl-days", 30, "Days to keep request logs (0 = skip)")
)

func main() {
	flag.Parse()

	log.Println("Starting cleanup task...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	ttl := cfg.Cleanup.ParsedTTLHours
	if *ttlHours > 0 {
		ttl = *ttlHours
	}

	// 清理过期的中间解析文本
	contractRepo := repository.NewContractRepository(db)
	cronService := cron.NewService(store, contractRepo, ttl)
	cleaned := cronService.RunNow()
	log.Printf("Parsed texts cleaned: %d (TTL %dh)", cleaned, ttl)

	// 清理过期的请求日志
	if *logTTL > 0 {
		logRepo := repository.NewLogRepository(db)
		before := time.Now().UTC().Add(-time.Duration(*logTTL) * 24 * time.Hour)
		deleted, err := logRepo.DeleteOlderThan(before)
		if err != nil {
			log.Printf("Failed to delete old request logs: %v", err)
		} else {
			log.Printf("Request logs deleted: %d (older than %d days)", deleted, *logTTL)
		}
	}

	log.Println("Cleanup completed")
}
