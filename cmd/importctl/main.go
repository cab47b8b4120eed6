// Command importctl runs one sweep of the question import inbox and exits.
// It is meant for cron jobs and manual bulk loads next to the HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/prephub/quiz-service/internal/config"
	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/importer"
	"github.com/prephub/quiz-service/internal/repositories/casdoor"
	"github.com/prephub/quiz-service/internal/repositories/postgres"
	"github.com/prephub/quiz-service/pkg"
)

func main() {
	inboxFlag := flag.String("inbox", "", "inbox directory (overrides IMPORT_INBOX_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	inboxDir := cfg.ImportInboxDir
	if *inboxFlag != "" {
		inboxDir = *inboxFlag
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		if redisClient, err = pkg.NewRedisClient(cfg); err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers}, logger)
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
	} else {
		publisher = events.NewMockEventPublisher(logger)
	}
	defer publisher.Close()

	imp := importer.New(repoManager.GetRepository(), publisher, logger, inboxDir)

	results, err := imp.ProcessInbox(context.Background())
	if err != nil {
		log.Fatalf("Import sweep failed: %v", err)
	}

	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
			fmt.Printf("FAIL %s: %d errors\n", r.FileName, len(r.Errors))
			continue
		}
		fmt.Printf("OK   %s: %d created, %d updated\n", r.FileName, r.QuestionsCreated, r.QuestionsUpdated)
	}
	fmt.Printf("%d file(s) processed, %d failed\n", len(results), failed)

	if failed > 0 {
		os.Exit(1)
	}
}
