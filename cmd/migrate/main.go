package main

// Apply or inspect the postgres storage schema:
//   go run ./cmd/migrate          # apply pending migrations
//   go run ./cmd/migrate version  # print the applied version

import (
	"context"
	"fmt"
	"log"
	"os"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	action := "up"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer sqlDB.Close()

	switch action {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "version":
		var v int64
		if v, err = db.SchemaVersion(ctx, sqlDB); err == nil {
			fmt.Println(v)
		}
	default:
		err = fmt.Errorf("unknown action %q (want up or version)", action)
	}
	if err != nil {
		log.Printf("migrate %s: %v", action, err)
		sqlDB.Close()
		os.Exit(1)
	}
}
