package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/leitner/internal/config"
	"github.com/conorfennell/leitner/internal/storage"
	cardsync "github.com/conorfennell/leitner/internal/sync"
	"github.com/conorfennell/leitner/internal/web"
)

func main() {
	// 1. Parse flags and assemble the configuration
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Open the database
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("Database opened successfully: %s", cfg.DBPath)

	// 3. One-shot source registration
	if path, _ := flags.GetString("add-source"); path != "" {
		sourceType := cardsync.SourceType(path)
		id, err := db.InsertSource(path, sourceType)
		if err != nil {
			log.Fatalf("Failed to add source %s: %v", path, err)
		}
		log.Printf("Registered %s source %d: %s", sourceType, id, path)
		return
	}

	// 4. Optional sync before serving
	if doSync, _ := flags.GetBool("sync"); doSync {
		if err := cardsync.Run(db, cfg.ReposDir, time.Now()); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
	}

	// 5. Serve the study UI
	intervals, err := cfg.IntervalTable()
	if err != nil {
		log.Fatalf("Invalid interval table: %v", err)
	}
	server := web.NewServer(db, intervals, cfg.ReposDir)

	log.Printf("Listening on %s", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
