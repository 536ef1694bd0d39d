package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nebulatools/sleepplan/internal/cli"
	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/engine"
	"github.com/nebulatools/sleepplan/internal/llm"
	"github.com/nebulatools/sleepplan/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine DB path: env var or default ~/.sleepplan/sleepplan.db
	dbPath := os.Getenv("SLEEPPLAN_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".sleepplan", "sleepplan.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	childRepo := repository.NewSQLiteChildRepo(database)
	eventRepo := repository.NewSQLiteEventRepo(database)
	planRepo := repository.NewSQLitePlanRepo(database)
	transcriptRepo := repository.NewSQLiteTranscriptRepo(database)

	uow := db.NewSQLiteUnitOfWork(database)

	// Wire the model client. A misconfigured provider leaves the client
	// nil; gating and read commands still work, generation reports the
	// service as unavailable.
	var client llm.LLMClient
	llmCfg := llm.LoadConfig()
	var observer llm.Observer = llm.NoopObserver{}
	if llmCfg.LogCalls {
		observer = llm.NewLogObserver(os.Stderr)
	}
	c, err := llm.NewClient(llmCfg, observer)
	switch {
	case err == nil:
		client = c
	case errors.Is(err, llm.ErrMisconfigured):
		fmt.Fprintf(os.Stderr, "Warning: model provider not configured (%v); plan generation disabled\n", err)
	default:
		return fmt.Errorf("initializing model client: %w", err)
	}

	engCfg := engine.LoadConfig()
	if err := engCfg.Validate(); err != nil {
		return fmt.Errorf("engine configuration: %w", err)
	}
	builder := engine.NewContextBuilder(childRepo, eventRepo)
	eng := engine.New(engCfg, builder, planRepo, transcriptRepo, uow, client)

	app := &cli.App{
		Children:    childRepo,
		Events:      eventRepo,
		Plans:       planRepo,
		Transcripts: transcriptRepo,
		Engine:      eng,
	}

	return cli.NewRootCmd(app).Execute()
}
