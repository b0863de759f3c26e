// Command purge bulk-deletes components from an artifact repository. It
// only needs database (and optionally blob storage) access, so it can run
// against a live store without going through the HTTP API.
//
// Component ids are read from the command line, or from stdin (one per
// line) when invoked with no arguments.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
	memoryrepo "github.com/tendant/simple-artifact/pkg/simpleartifact/repo/memory"
	repopg "github.com/tendant/simple-artifact/pkg/simpleartifact/repo/postgres"
)

// Config holds purge configuration read from the environment
type Config struct {
	DatabaseURL    string `env:"DATABASE_URL" env-default:""`
	DatabaseType   string `env:"DATABASE_TYPE" env-default:"memory"`
	RepositoryID   string `env:"REPOSITORY_ID"`
	RepositoryName string `env:"REPOSITORY_NAME" env-default:""`
}

func main() {
	batchSize := flag.Int("batch-size", 100, "number of components deleted per transaction")
	deleteBlobs := flag.Bool("delete-blobs", false, "request blob deletion for each removed asset")
	timeout := flag.Duration("timeout", 0, "stop starting new work after this duration (0 = no timeout)")
	flag.Parse()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read environment", "error", err)
		os.Exit(1)
	}

	repositoryID, err := uuid.Parse(cfg.RepositoryID)
	if err != nil {
		slog.Error("REPOSITORY_ID must be a valid UUID", "error", err)
		os.Exit(1)
	}

	ids, err := readComponentIDs(flag.Args())
	if err != nil {
		slog.Error("Failed to read component ids", "error", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "no component ids given")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to store", "error", err)
		os.Exit(1)
	}

	svc, err := simpleartifact.New(
		simpleartifact.WithSessionProvider(provider),
		simpleartifact.WithRepository(simpleartifact.Repository{
			ID:   repositoryID,
			Name: cfg.RepositoryName,
		}),
	)
	if err != nil {
		slog.Error("Failed to create maintenance service", "error", err)
		os.Exit(1)
	}

	var cancelled func() bool
	if *timeout > 0 {
		deadline := time.Now().Add(*timeout)
		cancelled = func() bool { return time.Now().After(deadline) }
	}

	start := time.Now()
	count, err := svc.DeleteComponents(ctx, simpleartifact.DeleteComponentsRequest{
		ComponentIDs: ids,
		DeleteBlobs:  *deleteBlobs,
		BatchSize:    *batchSize,
		Cancelled:    cancelled,
	})
	if err != nil {
		slog.Error("Bulk delete failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Bulk delete finished",
		"requested", len(ids),
		"deleted", count,
		"elapsed", time.Since(start))
	fmt.Printf("deleted %d of %d components\n", count, len(ids))
}

func buildProvider(ctx context.Context, cfg Config) (simpleartifact.SessionProvider, error) {
	if cfg.DatabaseType == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repopg.New(pool), nil
	}
	return memoryrepo.New(), nil
}

func readComponentIDs(args []string) ([]uuid.UUID, error) {
	var raw []string
	if len(args) > 0 {
		raw = args
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				raw = append(raw, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid component id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
