// Command maintenance serves the artifact maintenance API behind API-key
// authentication, wired straight to postgres. Unlike cmd/server it does not
// expose any unauthenticated routes besides the health checks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
	"github.com/tendant/simple-artifact/pkg/simpleartifact/api"
	repopg "github.com/tendant/simple-artifact/pkg/simpleartifact/repo/postgres"
)

type Config struct {
	DB              DbConfig
	ApiKeySHA256    string `env:"API_KEY_SHA256" env-default:"1"`
	RepositoryID    string `env:"REPOSITORY_ID"`
	RepositoryName  string `env:"REPOSITORY_NAME" env-default:""`
	DeleteBatchSize int    `env:"DELETE_BATCH_SIZE" env-default:"100"`
}

type DbConfig struct {
	Port     uint16 `env:"ARTIFACT_PG_PORT" env-default:"5432"`
	Host     string `env:"ARTIFACT_PG_HOST" env-default:"localhost"`
	Name     string `env:"ARTIFACT_PG_NAME" env-default:"artifact_db"`
	User     string `env:"ARTIFACT_PG_USER" env-default:"artifact"`
	Password string `env:"ARTIFACT_PG_PASSWORD" env-default:"pwd"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func NewDbPool(ctx context.Context, dbConfig DbConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbConfig.toDatabaseUrl())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func main() {
	// Load configuration
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	repositoryID, err := uuid.Parse(config.RepositoryID)
	if err != nil {
		slog.Error("REPOSITORY_ID must be a valid UUID", "error", err)
		os.Exit(1)
	}

	apiKeyConfig := middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"key1": config.ApiKeySHA256,
		},
	}

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := NewDbPool(ctx, config.DB)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Initialize maintenance service
	svc, err := simpleartifact.New(
		simpleartifact.WithSessionProvider(repopg.New(dbPool)),
		simpleartifact.WithRepository(simpleartifact.Repository{
			ID:   repositoryID,
			Name: config.RepositoryName,
		}),
	)
	if err != nil {
		slog.Error("Failed to create maintenance service", "error", err)
		os.Exit(1)
	}

	server := app.DefaultWithoutRoutes()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	maintenanceHandler := api.NewMaintenanceHandler(svc, config.DeleteBatchSize)

	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(apiKeyConfig)
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "error", err)
		return
	}
	server.R.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/maintenance", maintenanceHandler.Routes())
		})
	})

	defer dbPool.Close()

	// Start server
	server.Run()
}
