package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
	memoryrepo "github.com/tendant/simple-artifact/pkg/simpleartifact/repo/memory"
	repopg "github.com/tendant/simple-artifact/pkg/simpleartifact/repo/postgres"
	fsstorage "github.com/tendant/simple-artifact/pkg/simpleartifact/storage/fs"
	memorystorage "github.com/tendant/simple-artifact/pkg/simpleartifact/storage/memory"
	s3storage "github.com/tendant/simple-artifact/pkg/simpleartifact/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top
// of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		DeleteBatchSize: 100,
	}
}

// ServerConfig represents server configuration for the simple-artifact
// maintenance service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Repository context the service is scoped to
	RepositoryID   uuid.UUID
	RepositoryName string

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	StorageBackends []StorageBackendConfig

	// Default chunk size for bulk deletes
	DeleteBatchSize int
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// WithPort sets the HTTP listen port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithRepository sets the repository context
func WithRepository(id uuid.UUID, name string) Option {
	return func(c *ServerConfig) error {
		c.RepositoryID = id
		c.RepositoryName = name
		return nil
	}
}

// WithDatabase sets the database type and connection string
func WithDatabase(databaseType, databaseURL string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseType = databaseType
		c.DatabaseURL = databaseURL
		return nil
	}
}

// WithStorageBackend adds a storage backend configuration
func WithStorageBackend(backend StorageBackendConfig) Option {
	return func(c *ServerConfig) error {
		c.StorageBackends = append(c.StorageBackends, backend)
		return nil
	}
}

// WithDeleteBatchSize sets the default chunk size for bulk deletes
func WithDeleteBatchSize(size int) Option {
	return func(c *ServerConfig) error {
		c.DeleteBatchSize = size
		return nil
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.RepositoryID == uuid.Nil {
		return errors.New("repository id is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.DeleteBatchSize < 1 {
		return errors.New("delete_batch_size must be at least 1")
	}

	return nil
}

// BuildService creates a maintenance Service instance from the server
// configuration
func (c *ServerConfig) BuildService(ctx context.Context) (simpleartifact.Service, error) {
	provider, err := c.buildSessionProvider(ctx)
	if err != nil {
		return nil, err
	}

	options := []simpleartifact.Option{
		simpleartifact.WithSessionProvider(provider),
		simpleartifact.WithRepository(simpleartifact.Repository{
			ID:   c.RepositoryID,
			Name: c.RepositoryName,
		}),
	}

	for _, backendCfg := range c.StorageBackends {
		store, err := buildBlobStore(backendCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %q: %w", backendCfg.Name, err)
		}
		options = append(options, simpleartifact.WithBlobStore(backendCfg.Name, store))
	}

	return simpleartifact.New(options...)
}

func (c *ServerConfig) buildSessionProvider(ctx context.Context) (simpleartifact.SessionProvider, error) {
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		return repopg.New(pool), nil
	default:
		return memoryrepo.New(), nil
	}
}

func buildBlobStore(cfg StorageBackendConfig) (simpleartifact.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		baseDir, _ := cfg.Config["base_dir"].(string)
		return fsstorage.New(fsstorage.Config{BaseDir: baseDir})
	case "s3":
		s3cfg := s3storage.Config{}
		if v, ok := cfg.Config["region"].(string); ok {
			s3cfg.Region = v
		}
		if v, ok := cfg.Config["bucket"].(string); ok {
			s3cfg.Bucket = v
		}
		if v, ok := cfg.Config["access_key_id"].(string); ok {
			s3cfg.AccessKeyID = v
		}
		if v, ok := cfg.Config["secret_access_key"].(string); ok {
			s3cfg.SecretAccessKey = v
		}
		if v, ok := cfg.Config["endpoint"].(string); ok {
			s3cfg.Endpoint = v
		}
		if v, ok := cfg.Config["use_path_style"].(bool); ok {
			s3cfg.UsePathStyle = v
		}
		return s3storage.New(s3cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend type %q", cfg.Type)
	}
}
