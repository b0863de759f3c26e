package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Environment variable mapping:
//
//	PORT              - HTTP listen port (default: "8080")
//	ENVIRONMENT       - Runtime environment (default: "development")
//	REPOSITORY_ID     - UUID of the repository the service is scoped to (required)
//	REPOSITORY_NAME   - Display name of the repository
//	DATABASE_URL      - Connection string. "postgres://"/"postgresql://" selects
//	                    the postgres store; empty or "memory" selects in-memory.
//	STORAGE_URL       - Blob storage location (one of):
//	                    - "memory://"            in-memory storage (default)
//	                    - "file:///path/to/data" filesystem storage
//	                    - "s3://bucket?region=x&endpoint=y" S3 storage
//	DELETE_BATCH_SIZE - Default chunk size for bulk deletes (default: 100)
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if v, ok := lookupEnv(prefix, "REPOSITORY_ID"); ok && v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return fmt.Errorf("invalid REPOSITORY_ID: %w", err)
			}
			c.RepositoryID = id
		}
		if v, ok := lookupEnv(prefix, "REPOSITORY_NAME"); ok && v != "" {
			c.RepositoryName = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		if err := applyStorageEnv(prefix, c); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "DELETE_BATCH_SIZE"); ok && v != "" {
			size, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid DELETE_BATCH_SIZE: %w", err)
			}
			c.DeleteBatchSize = size
		}

		return nil
	}
}

func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")

	if !hasURL || dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL: %s", dbURL)
}

func applyStorageEnv(prefix string, c *ServerConfig) error {
	storageURL, ok := lookupEnv(prefix, "STORAGE_URL")
	if !ok || storageURL == "" || storageURL == "memory://" {
		return nil // keep the in-memory default
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		c.StorageBackends = []StorageBackendConfig{{
			Name:   "fs",
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": u.Path},
		}}
	case "s3":
		cfg := map[string]interface{}{"bucket": u.Host}
		if region := u.Query().Get("region"); region != "" {
			cfg["region"] = region
		}
		if endpoint := u.Query().Get("endpoint"); endpoint != "" {
			cfg["endpoint"] = endpoint
			cfg["use_path_style"] = true
		}
		c.StorageBackends = []StorageBackendConfig{{
			Name:   "s3",
			Type:   "s3",
			Config: cfg,
		}}
	default:
		return fmt.Errorf("unsupported STORAGE_URL scheme: %s", u.Scheme)
	}

	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	if prefix != "" {
		return os.LookupEnv(prefix + key)
	}
	return os.LookupEnv(key)
}
