package store

import (
	"context"
	"fmt"
)

// Backend types accepted by Open.
const (
	TypeJSON     = "json"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMongo    = "mongo"
)

// BackendConfig selects and locates a backend.
type BackendConfig struct {
	Type string
	// Path is the file used by the json and sqlite backends.
	Path string
	// DSN is the connection string of the postgres and mongo backends.
	DSN        string
	Database   string
	Collection string
}

// Open creates the backend named by config.Type.
func Open(ctx context.Context, config BackendConfig) (Backend, error) {
	switch config.Type {
	case TypeJSON, "":
		return NewJSONFileBackend(config.Path)
	case TypeSQLite:
		return NewSQLiteBackend(config.Path)
	case TypePostgres:
		return NewPostgresBackend(ctx, config.DSN)
	case TypeMongo:
		return NewMongoBackend(ctx, MongoConfig{
			URI:        config.DSN,
			Database:   config.Database,
			Collection: config.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", config.Type)
	}
}
