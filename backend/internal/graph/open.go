package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/config"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// Open connects to the store selected by cfg.StoreBackend
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		logger.Get().Info("Opening SQLite store", zap.String("path", cfg.SQLitePath))
		store, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreNeo4j:
		repo, err := openNeo4j(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, apperrors.NewConfigValidationFailed("STORE_BACKEND", "unsupported backend "+cfg.StoreBackend)
	}
}

func openNeo4j(ctx context.Context, cfg *config.Config) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.Neo4jMaxPoolSize
			c.SocketConnectTimeout = cfg.Neo4jTimeout
		},
	)
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.Neo4jTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}

	logger.Get().Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))
	return NewRepository(driver, cfg.Neo4jDatabase), nil
}
