package driver

import (
	"context"
	"fmt"

	"github.com/agenthands/notalone/internal/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

type Neo4jDriver struct {
	Driver neo4j.DriverWithContext
	log    *zap.Logger
}

func NewNeo4jDriver(ctx context.Context, uri, username, password string, log *zap.Logger) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	log = logger.OrNop(log)
	log.Info("Connected to Neo4j", zap.String("uri", uri))
	return &Neo4jDriver{Driver: driver, log: log}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// BuildIndices creates the uniqueness constraints the stores rely on. It is
// safe to run repeatedly.
func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	for _, q := range SchemaQueries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Older servers reject IF NOT EXISTS; the schema may already be there.
			d.log.Warn("Failed to create index", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}
