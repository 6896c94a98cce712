package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/neo4jdb"
)

// UpsertDependencyEdges mirrors dependency edges into neo4j. The mirror is
// read-optimized convenience data; a nil client turns every call into a
// no-op and postgres stays the source of truth.
func UpsertDependencyEdges(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, projectID uuid.UUID, edges []*domain.DependencyEdge) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if projectID == uuid.Nil {
		return fmt.Errorf("neo4j dependency sync: missing projectID")
	}
	if len(edges) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	rels := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if e == nil || e.SourceID == uuid.Nil || e.TargetID == uuid.Nil || e.Relation == "" {
			continue
		}
		rels = append(rels, map[string]any{
			"id":          e.ID.String(),
			"project_id":  projectID.String(),
			"source_id":   e.SourceID.String(),
			"source_type": string(e.SourceType),
			"target_id":   e.TargetID.String(),
			"target_type": string(e.TargetType),
			"relation":    string(e.Relation),
			"strength":    e.Strength,
			"synced_at":   now,
		})
	}
	if len(rels) == 0 {
		return nil
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	ensureSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $rels AS r
MERGE (a:Entity {id: r.source_id})
SET a.entity_type = r.source_type,
    a.project_id = r.project_id
MERGE (b:Entity {id: r.target_id})
SET b.entity_type = r.target_type,
    b.project_id = r.project_id
MERGE (a)-[e:DEPENDS_ON {relation: r.relation}]->(b)
SET e.id = r.id,
    e.project_id = r.project_id,
    e.strength = r.strength,
    e.synced_at = r.synced_at
`, map[string]any{"rels": rels})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// RemoveEdgesBySource drops every mirrored edge leaving the given entity.
func RemoveEdgesBySource(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, projectID uuid.UUID, source domain.EntityRef) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if projectID == uuid.Nil || source.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Entity {id: $source_id})-[e:DEPENDS_ON]->()
WHERE e.project_id = $project_id
DELETE e
`, map[string]any{
			"source_id":  source.ID.String(),
			"project_id": projectID.String(),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// RemoveEdgesBetween drops mirrored edges from source to target, optionally
// narrowed to one relation.
func RemoveEdgesBetween(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, projectID uuid.UUID, source, target domain.EntityRef, relation *domain.RelationType) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if projectID == uuid.Nil || source.ID == uuid.Nil || target.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	params := map[string]any{
		"source_id":  source.ID.String(),
		"target_id":  target.ID.String(),
		"project_id": projectID.String(),
	}
	query := `
MATCH (a:Entity {id: $source_id})-[e:DEPENDS_ON]->(b:Entity {id: $target_id})
WHERE e.project_id = $project_id
DELETE e
`
	if relation != nil {
		params["relation"] = string(*relation)
		query = `
MATCH (a:Entity {id: $source_id})-[e:DEPENDS_ON {relation: $relation}]->(b:Entity {id: $target_id})
WHERE e.project_id = $project_id
DELETE e
`
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// ReplaceProjectGraph rebuilds the project's mirror from scratch: every
// mirrored edge for the project is dropped, then the given set is written.
func ReplaceProjectGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, projectID uuid.UUID, edges []*domain.DependencyEdge) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if projectID == uuid.Nil {
		return fmt.Errorf("neo4j dependency rebuild: missing projectID")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	ensureSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH ()-[e:DEPENDS_ON {project_id: $project_id}]->()
DELETE e
`, map[string]any{"project_id": projectID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	return UpsertDependencyEdges(ctx, client, log, projectID, edges)
}

// ensureSchema creates constraints and indexes (best-effort; may fail for
// restricted users).
func ensureSchema(ctx context.Context, session neo4j.SessionWithContext, log *logger.Logger) {
	if res, err := session.Run(ctx, `CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}
	if res, err := session.Run(ctx, `CREATE INDEX entity_project_idx IF NOT EXISTS FOR (n:Entity) ON (n.project_id)`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}
}
