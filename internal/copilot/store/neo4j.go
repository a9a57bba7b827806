package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kart-io/adas-copilot/internal/model"
)

var relTypePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Neo4jGraph implements GraphStore on a Neo4j knowledge graph.
// Entity nodes carry name, entity_type, value and confidence_score
// properties; relationships are typed (DEPENDS_ON, PART_OF, SUPPLIED_BY,
// and any extraction-specific types).
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraph creates a graph store over an established driver.
func NewNeo4jGraph(driver neo4j.DriverWithContext, database string) *Neo4jGraph {
	return &Neo4jGraph{driver: driver, database: database}
}

func (g *Neo4jGraph) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}

func recordString(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func recordInt(rec *neo4j.Record, key string) int64 {
	if v, ok := rec.Get(key); ok {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return 0
}

func recordFloat(rec *neo4j.Record, key string) float64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}

func recordStrings(rec *neo4j.Record, key string) []string {
	out := []string{}
	v, ok := rec.Get(key)
	if !ok {
		return out
	}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// relTypeFragment renders a validated relationship type filter for
// embedding in a variable-length pattern. Relationship types cannot be
// parameterized in Cypher, so invalid names are rejected outright.
func relTypeFragment(relationshipTypes []string) (string, error) {
	if len(relationshipTypes) == 0 {
		return "", nil
	}
	for _, rt := range relationshipTypes {
		if !relTypePattern.MatchString(rt) {
			return "", fmt.Errorf("invalid relationship type %q", rt)
		}
	}
	return ":" + strings.Join(relationshipTypes, "|"), nil
}

// relatedEntitiesQuery 生成相关实体查询。路径先按长度排序再取第一条,
// distance 与 rel_path 都来自同一条最短路径,二者长度必然一致。
func relatedEntitiesQuery(relFilter string, maxDepth int) string {
	return fmt.Sprintf(`
		MATCH path = (start:Entity {name: $name})-[%s*1..%d]-(related:Entity)
		WHERE related <> start
		WITH related, path
		ORDER BY length(path)
		WITH related, collect(path)[0] AS shortest
		RETURN related.name AS name,
		       related.entity_type AS type,
		       related.value AS value,
		       length(shortest) AS distance,
		       [rel IN relationships(shortest) | type(rel)] AS rel_path
		ORDER BY distance, name
		LIMIT %d`, relFilter, maxDepth, RelatedEntityLimit)
}

// RelatedEntities traverses undirected paths out to maxDepth hops and
// returns each reachable entity once, at its shortest distance.
func (g *Neo4jGraph) RelatedEntities(ctx context.Context, entityName string, maxDepth int, relationshipTypes []string) ([]model.RelatedEntity, error) {
	relFilter, err := relTypeFragment(relationshipTypes)
	if err != nil {
		return nil, err
	}

	records, err := g.read(ctx, relatedEntitiesQuery(relFilter, maxDepth), map[string]any{"name": entityName})
	if err != nil {
		return nil, fmt.Errorf("failed to find related entities: %w", err)
	}

	results := make([]model.RelatedEntity, 0, len(records))
	for _, rec := range records {
		results = append(results, model.RelatedEntity{
			Name:             recordString(rec, "name"),
			Type:             recordString(rec, "type"),
			Value:            recordString(rec, "value"),
			Distance:         int(recordInt(rec, "distance")),
			RelationshipPath: recordStrings(rec, "rel_path"),
		})
	}
	return results, nil
}

// ComponentDependencies fetches the four one-hop dependency views of a
// component in a single query.
func (g *Neo4jGraph) ComponentDependencies(ctx context.Context, componentName string) (*model.ComponentDependencies, error) {
	cypher := `
		MATCH (c:Entity {name: $name})
		OPTIONAL MATCH (c)-[:DEPENDS_ON]->(dep:Entity)
		OPTIONAL MATCH (req:Entity)-[:DEPENDS_ON]->(c)
		OPTIONAL MATCH (c)-[:PART_OF]->(sys:Entity)
		OPTIONAL MATCH (c)-[:SUPPLIED_BY]->(sup:Entity)
		RETURN collect(DISTINCT dep.name) AS dependencies,
		       collect(DISTINCT req.name) AS required_by,
		       collect(DISTINCT sys.name) AS systems,
		       collect(DISTINCT sup.name) AS suppliers`

	records, err := g.read(ctx, cypher, map[string]any{"name": componentName})
	if err != nil {
		return nil, fmt.Errorf("failed to find component dependencies: %w", err)
	}

	deps := &model.ComponentDependencies{
		Dependencies: []string{},
		RequiredBy:   []string{},
		Systems:      []string{},
		Suppliers:    []string{},
	}
	if len(records) == 0 {
		return deps, nil
	}
	rec := records[0]
	deps.Dependencies = recordStrings(rec, "dependencies")
	deps.RequiredBy = recordStrings(rec, "required_by")
	deps.Systems = recordStrings(rec, "systems")
	deps.Suppliers = recordStrings(rec, "suppliers")
	return deps, nil
}

// SystemComponents lists the components PART_OF a system with their
// suppliers.
func (g *Neo4jGraph) SystemComponents(ctx context.Context, systemName string) ([]model.SystemComponent, error) {
	cypher := `
		MATCH (comp:Entity)-[:PART_OF]->(sys:Entity {name: $system})
		OPTIONAL MATCH (comp)-[:SUPPLIED_BY]->(sup:Entity)
		RETURN comp.name AS name,
		       comp.value AS value,
		       collect(DISTINCT sup.name) AS suppliers
		ORDER BY name`

	records, err := g.read(ctx, cypher, map[string]any{"system": systemName})
	if err != nil {
		return nil, fmt.Errorf("failed to find system components: %w", err)
	}

	components := make([]model.SystemComponent, 0, len(records))
	for _, rec := range records {
		components = append(components, model.SystemComponent{
			Name:      recordString(rec, "name"),
			Value:     recordString(rec, "value"),
			Suppliers: recordStrings(rec, "suppliers"),
		})
	}
	return components, nil
}

// SearchEntities matches entity names by case-insensitive substring,
// ordered by confidence then name.
func (g *Neo4jGraph) SearchEntities(ctx context.Context, pattern string, entityTypes []string) ([]model.GraphEntity, error) {
	cypher := `
		MATCH (e:Entity)
		WHERE e.name =~ $pattern`
	params := map[string]any{
		"pattern": "(?i).*" + regexp.QuoteMeta(pattern) + ".*",
	}
	if len(entityTypes) > 0 {
		cypher += " AND e.entity_type IN $types"
		params["types"] = entityTypes
	}
	cypher += fmt.Sprintf(`
		RETURN e.name AS name,
		       e.entity_type AS type,
		       e.value AS value,
		       coalesce(e.confidence_score, 0.0) AS confidence
		ORDER BY confidence DESC, name
		LIMIT %d`, PatternSearchLimit)

	records, err := g.read(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}

	entities := make([]model.GraphEntity, 0, len(records))
	for _, rec := range records {
		entities = append(entities, model.GraphEntity{
			Name:       recordString(rec, "name"),
			Type:       recordString(rec, "type"),
			Value:      recordString(rec, "value"),
			Confidence: recordFloat(rec, "confidence"),
		})
	}
	return entities, nil
}

// Stats summarizes entity and relationship counts and the distinct
// entity types present in the graph.
func (g *Neo4jGraph) Stats(ctx context.Context) (*model.GraphStats, error) {
	cypher := `
		MATCH (e:Entity)
		WITH count(e) AS entities, collect(DISTINCT e.entity_type) AS types
		OPTIONAL MATCH ()-[r]->()
		RETURN entities, types, count(r) AS relationships`

	records, err := g.read(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get graph statistics: %w", err)
	}

	stats := &model.GraphStats{EntityTypes: []string{}}
	if len(records) == 0 {
		return stats, nil
	}
	rec := records[0]
	stats.TotalEntities = recordInt(rec, "entities")
	stats.TotalRelationships = recordInt(rec, "relationships")
	stats.EntityTypes = recordStrings(rec, "types")
	return stats, nil
}

// Ping verifies graph connectivity.
func (g *Neo4jGraph) Ping(ctx context.Context) error {
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connectivity check failed: %w", err)
	}
	return nil
}

var _ GraphStore = (*Neo4jGraph)(nil)
